package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/gridsign/internal/clock"
	"github.com/smallbiznis/gridsign/internal/contract/domain"
	counterpartydomain "github.com/smallbiznis/gridsign/internal/counterparty/domain"
	documentdomain "github.com/smallbiznis/gridsign/internal/document/domain"
	offerdomain "github.com/smallbiznis/gridsign/internal/offer/domain"
	"github.com/smallbiznis/gridsign/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	Clock            clock.Clock
	Repo             domain.Repository
	CounterpartyRepo counterpartydomain.Repository
	OfferRepo        offerdomain.Repository
	Renderer         documentdomain.Renderer
	Documents        documentdomain.Reader
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	clock            clock.Clock
	repo             domain.Repository
	counterpartyRepo counterpartydomain.Repository
	offerRepo        offerdomain.Repository
	renderer         documentdomain.Renderer
	documents        documentdomain.Reader
}

func New(p Params) domain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("contract.service"),
		clock:            p.Clock,
		repo:             p.Repo,
		counterpartyRepo: p.CounterpartyRepo,
		offerRepo:        p.OfferRepo,
		renderer:         p.Renderer,
		documents:        p.Documents,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateContractRequest) (domain.Contract, error) {
	if strings.TrimSpace(req.CounterpartyID) == "" {
		return domain.Contract{}, domain.ErrCounterpartyRequired
	}
	counterpartyID, err := parseSnowflake(req.CounterpartyID, counterpartydomain.ErrInvalidID)
	if err != nil {
		return domain.Contract{}, err
	}

	var offerID *snowflake.ID
	if strings.TrimSpace(req.OfferID) != "" {
		id, err := parseSnowflake(req.OfferID, offerdomain.ErrInvalidID)
		if err != nil {
			return domain.Contract{}, err
		}
		offerID = &id
	}

	contract, err := energyParams(req)
	if err != nil {
		return domain.Contract{}, err
	}

	counterparty, err := s.counterpartyRepo.FindByID(ctx, s.db, counterpartyID)
	if err != nil {
		return domain.Contract{}, err
	}
	if counterparty == nil {
		return domain.Contract{}, counterpartydomain.ErrNotFound
	}

	if offerID != nil {
		if _, err := s.activeOffer(ctx, *offerID); err != nil {
			return domain.Contract{}, err
		}
	}

	now := s.clock.Now().UTC()
	contract.ID = uuid.New()
	contract.Status = domain.StatusDraft
	contract.CounterpartyID = &counterpartyID
	contract.OfferID = offerID
	contract.CreatedAt = now
	contract.UpdatedAt = now

	if err := s.repo.Insert(ctx, s.db, &contract); err != nil {
		s.log.Error("failed to insert contract", zap.Error(err))
		return domain.Contract{}, err
	}

	s.log.Info("contract created",
		zap.String("contract_id", contract.ID.String()),
		zap.String("counterparty_id", counterpartyID.String()),
	)
	return contract, nil
}

// CreateDraft creates a draft contract for the pair and renders its draft
// document in the same transaction.
func (s *Service) CreateDraft(ctx context.Context, req domain.CreateDraftRequest) (domain.Contract, error) {
	if strings.TrimSpace(req.CounterpartyID) == "" {
		return domain.Contract{}, domain.ErrCounterpartyRequired
	}
	if strings.TrimSpace(req.OfferID) == "" {
		return domain.Contract{}, domain.ErrOfferRequired
	}
	counterpartyID, err := parseSnowflake(req.CounterpartyID, counterpartydomain.ErrInvalidID)
	if err != nil {
		return domain.Contract{}, err
	}
	offerID, err := parseSnowflake(req.OfferID, offerdomain.ErrInvalidID)
	if err != nil {
		return domain.Contract{}, err
	}

	counterparty, err := s.counterpartyRepo.FindByID(ctx, s.db, counterpartyID)
	if err != nil {
		return domain.Contract{}, err
	}
	if counterparty == nil {
		return domain.Contract{}, counterpartydomain.ErrNotFound
	}

	offer, err := s.activeOffer(ctx, offerID)
	if err != nil {
		return domain.Contract{}, err
	}

	now := s.clock.Now().UTC()
	contract := domain.Contract{
		ID:             uuid.New(),
		Status:         domain.StatusDraft,
		CounterpartyID: &counterpartyID,
		OfferID:        &offerID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &contract); err != nil {
			return err
		}
		path, err := s.renderDraft(ctx, tx, contract.ID, *counterparty, *offer, now)
		if err != nil {
			return err
		}
		contract.DraftPDFPath = &path
		return nil
	})
	if err != nil {
		s.log.Error("failed to create draft contract", zap.Error(err))
		return domain.Contract{}, err
	}

	return contract, nil
}

// GenerateDraft renders the draft document of an existing draft contract.
func (s *Service) GenerateDraft(ctx context.Context, value string) (domain.Contract, error) {
	id, err := parseUUID(value)
	if err != nil {
		return domain.Contract{}, err
	}

	var result domain.Contract
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contract, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if contract == nil {
			return domain.ErrNotFound
		}
		if err := domain.RequireStatus(contract.Status, domain.StatusDraft); err != nil {
			return err
		}
		if contract.HasDraftDocument() {
			return domain.ErrDraftDocumentExists
		}

		counterparty, offer, err := s.parties(ctx, tx, *contract)
		if err != nil {
			return err
		}
		if counterparty == nil || offer == nil {
			return domain.ErrDraftPartiesMissing
		}

		now := s.clock.Now().UTC()
		path, err := s.renderDraft(ctx, tx, contract.ID, *counterparty, *offer, now)
		if err != nil {
			return err
		}
		contract.DraftPDFPath = &path
		contract.UpdatedAt = now
		result = *contract
		return nil
	})
	if err != nil {
		return domain.Contract{}, err
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, value string) (domain.ContractDetail, error) {
	id, err := parseUUID(value)
	if err != nil {
		return domain.ContractDetail{}, err
	}

	contract, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.ContractDetail{}, err
	}
	if contract == nil {
		return domain.ContractDetail{}, domain.ErrNotFound
	}

	counterparty, offer, err := s.parties(ctx, s.db, *contract)
	if err != nil {
		return domain.ContractDetail{}, err
	}

	return domain.ContractDetail{
		Contract:           *contract,
		Counterparty:       counterparty,
		Offer:              offer,
		DraftPDFAvailable:  contract.HasDraftDocument(),
		SignedPDFAvailable: contract.HasSignedDocument(),
	}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListContractRequest) (domain.ListContractResponse, error) {
	var filter domain.ListContractFilter
	if status := domain.Status(strings.ToLower(strings.TrimSpace(req.Status))); status != "" {
		if !status.Valid() {
			return domain.ListContractResponse{}, domain.ErrInvalidStatusFilter
		}
		filter.Status = status
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	if err := page.Validate(); err != nil {
		return domain.ListContractResponse{}, err
	}
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListContractResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, page.Size(), func(c *domain.Contract) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        c.ID.String(),
			CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	contracts := make([]domain.Contract, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		contracts = append(contracts, *item)
	}

	return domain.ListContractResponse{PageInfo: pageInfo, Contracts: contracts}, nil
}

func (s *Service) DraftDocument(ctx context.Context, value string) ([]byte, error) {
	contract, err := s.find(ctx, value)
	if err != nil {
		return nil, err
	}
	if !contract.HasDraftDocument() {
		return nil, domain.ErrDocumentNotFound
	}
	return s.open(ctx, *contract.DraftPDFPath)
}

func (s *Service) SignedDocument(ctx context.Context, value string) ([]byte, error) {
	contract, err := s.find(ctx, value)
	if err != nil {
		return nil, err
	}
	if contract.Status != domain.StatusSigned || !contract.HasSignedDocument() {
		return nil, domain.ErrDocumentNotFound
	}
	return s.open(ctx, *contract.SignedPDFPath)
}

func (s *Service) find(ctx context.Context, value string) (*domain.Contract, error) {
	id, err := parseUUID(value)
	if err != nil {
		return nil, err
	}
	contract, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.ErrNotFound
	}
	return contract, nil
}

func (s *Service) open(ctx context.Context, ref string) ([]byte, error) {
	data, err := s.documents.Open(ctx, ref)
	if err != nil {
		if errors.Is(err, documentdomain.ErrNotFound) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Service) activeOffer(ctx context.Context, id snowflake.ID) (*offerdomain.Offer, error) {
	offer, err := s.offerRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, offerdomain.ErrNotFound
	}
	if !offer.IsActive {
		return nil, domain.ErrOfferInactive
	}
	return offer, nil
}

func (s *Service) parties(ctx context.Context, db *gorm.DB, contract domain.Contract) (*counterpartydomain.Counterparty, *offerdomain.Offer, error) {
	var (
		counterparty *counterpartydomain.Counterparty
		offer        *offerdomain.Offer
		err          error
	)
	if contract.CounterpartyID != nil {
		if counterparty, err = s.counterpartyRepo.FindByID(ctx, db, *contract.CounterpartyID); err != nil {
			return nil, nil, err
		}
	}
	if contract.OfferID != nil {
		if offer, err = s.offerRepo.FindByID(ctx, db, *contract.OfferID); err != nil {
			return nil, nil, err
		}
	}
	return counterparty, offer, nil
}

func (s *Service) renderDraft(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	counterparty counterpartydomain.Counterparty,
	offer offerdomain.Offer,
	now time.Time,
) (string, error) {
	path, err := s.renderer.RenderDraft(ctx, id,
		documentdomain.CounterpartyFieldsFrom(counterparty),
		documentdomain.OfferFieldsFrom(offer),
	)
	if err != nil {
		return "", err
	}

	affected, err := s.repo.SetDraftDocument(ctx, tx, id, path, now)
	if err != nil {
		return "", err
	}
	if affected == 0 {
		return "", domain.ErrDraftDocumentExists
	}
	return path, nil
}

func parseUUID(value string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, domain.ErrInvalidID
	}
	return id, nil
}

func parseSnowflake(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
