package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/gridsign/internal/clock"
	"github.com/smallbiznis/gridsign/internal/counterparty/domain"
	"github.com/smallbiznis/gridsign/pkg/db"
	"github.com/smallbiznis/gridsign/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	validate *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("counterparty.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		validate: validator.New(),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCounterpartyRequest) (domain.Counterparty, error) {
	kind := domain.Type(strings.ToLower(strings.TrimSpace(req.Type)))
	if kind == "" {
		kind = domain.TypePerson
	}
	if kind != domain.TypePerson && kind != domain.TypeCompany {
		return domain.Counterparty{}, domain.ErrInvalidType
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Counterparty{}, domain.ErrInvalidName
	}

	street := strings.TrimSpace(req.Street)
	postalCode := strings.TrimSpace(req.PostalCode)
	city := strings.TrimSpace(req.City)
	if street == "" || postalCode == "" || city == "" {
		return domain.Counterparty{}, domain.ErrInvalidAddress
	}

	country := strings.TrimSpace(req.Country)
	if country == "" {
		country = "DE"
	}
	if err := s.validate.Var(country, "len=2,alpha,uppercase"); err != nil {
		return domain.Counterparty{}, domain.ErrInvalidCountry
	}

	email := strings.TrimSpace(req.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return domain.Counterparty{}, domain.ErrInvalidEmail
	}

	now := s.clock.Now().UTC()
	counterparty := domain.Counterparty{
		ID:         s.genID.Generate(),
		Type:       kind,
		Name:       name,
		Street:     street,
		PostalCode: postalCode,
		City:       city,
		Country:    country,
		Email:      email,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, s.db, &counterparty); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Counterparty{}, domain.ErrEmailAlreadyTaken
		}
		s.log.Error("failed to insert counterparty", zap.Error(err))
		return domain.Counterparty{}, err
	}

	return counterparty, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCounterpartyRequest) (domain.ListCounterpartyResponse, error) {
	filter := domain.ListCounterpartyFilter{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	if err := page.Validate(); err != nil {
		return domain.ListCounterpartyResponse{}, err
	}
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListCounterpartyResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, page.Size(), func(c *domain.Counterparty) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        c.ID.String(),
			CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	counterparties := make([]domain.Counterparty, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		counterparties = append(counterparties, *item)
	}

	return domain.ListCounterpartyResponse{PageInfo: pageInfo, Counterparties: counterparties}, nil
}

func (s *Service) GetByID(ctx context.Context, value string) (domain.Counterparty, error) {
	id, err := ParseID(value)
	if err != nil {
		return domain.Counterparty{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Counterparty{}, err
	}
	if item == nil {
		return domain.Counterparty{}, domain.ErrNotFound
	}

	return *item, nil
}

// ParseID parses a decimal snowflake id.
func ParseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
