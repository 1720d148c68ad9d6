package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/gridsign/internal/clock"
	contractdomain "github.com/smallbiznis/gridsign/internal/contract/domain"
	counterpartydomain "github.com/smallbiznis/gridsign/internal/counterparty/domain"
	documentdomain "github.com/smallbiznis/gridsign/internal/document/domain"
	offerdomain "github.com/smallbiznis/gridsign/internal/offer/domain"
	obslogger "github.com/smallbiznis/gridsign/internal/observability/logger"
	"github.com/smallbiznis/gridsign/internal/observability/metrics"
	"github.com/smallbiznis/gridsign/internal/signing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	Clock            clock.Clock
	Provider         domain.Provider
	Repo             domain.Repository
	ContractRepo     contractdomain.Repository
	CounterpartyRepo counterpartydomain.Repository
	OfferRepo        offerdomain.Repository
	Renderer         documentdomain.Renderer
	Metrics          *metrics.Metrics `optional:"true"`
	Locker           domain.Locker    `optional:"true"`
}

// Service is the contract signing state machine.
type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	clock            clock.Clock
	provider         domain.Provider
	repo             domain.Repository
	contractRepo     contractdomain.Repository
	counterpartyRepo counterpartydomain.Repository
	offerRepo        offerdomain.Repository
	renderer         documentdomain.Renderer
	metrics          *metrics.Metrics
	locker           domain.Locker
}

func New(p Params) domain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("signing.service"),
		clock:            p.Clock,
		provider:         p.Provider,
		repo:             p.Repo,
		contractRepo:     p.ContractRepo,
		counterpartyRepo: p.CounterpartyRepo,
		offerRepo:        p.OfferRepo,
		renderer:         p.Renderer,
		metrics:          p.Metrics,
		locker:           p.Locker,
	}
}

// StartSigning moves a draft contract with a draft document to
// awaiting_signature and records the provider envelope. The envelope
// insert and the status update commit together. The external envelope is
// not revoked when the transaction fails.
func (s *Service) StartSigning(ctx context.Context, value string) (domain.StartSigningResult, error) {
	contractID, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return domain.StartSigningResult{}, contractdomain.ErrInvalidID
	}
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("contract_id", contractID.String()),
		zap.String("provider", s.provider.Name()),
	)

	if s.locker != nil {
		token, ok, err := s.locker.TryLockContract(ctx, contractID.String())
		if err != nil {
			log.Warn("signing lock unavailable, continuing without it", zap.Error(err))
		} else if !ok {
			return domain.StartSigningResult{}, domain.ErrSigningInProgress
		} else {
			defer func() {
				if err := s.locker.ReleaseContract(context.WithoutCancel(ctx), contractID.String(), token); err != nil {
					log.Warn("failed to release signing lock", zap.Error(err))
				}
			}()
		}
	}

	contract, err := s.contractRepo.FindByID(ctx, s.db, contractID)
	if err != nil {
		return domain.StartSigningResult{}, err
	}
	if contract == nil {
		return domain.StartSigningResult{}, contractdomain.ErrNotFound
	}
	if err := contractdomain.Transition(contract.Status, contractdomain.StatusAwaitingSignature); err != nil {
		return domain.StartSigningResult{}, err
	}
	if !contract.HasDraftDocument() {
		return domain.StartSigningResult{}, contractdomain.ErrDraftDocumentMissing
	}

	created, err := s.provider.CreateEnvelope(ctx, contractID, *contract.DraftPDFPath)
	if err != nil {
		log.Error("provider failed to create envelope", zap.Error(err))
		return domain.StartSigningResult{}, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}

	now := s.clock.Now().UTC()
	envelope := domain.Envelope{
		ID:                 uuid.New(),
		ContractID:         contractID,
		Provider:           s.provider.Name(),
		ProviderEnvelopeID: created.ProviderEnvelopeID,
		Status:             domain.EnvelopeStatusSent,
		SigningURL:         created.SigningURL,
		Evidence:           datatypes.JSON("[]"),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &envelope); err != nil {
			return err
		}
		affected, err := s.contractRepo.UpdateStatus(ctx, tx, contractID,
			contractdomain.StatusDraft, contractdomain.StatusAwaitingSignature, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			current, err := s.contractRepo.FindByID(ctx, tx, contractID)
			if err != nil {
				return err
			}
			if current == nil {
				return contractdomain.ErrNotFound
			}
			return contractdomain.RequireStatus(current.Status, contractdomain.StatusDraft)
		}
		return nil
	})
	if err != nil {
		log.Warn("signing start rolled back",
			zap.String("provider_envelope_id", created.ProviderEnvelopeID),
			zap.Error(err),
		)
		return domain.StartSigningResult{}, err
	}

	s.metrics.RecordSigningStarted(ctx, s.provider.Name())
	log.Info("signing started", zap.String("provider_envelope_id", created.ProviderEnvelopeID))

	return domain.StartSigningResult{
		ContractID:         contractID.String(),
		Status:             string(contractdomain.StatusAwaitingSignature),
		Provider:           s.provider.Name(),
		ProviderEnvelopeID: created.ProviderEnvelopeID,
		SigningURL:         created.SigningURL,
	}, nil
}

// ReceiveWebhook applies one provider callback. Every authenticated
// delivery is appended to the envelope evidence, duplicates included; the
// signed transition is applied at most once.
func (s *Service) ReceiveWebhook(ctx context.Context, provider string, body []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	log := obslogger.WithContext(ctx, s.log).With(zap.String("provider", provider))

	if provider == "" || provider != s.provider.Name() {
		s.metrics.RecordWebhookRejected(ctx, s.provider.Name(), "unknown_provider")
		return domain.ErrProviderNotFound
	}

	event, err := s.provider.AuthenticateAndParse(ctx, body, headers)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSignature):
			s.metrics.RecordWebhookRejected(ctx, provider, "invalid_signature")
			log.Warn("webhook rejected: invalid signature")
		case errors.Is(err, domain.ErrInvalidPayload):
			s.metrics.RecordWebhookRejected(ctx, provider, "invalid_payload")
			log.Warn("webhook rejected: malformed payload")
		}
		return err
	}
	if !event.SignatureVerified {
		log.Warn("webhook signature verification bypassed",
			zap.String("provider_envelope_id", event.ProviderEnvelopeID),
		)
	}

	log = log.With(
		zap.String("provider_envelope_id", event.ProviderEnvelopeID),
		zap.String("event_type", event.EventType),
	)

	now := s.clock.Now().UTC()
	signed := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		envelope, err := s.repo.FindForUpdate(ctx, tx, provider, event.ProviderEnvelopeID)
		if err != nil {
			return err
		}
		if envelope == nil {
			return domain.ErrEnvelopeNotFound
		}

		evidence, err := appendEvidence(envelope.Evidence, event.RawPayload)
		if err != nil {
			return err
		}
		if err := s.repo.RecordWebhook(ctx, tx, envelope.ID, event.EventType, evidence, now); err != nil {
			return err
		}

		if event.EventType != domain.EventSigned {
			return nil
		}
		signed, err = s.applySigned(ctx, tx, log, envelope.ContractID, now)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrEnvelopeNotFound) {
			log.Warn("webhook for unknown envelope")
		} else {
			log.Error("webhook processing failed", zap.Error(err))
		}
		return err
	}

	s.metrics.RecordWebhookEvent(ctx, provider, event.EventType)
	if signed {
		s.metrics.RecordContractSigned(ctx, provider)
	}
	log.Info("webhook processed", zap.Bool("contract_signed", signed))
	return nil
}

// applySigned performs the signed transition inside tx and reports whether
// this delivery was the one that applied it.
func (s *Service) applySigned(ctx context.Context, tx *gorm.DB, log *zap.Logger, contractID uuid.UUID, now time.Time) (bool, error) {
	log = log.With(zap.String("contract_id", contractID.String()))

	contract, err := s.contractRepo.FindByIDForUpdate(ctx, tx, contractID)
	if err != nil {
		return false, err
	}
	if contract == nil {
		return false, contractdomain.ErrNotFound
	}
	if contract.Status == contractdomain.StatusSigned {
		log.Info("contract already signed, ignoring duplicate signed event")
		return false, nil
	}
	if err := contractdomain.Transition(contract.Status, contractdomain.StatusSigned); err != nil {
		log.Warn("signed event does not apply to contract", zap.Error(err))
		return false, nil
	}

	affected, err := s.contractRepo.MarkSigned(ctx, tx, contractID, contract.Status, now)
	if err != nil {
		return false, err
	}
	if affected == 0 {
		log.Info("signed transition already applied concurrently")
		return false, nil
	}

	var (
		counterparty *counterpartydomain.Counterparty
		offer        *offerdomain.Offer
	)
	if contract.CounterpartyID != nil {
		if counterparty, err = s.counterpartyRepo.FindByID(ctx, tx, *contract.CounterpartyID); err != nil {
			return false, err
		}
	}
	if contract.OfferID != nil {
		if offer, err = s.offerRepo.FindByID(ctx, tx, *contract.OfferID); err != nil {
			return false, err
		}
	}
	if counterparty == nil || offer == nil {
		log.Warn("contract signed without counterparty or offer, signed document skipped",
			zap.Bool("counterparty_present", counterparty != nil),
			zap.Bool("offer_present", offer != nil),
		)
		return true, nil
	}

	path, err := s.renderer.RenderSigned(ctx, contractID,
		documentdomain.CounterpartyFieldsFrom(*counterparty),
		documentdomain.OfferFieldsFrom(*offer),
		now,
	)
	if err != nil {
		return false, err
	}
	if _, err := s.contractRepo.SetSignedDocument(ctx, tx, contractID, path, now); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) ListEnvelopes(ctx context.Context, value string) ([]domain.Envelope, error) {
	contractID, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return nil, contractdomain.ErrInvalidID
	}

	contract, err := s.contractRepo.FindByID(ctx, s.db, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, contractdomain.ErrNotFound
	}

	items, err := s.repo.ListByContract(ctx, s.db, contractID)
	if err != nil {
		return nil, err
	}
	envelopes := make([]domain.Envelope, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		envelopes = append(envelopes, *item)
	}
	return envelopes, nil
}

// appendEvidence returns evidence with payload appended as the last element.
// Entries keep the bytes the provider sent.
func appendEvidence(evidence datatypes.JSON, payload json.RawMessage) (datatypes.JSON, error) {
	var entries []json.RawMessage
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &entries); err != nil {
			return nil, fmt.Errorf("decode envelope evidence: %w", err)
		}
	}
	if !json.Valid(payload) {
		return nil, domain.ErrInvalidPayload
	}
	entries = append(entries, payload)

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, entry := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(entry)
	}
	buf.WriteByte(']')
	return datatypes.JSON(buf.Bytes()), nil
}
