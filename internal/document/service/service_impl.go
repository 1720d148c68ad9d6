package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/gridsign/internal/clock"
	"github.com/smallbiznis/gridsign/internal/document/domain"
	obslogger "github.com/smallbiznis/gridsign/internal/observability/logger"
	"github.com/smallbiznis/gridsign/internal/observability/metrics"
	"github.com/smallbiznis/gridsign/internal/providers/pdf"
	"github.com/smallbiznis/gridsign/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const contentTypePDF = "application/pdf"

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	PDF     pdf.Provider
	Store   storage.Store
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	clock   clock.Clock
	pdf     pdf.Provider
	store   storage.Store
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("document.service"),
		clock:   p.Clock,
		pdf:     p.PDF,
		store:   p.Store,
		metrics: p.Metrics,
	}
}

func (s *Service) RenderDraft(ctx context.Context, contractID uuid.UUID, counterparty domain.CounterpartyFields, offer domain.OfferFields) (string, error) {
	return s.render(ctx, pdf.KindDraft, domain.DraftKey(contractID), contractID, counterparty, offer, nil)
}

func (s *Service) RenderSigned(ctx context.Context, contractID uuid.UUID, counterparty domain.CounterpartyFields, offer domain.OfferFields, signedAt time.Time) (string, error) {
	return s.render(ctx, pdf.KindSigned, domain.SignedKey(contractID), contractID, counterparty, offer, &signedAt)
}

func (s *Service) Open(ctx context.Context, ref string) ([]byte, error) {
	data, err := s.store.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Service) render(
	ctx context.Context,
	kind pdf.DocumentKind,
	key string,
	contractID uuid.UUID,
	counterparty domain.CounterpartyFields,
	offer domain.OfferFields,
	signedAt *time.Time,
) (string, error) {
	data := pdf.ContractData{
		Kind:         kind,
		ContractID:   contractID.String(),
		GeneratedAt:  s.clock.Now().UTC(),
		SignedAt:     signedAt,
		Counterparty: escapeParty(counterparty),
		Offer: pdf.OfferData{
			Code:             html.EscapeString(offer.Code),
			Name:             html.EscapeString(offer.Name),
			Price:            pdf.FormatPrice(offer.PriceCents, html.EscapeString(offer.Currency)),
			BillingPeriod:    html.EscapeString(offer.BillingPeriod),
			MinTermMonths:    offer.MinTermMonths,
			NoticePeriodDays: offer.NoticePeriodDays,
		},
	}

	out, err := s.pdf.GenerateContract(ctx, data)
	if err != nil {
		return "", fmt.Errorf("render %s document: %w", kind, err)
	}

	if err := s.store.Put(ctx, key, out, contentTypePDF); err != nil {
		return "", fmt.Errorf("store %s document: %w", kind, err)
	}

	s.metrics.RecordDocumentRendered(ctx, string(kind))
	obslogger.WithContext(ctx, s.log).Info("contract document rendered",
		zap.String("contract_id", contractID.String()),
		zap.String("document_kind", string(kind)),
		zap.String("path", key),
		zap.Int("bytes", len(out)),
	)
	return key, nil
}

// escapeParty HTML-escapes user supplied free text before it reaches the renderer.
// maroto prints entities as-is, so "&" shows up as "&amp;" in the PDF.
func escapeParty(c domain.CounterpartyFields) pdf.PartyData {
	return pdf.PartyData{
		Type:       html.EscapeString(c.Type),
		Name:       html.EscapeString(c.Name),
		Street:     html.EscapeString(c.Street),
		PostalCode: html.EscapeString(c.PostalCode),
		City:       html.EscapeString(c.City),
		Country:    html.EscapeString(c.Country),
		Email:      html.EscapeString(c.Email),
	}
}
