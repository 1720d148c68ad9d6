package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	counterpartydomain "github.com/smallbiznis/gridsign/internal/counterparty/domain"
	offerdomain "github.com/smallbiznis/gridsign/internal/offer/domain"
)

// CounterpartyFields are the display fields embedded in a contract document.
type CounterpartyFields struct {
	Type       string
	Name       string
	Street     string
	PostalCode string
	City       string
	Country    string
	Email      string
}

type OfferFields struct {
	Code             string
	Name             string
	Currency         string
	PriceCents       int64
	BillingPeriod    string
	MinTermMonths    int
	NoticePeriodDays int
}

// Renderer produces contract documents and returns their storage reference.
type Renderer interface {
	RenderDraft(ctx context.Context, contractID uuid.UUID, counterparty CounterpartyFields, offer OfferFields) (string, error)
	RenderSigned(ctx context.Context, contractID uuid.UUID, counterparty CounterpartyFields, offer OfferFields, signedAt time.Time) (string, error)
}

type Reader interface {
	Open(ctx context.Context, ref string) ([]byte, error)
}

type Service interface {
	Renderer
	Reader
}

var ErrNotFound = errors.New("document_not_found")

func DraftKey(contractID uuid.UUID) string {
	return fmt.Sprintf("contracts/%s/draft.pdf", contractID)
}

func SignedKey(contractID uuid.UUID) string {
	return fmt.Sprintf("contracts/%s/signed.pdf", contractID)
}

func CounterpartyFieldsFrom(c counterpartydomain.Counterparty) CounterpartyFields {
	return CounterpartyFields{
		Type:       string(c.Type),
		Name:       c.Name,
		Street:     c.Street,
		PostalCode: c.PostalCode,
		City:       c.City,
		Country:    c.Country,
		Email:      c.Email,
	}
}

func OfferFieldsFrom(o offerdomain.Offer) OfferFields {
	return OfferFields{
		Code:             o.Code,
		Name:             o.Name,
		Currency:         o.Currency,
		PriceCents:       o.PriceCents,
		BillingPeriod:    o.BillingPeriod,
		MinTermMonths:    o.MinTermMonths,
		NoticePeriodDays: o.NoticePeriodDays,
	}
}
