package pdf

import (
	"context"
	"time"

	"go.uber.org/fx"
)

type DocumentKind string

const (
	KindDraft  DocumentKind = "draft"
	KindSigned DocumentKind = "signed"
)

// Provider typesets contract documents.
type Provider interface {
	GenerateContract(ctx context.Context, data ContractData) ([]byte, error)
}

type ContractData struct {
	Kind        DocumentKind
	ContractID  string
	GeneratedAt time.Time
	SignedAt    *time.Time

	Counterparty PartyData
	Offer        OfferData
}

type PartyData struct {
	Type       string
	Name       string
	Street     string
	PostalCode string
	City       string
	Country    string
	Email      string
}

type OfferData struct {
	Code             string
	Name             string
	Price            string
	BillingPeriod    string
	MinTermMonths    int
	NoticePeriodDays int
}

var Module = fx.Module("pdf",
	fx.Provide(New),
)
