package domain

import (
	"context"
	"time"

	counterpartydomain "github.com/smallbiznis/gridsign/internal/counterparty/domain"
	offerdomain "github.com/smallbiznis/gridsign/internal/offer/domain"
	"github.com/smallbiznis/gridsign/pkg/db/pagination"
)

type CreateContractRequest struct {
	CounterpartyID    string
	OfferID           string
	StartDate         *time.Time
	EndDate           *time.Time
	LocationLat       *float64
	LocationLon       *float64
	NAB               *int64
	Technology        string
	NominalCapacity   *float64
	Indexation        string
	QuantityType      string
	SolarDirection    *int
	SolarInclination  *int
	WindTurbineHeight *float64
}

type CreateDraftRequest struct {
	CounterpartyID string
	OfferID        string
}

type ListContractRequest struct {
	PageToken string
	PageSize  int
	Status    string
}

type ListContractFilter struct {
	Status Status
}

type ListContractResponse struct {
	pagination.PageInfo
	Contracts []Contract `json:"contracts"`
}

// ContractDetail is a contract with its resolved parties.
type ContractDetail struct {
	Contract
	Counterparty       *counterpartydomain.Counterparty `json:"counterparty,omitempty"`
	Offer              *offerdomain.Offer               `json:"offer,omitempty"`
	DraftPDFAvailable  bool                             `json:"draft_pdf_available"`
	SignedPDFAvailable bool                             `json:"signed_pdf_available"`
}

type Service interface {
	Create(context.Context, CreateContractRequest) (Contract, error)
	CreateDraft(context.Context, CreateDraftRequest) (Contract, error)
	GenerateDraft(context.Context, string) (Contract, error)
	Get(context.Context, string) (ContractDetail, error)
	List(context.Context, ListContractRequest) (ListContractResponse, error)
	DraftDocument(context.Context, string) ([]byte, error)
	SignedDocument(context.Context, string) ([]byte, error)
}
