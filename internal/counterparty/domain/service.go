package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/gridsign/pkg/db/pagination"
)

type CreateCounterpartyRequest struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
	Email      string `json:"email"`
}

type ListCounterpartyRequest struct {
	PageToken string
	PageSize  int
	Name      string
	Email     string
}

type ListCounterpartyFilter struct {
	Name  string
	Email string
}

type ListCounterpartyResponse struct {
	pagination.PageInfo
	Counterparties []Counterparty `json:"counterparties"`
}

type Service interface {
	Create(context.Context, CreateCounterpartyRequest) (Counterparty, error)
	List(context.Context, ListCounterpartyRequest) (ListCounterpartyResponse, error)
	GetByID(context.Context, string) (Counterparty, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidType       = errors.New("invalid_type")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidAddress    = errors.New("invalid_address")
	ErrInvalidCountry    = errors.New("invalid_country")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrEmailAlreadyTaken = errors.New("email_already_exists")
	ErrNotFound          = errors.New("counterparty_not_found")
)
