package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/gridsign/internal/config"
)

type Service interface {
	List(context.Context) ([]Offer, error)
	GetByID(context.Context, string) (Offer, error)
	SyncCatalog(context.Context, config.OfferCatalog) error
}

var (
	ErrInvalidID = errors.New("invalid_id")
	ErrNotFound  = errors.New("offer_not_found")
)
