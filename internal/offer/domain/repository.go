package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Offer, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]*Offer, error)
	// Upsert inserts offer or refreshes the row sharing its code.
	Upsert(ctx context.Context, db *gorm.DB, offer *Offer) error
	DeactivateExcept(ctx context.Context, db *gorm.DB, codes []string) (int64, error)
}
