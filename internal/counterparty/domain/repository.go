package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gridsign/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, counterparty *Counterparty) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Counterparty, error)
	List(ctx context.Context, db *gorm.DB, filter ListCounterpartyFilter, page pagination.Pagination) ([]*Counterparty, error)
}
