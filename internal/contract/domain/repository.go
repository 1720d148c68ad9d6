package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/gridsign/pkg/db/pagination"
	"gorm.io/gorm"
)

// Repository persists contracts. Every mutating call is guarded by a
// WHERE clause and reports the affected row count so callers can detect
// lost races inside their transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, contract *Contract) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Contract, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Contract, error)
	List(ctx context.Context, db *gorm.DB, filter ListContractFilter, page pagination.Pagination) ([]*Contract, error)

	UpdateStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, from, to Status, now time.Time) (int64, error)
	MarkSigned(ctx context.Context, db *gorm.DB, id uuid.UUID, from Status, signedAt time.Time) (int64, error)
	SetDraftDocument(ctx context.Context, db *gorm.DB, id uuid.UUID, path string, now time.Time) (int64, error)
	SetSignedDocument(ctx context.Context, db *gorm.DB, id uuid.UUID, path string, now time.Time) (int64, error)
}
