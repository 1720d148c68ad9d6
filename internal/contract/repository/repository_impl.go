package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/gridsign/internal/contract/domain"
	"github.com/smallbiznis/gridsign/pkg/db/option"
	"github.com/smallbiznis/gridsign/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, contract *domain.Contract) error {
	return db.WithContext(ctx).Create(contract).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Contract, error) {
	return r.find(db.WithContext(ctx), id)
}

// FindByIDForUpdate takes a row lock; sqlite ignores the locking clause.
func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Contract, error) {
	return r.find(db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repo) find(db *gorm.DB, id uuid.UUID) (*domain.Contract, error) {
	var contracts []domain.Contract
	if err := db.Where("id = ?", id).Limit(1).Find(&contracts).Error; err != nil {
		return nil, err
	}
	if len(contracts) == 0 {
		return nil, nil
	}
	return &contracts[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListContractFilter, page pagination.Pagination) ([]*domain.Contract, error) {
	var contracts []*domain.Contract
	stmt := db.WithContext(ctx).Model(&domain.Contract{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, from, to domain.Status, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE contracts SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, now, id, from,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) MarkSigned(ctx context.Context, db *gorm.DB, id uuid.UUID, from domain.Status, signedAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE contracts SET status = ?, signed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND status <> ? AND signed_at IS NULL`,
		domain.StatusSigned, signedAt, signedAt, id, from, domain.StatusSigned,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) SetDraftDocument(ctx context.Context, db *gorm.DB, id uuid.UUID, path string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE contracts SET draft_pdf_path = ?, updated_at = ?
		 WHERE id = ? AND draft_pdf_path IS NULL`,
		path, now, id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) SetSignedDocument(ctx context.Context, db *gorm.DB, id uuid.UUID, path string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE contracts SET signed_pdf_path = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND signed_at IS NOT NULL AND signed_pdf_path IS NULL`,
		path, now, id, domain.StatusSigned,
	)
	return result.RowsAffected, result.Error
}
