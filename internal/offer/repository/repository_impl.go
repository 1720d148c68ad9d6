package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gridsign/internal/offer/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Offer, error) {
	var offer domain.Offer
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&offer).Error
	if err != nil {
		return nil, err
	}
	if offer.ID == 0 {
		return nil, nil
	}
	return &offer, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]*domain.Offer, error) {
	var offers []*domain.Offer
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("price_cents asc, code asc").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, offer *domain.Offer) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"description",
			"currency",
			"price_cents",
			"billing_period",
			"min_term_months",
			"notice_period_days",
			"is_active",
			"updated_at",
		}),
	}).Create(offer).Error
}

func (r *repo) DeactivateExcept(ctx context.Context, db *gorm.DB, codes []string) (int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Offer{}).Where("is_active = ?", true)
	if len(codes) > 0 {
		stmt = stmt.Where("code NOT IN ?", codes)
	}
	result := stmt.Update("is_active", false)
	return result.RowsAffected, result.Error
}
