package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gridsign/internal/counterparty/domain"
	"github.com/smallbiznis/gridsign/pkg/db/option"
	"github.com/smallbiznis/gridsign/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, counterparty *domain.Counterparty) error {
	return db.WithContext(ctx).Create(counterparty).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Counterparty, error) {
	var counterparty domain.Counterparty
	err := db.WithContext(ctx).Raw(
		`SELECT id, type, name, street, postal_code, city, country, email, created_at, updated_at
		 FROM counterparties WHERE id = ?`,
		id,
	).Scan(&counterparty).Error
	if err != nil {
		return nil, err
	}
	if counterparty.ID == 0 {
		return nil, nil
	}
	return &counterparty, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCounterpartyFilter, page pagination.Pagination) ([]*domain.Counterparty, error) {
	var counterparties []*domain.Counterparty
	stmt := db.WithContext(ctx).Model(&domain.Counterparty{})
	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.Email != "" {
		stmt = stmt.Where("email = ?", filter.Email)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&counterparties).Error
	if err != nil {
		return nil, err
	}
	return counterparties, nil
}
