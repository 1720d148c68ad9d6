package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/gridsign/internal/signing/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, envelope *domain.Envelope) error {
	return db.WithContext(ctx).Create(envelope).Error
}

func (r *repo) FindForUpdate(ctx context.Context, db *gorm.DB, provider, providerEnvelopeID string) (*domain.Envelope, error) {
	var envelopes []domain.Envelope
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider = ? AND provider_envelope_id = ?", provider, providerEnvelopeID).
		Limit(1).
		Find(&envelopes).Error
	if err != nil {
		return nil, err
	}
	if len(envelopes) == 0 {
		return nil, nil
	}
	return &envelopes[0], nil
}

func (r *repo) ListByContract(ctx context.Context, db *gorm.DB, contractID uuid.UUID) ([]*domain.Envelope, error) {
	var envelopes []*domain.Envelope
	err := db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at asc").
		Find(&envelopes).Error
	if err != nil {
		return nil, err
	}
	return envelopes, nil
}

func (r *repo) RecordWebhook(ctx context.Context, db *gorm.DB, id uuid.UUID, status string, evidence datatypes.JSON, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Envelope{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          status,
			"evidence_json":   evidence,
			"last_webhook_at": at,
			"updated_at":      at,
		}).Error
}
