package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, envelope *Envelope) error
	// FindForUpdate locks the envelope row identified by the correlation key.
	FindForUpdate(ctx context.Context, db *gorm.DB, provider, providerEnvelopeID string) (*Envelope, error)
	ListByContract(ctx context.Context, db *gorm.DB, contractID uuid.UUID) ([]*Envelope, error)
	RecordWebhook(ctx context.Context, db *gorm.DB, id uuid.UUID, status string, evidence datatypes.JSON, at time.Time) error
}
