package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EnvelopeStatusSent = "sent"
	EventSigned        = "signed"
)

// Envelope correlates a contract with a provider-issued signing envelope.
// (Provider, ProviderEnvelopeID) is globally unique and is the webhook
// correlation key. Evidence only ever grows.
type Envelope struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ContractID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"contract_id"`
	Provider           string         `gorm:"type:varchar(64);not null;uniqueIndex:uq_provider_envelope,priority:1" json:"provider"`
	ProviderEnvelopeID string         `gorm:"column:provider_envelope_id;type:varchar(255);not null;uniqueIndex:uq_provider_envelope,priority:2" json:"provider_envelope_id"`
	Status             string         `gorm:"type:text;not null" json:"status"`
	SigningURL         string         `gorm:"column:signing_url;type:text" json:"signing_url"`
	Evidence           datatypes.JSON `gorm:"column:evidence_json;not null" json:"evidence"`
	LastWebhookAt      *time.Time     `gorm:"column:last_webhook_at" json:"last_webhook_at,omitempty"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
}

func (Envelope) TableName() string { return "signature_envelopes" }
