package domain

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

const SignatureHeader = "X-ESign-Signature"

type EnvelopeResult struct {
	ProviderEnvelopeID string
	SigningURL         string
}

// WebhookEvent is an authenticated, parsed provider callback. RawPayload
// holds the exact request body.
type WebhookEvent struct {
	ProviderEnvelopeID string
	EventType          string
	RawPayload         json.RawMessage
	SignatureVerified  bool
}

// Provider is an e-signature backend.
type Provider interface {
	Name() string
	// CreateEnvelope starts an external signing request. It has no local side effects.
	CreateEnvelope(ctx context.Context, contractID uuid.UUID, documentRef string) (EnvelopeResult, error)
	// AuthenticateAndParse verifies the keyed MAC over the raw body before parsing it.
	AuthenticateAndParse(ctx context.Context, body []byte, headers http.Header) (WebhookEvent, error)
}

type ProviderConfig struct {
	WebhookSecret string
	SkipSignature bool
}

type ProviderFactory interface {
	Provider() string
	NewProvider(cfg ProviderConfig) (Provider, error)
}

// Locker serializes signing starts per contract across instances.
type Locker interface {
	TryLockContract(ctx context.Context, contractID string) (string, bool, error)
	ReleaseContract(ctx context.Context, contractID, token string) error
}
