package stub

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/smallbiznis/gridsign/internal/signing/domain"
)

const (
	ProviderName    = "stub"
	signaturePrefix = "sha256="
	signingBaseURL  = "https://example.invalid/sign/"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return ProviderName
}

func (f *Factory) NewProvider(cfg domain.ProviderConfig) (domain.Provider, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" && !cfg.SkipSignature {
		return nil, domain.ErrInvalidConfig
	}
	return &Adapter{webhookSecret: secret, skipSignature: cfg.SkipSignature}, nil
}

// Adapter is a local stand-in for a real e-signature service.
type Adapter struct {
	webhookSecret string
	skipSignature bool
}

type payload struct {
	EnvelopeID string `json:"envelope_id"`
	Event      string `json:"event"`
}

func (a *Adapter) Name() string {
	return ProviderName
}

func (a *Adapter) CreateEnvelope(ctx context.Context, contractID uuid.UUID, documentRef string) (domain.EnvelopeResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EnvelopeResult{}, err
	}
	id := uuid.NewString()
	return domain.EnvelopeResult{
		ProviderEnvelopeID: id,
		SigningURL:         signingBaseURL + id,
	}, nil
}

func (a *Adapter) AuthenticateAndParse(ctx context.Context, body []byte, headers http.Header) (domain.WebhookEvent, error) {
	verified := false
	if !a.skipSignature {
		if err := a.verify(body, headers.Get(domain.SignatureHeader)); err != nil {
			return domain.WebhookEvent{}, err
		}
		verified = true
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.WebhookEvent{}, domain.ErrInvalidPayload
	}
	envelopeID := strings.TrimSpace(p.EnvelopeID)
	event := p.Event
	if envelopeID == "" || strings.TrimSpace(event) == "" {
		return domain.WebhookEvent{}, domain.ErrInvalidPayload
	}

	raw := make([]byte, len(body))
	copy(raw, body)

	return domain.WebhookEvent{
		ProviderEnvelopeID: envelopeID,
		EventType:          event,
		RawPayload:         json.RawMessage(raw),
		SignatureVerified:  verified,
	}, nil
}

// verify checks "sha256=<hex>" against HMAC-SHA256 of the raw body.
func (a *Adapter) verify(body []byte, header string) error {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, signaturePrefix) {
		return domain.ErrInvalidSignature
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil || len(provided) != sha256.Size {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
