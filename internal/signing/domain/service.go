package domain

import (
	"context"
	"errors"
	"net/http"
)

type StartSigningResult struct {
	ContractID         string `json:"contract_id"`
	Status             string `json:"status"`
	Provider           string `json:"provider"`
	ProviderEnvelopeID string `json:"provider_envelope_id"`
	SigningURL         string `json:"signing_url"`
}

type Service interface {
	StartSigning(ctx context.Context, contractID string) (StartSigningResult, error)
	ReceiveWebhook(ctx context.Context, provider string, body []byte, headers http.Header) error
	ListEnvelopes(ctx context.Context, contractID string) ([]Envelope, error)
}

var (
	ErrProviderNotFound  = errors.New("esign_provider_not_found")
	ErrInvalidConfig     = errors.New("invalid_esign_config")
	ErrInvalidSignature  = errors.New("invalid_webhook_signature")
	ErrInvalidPayload    = errors.New("invalid_webhook_payload")
	ErrEnvelopeNotFound  = errors.New("envelope_not_found")
	ErrProviderFailure   = errors.New("esign_provider_failure")
	ErrSigningInProgress = errors.New("signing already in progress for contract")
)
