package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/smallbiznis/gridsign/internal/clock"
	contractdomain "github.com/smallbiznis/gridsign/internal/contract/domain"
	contractrepo "github.com/smallbiznis/gridsign/internal/contract/repository"
	contractservice "github.com/smallbiznis/gridsign/internal/contract/service"
	counterpartydomain "github.com/smallbiznis/gridsign/internal/counterparty/domain"
	counterpartyrepo "github.com/smallbiznis/gridsign/internal/counterparty/repository"
	documentdomain "github.com/smallbiznis/gridsign/internal/document/domain"
	documentservice "github.com/smallbiznis/gridsign/internal/document/service"
	offerdomain "github.com/smallbiznis/gridsign/internal/offer/domain"
	offerrepo "github.com/smallbiznis/gridsign/internal/offer/repository"
	"github.com/smallbiznis/gridsign/internal/providers/pdf"
	"github.com/smallbiznis/gridsign/internal/signing/adapters/stub"
	"github.com/smallbiznis/gridsign/internal/signing/domain"
	"github.com/smallbiznis/gridsign/internal/signing/repository"
	"github.com/smallbiznis/gridsign/internal/signing/service"
	"github.com/smallbiznis/gridsign/internal/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_test"

type countingRenderer struct {
	documentdomain.Renderer

	mu     sync.Mutex
	signed int
}

func (r *countingRenderer) RenderSigned(ctx context.Context, id uuid.UUID, cp documentdomain.CounterpartyFields, offer documentdomain.OfferFields, signedAt time.Time) (string, error) {
	r.mu.Lock()
	r.signed++
	r.mu.Unlock()
	return r.Renderer.RenderSigned(ctx, id, cp, offer, signedAt)
}

func (r *countingRenderer) signedCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signed
}

type failingProvider struct {
	domain.Provider
}

func (failingProvider) CreateEnvelope(context.Context, uuid.UUID, string) (domain.EnvelopeResult, error) {
	return domain.EnvelopeResult{}, errors.New("upstream unavailable")
}

type fixedIDProvider struct {
	domain.Provider
}

func (fixedIDProvider) CreateEnvelope(context.Context, uuid.UUID, string) (domain.EnvelopeResult, error) {
	return domain.EnvelopeResult{ProviderEnvelopeID: "env-fixed", SigningURL: "https://sign.example/env-fixed"}, nil
}

type brokenSignedRenderer struct {
	documentdomain.Renderer
}

func (brokenSignedRenderer) RenderSigned(context.Context, uuid.UUID, documentdomain.CounterpartyFields, documentdomain.OfferFields, time.Time) (string, error) {
	return "", errors.New("renderer down")
}

type heldLocker struct{}

func (heldLocker) TryLockContract(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (heldLocker) ReleaseContract(context.Context, string, string) error { return nil }

type fixture struct {
	db        *gorm.DB
	clock     *clock.FakeClock
	contracts contractdomain.Service
	renderer  *countingRenderer
	provider  domain.Provider
	svc       domain.Service

	counterparty counterpartydomain.Counterparty
	offer        offerdomain.Offer
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:signing_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&counterpartydomain.Counterparty{},
		&offerdomain.Offer{},
		&contractdomain.Contract{},
		&domain.Envelope{},
	))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC))
	now := clk.Now()

	counterparty := counterpartydomain.Counterparty{
		ID: node.Generate(), Type: counterpartydomain.TypePerson, Name: "Jana Vogt",
		Street: "Lindenstr. 12", PostalCode: "10115", City: "Berlin", Country: "DE",
		Email: "jana.vogt@example.org", CreatedAt: now, UpdatedAt: now,
	}
	offer := offerdomain.Offer{
		ID: node.Generate(), Code: "BASIC", Name: "Basic Plan", Currency: "EUR", PriceCents: 4900,
		BillingPeriod: "monthly", MinTermMonths: 1, NoticePeriodDays: 14, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Create(&counterparty).Error)
	require.NoError(t, db.Create(&offer).Error)

	store, err := storage.NewLocalStore(afero.NewMemMapFs(), "/documents")
	require.NoError(t, err)
	documents := documentservice.New(documentservice.Params{
		Log: zap.NewNop(), Clock: clk, PDF: pdf.New(), Store: store,
	})
	renderer := &countingRenderer{Renderer: documents}

	contracts := contractservice.New(contractservice.Params{
		DB:               db,
		Log:              zap.NewNop(),
		Clock:            clk,
		Repo:             contractrepo.Provide(),
		CounterpartyRepo: counterpartyrepo.Provide(),
		OfferRepo:        offerrepo.Provide(),
		Renderer:         documents,
		Documents:        documents,
	})

	provider, err := stub.NewFactory().NewProvider(domain.ProviderConfig{WebhookSecret: webhookSecret})
	require.NoError(t, err)

	f := &fixture{
		db:           db,
		clock:        clk,
		contracts:    contracts,
		renderer:     renderer,
		provider:     provider,
		counterparty: counterparty,
		offer:        offer,
	}
	f.svc = f.newService(provider, nil)
	return f
}

func (f *fixture) newService(provider domain.Provider, locker domain.Locker) domain.Service {
	return f.newServiceWithRenderer(provider, locker, f.renderer)
}

func (f *fixture) newServiceWithRenderer(provider domain.Provider, locker domain.Locker, renderer documentdomain.Renderer) domain.Service {
	return service.New(service.Params{
		DB:               f.db,
		Log:              zap.NewNop(),
		Clock:            f.clock,
		Provider:         provider,
		Repo:             repository.Provide(),
		ContractRepo:     contractrepo.Provide(),
		CounterpartyRepo: counterpartyrepo.Provide(),
		OfferRepo:        offerrepo.Provide(),
		Renderer:         renderer,
		Locker:           locker,
	})
}

func (f *fixture) draft(t *testing.T) contractdomain.Contract {
	t.Helper()
	contract, err := f.contracts.CreateDraft(context.Background(), contractdomain.CreateDraftRequest{
		CounterpartyID: f.counterparty.ID.String(),
		OfferID:        f.offer.ID.String(),
	})
	require.NoError(t, err)
	return contract
}

func (f *fixture) contract(t *testing.T, id uuid.UUID) contractdomain.Contract {
	t.Helper()
	var c contractdomain.Contract
	require.NoError(t, f.db.First(&c, "id = ?", id).Error)
	return c
}

func (f *fixture) envelope(t *testing.T, providerEnvelopeID string) domain.Envelope {
	t.Helper()
	var e domain.Envelope
	require.NoError(t, f.db.First(&e, "provider_envelope_id = ?", providerEnvelopeID).Error)
	return e
}

func webhook(t *testing.T, envelopeID, event string) ([]byte, http.Header) {
	t.Helper()
	body, err := json.Marshal(map[string]string{"envelope_id": envelopeID, "event": event})
	require.NoError(t, err)
	headers := http.Header{}
	headers.Set(domain.SignatureHeader, stub.Sign(webhookSecret, body))
	return body, headers
}

func evidenceLen(t *testing.T, e domain.Envelope) int {
	t.Helper()
	var entries []json.RawMessage
	require.NoError(t, json.Unmarshal(e.Evidence, &entries))
	return len(entries)
}

func TestStartSigningMovesDraftToAwaitingSignature(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	contract := f.draft(t)

	result, err := f.svc.StartSigning(ctx, contract.ID.String())
	require.NoError(t, err)
	assert.Equal(t, contract.ID.String(), result.ContractID)
	assert.Equal(t, "awaiting_signature", result.Status)
	assert.Equal(t, stub.ProviderName, result.Provider)
	assert.NotEmpty(t, result.ProviderEnvelopeID)
	assert.Contains(t, result.SigningURL, result.ProviderEnvelopeID)

	assert.Equal(t, contractdomain.StatusAwaitingSignature, f.contract(t, contract.ID).Status)

	envelope := f.envelope(t, result.ProviderEnvelopeID)
	assert.Equal(t, contract.ID, envelope.ContractID)
	assert.Equal(t, domain.EnvelopeStatusSent, envelope.Status)
	assert.Equal(t, 0, evidenceLen(t, envelope))
	assert.Nil(t, envelope.LastWebhookAt)

	envelopes, err := f.svc.ListEnvelopes(ctx, contract.ID.String())
	require.NoError(t, err)
	require.Len(t, envelopes, 1)
	assert.Equal(t, result.ProviderEnvelopeID, envelopes[0].ProviderEnvelopeID)
}

func TestStartSigningTwiceConflicts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	contract := f.draft(t)

	_, err := f.svc.StartSigning(ctx, contract.ID.String())
	require.NoError(t, err)

	_, err = f.svc.StartSigning(ctx, contract.ID.String())
	require.ErrorIs(t, err, contractdomain.ErrStatusConflict)
	assert.Equal(t, "contract status is awaiting_signature, expected draft", err.Error())

	var count int64
	require.NoError(t, f.db.Model(&domain.Envelope{}).Where("contract_id = ?", contract.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStartSigningPreconditions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.StartSigning(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, contractdomain.ErrInvalidID)

	_, err = f.svc.StartSigning(ctx, uuid.NewString())
	assert.ErrorIs(t, err, contractdomain.ErrNotFound)

	bare, err := f.contracts.Create(ctx, contractdomain.CreateContractRequest{
		CounterpartyID: f.counterparty.ID.String(),
	})
	require.NoError(t, err)
	_, err = f.svc.StartSigning(ctx, bare.ID.String())
	assert.ErrorIs(t, err, contractdomain.ErrDraftDocumentMissing)
	assert.Equal(t, contractdomain.StatusDraft, f.contract(t, bare.ID).Status)
}

func TestStartSigningProviderFailureLeavesNoRows(t *testing.T) {
	f := setup(t)
	contract := f.draft(t)
	svc := f.newService(failingProvider{Provider: f.provider}, nil)

	_, err := svc.StartSigning(context.Background(), contract.ID.String())
	require.ErrorIs(t, err, domain.ErrProviderFailure)

	var count int64
	require.NoError(t, f.db.Model(&domain.Envelope{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, contractdomain.StatusDraft, f.contract(t, contract.ID).Status)
}

func TestStartSigningEnvelopeInsertFailureKeepsDraft(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := f.newService(fixedIDProvider{Provider: f.provider}, nil)

	first := f.draft(t)
	_, err := svc.StartSigning(ctx, first.ID.String())
	require.NoError(t, err)

	second := f.draft(t)
	_, err = svc.StartSigning(ctx, second.ID.String())
	require.Error(t, err)

	assert.Equal(t, contractdomain.StatusDraft, f.contract(t, second.ID).Status)
	var count int64
	require.NoError(t, f.db.Model(&domain.Envelope{}).Where("contract_id = ?", second.ID).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, first.ID, f.envelope(t, "env-fixed").ContractID)
}

func TestStartSigningRespectsHeldLock(t *testing.T) {
	f := setup(t)
	contract := f.draft(t)
	svc := f.newService(f.provider, heldLocker{})

	_, err := svc.StartSigning(context.Background(), contract.ID.String())
	require.ErrorIs(t, err, domain.ErrSigningInProgress)
	assert.Equal(t, contractdomain.StatusDraft, f.contract(t, contract.ID).Status)
}

func TestSignedWebhookSignsContract(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	contract := f.draft(t)

	started, err := f.svc.StartSigning(ctx, contract.ID.String())
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	signedAt := f.clock.Now()

	body, headers := webhook(t, started.ProviderEnvelopeID, "signed")
	require.NoError(t, f.svc.ReceiveWebhook(ctx, "stub", body, headers))

	updated := f.contract(t, contract.ID)
	assert.Equal(t, contractdomain.StatusSigned, updated.Status)
	require.NotNil(t, updated.SignedAt)
	assert.True(t, signedAt.Equal(updated.SignedAt.UTC()))
	require.NotNil(t, updated.SignedPDFPath)
	assert.Equal(t, documentdomain.SignedKey(contract.ID), *updated.SignedPDFPath)
	assert.Equal(t, 1, f.renderer.signedCalls())

	envelope := f.envelope(t, started.ProviderEnvelopeID)
	assert.Equal(t, "signed", envelope.Status)
	assert.Equal(t, 1, evidenceLen(t, envelope))
	require.NotNil(t, envelope.LastWebhookAt)

	data, err := f.contracts.SignedDocument(ctx, contract.ID.String())
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestDuplicateSignedWebhooksApplyOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	contract := f.draft(t)

	started, err := f.svc.StartSigning(ctx, contract.ID.String())
	require.NoError(t, err)

	const deliveries = 4
	var firstSignedAt time.Time
	for i := 0; i < deliveries; i++ {
		body, headers := webhook(t, started.ProviderEnvelopeID, "signed")
		require.NoError(t, f.svc.ReceiveWebhook(ctx, "stub", body, headers))
		if i == 0 {
			firstSignedAt = *f.contract(t, contract.ID).SignedAt
		}
		f.clock.Advance(time.Minute)
	}

	updated := f.contract(t, contract.ID)
	assert.Equal(t, contractdomain.StatusSigned, updated.Status)
	require.NotNil(t, updated.SignedAt)
	assert.True(t, firstSignedAt.Equal(*updated.SignedAt))
	assert.Equal(t, 1, f.renderer.signedCalls())
	assert.Equal(t, deliveries, evidenceLen(t, f.envelope(t, started.ProviderEnvelopeID)))
}

func TestWebhookWithBadSignatureChangesNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	contract := f.draft(t)

	started, err := f.svc.StartSigning(ctx, contract.ID.String())
	require.NoError(t, err)

	body, _ := webhook(t, started.ProviderEnvelopeID, "signed")
	tampered := http.Header{}
	tampered.Set(domain.SignatureHeader, stub.Sign("wrong-secret", body))

	err = f.svc.ReceiveWebhook(ctx, "stub", body, tampered)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	err = f.svc.ReceiveWebhook(ctx, "stub", body, http.Header{})
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	assert.Equal(t, contractdomain.StatusAwaitingSignature, f.contract(t, contract.ID).Status)
	envelope := f.envelope(t, started.ProviderEnvelopeID)
	assert.Equal(t, domain.EnvelopeStatusSent, envelope.Status)
	assert.Equal(t, 0, evidenceLen(t, envelope))
	assert.Nil(t, envelope.LastWebhookAt)
	assert.Zero(t, f.renderer.signedCalls())
}

func TestWebhookRejectsUnknownProviderAndEnvelope(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	body, headers := webhook(t, uuid.NewString(), "signed")
	err := f.svc.ReceiveWebhook(ctx, "docusign", body, headers)
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)

	err = f.svc.ReceiveWebhook(ctx, "stub", body, headers)
	assert.ErrorIs(t, err, domain.ErrEnvelopeNotFound)

	malformed := []byte(`{"event":"signed"}`)
	headers = http.Header{}
	headers.Set(domain.SignatureHeader, stub.Sign(webhookSecret, malformed))
	err = f.svc.ReceiveWebhook(ctx, "stub", malformed, headers)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestDeclinedWebhookOnlyUpdatesEnvelope(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	contract := f.draft(t)

	started, err := f.svc.StartSigning(ctx, contract.ID.String())
	require.NoError(t, err)

	body, headers := webhook(t, started.ProviderEnvelopeID, "Declined")
	require.NoError(t, f.svc.ReceiveWebhook(ctx, "stub", body, headers))

	updated := f.contract(t, contract.ID)
	assert.Equal(t, contractdomain.StatusAwaitingSignature, updated.Status)
	assert.Nil(t, updated.SignedAt)

	envelope := f.envelope(t, started.ProviderEnvelopeID)
	assert.Equal(t, "Declined", envelope.Status)
	assert.Equal(t, 1, evidenceLen(t, envelope))
}

func TestSignedEventIsMatchedExactly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	contract := f.draft(t)

	started, err := f.svc.StartSigning(ctx, contract.ID.String())
	require.NoError(t, err)

	body, headers := webhook(t, started.ProviderEnvelopeID, "SIGNED")
	require.NoError(t, f.svc.ReceiveWebhook(ctx, "stub", body, headers))

	assert.Equal(t, contractdomain.StatusAwaitingSignature, f.contract(t, contract.ID).Status)
	assert.Zero(t, f.renderer.signedCalls())
	assert.Equal(t, "SIGNED", f.envelope(t, started.ProviderEnvelopeID).Status)
}

func TestLongEventTypeIsRecorded(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	contract := f.draft(t)

	started, err := f.svc.StartSigning(ctx, contract.ID.String())
	require.NoError(t, err)

	event := "recipient_authentication_failed_after_three_attempts_sms_otp"
	body, headers := webhook(t, started.ProviderEnvelopeID, event)
	require.NoError(t, f.svc.ReceiveWebhook(ctx, "stub", body, headers))

	envelope := f.envelope(t, started.ProviderEnvelopeID)
	assert.Equal(t, event, envelope.Status)
	assert.Equal(t, 1, evidenceLen(t, envelope))
}

func TestEvidenceKeepsPayloadBytes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	contract := f.draft(t)

	started, err := f.svc.StartSigning(ctx, contract.ID.String())
	require.NoError(t, err)

	body := []byte(`{ "envelope_id": "` + started.ProviderEnvelopeID + `",  "event": "viewed", "note": "<b>&</b>" }`)
	headers := http.Header{}
	headers.Set(domain.SignatureHeader, stub.Sign(webhookSecret, body))
	require.NoError(t, f.svc.ReceiveWebhook(ctx, "stub", body, headers))

	again, againHeaders := webhook(t, started.ProviderEnvelopeID, "viewed")
	require.NoError(t, f.svc.ReceiveWebhook(ctx, "stub", again, againHeaders))

	envelope := f.envelope(t, started.ProviderEnvelopeID)
	assert.Equal(t, "["+string(body)+","+string(again)+"]", string(envelope.Evidence))
}

func TestSignedWebhookRenderFailureRollsBack(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	contract := f.draft(t)

	started, err := f.svc.StartSigning(ctx, contract.ID.String())
	require.NoError(t, err)

	svc := f.newServiceWithRenderer(f.provider, nil, brokenSignedRenderer{Renderer: f.renderer})
	body, headers := webhook(t, started.ProviderEnvelopeID, "signed")
	err = svc.ReceiveWebhook(ctx, "stub", body, headers)
	require.EqualError(t, err, "renderer down")

	updated := f.contract(t, contract.ID)
	assert.Equal(t, contractdomain.StatusAwaitingSignature, updated.Status)
	assert.Nil(t, updated.SignedAt)
	assert.Nil(t, updated.SignedPDFPath)

	envelope := f.envelope(t, started.ProviderEnvelopeID)
	assert.Equal(t, domain.EnvelopeStatusSent, envelope.Status)
	assert.Equal(t, 0, evidenceLen(t, envelope))
	assert.Nil(t, envelope.LastWebhookAt)

	require.NoError(t, f.svc.ReceiveWebhook(ctx, "stub", body, headers))
	assert.Equal(t, contractdomain.StatusSigned, f.contract(t, contract.ID).Status)
	assert.Equal(t, 1, evidenceLen(t, f.envelope(t, started.ProviderEnvelopeID)))
}

func TestSignedWebhookWithoutPartiesSkipsDocument(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	now := f.clock.Now()
	path := "contracts/manual/draft.pdf"
	contract := contractdomain.Contract{
		ID:           uuid.New(),
		Status:       contractdomain.StatusDraft,
		DraftPDFPath: &path,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.db.Create(&contract).Error)

	started, err := f.svc.StartSigning(ctx, contract.ID.String())
	require.NoError(t, err)

	body, headers := webhook(t, started.ProviderEnvelopeID, "signed")
	require.NoError(t, f.svc.ReceiveWebhook(ctx, "stub", body, headers))

	updated := f.contract(t, contract.ID)
	assert.Equal(t, contractdomain.StatusSigned, updated.Status)
	assert.NotNil(t, updated.SignedAt)
	assert.Nil(t, updated.SignedPDFPath)
	assert.Zero(t, f.renderer.signedCalls())

	_, err = f.contracts.SignedDocument(ctx, contract.ID.String())
	assert.ErrorIs(t, err, contractdomain.ErrDocumentNotFound)
}

func TestSignedWebhookOnDraftContractIsIgnored(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	contract := f.draft(t)

	envelope := domain.Envelope{
		ID:                 uuid.New(),
		ContractID:         contract.ID,
		Provider:           stub.ProviderName,
		ProviderEnvelopeID: "env-orphan",
		Status:             domain.EnvelopeStatusSent,
		Evidence:           []byte("[]"),
		CreatedAt:          f.clock.Now(),
		UpdatedAt:          f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&envelope).Error)

	body, headers := webhook(t, "env-orphan", "signed")
	require.NoError(t, f.svc.ReceiveWebhook(ctx, "stub", body, headers))

	assert.Equal(t, contractdomain.StatusDraft, f.contract(t, contract.ID).Status)
	assert.Equal(t, 1, evidenceLen(t, f.envelope(t, "env-orphan")))
}

func TestListEnvelopesUnknownContract(t *testing.T) {
	f := setup(t)
	_, err := f.svc.ListEnvelopes(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, contractdomain.ErrNotFound)

	_, err = f.svc.ListEnvelopes(context.Background(), "x")
	assert.ErrorIs(t, err, contractdomain.ErrInvalidID)
}
