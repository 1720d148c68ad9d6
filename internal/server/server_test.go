package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/gridsign/internal/clock"
	"github.com/smallbiznis/gridsign/internal/config"
	contractrepo "github.com/smallbiznis/gridsign/internal/contract/repository"
	contractservice "github.com/smallbiznis/gridsign/internal/contract/service"
	counterpartyrepo "github.com/smallbiznis/gridsign/internal/counterparty/repository"
	counterpartyservice "github.com/smallbiznis/gridsign/internal/counterparty/service"
	documentservice "github.com/smallbiznis/gridsign/internal/document/service"
	"github.com/smallbiznis/gridsign/internal/migration"
	"github.com/smallbiznis/gridsign/internal/observability"
	offerrepo "github.com/smallbiznis/gridsign/internal/offer/repository"
	offerservice "github.com/smallbiznis/gridsign/internal/offer/service"
	"github.com/smallbiznis/gridsign/internal/providers/pdf"
	"github.com/smallbiznis/gridsign/internal/ratelimit"
	"github.com/smallbiznis/gridsign/internal/signing/adapters/stub"
	signingdomain "github.com/smallbiznis/gridsign/internal/signing/domain"
	signingrepo "github.com/smallbiznis/gridsign/internal/signing/repository"
	signingservice "github.com/smallbiznis/gridsign/internal/signing/service"
	"github.com/smallbiznis/gridsign/internal/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_http"

type testApp struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:server_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	offers := offerservice.New(offerservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: offerrepo.Provide()})
	catalog := config.DefaultOfferCatalog()
	inactive := false
	catalog.Plans = append(catalog.Plans, config.OfferPlan{Code: "LEGACY", Name: "Legacy Plan", PriceCents: 1000, Active: &inactive})
	require.NoError(t, offers.SyncCatalog(t.Context(), catalog))

	store, err := storage.NewLocalStore(afero.NewMemMapFs(), "/documents")
	require.NoError(t, err)
	documents := documentservice.New(documentservice.Params{Log: log, Clock: clk, PDF: pdf.New(), Store: store})

	contracts := contractservice.New(contractservice.Params{
		DB:               db,
		Log:              log,
		Clock:            clk,
		Repo:             contractrepo.Provide(),
		CounterpartyRepo: counterpartyrepo.Provide(),
		OfferRepo:        offerrepo.Provide(),
		Renderer:         documents,
		Documents:        documents,
	})

	provider, err := stub.NewFactory().NewProvider(signingdomain.ProviderConfig{WebhookSecret: testWebhookSecret})
	require.NoError(t, err)
	signing := signingservice.New(signingservice.Params{
		DB:               db,
		Log:              log,
		Clock:            clk,
		Provider:         provider,
		Repo:             signingrepo.Provide(),
		ContractRepo:     contractrepo.Provide(),
		CounterpartyRepo: counterpartyrepo.Provide(),
		OfferRepo:        offerrepo.Provide(),
		Renderer:         documents,
		Locker:           ratelimit.NewSigningGuard(config.Config{}, nil),
	})

	limiter, err := ratelimit.NewWebhookLimiter(config.Config{}, nil)
	require.NoError(t, err)

	srv := NewServer(ServerParams{
		Gin:             NewEngine(observability.Config{Environment: "test"}, nil),
		Cfg:             config.Config{Environment: "test"},
		Log:             log,
		CounterpartySvc: counterpartyservice.New(counterpartyservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: counterpartyrepo.Provide()}),
		OfferSvc:        offers,
		ContractSvc:     contracts,
		SigningSvc:      signing,
		WebhookLimiter:  limiter,
	})

	return &testApp{engine: srv.Engine(), db: db}
}

func (a *testApp) do(t *testing.T, method, path string, body any, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) webhook(t *testing.T, envelopeID, event, secret string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"envelope_id": envelopeID, "event": event})
	require.NoError(t, err)
	headers := http.Header{}
	headers.Set(signingdomain.SignatureHeader, stub.Sign(secret, body))
	return a.do(t, http.MethodPost, "/webhooks/esign/stub", body, headers)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func data(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out, ok := decode(t, rec)["data"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return out
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out, ok := decode(t, rec)["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return out
}

func (a *testApp) createCounterparty(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/counterparties", map[string]any{
		"type":        "company",
		"name":        "Windpark Nord GmbH",
		"street":      "Deichweg 1",
		"postal_code": "25813",
		"city":        "Husum",
		"country":     "DE",
		"email":       email,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return data(t, rec)["id"].(string)
}

func (a *testApp) offerID(t *testing.T, code string) string {
	t.Helper()
	var id int64
	require.NoError(t, a.db.Table("offers").Select("id").Where("code = ?", code).Scan(&id).Error)
	require.NotZero(t, id)
	return snowflake.ID(id).String()
}

func (a *testApp) createDraft(t *testing.T) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/contracts/draft", map[string]any{
		"counterparty_id": a.createCounterparty(t, fmt.Sprintf("ops+%d@windpark.example", time.Now().UnixNano())),
		"offer_id":        a.offerID(t, "PRO"),
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return data(t, rec)["id"].(string)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ok"])
}

func TestListOffersOrderedByPrice(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/offers", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Data []struct {
			Code       string `json:"code"`
			PriceCents int64  `json:"price_cents"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	codes := make([]string, 0, len(out.Data))
	for _, offer := range out.Data {
		codes = append(codes, offer.Code)
	}
	assert.Equal(t, []string{"STARTER", "BASIC", "PRO", "PREMIUM", "ENTERPRISE"}, codes)
}

func TestSigningFlowOverHTTP(t *testing.T) {
	app := newTestApp(t)
	id := app.createDraft(t)

	rec := app.do(t, http.MethodGet, "/contracts/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := data(t, rec)
	assert.Equal(t, "draft", detail["status"])
	assert.Equal(t, true, detail["draft_pdf_available"])
	assert.Equal(t, false, detail["signed_pdf_available"])

	rec = app.do(t, http.MethodGet, "/contracts/"+id+"/draft-pdf", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = app.do(t, http.MethodGet, "/contracts/"+id+"/signed-pdf", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodPost, "/contracts/"+id+"/signing/start", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	started := decode(t, rec)
	assert.Equal(t, id, started["contract_id"])
	assert.Equal(t, "awaiting_signature", started["status"])
	assert.Equal(t, "stub", started["provider"])
	envelopeID := started["provider_envelope_id"].(string)
	assert.Contains(t, started["signing_url"], envelopeID)

	rec = app.do(t, http.MethodPost, "/contracts/"+id+"/signing/start", nil, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, errorOf(t, rec)["message"], "awaiting_signature")

	rec = app.webhook(t, envelopeID, "signed", "not-the-secret")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = app.do(t, http.MethodGet, "/contracts/"+id, nil, nil)
	assert.Equal(t, "awaiting_signature", data(t, rec)["status"])

	for i := 0; i < 2; i++ {
		rec = app.webhook(t, envelopeID, "signed", testWebhookSecret)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, true, decode(t, rec)["ok"])
	}

	rec = app.do(t, http.MethodGet, "/contracts/"+id, nil, nil)
	detail = data(t, rec)
	assert.Equal(t, "signed", detail["status"])
	assert.Equal(t, true, detail["signed_pdf_available"])
	assert.NotEmpty(t, detail["signed_at"])

	rec = app.do(t, http.MethodGet, "/contracts/"+id+"/signed-pdf", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = app.do(t, http.MethodGet, "/contracts/"+id+"/envelopes", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var envelopes struct {
		Data []struct {
			ProviderEnvelopeID string            `json:"provider_envelope_id"`
			Status             string            `json:"status"`
			Evidence           []json.RawMessage `json:"evidence"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelopes))
	require.Len(t, envelopes.Data, 1)
	assert.Equal(t, envelopeID, envelopes.Data[0].ProviderEnvelopeID)
	assert.Equal(t, "signed", envelopes.Data[0].Status)
	assert.Len(t, envelopes.Data[0].Evidence, 2)
}

func TestWebhookErrors(t *testing.T) {
	app := newTestApp(t)

	body := []byte(`{"envelope_id":"nope","event":"signed"}`)
	headers := http.Header{}
	headers.Set(signingdomain.SignatureHeader, stub.Sign(testWebhookSecret, body))

	rec := app.do(t, http.MethodPost, "/webhooks/esign/docusign", body, headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/webhooks/esign/stub", body, headers)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	malformed := []byte(`not json`)
	headers.Set(signingdomain.SignatureHeader, stub.Sign(testWebhookSecret, malformed))
	rec = app.do(t, http.MethodPost, "/webhooks/esign/stub", malformed, headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/webhooks/esign/stub", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContractErrors(t *testing.T) {
	app := newTestApp(t)
	counterpartyID := app.createCounterparty(t, "errors@windpark.example")

	rec := app.do(t, http.MethodPost, "/contracts/00000000-0000-0000-0000-000000000001/signing/start", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/contracts/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/contracts/draft", map[string]any{
		"counterparty_id": counterpartyID,
		"offer_id":        app.offerID(t, "LEGACY"),
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Offer is not active", errorOf(t, rec)["message"])

	rec = app.do(t, http.MethodPost, "/contracts/draft", map[string]any{
		"counterparty_id": "1234",
		"offer_id":        app.offerID(t, "PRO"),
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodPost, "/contracts", map[string]any{
		"counterparty_id": counterpartyID,
		"technology":      "wind",
		"solar_direction": 180,
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorOf(t, rec)["type"])

	rec = app.do(t, http.MethodPost, "/contracts", map[string]any{
		"counterparty_id":  counterpartyID,
		"technology":       "solar",
		"nominal_capacity": 750.5,
		"start_date":       "2026-07-01",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := data(t, rec)["id"].(string)

	rec = app.do(t, http.MethodPost, "/contracts/"+id+"/signing/start", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodGet, "/contracts/"+id+"/draft-pdf", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/contracts?status=archived", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCounterpartyErrors(t *testing.T) {
	app := newTestApp(t)
	app.createCounterparty(t, "dup@windpark.example")

	rec := app.do(t, http.MethodPost, "/counterparties", map[string]any{
		"name": "Dup", "street": "A 1", "postal_code": "1", "city": "B", "email": "dup@windpark.example",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodPost, "/counterparties", map[string]any{
		"name": "Bad", "street": "A 1", "postal_code": "1", "city": "B", "country": "de", "email": "bad@windpark.example",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/counterparties", []byte(`{`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/counterparties/42", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	app := newTestApp(t)

	body := bytes.Repeat([]byte(" "), maxWebhookBodyBytes+1)
	copy(body, `{"envelope_id":"env_1","event":"signed"}`)
	headers := http.Header{}
	headers.Set(signingdomain.SignatureHeader, stub.Sign(testWebhookSecret, body))

	rec := app.do(t, http.MethodPost, "/webhooks/esign/stub", body, headers)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", errorOf(t, rec)["type"])
}

func TestListRejectsMalformedPageToken(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/counterparties?page_token=%25%25", "/contracts?page_token=bm90LWpzb24"} {
		rec := app.do(t, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		errs, ok := errorOf(t, rec)["errors"].([]any)
		require.True(t, ok)
		require.Len(t, errs, 1)
		assert.Equal(t, "page_token", errs[0].(map[string]any)["field"])
	}
}

func TestMapErrorRateLimited(t *testing.T) {
	status, payload := mapError(ratelimit.ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", payload.Type)

	status, _ = mapError(signingdomain.ErrProviderFailure)
	assert.Equal(t, http.StatusInternalServerError, status)
}
