package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/glowface/pointgate/internal/account/domain"
	accountrepo "github.com/glowface/pointgate/internal/account/repository"
	accountservice "github.com/glowface/pointgate/internal/account/service"
	"github.com/glowface/pointgate/internal/clock"
	codedomain "github.com/glowface/pointgate/internal/code/domain"
	coderepo "github.com/glowface/pointgate/internal/code/repository"
	codeservice "github.com/glowface/pointgate/internal/code/service"
	"github.com/glowface/pointgate/internal/config"
	consumptiondomain "github.com/glowface/pointgate/internal/consumption/domain"
	consumptionrepo "github.com/glowface/pointgate/internal/consumption/repository"
	consumptionservice "github.com/glowface/pointgate/internal/consumption/service"
	"github.com/glowface/pointgate/internal/generation"
	"github.com/glowface/pointgate/internal/generation/imagestore"
	"github.com/glowface/pointgate/internal/identity"
	"github.com/glowface/pointgate/internal/observability/metrics"
	redemptiondomain "github.com/glowface/pointgate/internal/redemption/domain"
	redemptionrepo "github.com/glowface/pointgate/internal/redemption/repository"
	redemptionservice "github.com/glowface/pointgate/internal/redemption/service"
	"github.com/glowface/pointgate/pkg/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testAdminKey = "test-admin-key"

type fakeGenerator struct {
	suggestion string
	fail       map[string]bool
}

func (f *fakeGenerator) SuggestText(_ context.Context, _ string) (string, error) {
	if f.suggestion == "" {
		return "", generation.ErrUpstream
	}
	return f.suggestion, nil
}

func (f *fakeGenerator) EditImage(_ context.Context, prompt, _ string) (string, error) {
	if f.fail[prompt] {
		return "", generation.ErrUpstream
	}
	payload := base64.StdEncoding.EncodeToString([]byte("edited-" + prompt))
	return "data:image/png;base64," + payload, nil
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	codes  codedomain.Service
	gen    *fakeGenerator
}

func newTestServer(t *testing.T, policy string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// an in-memory sqlite exists per connection, so keep the pool at one
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&codedomain.Code{},
		&accountdomain.Account{},
		&redemptiondomain.Redemption{},
		&consumptiondomain.UsageLog{},
	))

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminKey), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.Config{
		AppName:         "pointgate",
		AppVersion:      "test",
		Environment:     "test",
		AuthJWTSecret:   "test-secret",
		AuthTokenTTL:    time.Hour,
		AdminAPIKeyHash: string(hash),
		DebitPolicy:     policy,
		CostPerImage:    10,
		ImagesDir:       t.TempDir(),
		PublicBaseURL:   "http://localhost:8080",
	}

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	node, err := id.NewNode()
	require.NoError(t, err)
	log := zap.NewNop()
	m := metrics.New()

	issuer := identity.NewIssuer(identity.IssuerParam{Config: cfg, Clock: fake})
	accounts := accountrepo.Provide()
	codes := codeservice.New(codeservice.ServiceParam{
		DB: db, Log: log, Repo: coderepo.Provide(), Clock: fake,
	})
	redemptions := redemptionservice.New(redemptionservice.ServiceParam{
		DB: db, Log: log, Clock: fake, Node: node,
		Codes: coderepo.Provide(), Accounts: accounts,
		Redemptions: redemptionrepo.Provide(), Issuer: issuer, Metrics: m,
	})
	consumptions := consumptionservice.New(consumptionservice.ServiceParam{
		DB: db, Log: log, Clock: fake, Node: node,
		Accounts: accounts, Repo: consumptionrepo.Provide(), Metrics: m,
	})
	images, err := imagestore.New(imagestore.StoreParam{Config: cfg, Clock: fake})
	require.NoError(t, err)

	gen := &fakeGenerator{suggestion: "a cat in space"}
	srv := New(ServerParams{
		Config:       cfg,
		Log:          log,
		Metrics:      m,
		Issuer:       issuer,
		Redemptions:  redemptions,
		Accounts:     accountservice.New(accountservice.ServiceParam{DB: db, Log: log, Repo: accounts}),
		Consumptions: consumptions,
		Codes:        codes,
		Generator:    gen,
		Images:       images,
	})

	return &testServer{engine: srv.Engine(), db: db, codes: codes, gen: gen}
}

func (s *testServer) mint(t *testing.T, kind codedomain.Kind, points int64) string {
	t.Helper()
	batch, err := s.codes.MintBatch(context.Background(), codedomain.MintBatchRequest{
		Kind:       kind,
		PointValue: points,
		Count:      1,
	})
	require.NoError(t, err)
	return batch.Codes[0].Code
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *testServer) activateDevice(t *testing.T, points int64) string {
	t.Helper()
	code := s.mint(t, codedomain.KindLicense, points)
	rec := s.do(t, http.MethodPost, "/api/v1/user/activate", "", gin.H{
		"code": code, "deviceId": "device-a",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)["token"].(string)
}

func TestActivateEndpoint(t *testing.T) {
	s := newTestServer(t, config.DebitPolicyUpfront)
	code := s.mint(t, codedomain.KindLicense, 100)

	rec := s.do(t, http.MethodPost, "/api/v1/user/activate", "", gin.H{
		"code": code, "deviceId": "device-a",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.NotEmpty(t, body["token"])
	assert.False(t, body["replayed"].(bool))
	user := body["user"].(map[string]any)
	assert.Equal(t, "device-a", user["deviceId"])
	assert.EqualValues(t, 100, user["balance"])

	// same pair again replays instead of failing
	rec = s.do(t, http.MethodPost, "/api/v1/user/activate", "", gin.H{
		"code": code, "deviceId": "device-a",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode(t, rec)["replayed"].(bool))
}

func TestActivateErrors(t *testing.T) {
	s := newTestServer(t, config.DebitPolicyUpfront)

	rec := s.do(t, http.MethodPost, "/api/v1/user/activate", "", gin.H{
		"code": "AAAA-AAAA-AAAA-AAAA", "deviceId": "device-a",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "code_not_found", decode(t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/api/v1/user/activate", "", gin.H{"code": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	recharge := s.mint(t, codedomain.KindRecharge, 500)
	rec = s.do(t, http.MethodPost, "/api/v1/user/activate", "", gin.H{
		"code": recharge, "deviceId": "fresh-device",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "account_required", decode(t, rec)["error"])
}

func TestBalanceEndpoint(t *testing.T) {
	s := newTestServer(t, config.DebitPolicyUpfront)
	token := s.activateDevice(t, 100)

	rec := s.do(t, http.MethodGet, "/api/v1/user/balance", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 100, body["balance"])
	assert.EqualValues(t, 0, body["totalConsumed"])

	rec = s.do(t, http.MethodGet, "/api/v1/user/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/user/balance", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGenerateUpfrontPolicy(t *testing.T) {
	s := newTestServer(t, config.DebitPolicyUpfront)
	token := s.activateDevice(t, 30)
	s.gen.fail = map[string]bool{"bad prompt": true}

	img := base64.StdEncoding.EncodeToString([]byte("source"))
	rec := s.do(t, http.MethodPost, "/api/v1/proxy/generate", token, gin.H{
		"prompts":         []string{"good prompt", "bad prompt"},
		"userImageBase64": img,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)

	images := body["images"].([]any)
	assert.Len(t, images, 1)
	assert.EqualValues(t, 1, body["failed"])
	// both slots were debited up front and the failure is not refunded
	assert.EqualValues(t, 10, body["remainingPoints"])

	rec = s.do(t, http.MethodGet, "/api/v1/user/history", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode(t, rec)["history"].([]any)
	assert.Len(t, history, 2)
}

func TestGeneratePerItemPolicy(t *testing.T) {
	s := newTestServer(t, config.DebitPolicyPerItem)
	token := s.activateDevice(t, 30)
	s.gen.fail = map[string]bool{"bad prompt": true}

	img := base64.StdEncoding.EncodeToString([]byte("source"))
	rec := s.do(t, http.MethodPost, "/api/v1/proxy/generate", token, gin.H{
		"prompts":         []string{"good prompt", "bad prompt"},
		"userImageBase64": img,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)

	// only the successful item was debited
	assert.EqualValues(t, 20, body["remainingPoints"])
}

func TestGenerateInsufficientBalance(t *testing.T) {
	s := newTestServer(t, config.DebitPolicyUpfront)
	token := s.activateDevice(t, 5)

	img := base64.StdEncoding.EncodeToString([]byte("source"))
	rec := s.do(t, http.MethodPost, "/api/v1/proxy/generate", token, gin.H{
		"prompts":         []string{"a prompt"},
		"userImageBase64": img,
	})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "insufficient_balance", decode(t, rec)["error"])
}

func TestAiSuggestionEndpoint(t *testing.T) {
	s := newTestServer(t, config.DebitPolicyUpfront)
	token := s.activateDevice(t, 100)

	rec := s.do(t, http.MethodPost, "/api/v1/proxy/ai-suggestion", token, gin.H{"prompt": "hat"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a cat in space", decode(t, rec)["text"])

	// suggestions are free
	rec = s.do(t, http.MethodGet, "/api/v1/user/balance", token, nil)
	assert.EqualValues(t, 100, decode(t, rec)["balance"])
}

func TestAdminCodes(t *testing.T) {
	s := newTestServer(t, config.DebitPolicyUpfront)

	req := httptest.NewRequest(http.MethodPost, "/admin/codes", bytes.NewBufferString(
		`{"kind":"license","point_value":100,"count":3}`,
	))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", testAdminKey)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.NotEmpty(t, body["batchId"])
	assert.Len(t, body["codes"].([]any), 3)

	// wrong key
	req = httptest.NewRequest(http.MethodGet, "/admin/codes", nil)
	req.Header.Set("X-Api-Key", "wrong")
	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// no key
	req = httptest.NewRequest(http.MethodGet, "/admin/codes", nil)
	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, config.DebitPolicyUpfront)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}
