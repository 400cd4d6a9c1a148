package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MediSynth-io/casetracker/internal/auth"
	"github.com/MediSynth-io/casetracker/internal/config"
	"github.com/MediSynth-io/casetracker/internal/database"
	"github.com/MediSynth-io/casetracker/internal/logging"
	"github.com/MediSynth-io/casetracker/internal/store"
	"github.com/MediSynth-io/casetracker/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	api    *Api
	db     *database.DB
	tokens *auth.TokenManager
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	var cfg config.Config
	cfg.APIPort = 8000
	cfg.Database.Type = "sqlite"
	cfg.Database.Path = filepath.Join(t.TempDir(), "api_test.db")
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.TokenTTL = 30 * time.Minute
	cfg.CORS.AllowedOrigins = config.DefaultAllowedOrigins
	return cfg
}

func newTestEnv(t *testing.T, opts ...tracker.Option) *testEnv {
	t.Helper()
	cfg := testConfig(t)
	logger := logging.Discard()

	db, err := database.Open(context.Background(), &cfg, logger)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { db.Close() })

	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, "casetracker")
	require.NoError(t, err)

	svc := tracker.New(store.New(db), hasher, tokens, cfg.Auth.TokenTTL, logger, opts...)
	api, err := NewApi(cfg, svc, logger)
	require.NoError(t, err)

	return &testEnv{api: api, db: db, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.api.Router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signup(t *testing.T, username string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/signup", "", map[string]string{
		"username": username,
		"email":    username + "@x.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.api.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	require.Equal(t, "bearer", token.TokenType)
	require.Equal(t, int64(1800), token.ExpiresIn)
	return token.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewApi(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		env := newTestEnv(t)
		assert.NotNil(t, env.api.Router)
		assert.Equal(t, 8000, env.api.Config.APIPort)
	})

	t.Run("MissingService", func(t *testing.T) {
		_, err := NewApi(testConfig(t), nil, logging.Discard())
		assert.Error(t, err)
	})
}

func TestHeartbeat(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/heartbeat", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))

	env.db.Close()
	rec = env.do(t, http.MethodGet, "/heartbeat", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNotFoundRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Not Found"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/test-cases", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	env.api.Router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/test-cases", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	env.api.Router.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t)
	env.api.Config.APIPort = 0
	env.api.Config.Server.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.api.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
