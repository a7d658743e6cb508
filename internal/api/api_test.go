package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/rpsduel-go/internal/api"
	"github.com/mcoot/rpsduel-go/internal/api/response"
	"github.com/mcoot/rpsduel-go/internal/factory"
	"github.com/mcoot/rpsduel-go/internal/model"
	"github.com/mcoot/rpsduel-go/internal/services/auth"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.App
	auth    *auth.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// API tests are integration tests - use production factory with real random/clock
	app, err := factory.New(factory.Config{})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:        logger,
		AuthService:   app.AuthService,
		RatingService: app.RatingService,
		WSHandler:     app.WSHandler,
	})

	return &testServer{
		handler: router,
		app:     app,
		auth:    app.AuthService,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	// Register
	registerBody := map[string]string{
		"email":    "Alice@Example.com",
		"password": "secret123",
	}
	rr := ts.request(http.MethodPost, "/api/v1/auth/register", registerBody, "")
	assert.Equal(t, http.StatusCreated, rr.Code)

	var registerResp response.IdentityResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &registerResp))
	assert.Equal(t, model.PlayerID("alice@example.com"), registerResp.PlayerID)
	assert.Equal(t, model.DefaultRating, registerResp.Rating)

	// Login
	loginBody := map[string]string{
		"email":    "alice@example.com",
		"password": "secret123",
	}
	rr = ts.request(http.MethodPost, "/api/v1/auth/login", loginBody, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var loginResp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &loginResp))
	assert.NotEmpty(t, loginResp.Token)
	assert.Equal(t, model.PlayerID("alice@example.com"), loginResp.PlayerID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]string{"email": "alice@example.com", "password": "secret123"}
	rr := ts.request(http.MethodPost, "/api/v1/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/auth/register", body, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "IDENTITY_EXISTS")
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "not-an-email", "password": "secret123"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_EMAIL")

	rr = ts.request(http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "alice@example.com", "password": "ab"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "PASSWORD_TOO_SHORT")

	rr = ts.request(http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "alice@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_REQUEST")
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]string{"email": "alice@example.com", "password": "secret123"}
	rr := ts.request(http.MethodPost, "/api/v1/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	body["password"] = "wrong-pass"
	rr = ts.request(http.MethodPost, "/api/v1/auth/login", body, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_CREDENTIALS")

	// Unknown accounts are indistinguishable from wrong passwords
	body = map[string]string{"email": "nobody@example.com", "password": "secret123"}
	rr = ts.request(http.MethodPost, "/api/v1/auth/login", body, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_CREDENTIALS")
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]string{"email": "alice@example.com", "password": "secret123"}
	rr := ts.request(http.MethodPost, "/api/v1/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/auth/login", body, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var loginResp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &loginResp))

	rr = ts.request(http.MethodGet, "/api/v1/auth/me", nil, loginResp.Token)
	assert.Equal(t, http.StatusOK, rr.Code)

	var me response.IdentityResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, model.PlayerID("alice@example.com"), me.PlayerID)

	// No token
	rr = ts.request(http.MethodGet, "/api/v1/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Garbage token
	rr = ts.request(http.MethodGet, "/api/v1/auth/me", nil, "sess_bogus")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLeaderboard(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 3; i++ {
		email := fmt.Sprintf("player%d@example.com", i)
		identity, err := ts.auth.Register(context.Background(), email, "secret123")
		require.NoError(t, err)
		identity.Rating = 1200 + i*10
		require.NoError(t, ts.app.Storage.SaveIdentity(context.Background(), identity))
	}

	rr := ts.request(http.MethodGet, "/api/v1/leaderboard?limit=2", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp response.LeaderboardResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, model.PlayerID("player2@example.com"), resp.Entries[0].PlayerID)
	assert.Equal(t, 1220, resp.Entries[0].Rating)
	assert.Equal(t, 1, resp.Entries[0].Rank)
}

func TestLeaderboardBadLimit(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/leaderboard?limit=zero", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_REQUEST")
}
