package test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/handler"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/repository/memory"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/audit"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/auth"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/middleware"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/ratelimit"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/service"
)

// TestServerHelper runs the API over in-memory repositories with the full
// production middleware chain, so requests exercise the same path as a
// deployed server apart from storage.
type TestServerHelper struct {
	Server  *httptest.Server
	Store   *memory.Store
	Limiter *ratelimit.Limiter
}

// TestServerOptions tweaks the stack for specific scenarios
type TestServerOptions struct {
	RateLimitMax    int
	RateLimitWindow time.Duration
}

func NewTestServer(t *testing.T) *TestServerHelper {
	return NewTestServerWithOptions(t, TestServerOptions{
		RateLimitMax:    100,
		RateLimitWindow: time.Minute,
	})
}

func NewTestServerWithOptions(t *testing.T, opts TestServerOptions) *TestServerHelper {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := memory.NewUserRepo()
	store := memory.NewStore()
	tokens := auth.NewTokenManager("integration-secret", "pump-monitoring-api", time.Hour)

	authSvc := service.NewAuthService(users, tokens, bcrypt.MinCost, log)
	pumpSvc := service.NewPumpService(store.PumpRepo(), log)
	metricsSvc := service.NewMetricsService(store.PumpRepo(), store.MetricRepo(), service.NewRandomSampleSource(), nil, log)

	mux := handler.NewRouter(
		handler.NewAuthHandler(authSvc, log),
		handler.NewPumpHandler(pumpSvc, log),
		handler.NewMetricsHandler(metricsSvc, log),
		handler.NewHealthHandler(nil, nil, log),
	)

	limiter := ratelimit.NewLimiter(opts.RateLimitMax, opts.RateLimitWindow)

	chain := middleware.CORSMiddleware([]string{"*"})(
		middleware.ValidateJSONContentType(log)(
			middleware.RateLimitMiddleware(limiter, log)(
				middleware.JWTMiddleware(tokens, audit.NewLogger(log), log)(mux),
			),
		),
	)

	server := httptest.NewServer(chain)
	t.Cleanup(func() {
		server.Close()
		limiter.Stop()
	})

	return &TestServerHelper{Server: server, Store: store, Limiter: limiter}
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// Envelope mirrors the API response shape
type Envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// Do sends a JSON request and decodes the envelope.
func (h *TestServerHelper) Do(t *testing.T, method, path, token string, body any) (*http.Response, Envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, h.URL()+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("response from %s is not the JSON envelope: %v (body %q)", path, err, raw)
	}
	return resp, env
}

// Register creates an account and returns its token.
func (h *TestServerHelper) Register(t *testing.T, username string) string {
	t.Helper()

	resp, env := h.Do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d, message %q", username, resp.StatusCode, env.Message)
	}
	return env.Data["token"].(string)
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}
