package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/repository/memory"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/audit"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/auth"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/middleware"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/service"
)

type testEnv struct {
	handler http.Handler
	store   *memory.Store
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := memory.NewUserRepo()
	store := memory.NewStore()
	tokens := auth.NewTokenManager("handler-test-secret", "pump-monitoring-api", time.Hour)

	authSvc := service.NewAuthService(users, tokens, bcrypt.MinCost, nil)
	pumpSvc := service.NewPumpService(store.PumpRepo(), nil)
	metricsSvc := service.NewMetricsService(store.PumpRepo(), store.MetricRepo(), service.NewRandomSampleSource(), nil, nil)

	mux := NewRouter(
		NewAuthHandler(authSvc, nil),
		NewPumpHandler(pumpSvc, nil),
		NewMetricsHandler(metricsSvc, nil),
		// Health handler omitted; its routes 404 in these tests.
		NewHealthHandler(nil, nil, nil),
	)

	// The mux relies on the JWT middleware for claims, same as production.
	chain := middleware.JWTMiddleware(tokens, audit.NewLogger(testLogger()), testLogger())(mux)

	return &testEnv{handler: chain, store: store}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, Envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not the JSON envelope: %v (body %q)", err, rec.Body.String())
	}
	return rec.Result(), env
}

// register creates an account and returns its session token.
func (e *testEnv) register(t *testing.T, username string) string {
	t.Helper()

	resp, env := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d, message %q", username, resp.StatusCode, env.Message)
	}
	data := env.Data.(map[string]any)
	return data["token"].(string)
}

// createPump returns the new pump's id.
func (e *testEnv) createPump(t *testing.T, token string, body map[string]any) int64 {
	t.Helper()

	resp, env := e.do(t, http.MethodPost, "/api/pumps", token, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create pump: status %d, message %q", resp.StatusCode, env.Message)
	}
	pump := env.Data.(map[string]any)["pump"].(map[string]any)
	return int64(pump["id"].(float64))
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"short username", map[string]any{"username": "ab", "email": "a@b.com", "password": "secret123"}},
		{"bad email", map[string]any{"username": "alice", "email": "not-an-email", "password": "secret123"}},
		{"short password", map[string]any{"username": "alice", "email": "a@b.com", "password": "123"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, envlp := env.do(t, http.MethodPost, "/api/auth/register", "", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if envlp.Success {
				t.Error("success = true on validation failure")
			}
		})
	}
}

func TestRegisterConflictStatus(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	resp, envlp := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "bob",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	if envlp.Message != "Email already exists" {
		t.Errorf("message = %q", envlp.Message)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	resp, envlp := env.do(t, http.MethodGet, "/api/pumps", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if envlp.Message != "Access token required" {
		t.Errorf("message = %q", envlp.Message)
	}

	resp, envlp = env.do(t, http.MethodGet, "/api/pumps", "garbage-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if envlp.Message != "Invalid or expired token" {
		t.Errorf("message = %q", envlp.Message)
	}
}

func TestPumpCRUDFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	pumpID := env.createPump(t, token, map[string]any{
		"name":         "Main Water Pump",
		"location":     "Building A",
		"min_pressure": 20,
		"max_pressure": 80,
	})

	resp, envlp := env.do(t, http.MethodGet, "/api/pumps", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status %d", resp.StatusCode)
	}
	data := envlp.Data.(map[string]any)
	if count := data["count"].(float64); count != 1 {
		t.Errorf("count = %v, want 1", count)
	}

	resp, envlp = env.do(t, http.MethodPut, fmt.Sprintf("/api/pumps/%d", pumpID), token, map[string]any{
		"name": "Renamed Pump",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status %d, message %q", resp.StatusCode, envlp.Message)
	}
	pump := envlp.Data.(map[string]any)["pump"].(map[string]any)
	if pump["name"] != "Renamed Pump" {
		t.Errorf("name = %v after update", pump["name"])
	}
	if pump["location"] != "Building A" {
		t.Errorf("location = %v, want unchanged", pump["location"])
	}

	resp, envlp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/pumps/%d", pumpID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	if envlp.Message != "Pump deleted successfully" {
		t.Errorf("message = %q", envlp.Message)
	}

	resp, _ = env.do(t, http.MethodGet, fmt.Sprintf("/api/pumps/%d", pumpID), token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status %d, want 404", resp.StatusCode)
	}
}

func TestPumpOwnershipAcrossUsers(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice")
	bobToken := env.register(t, "bob")

	pumpID := env.createPump(t, aliceToken, map[string]any{"name": "Alice's Pump"})

	resp, envlp := env.do(t, http.MethodGet, fmt.Sprintf("/api/pumps/%d", pumpID), bobToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for foreign pump", resp.StatusCode)
	}
	if envlp.Message != "Pump not found" {
		t.Errorf("message = %q", envlp.Message)
	}
}

func TestMetricsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")
	pumpID := env.createPump(t, token, map[string]any{
		"name":         "P1",
		"min_pressure": 20,
		"max_pressure": 80,
		"power_rating": 15,
	})

	// Overheated reading drives the pump into error.
	resp, envlp := env.do(t, http.MethodPost, fmt.Sprintf("/api/metrics/%d/update", pumpID), token, map[string]any{
		"temperature":  90,
		"pressure":     50,
		"is_operating": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update metrics: status %d, message %q", resp.StatusCode, envlp.Message)
	}
	if got := env.store.PumpStatus(pumpID); got != "error" {
		t.Errorf("pump status = %q, want error", got)
	}

	// Healthy reading recovers it.
	resp, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/metrics/%d/update", pumpID), token, map[string]any{
		"temperature":  50,
		"pressure":     50,
		"is_operating": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update metrics: status %d", resp.StatusCode)
	}
	if got := env.store.PumpStatus(pumpID); got != "active" {
		t.Errorf("pump status = %q, want active", got)
	}

	resp, envlp = env.do(t, http.MethodGet, fmt.Sprintf("/api/metrics/%d/current", pumpID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("current: status %d", resp.StatusCode)
	}
	current := envlp.Data.(map[string]any)["metrics"].(map[string]any)
	if current["temperature"].(float64) != 50 {
		t.Errorf("current temperature = %v, want 50", current["temperature"])
	}

	resp, envlp = env.do(t, http.MethodGet, fmt.Sprintf("/api/metrics/%d/history", pumpID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: status %d", resp.StatusCode)
	}
	data := envlp.Data.(map[string]any)
	// Initial row plus the two recordings.
	if count := data["count"].(float64); count != 3 {
		t.Errorf("history count = %v, want 3", count)
	}

	resp, envlp = env.do(t, http.MethodPost, fmt.Sprintf("/api/metrics/%d/simulate", pumpID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("simulate: status %d", resp.StatusCode)
	}
	if envlp.Message != "Simulated metrics generated successfully" {
		t.Errorf("message = %q", envlp.Message)
	}
}

func TestMetricsValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")
	pumpID := env.createPump(t, token, map[string]any{"name": "P1"})

	cases := []struct {
		name string
		body map[string]any
	}{
		{"temperature too high", map[string]any{"temperature": 250}},
		{"negative flow", map[string]any{"flow_rate": -1}},
		{"efficiency over 100", map[string]any{"current_efficiency": 120}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := env.do(t, http.MethodPost, fmt.Sprintf("/api/metrics/%d/update", pumpID), token, tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}

	resp, _ := env.do(t, http.MethodGet, fmt.Sprintf("/api/metrics/%d/history?limit=5000", pumpID), token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("oversized limit: status = %d, want 400", resp.StatusCode)
	}
}

func TestHistoryQueryBounds(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")
	pumpID := env.createPump(t, token, map[string]any{"name": "P1"})

	for i := 0; i < 5; i++ {
		resp, _ := env.do(t, http.MethodPost, fmt.Sprintf("/api/metrics/%d/update", pumpID), token, map[string]any{
			"temperature":  30,
			"is_operating": false,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("seed recording %d failed: %d", i, resp.StatusCode)
		}
	}

	resp, envlp := env.do(t, http.MethodGet, fmt.Sprintf("/api/metrics/%d/history?limit=2&hours=24", pumpID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: status %d", resp.StatusCode)
	}
	if count := envlp.Data.(map[string]any)["count"].(float64); count != 2 {
		t.Errorf("count = %v, want 2", count)
	}
}

func TestAuthSessionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	resp, envlp := env.do(t, http.MethodGet, "/api/auth/profile", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile: status %d", resp.StatusCode)
	}
	user := envlp.Data.(map[string]any)["user"].(map[string]any)
	if user["username"] != "alice" {
		t.Errorf("username = %v", user["username"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("password hash serialized in profile response")
	}

	resp, envlp = env.do(t, http.MethodGet, "/api/auth/verify", token, nil)
	if resp.StatusCode != http.StatusOK || envlp.Message != "Token is valid" {
		t.Errorf("verify: status %d, message %q", resp.StatusCode, envlp.Message)
	}

	resp, envlp = env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	if resp.StatusCode != http.StatusOK || envlp.Message != "Logout successful" {
		t.Errorf("logout: status %d, message %q", resp.StatusCode, envlp.Message)
	}
}

func TestUnknownRoutes(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("root banner: status %d", rec.Code)
	}

	token := env.register(t, "alice")
	resp, envlp := env.do(t, http.MethodGet, "/api/nope", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if envlp.Message != "API endpoint not found" {
		t.Errorf("message = %q", envlp.Message)
	}
}

func TestErrorDetailOnlyInDevelopment(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "devmode")

	resp, body := env.do(t, http.MethodGet, "/api/pumps/abc", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Error != "" {
		t.Errorf("error detail leaked outside development mode: %q", body.Error)
	}

	IncludeErrorDetail(true)
	defer IncludeErrorDetail(false)

	resp, body = env.do(t, http.MethodGet, "/api/pumps/abc", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Error == "" {
		t.Error("development mode response is missing the error field")
	}
	if body.Message != "Pump ID must be a positive integer" {
		t.Errorf("message = %q", body.Message)
	}
}
