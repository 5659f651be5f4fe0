package test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

// TestHealthEndpoint verifies the public health endpoint shape
func TestHealthEndpoint(t *testing.T) {
	server := NewTestServer(t)

	resp, env := server.Do(t, http.MethodGet, "/api/health", "", nil)
	AssertStatusCode(t, resp, http.StatusOK)

	if env.Message != "API is running" {
		t.Errorf("message = %q", env.Message)
	}
	if env.Data["status"] != "OK" {
		t.Errorf("status = %v, want OK", env.Data["status"])
	}
	if env.Data["version"] != "1.0.0" {
		t.Errorf("version = %v", env.Data["version"])
	}
}

// TestMonitoringFlow walks the whole lifecycle: register, create a pump,
// record readings, and watch the derived status change.
func TestMonitoringFlow(t *testing.T) {
	server := NewTestServer(t)
	token := server.Register(t, "operator")

	resp, env := server.Do(t, http.MethodPost, "/api/pumps", token, map[string]any{
		"name":         "P1",
		"min_pressure": 20,
		"max_pressure": 80,
		"power_rating": 15,
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	pump := env.Data["pump"].(map[string]any)
	pumpID := int64(pump["id"].(float64))
	if pump["status"] != "active" {
		t.Errorf("initial status = %v, want active", pump["status"])
	}

	steps := []struct {
		sample map[string]any
		want   string
	}{
		{map[string]any{"temperature": 90, "pressure": 50, "is_operating": true}, "error"},
		{map[string]any{"temperature": 50, "pressure": 10, "is_operating": true}, "error"},
		{map[string]any{"temperature": 50, "pressure": 50, "is_operating": false}, "inactive"},
		{map[string]any{"temperature": 50, "pressure": 50, "is_operating": true}, "active"},
	}
	for i, step := range steps {
		resp, env := server.Do(t, http.MethodPost, fmt.Sprintf("/api/metrics/%d/update", pumpID), token, step.sample)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("step %d: status %d, message %q", i, resp.StatusCode, env.Message)
		}

		resp, env = server.Do(t, http.MethodGet, fmt.Sprintf("/api/pumps/%d", pumpID), token, nil)
		AssertStatusCode(t, resp, http.StatusOK)
		got := env.Data["pump"].(map[string]any)["status"]
		if got != step.want {
			t.Errorf("step %d: status = %v, want %v", i, got, step.want)
		}
	}

	// The pump listing carries the latest reading along.
	resp, env = server.Do(t, http.MethodGet, "/api/pumps", token, nil)
	AssertStatusCode(t, resp, http.StatusOK)
	pumps := env.Data["pumps"].([]any)
	if len(pumps) != 1 {
		t.Fatalf("pump count = %d", len(pumps))
	}
	metrics := pumps[0].(map[string]any)["metrics"].([]any)
	if len(metrics) != 1 {
		t.Fatalf("joined metrics = %d, want 1", len(metrics))
	}
	if temp := metrics[0].(map[string]any)["temperature"].(float64); temp != 50 {
		t.Errorf("joined metric temperature = %v, want 50", temp)
	}
}

// TestRateLimitWindow verifies the fixed window caps requests and resets
func TestRateLimitWindow(t *testing.T) {
	server := NewTestServerWithOptions(t, TestServerOptions{
		RateLimitMax:    3,
		RateLimitWindow: 200 * time.Millisecond,
	})

	for i := 0; i < 3; i++ {
		resp, _ := server.Do(t, http.MethodGet, "/api/health", "", nil)
		AssertStatusCode(t, resp, http.StatusOK)
	}

	resp, env := server.Do(t, http.MethodGet, "/api/health", "", nil)
	AssertStatusCode(t, resp, http.StatusTooManyRequests)
	if env.Message != "Too many requests from this IP, please try again later." {
		t.Errorf("message = %q", env.Message)
	}

	// Non-API paths are exempt from the limit.
	resp, _ = server.Do(t, http.MethodGet, "/healthz", "", nil)
	AssertStatusCode(t, resp, http.StatusOK)

	// A fresh window admits requests again.
	time.Sleep(250 * time.Millisecond)
	resp, _ = server.Do(t, http.MethodGet, "/api/health", "", nil)
	AssertStatusCode(t, resp, http.StatusOK)
}

// TestAuthBoundary verifies protected routes reject missing and bad tokens
func TestAuthBoundary(t *testing.T) {
	server := NewTestServer(t)

	resp, env := server.Do(t, http.MethodGet, "/api/pumps", "", nil)
	AssertStatusCode(t, resp, http.StatusUnauthorized)
	if env.Message != "Access token required" {
		t.Errorf("message = %q", env.Message)
	}

	resp, env = server.Do(t, http.MethodGet, "/api/pumps", "not-a-token", nil)
	AssertStatusCode(t, resp, http.StatusUnauthorized)
	if env.Message != "Invalid or expired token" {
		t.Errorf("message = %q", env.Message)
	}
}

// TestContentTypeEnforcement verifies non-JSON bodies are rejected
func TestContentTypeEnforcement(t *testing.T) {
	server := NewTestServer(t)

	req, err := http.NewRequest(http.MethodPost, server.URL()+"/api/auth/login", strings.NewReader("hello server"))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusUnsupportedMediaType)
}

// TestUnknownAPIRoute verifies the JSON 404 catch-all
func TestUnknownAPIRoute(t *testing.T) {
	server := NewTestServer(t)
	token := server.Register(t, "operator")

	resp, env := server.Do(t, http.MethodGet, "/api/unknown", token, nil)
	AssertStatusCode(t, resp, http.StatusNotFound)
	if env.Message != "API endpoint not found" {
		t.Errorf("message = %q", env.Message)
	}
}

// TestRateLimitCountsRejectedAuth verifies requests that fail token
// validation still consume the fixed window, so the cap covers the whole
// API surface rather than only authenticated traffic.
func TestRateLimitCountsRejectedAuth(t *testing.T) {
	server := NewTestServerWithOptions(t, TestServerOptions{
		RateLimitMax:    2,
		RateLimitWindow: time.Minute,
	})

	for i := 0; i < 2; i++ {
		resp, _ := server.Do(t, http.MethodGet, "/api/pumps", "not-a-token", nil)
		AssertStatusCode(t, resp, http.StatusUnauthorized)
	}

	resp, env := server.Do(t, http.MethodGet, "/api/pumps", "not-a-token", nil)
	AssertStatusCode(t, resp, http.StatusTooManyRequests)
	if env.Message != "Too many requests from this IP, please try again later." {
		t.Errorf("message = %q", env.Message)
	}
}
