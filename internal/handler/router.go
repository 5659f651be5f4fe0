package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/urielfelipevz0z/proyecto-progra-web/pkg/config"
)

// NewRouter assembles the API route table. Middleware wrapping happens in
// the server entrypoint; this only maps paths to handlers.
func NewRouter(
	authHandler *AuthHandler,
	pumpHandler *PumpHandler,
	metricsHandler *MetricsHandler,
	healthHandler *HealthHandler,
) *http.ServeMux {
	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/auth/profile", authHandler.Profile)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/verify", authHandler.Verify)

	// Pumps
	mux.HandleFunc("GET /api/pumps", pumpHandler.List)
	mux.HandleFunc("POST /api/pumps", pumpHandler.Create)
	mux.HandleFunc("GET /api/pumps/{id}", pumpHandler.Get)
	mux.HandleFunc("PUT /api/pumps/{id}", pumpHandler.Update)
	mux.HandleFunc("DELETE /api/pumps/{id}", pumpHandler.Delete)

	// Metrics
	mux.HandleFunc("GET /api/metrics/{id}/current", metricsHandler.Current)
	mux.HandleFunc("GET /api/metrics/{id}/history", metricsHandler.History)
	mux.HandleFunc("POST /api/metrics/{id}/update", metricsHandler.Update)
	mux.HandleFunc("POST /api/metrics/{id}/simulate", metricsHandler.Simulate)

	// Health and observability
	mux.HandleFunc("GET /api/health", healthHandler.Health)
	mux.HandleFunc("GET /healthz", healthHandler.Liveness)
	mux.HandleFunc("GET /readyz", healthHandler.Readiness)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Root banner and catch-all
	mux.HandleFunc("/", notFound)

	return mux
}

// notFound answers the root banner and turns every unmatched path into a
// JSON 404 instead of the plain-text default.
func notFound(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		respond(w, http.StatusOK, "Pump Monitoring API", map[string]any{
			"version":       config.Version,
			"documentation": "/api/health",
		})
		return
	}

	message := "Route not found"
	if strings.HasPrefix(r.URL.Path, "/api/") {
		message = "API endpoint not found"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
		"path":    r.URL.Path,
	})
}
