package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/infrastructure/redis"
	"github.com/urielfelipevz0z/proyecto-progra-web/pkg/config"
	"github.com/urielfelipevz0z/proyecto-progra-web/pkg/database"
)

// HealthHandler handles liveness, readiness, and the public health endpoint
type HealthHandler struct {
	db     *database.ConnectionPool
	redis  *redis.Client
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler. redis may be nil when
// caching is disabled.
func NewHealthHandler(db *database.ConnectionPool, redisClient *redis.Client, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{db: db, redis: redisClient, logger: logger}
}

// Health handles GET /api/health, the public status endpoint clients poll.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, "API is running", map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   config.Version,
	})
}

// Liveness handles GET /healthz. Returns 200 whenever the process is up.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Readiness handles GET /readyz. Returns 200 only when the dependencies
// answer; a disabled cache counts as healthy.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if err := h.db.Health(ctx); err != nil {
		checks["database"] = "error: " + err.Error()
		ready = false
	} else {
		checks["database"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			checks["redis"] = "error: " + err.Error()
			ready = false
		} else {
			checks["redis"] = "ok"
		}
	} else {
		checks["redis"] = "not configured"
	}

	status := "ready"
	code := http.StatusOK
	if !ready {
		status = "not_ready"
		code = http.StatusServiceUnavailable
		h.logger.Warn("readiness check failed",
			slog.String("database", checks["database"]),
			slog.String("redis", checks["redis"]),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": checks,
	})
}
