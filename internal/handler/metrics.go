package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/apperrors"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/domain"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/middleware"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/service"
)

// MetricsRequest is the payload for recording a metric sample. Missing
// fields default to zero.
type MetricsRequest struct {
	FlowRate          *float64 `json:"flow_rate"`
	Pressure          *float64 `json:"pressure"`
	Temperature       *float64 `json:"temperature"`
	PowerConsumption  *float64 `json:"power_consumption"`
	CurrentEfficiency *float64 `json:"current_efficiency"`
	IsOperating       *bool    `json:"is_operating"`
}

// MetricsHandler handles the per-pump metric endpoints
type MetricsHandler struct {
	metricsService *service.MetricsService
	logger         *slog.Logger
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(metricsService *service.MetricsService, logger *slog.Logger) *MetricsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsHandler{metricsService: metricsService, logger: logger}
}

// Current handles GET /api/metrics/{id}/current
func (h *MetricsHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	pumpID, err := pathPumpID(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	metric, err := h.metricsService.Current(r.Context(), pumpID, userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respond(w, http.StatusOK, "Current metrics retrieved successfully", map[string]any{"metrics": metric})
}

// History handles GET /api/metrics/{id}/history?limit=&hours=
func (h *MetricsHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	pumpID, err := pathPumpID(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	limit, err := queryInt(r, "limit", 1, 1000, "Limit must be between 1 and 1000")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	hours, err := queryInt(r, "hours", 1, 8760, "Hours must be between 1 and 8760 (1 year)")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	history, err := h.metricsService.History(r.Context(), pumpID, userID, limit, hours)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if history == nil {
		history = []*domain.PumpMetric{}
	}

	respond(w, http.StatusOK, "Metrics history retrieved successfully", map[string]any{
		"metrics": history,
		"count":   len(history),
	})
}

// Update handles POST /api/metrics/{id}/update
func (h *MetricsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	pumpID, err := pathPumpID(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	var req MetricsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := validateSample(req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	metric, err := h.metricsService.Record(r.Context(), pumpID, userID, toSample(req))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respond(w, http.StatusOK, "Metrics updated successfully", map[string]any{"metrics": metric})
}

// Simulate handles POST /api/metrics/{id}/simulate
func (h *MetricsHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	pumpID, err := pathPumpID(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	metric, err := h.metricsService.Simulate(r.Context(), pumpID, userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respond(w, http.StatusOK, "Simulated metrics generated successfully", map[string]any{"metrics": metric})
}

// queryInt parses an optional bounded query parameter; 0 means absent.
func queryInt(r *http.Request, name string, min, max int, msg string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, apperrors.NewValidation(msg)
	}
	return v, nil
}

func validateSample(req MetricsRequest) error {
	for msg, v := range map[string]*float64{
		"Flow rate must be a positive number":         req.FlowRate,
		"Pressure must be a positive number":          req.Pressure,
		"Power consumption must be a positive number": req.PowerConsumption,
	} {
		if v != nil && *v < 0 {
			return apperrors.NewValidation(msg)
		}
	}
	if req.Temperature != nil && (*req.Temperature < -50 || *req.Temperature > 200) {
		return apperrors.NewValidation("Temperature must be between -50 and 200 degrees")
	}
	if req.CurrentEfficiency != nil && (*req.CurrentEfficiency < 0 || *req.CurrentEfficiency > 100) {
		return apperrors.NewValidation("Current efficiency must be between 0 and 100")
	}
	return nil
}

func toSample(req MetricsRequest) domain.MetricSample {
	var s domain.MetricSample
	if req.FlowRate != nil {
		s.FlowRate = *req.FlowRate
	}
	if req.Pressure != nil {
		s.Pressure = *req.Pressure
	}
	if req.Temperature != nil {
		s.Temperature = *req.Temperature
	}
	if req.PowerConsumption != nil {
		s.PowerConsumption = *req.PowerConsumption
	}
	if req.CurrentEfficiency != nil {
		s.CurrentEfficiency = *req.CurrentEfficiency
	}
	if req.IsOperating != nil {
		s.IsOperating = *req.IsOperating
	}
	return s
}
