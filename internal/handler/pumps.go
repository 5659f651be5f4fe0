package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/apperrors"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/domain"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/security/middleware"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/service"
)

// PumpRequest is the payload for creating or updating a pump. Every field
// is optional on update; nil means "leave unchanged".
type PumpRequest struct {
	Name                *string            `json:"name"`
	Location            *string            `json:"location"`
	Status              *domain.PumpStatus `json:"status"`
	Capacity            *string            `json:"capacity"`
	Model               *string            `json:"model"`
	Manufacturer        *string            `json:"manufacturer"`
	InstallationDate    *time.Time         `json:"installation_date"`
	PowerRating         *float64           `json:"power_rating"`
	Voltage             *float64           `json:"voltage"`
	Current             *float64           `json:"current"`
	MaxPressure         *float64           `json:"max_pressure"`
	MinPressure         *float64           `json:"min_pressure"`
	Efficiency          *float64           `json:"efficiency"`
	MaintenanceInterval *int               `json:"maintenance_interval"`
	LastMaintenance     *time.Time         `json:"last_maintenance"`
}

// PumpHandler handles the owner-scoped pump CRUD endpoints
type PumpHandler struct {
	pumpService *service.PumpService
	logger      *slog.Logger
}

// NewPumpHandler creates a new pump handler
func NewPumpHandler(pumpService *service.PumpService, logger *slog.Logger) *PumpHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PumpHandler{pumpService: pumpService, logger: logger}
}

// List handles GET /api/pumps
func (h *PumpHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	pumps, err := h.pumpService.List(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if pumps == nil {
		pumps = []*domain.PumpWithMetric{}
	}

	respond(w, http.StatusOK, "Pumps retrieved successfully", map[string]any{
		"pumps": pumps,
		"count": len(pumps),
	})
}

// Get handles GET /api/pumps/{id}
func (h *PumpHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	pumpID, err := pathPumpID(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	pump, err := h.pumpService.Get(r.Context(), pumpID, userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respond(w, http.StatusOK, "Pump retrieved successfully", map[string]any{"pump": pump})
}

// Create handles POST /api/pumps
func (h *PumpHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	var req PumpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		respondError(w, h.logger, apperrors.NewValidation("Pump name is required"))
		return
	}
	if err := validatePumpFields(req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	pump := &domain.Pump{Name: strings.TrimSpace(*req.Name)}
	applyRequest(pump, req)

	created, err := h.pumpService.Create(r.Context(), pump, userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respond(w, http.StatusCreated, "Pump created successfully", map[string]any{"pump": created})
}

// Update handles PUT /api/pumps/{id}
func (h *PumpHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	pumpID, err := pathPumpID(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	var req PumpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			respondError(w, h.logger, apperrors.NewValidation("Pump name cannot be empty"))
			return
		}
		req.Name = &trimmed
	}
	if err := validatePumpFields(req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	updated, err := h.pumpService.Update(r.Context(), pumpID, userID, service.PumpPatch{
		Name:                req.Name,
		Location:            req.Location,
		Status:              req.Status,
		Capacity:            req.Capacity,
		Model:               req.Model,
		Manufacturer:        req.Manufacturer,
		InstallationDate:    req.InstallationDate,
		PowerRating:         req.PowerRating,
		Voltage:             req.Voltage,
		Current:             req.Current,
		MaxPressure:         req.MaxPressure,
		MinPressure:         req.MinPressure,
		Efficiency:          req.Efficiency,
		MaintenanceInterval: req.MaintenanceInterval,
		LastMaintenance:     req.LastMaintenance,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respond(w, http.StatusOK, "Pump updated successfully", map[string]any{"pump": updated})
}

// Delete handles DELETE /api/pumps/{id}
func (h *PumpHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())
	pumpID, err := pathPumpID(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.pumpService.Delete(r.Context(), pumpID, userID); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respond(w, http.StatusOK, "Pump deleted successfully", nil)
}

// pathPumpID parses the {id} path segment.
func pathPumpID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.NewValidation("Pump ID must be a positive integer")
	}
	return id, nil
}

func validatePumpFields(req PumpRequest) error {
	if req.Name != nil && len(*req.Name) > 100 {
		return apperrors.NewValidation("Pump name must be between 1 and 100 characters")
	}
	if req.Location != nil && len(*req.Location) > 200 {
		return apperrors.NewValidation("Location must not exceed 200 characters")
	}
	if req.Capacity != nil && len(*req.Capacity) > 50 {
		return apperrors.NewValidation("Capacity must not exceed 50 characters")
	}
	if req.Model != nil && len(*req.Model) > 100 {
		return apperrors.NewValidation("Model must not exceed 100 characters")
	}
	if req.Manufacturer != nil && len(*req.Manufacturer) > 100 {
		return apperrors.NewValidation("Manufacturer must not exceed 100 characters")
	}
	if req.Status != nil && !domain.ValidStatus(*req.Status) {
		return apperrors.NewValidation("Status must be active, inactive, maintenance, or error")
	}
	for msg, v := range map[string]*float64{
		"Power rating must be a positive number": req.PowerRating,
		"Voltage must be a positive number":      req.Voltage,
		"Current must be a positive number":      req.Current,
		"Max pressure must be a positive number": req.MaxPressure,
		"Min pressure must be a positive number": req.MinPressure,
	} {
		if v != nil && *v < 0 {
			return apperrors.NewValidation(msg)
		}
	}
	if req.Efficiency != nil && (*req.Efficiency < 0 || *req.Efficiency > 100) {
		return apperrors.NewValidation("Efficiency must be between 0 and 100")
	}
	if req.MaintenanceInterval != nil && *req.MaintenanceInterval < 1 {
		return apperrors.NewValidation("Maintenance interval must be a positive integer")
	}
	return nil
}

func applyRequest(pump *domain.Pump, req PumpRequest) {
	if req.Location != nil {
		pump.Location = *req.Location
	}
	if req.Status != nil {
		pump.Status = *req.Status
	}
	if req.Capacity != nil {
		pump.Capacity = *req.Capacity
	}
	if req.Model != nil {
		pump.Model = *req.Model
	}
	if req.Manufacturer != nil {
		pump.Manufacturer = *req.Manufacturer
	}
	pump.InstallationDate = req.InstallationDate
	pump.PowerRating = req.PowerRating
	pump.Voltage = req.Voltage
	pump.Current = req.Current
	pump.MaxPressure = req.MaxPressure
	pump.MinPressure = req.MinPressure
	pump.Efficiency = req.Efficiency
	pump.MaintenanceInterval = req.MaintenanceInterval
	pump.LastMaintenance = req.LastMaintenance
}
