package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/apperrors"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/domain"
)

// PumpService handles owner-scoped pump CRUD
type PumpService struct {
	pumpRepo domain.PumpRepository
	logger   *slog.Logger
}

// NewPumpService creates a new pump service
func NewPumpService(pumpRepo domain.PumpRepository, logger *slog.Logger) *PumpService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PumpService{pumpRepo: pumpRepo, logger: logger}
}

// PumpPatch is a partial pump update; nil fields are left unchanged.
type PumpPatch struct {
	Name                *string
	Location            *string
	Status              *domain.PumpStatus
	Capacity            *string
	Model               *string
	Manufacturer        *string
	InstallationDate    *time.Time
	PowerRating         *float64
	Voltage             *float64
	Current             *float64
	MaxPressure         *float64
	MinPressure         *float64
	Efficiency          *float64
	MaintenanceInterval *int
	LastMaintenance     *time.Time
}

// List returns all pumps owned by the user, each joined with its latest
// metric, newest-created first.
func (s *PumpService) List(ctx context.Context, userID int64) ([]*domain.PumpWithMetric, error) {
	return s.pumpRepo.ListByUser(ctx, userID)
}

// Get returns the pump with its latest metric, or NotFound when the pump is
// missing or owned by someone else.
func (s *PumpService) Get(ctx context.Context, pumpID, userID int64) (*domain.PumpWithMetric, error) {
	return s.pumpRepo.GetForUser(ctx, pumpID, userID)
}

// Create persists a pump for the user. The repository writes the pump and a
// zero-valued initial metric together, so every pump has at least one metric
// row from the moment it exists.
func (s *PumpService) Create(ctx context.Context, pump *domain.Pump, userID int64) (*domain.PumpWithMetric, error) {
	pump.UserID = userID
	if pump.Status == "" {
		pump.Status = domain.StatusActive
	}
	if !domain.ValidStatus(pump.Status) {
		return nil, apperrors.NewValidation("Invalid pump status")
	}

	if err := s.pumpRepo.Create(ctx, pump); err != nil {
		return nil, err
	}

	s.logger.Info("pump created",
		slog.Int64("pump_id", pump.ID),
		slog.Int64("user_id", userID),
	)

	return s.pumpRepo.GetForUser(ctx, pump.ID, userID)
}

// Update applies a partial patch to an owned pump and returns the refreshed
// joined record.
func (s *PumpService) Update(ctx context.Context, pumpID, userID int64, patch PumpPatch) (*domain.PumpWithMetric, error) {
	existing, err := s.pumpRepo.GetForUser(ctx, pumpID, userID)
	if err != nil {
		return nil, err
	}

	pump := existing.Pump
	applyPatch(&pump, patch)

	if !domain.ValidStatus(pump.Status) {
		return nil, apperrors.NewValidation("Invalid pump status")
	}

	if err := s.pumpRepo.Update(ctx, &pump); err != nil {
		return nil, err
	}

	s.logger.Info("pump updated",
		slog.Int64("pump_id", pumpID),
		slog.Int64("user_id", userID),
	)

	return s.pumpRepo.GetForUser(ctx, pumpID, userID)
}

// Delete removes an owned pump; its metrics go with it via cascade.
func (s *PumpService) Delete(ctx context.Context, pumpID, userID int64) error {
	if err := s.pumpRepo.Delete(ctx, pumpID, userID); err != nil {
		return err
	}

	s.logger.Info("pump deleted",
		slog.Int64("pump_id", pumpID),
		slog.Int64("user_id", userID),
	)

	return nil
}

func applyPatch(pump *domain.Pump, patch PumpPatch) {
	if patch.Name != nil {
		pump.Name = *patch.Name
	}
	if patch.Location != nil {
		pump.Location = *patch.Location
	}
	if patch.Status != nil {
		pump.Status = *patch.Status
	}
	if patch.Capacity != nil {
		pump.Capacity = *patch.Capacity
	}
	if patch.Model != nil {
		pump.Model = *patch.Model
	}
	if patch.Manufacturer != nil {
		pump.Manufacturer = *patch.Manufacturer
	}
	if patch.InstallationDate != nil {
		pump.InstallationDate = patch.InstallationDate
	}
	if patch.PowerRating != nil {
		pump.PowerRating = patch.PowerRating
	}
	if patch.Voltage != nil {
		pump.Voltage = patch.Voltage
	}
	if patch.Current != nil {
		pump.Current = patch.Current
	}
	if patch.MaxPressure != nil {
		pump.MaxPressure = patch.MaxPressure
	}
	if patch.MinPressure != nil {
		pump.MinPressure = patch.MinPressure
	}
	if patch.Efficiency != nil {
		pump.Efficiency = patch.Efficiency
	}
	if patch.MaintenanceInterval != nil {
		pump.MaintenanceInterval = patch.MaintenanceInterval
	}
	if patch.LastMaintenance != nil {
		pump.LastMaintenance = patch.LastMaintenance
	}
}
