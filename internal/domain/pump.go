package domain

import (
	"context"
	"time"
)

// PumpStatus is the derived operational state of a pump. It is overwritten
// from the latest metric on every recording; "maintenance" is never derived
// and can only be set through a pump update.
type PumpStatus string

const (
	StatusActive      PumpStatus = "active"
	StatusInactive    PumpStatus = "inactive"
	StatusMaintenance PumpStatus = "maintenance"
	StatusError       PumpStatus = "error"
)

// ValidStatus reports whether s is one of the known pump statuses.
func ValidStatus(s PumpStatus) bool {
	switch s {
	case StatusActive, StatusInactive, StatusMaintenance, StatusError:
		return true
	}
	return false
}

// Pump represents a monitored piece of equipment owned by a single user.
// Optional numeric specs are pointers so absent values survive round trips.
type Pump struct {
	ID                  int64      `json:"id"`
	UserID              int64      `json:"user_id"`
	Name                string     `json:"name"`
	Location            string     `json:"location,omitempty"`
	Status              PumpStatus `json:"status"`
	Capacity            string     `json:"capacity,omitempty"`
	Model               string     `json:"model,omitempty"`
	Manufacturer        string     `json:"manufacturer,omitempty"`
	InstallationDate    *time.Time `json:"installation_date,omitempty"`
	PowerRating         *float64   `json:"power_rating,omitempty"`         // kW
	Voltage             *float64   `json:"voltage,omitempty"`              // V
	Current             *float64   `json:"current,omitempty"`              // A
	MaxPressure         *float64   `json:"max_pressure,omitempty"`         // PSI
	MinPressure         *float64   `json:"min_pressure,omitempty"`         // PSI
	Efficiency          *float64   `json:"efficiency,omitempty"`           // %
	MaintenanceInterval *int       `json:"maintenance_interval,omitempty"` // days
	LastMaintenance     *time.Time `json:"last_maintenance,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// PumpWithMetric is a pump joined with its most recent metric row. Metrics
// holds zero or one entries so listings keep the shape clients expect.
type PumpWithMetric struct {
	Pump
	Metrics []*PumpMetric `json:"metrics"`
}

// PumpMetric is one timestamped measurement sample for a pump. Rows are
// append-only; the current reading is the row with the latest timestamp.
type PumpMetric struct {
	ID                int64     `json:"id"`
	PumpID            int64     `json:"pump_id"`
	FlowRate          float64   `json:"flow_rate"`          // L/min
	Pressure          float64   `json:"pressure"`           // PSI
	Temperature       float64   `json:"temperature"`        // Celsius
	PowerConsumption  float64   `json:"power_consumption"`  // kW
	CurrentEfficiency float64   `json:"current_efficiency"` // %
	IsOperating       bool      `json:"is_operating"`
	Timestamp         time.Time `json:"timestamp"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// MetricSample is the caller-supplied portion of a metric recording.
// Missing fields default to zero values.
type MetricSample struct {
	FlowRate          float64
	Pressure          float64
	Temperature       float64
	PowerConsumption  float64
	CurrentEfficiency float64
	IsOperating       bool
}

// DeriveStatus computes the pump status implied by a metric sample:
// inactive when the pump is not operating, error when it runs too hot
// (> 80 C) or below its configured minimum pressure, otherwise active.
// Kept as a pure function so the rule is testable apart from persistence.
func DeriveStatus(sample MetricSample, pump *Pump) PumpStatus {
	if !sample.IsOperating {
		return StatusInactive
	}
	if sample.Temperature > 80 {
		return StatusError
	}
	if pump.MinPressure != nil && sample.Pressure < *pump.MinPressure {
		return StatusError
	}
	return StatusActive
}

// SampleSource produces metric samples for a pump. The production
// implementation fabricates readings; a real sensor feed can be plugged in
// behind the same interface.
type SampleSource interface {
	Sample(pump *Pump) MetricSample
}

// PumpRepository defines data access for pumps. All reads and writes are
// scoped to the owning user; a pump owned by someone else behaves exactly
// like a pump that does not exist.
type PumpRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]*PumpWithMetric, error)
	GetForUser(ctx context.Context, pumpID, userID int64) (*PumpWithMetric, error)
	// Create persists the pump and its zero-valued initial metric row in a
	// single transaction, so every pump always has at least one metric.
	Create(ctx context.Context, pump *Pump) error
	Update(ctx context.Context, pump *Pump) error
	Delete(ctx context.Context, pumpID, userID int64) error
}

// MetricRepository defines data access for pump metrics
type MetricRepository interface {
	// Latest returns the most recent metric for the pump, or nil if none exist.
	Latest(ctx context.Context, pumpID int64) (*PumpMetric, error)
	History(ctx context.Context, pumpID int64, since time.Time, limit int) ([]*PumpMetric, error)
	// InsertWithStatus inserts the metric and updates the parent pump's
	// status in one transaction, so readers never observe one without the
	// other.
	InsertWithStatus(ctx context.Context, metric *PumpMetric, status PumpStatus) error
}
