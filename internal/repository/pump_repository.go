package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/apperrors"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/domain"
)

// PostgresPumpRepository implements domain.PumpRepository using PostgreSQL
type PostgresPumpRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPumpRepository creates a new pump repository
func NewPostgresPumpRepository(db *sql.DB, logger *slog.Logger) *PostgresPumpRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPumpRepository{db: db, logger: logger}
}

const pumpColumns = `
	p.id, p.user_id, p.name, COALESCE(p.location, ''), p.status,
	COALESCE(p.capacity, ''), COALESCE(p.model, ''), COALESCE(p.manufacturer, ''),
	p.installation_date, p.power_rating, p.voltage, p.current,
	p.max_pressure, p.min_pressure, p.efficiency,
	p.maintenance_interval, p.last_maintenance, p.created_at, p.updated_at`

// latestMetricJoin picks the single most-recent metric per pump; pumps with
// no metrics still appear (left-join semantics).
const latestMetricJoin = `
	LEFT JOIN LATERAL (
		SELECT id, pump_id, flow_rate, pressure, temperature, power_consumption,
		       current_efficiency, is_operating, timestamp, created_at, updated_at
		FROM pump_metrics
		WHERE pump_id = p.id
		ORDER BY timestamp DESC
		LIMIT 1
	) m ON TRUE`

const metricJoinColumns = `
	m.id, m.flow_rate, m.pressure, m.temperature, m.power_consumption,
	m.current_efficiency, m.is_operating, m.timestamp, m.created_at, m.updated_at`

// ListByUser returns all pumps owned by userID joined with their latest
// metric, newest-created first.
func (r *PostgresPumpRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.PumpWithMetric, error) {
	query := `SELECT ` + pumpColumns + `, ` + metricJoinColumns + `
		FROM pumps p` + latestMetricJoin + `
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to list pumps",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list pumps: %w", err)
	}
	defer rows.Close()

	pumps := []*domain.PumpWithMetric{}
	for rows.Next() {
		pump, err := scanPumpWithMetric(rows)
		if err != nil {
			r.logger.Error("failed to scan pump row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan pump: %w", err)
		}
		pumps = append(pumps, pump)
	}

	return pumps, rows.Err()
}

// GetForUser returns the pump joined with its latest metric. Existence and
// ownership are checked together: someone else's pump reports not found.
func (r *PostgresPumpRepository) GetForUser(ctx context.Context, pumpID, userID int64) (*domain.PumpWithMetric, error) {
	query := `SELECT ` + pumpColumns + `, ` + metricJoinColumns + `
		FROM pumps p` + latestMetricJoin + `
		WHERE p.id = $1 AND p.user_id = $2`

	row := r.db.QueryRowContext(ctx, query, pumpID, userID)
	pump, err := scanPumpWithMetric(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("Pump not found")
		}
		r.logger.Error("failed to get pump",
			slog.Int64("pump_id", pumpID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get pump: %w", err)
	}

	return pump, nil
}

// Create persists the pump and its zero-valued initial metric in a single
// transaction.
func (r *PostgresPumpRepository) Create(ctx context.Context, pump *domain.Pump) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO pumps (
			user_id, name, location, status, capacity, model, manufacturer,
			installation_date, power_rating, voltage, current,
			max_pressure, min_pressure, efficiency,
			maintenance_interval, last_maintenance
		)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''),
		        $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, status, created_at, updated_at
	`

	status := pump.Status
	if status == "" {
		status = domain.StatusActive
	}

	err = tx.QueryRowContext(
		ctx,
		query,
		pump.UserID,
		pump.Name,
		pump.Location,
		status,
		pump.Capacity,
		pump.Model,
		pump.Manufacturer,
		pump.InstallationDate,
		pump.PowerRating,
		pump.Voltage,
		pump.Current,
		pump.MaxPressure,
		pump.MinPressure,
		pump.Efficiency,
		pump.MaintenanceInterval,
		pump.LastMaintenance,
	).Scan(&pump.ID, &pump.Status, &pump.CreatedAt, &pump.UpdatedAt)

	if err != nil {
		if translated := apperrors.FromPostgres(err); translated != err {
			return translated
		}
		r.logger.Error("failed to create pump",
			slog.Int64("user_id", pump.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create pump: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pump_metrics (
			pump_id, flow_rate, pressure, temperature,
			power_consumption, current_efficiency, is_operating, timestamp
		)
		VALUES ($1, 0, 0, 0, 0, 0, FALSE, NOW())
	`, pump.ID)
	if err != nil {
		return fmt.Errorf("failed to create initial metric: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pump creation: %w", err)
	}

	return nil
}

// Update writes all mutable columns; the service applies the partial patch
// before calling.
func (r *PostgresPumpRepository) Update(ctx context.Context, pump *domain.Pump) error {
	query := `
		UPDATE pumps
		SET name = $1, location = NULLIF($2, ''), status = $3,
		    capacity = NULLIF($4, ''), model = NULLIF($5, ''), manufacturer = NULLIF($6, ''),
		    installation_date = $7, power_rating = $8, voltage = $9, current = $10,
		    max_pressure = $11, min_pressure = $12, efficiency = $13,
		    maintenance_interval = $14, last_maintenance = $15, updated_at = NOW()
		WHERE id = $16 AND user_id = $17
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		pump.Name,
		pump.Location,
		pump.Status,
		pump.Capacity,
		pump.Model,
		pump.Manufacturer,
		pump.InstallationDate,
		pump.PowerRating,
		pump.Voltage,
		pump.Current,
		pump.MaxPressure,
		pump.MinPressure,
		pump.Efficiency,
		pump.MaintenanceInterval,
		pump.LastMaintenance,
		pump.ID,
		pump.UserID,
	).Scan(&pump.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFound("Pump not found")
		}
		return fmt.Errorf("failed to update pump: %w", err)
	}

	return nil
}

// Delete removes the pump and, via cascade, all of its metrics.
func (r *PostgresPumpRepository) Delete(ctx context.Context, pumpID, userID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pumps WHERE id = $1 AND user_id = $2`, pumpID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete pump: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("Pump not found")
	}

	return nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPumpWithMetric(s scanner) (*domain.PumpWithMetric, error) {
	pump := &domain.PumpWithMetric{}

	var (
		mID        sql.NullInt64
		mFlow      sql.NullFloat64
		mPressure  sql.NullFloat64
		mTemp      sql.NullFloat64
		mPower     sql.NullFloat64
		mEff       sql.NullFloat64
		mOperating sql.NullBool
		mTimestamp sql.NullTime
		mCreatedAt sql.NullTime
		mUpdatedAt sql.NullTime
	)

	err := s.Scan(
		&pump.ID,
		&pump.UserID,
		&pump.Name,
		&pump.Location,
		&pump.Status,
		&pump.Capacity,
		&pump.Model,
		&pump.Manufacturer,
		&pump.InstallationDate,
		&pump.PowerRating,
		&pump.Voltage,
		&pump.Current,
		&pump.MaxPressure,
		&pump.MinPressure,
		&pump.Efficiency,
		&pump.MaintenanceInterval,
		&pump.LastMaintenance,
		&pump.CreatedAt,
		&pump.UpdatedAt,
		&mID,
		&mFlow,
		&mPressure,
		&mTemp,
		&mPower,
		&mEff,
		&mOperating,
		&mTimestamp,
		&mCreatedAt,
		&mUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	pump.Metrics = []*domain.PumpMetric{}
	if mID.Valid {
		pump.Metrics = append(pump.Metrics, &domain.PumpMetric{
			ID:                mID.Int64,
			PumpID:            pump.ID,
			FlowRate:          mFlow.Float64,
			Pressure:          mPressure.Float64,
			Temperature:       mTemp.Float64,
			PowerConsumption:  mPower.Float64,
			CurrentEfficiency: mEff.Float64,
			IsOperating:       mOperating.Bool,
			Timestamp:         mTimestamp.Time,
			CreatedAt:         mCreatedAt.Time,
			UpdatedAt:         mUpdatedAt.Time,
		})
	}

	return pump, nil
}
