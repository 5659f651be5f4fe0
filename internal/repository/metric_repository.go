package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/domain"
)

// PostgresMetricRepository implements domain.MetricRepository using PostgreSQL
type PostgresMetricRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresMetricRepository creates a new metric repository
func NewPostgresMetricRepository(db *sql.DB, logger *slog.Logger) *PostgresMetricRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMetricRepository{db: db, logger: logger}
}

const metricColumns = `id, pump_id, flow_rate, pressure, temperature,
	power_consumption, current_efficiency, is_operating, timestamp, created_at, updated_at`

// Latest returns the most recent metric for the pump, or nil if none exist.
func (r *PostgresMetricRepository) Latest(ctx context.Context, pumpID int64) (*domain.PumpMetric, error) {
	query := `SELECT ` + metricColumns + `
		FROM pump_metrics
		WHERE pump_id = $1
		ORDER BY timestamp DESC
		LIMIT 1`

	metric := &domain.PumpMetric{}
	err := scanMetric(r.db.QueryRowContext(ctx, query, pumpID), metric)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("failed to get latest metric",
			slog.Int64("pump_id", pumpID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get latest metric: %w", err)
	}

	return metric, nil
}

// History returns metrics recorded at or after since, newest first, capped at
// limit rows.
func (r *PostgresMetricRepository) History(ctx context.Context, pumpID int64, since time.Time, limit int) ([]*domain.PumpMetric, error) {
	query := `SELECT ` + metricColumns + `
		FROM pump_metrics
		WHERE pump_id = $1 AND timestamp >= $2
		ORDER BY timestamp DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, pumpID, since, limit)
	if err != nil {
		r.logger.Error("failed to query metric history",
			slog.Int64("pump_id", pumpID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to query metric history: %w", err)
	}
	defer rows.Close()

	metrics := []*domain.PumpMetric{}
	for rows.Next() {
		metric := &domain.PumpMetric{}
		if err := scanMetric(rows, metric); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics = append(metrics, metric)
	}

	return metrics, rows.Err()
}

const insertMetricQuery = `
	INSERT INTO pump_metrics (
		pump_id, flow_rate, pressure, temperature,
		power_consumption, current_efficiency, is_operating, timestamp
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	RETURNING id, timestamp, created_at, updated_at
`

// InsertWithStatus appends the metric and writes the derived pump status in
// one transaction, so a reader never sees the new metric without the matching
// status or vice versa.
func (r *PostgresMetricRepository) InsertWithStatus(ctx context.Context, metric *domain.PumpMetric, status domain.PumpStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(
		ctx,
		insertMetricQuery,
		metric.PumpID,
		metric.FlowRate,
		metric.Pressure,
		metric.Temperature,
		metric.PowerConsumption,
		metric.CurrentEfficiency,
		metric.IsOperating,
	).Scan(&metric.ID, &metric.Timestamp, &metric.CreatedAt, &metric.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert metric: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE pumps SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, metric.PumpID,
	)
	if err != nil {
		return fmt.Errorf("failed to update pump status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metric recording: %w", err)
	}

	return nil
}

func scanMetric(s scanner, m *domain.PumpMetric) error {
	return s.Scan(
		&m.ID,
		&m.PumpID,
		&m.FlowRate,
		&m.Pressure,
		&m.Temperature,
		&m.PowerConsumption,
		&m.CurrentEfficiency,
		&m.IsOperating,
		&m.Timestamp,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
}
