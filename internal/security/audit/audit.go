// Package audit emits structured records of mutating actions against pumps
// and metrics, keyed by the acting user.
package audit

import (
	"context"
	"log/slog"
	"time"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, userID int64, action, resource, resourceID, status string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.Int64("user_id", userID),
		slog.String("status", status),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogPumpMutation(ctx context.Context, userID int64, action, pumpID, status string) {
	al.LogAction(ctx, userID, action, "pump", pumpID, status)
}

func (al *Logger) LogMetricRecorded(ctx context.Context, userID int64, pumpID, status string) {
	al.LogAction(ctx, userID, "record", "metric", pumpID, status)
}

func (al *Logger) LogDenied(ctx context.Context, userID int64, reason string) {
	al.LogAction(ctx, userID, "access_denied", "api", "", reason)
}
