package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/domain"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/observability/metrics"
)

const (
	defaultHistoryLimit = 50
	defaultHistoryHours = 24
	currentReadingTTL   = 10 * time.Second
)

// ReadingCache caches the current reading per pump. Implemented by the Redis
// client; a nil cache disables caching.
type ReadingCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MetricsService records metric samples and serves current/history reads,
// all ownership-checked through the pump repository.
type MetricsService struct {
	pumpRepo   domain.PumpRepository
	metricRepo domain.MetricRepository
	sampler    domain.SampleSource
	cache      ReadingCache
	logger     *slog.Logger
}

// NewMetricsService creates a new metrics service. cache may be nil.
func NewMetricsService(
	pumpRepo domain.PumpRepository,
	metricRepo domain.MetricRepository,
	sampler domain.SampleSource,
	cache ReadingCache,
	logger *slog.Logger,
) *MetricsService {
	if logger == nil {
		logger = slog.Default()
	}

	return &MetricsService{
		pumpRepo:   pumpRepo,
		metricRepo: metricRepo,
		sampler:    sampler,
		cache:      cache,
		logger:     logger,
	}
}

// Current returns the pump's latest metric. Clients poll this on a timer, so
// the reading is served from the cache when primed. A pump with no metrics
// gets a synthesized idle reading.
func (s *MetricsService) Current(ctx context.Context, pumpID, userID int64) (*domain.PumpMetric, error) {
	if _, err := s.pumpRepo.GetForUser(ctx, pumpID, userID); err != nil {
		return nil, err
	}

	key := currentKey(pumpID)
	if s.cache != nil {
		cached := &domain.PumpMetric{}
		if hit, err := s.cache.GetJSON(ctx, key, cached); err == nil && hit {
			return cached, nil
		}
	}

	metric, err := s.metricRepo.Latest(ctx, pumpID)
	if err != nil {
		return nil, err
	}
	if metric == nil {
		// Should not happen since creation inserts an initial row, but the
		// zero reading is the defined fallback.
		metric = defaultMetric(pumpID)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, metric, currentReadingTTL); err != nil {
			s.logger.Warn("failed to prime reading cache", slog.String("error", err.Error()))
		}
	}

	return metric, nil
}

// History returns metrics from the last `hours` hours, newest first, capped
// at limit rows. Zero values fall back to the defaults.
func (s *MetricsService) History(ctx context.Context, pumpID, userID int64, limit, hours int) ([]*domain.PumpMetric, error) {
	if _, err := s.pumpRepo.GetForUser(ctx, pumpID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if hours <= 0 {
		hours = defaultHistoryHours
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	return s.metricRepo.History(ctx, pumpID, since, limit)
}

// Record inserts a caller-supplied sample and atomically updates the pump's
// derived status.
func (s *MetricsService) Record(ctx context.Context, pumpID, userID int64, sample domain.MetricSample) (*domain.PumpMetric, error) {
	return s.record(ctx, pumpID, userID, sample, "manual")
}

// Simulate fabricates a sample from the pump's configured bounds and records
// it. Swapping the SampleSource swaps in real telemetry.
func (s *MetricsService) Simulate(ctx context.Context, pumpID, userID int64) (*domain.PumpMetric, error) {
	pump, err := s.pumpRepo.GetForUser(ctx, pumpID, userID)
	if err != nil {
		return nil, err
	}

	sample := s.sampler.Sample(&pump.Pump)
	return s.record(ctx, pumpID, userID, sample, "simulated")
}

func (s *MetricsService) record(ctx context.Context, pumpID, userID int64, sample domain.MetricSample, source string) (*domain.PumpMetric, error) {
	pump, err := s.pumpRepo.GetForUser(ctx, pumpID, userID)
	if err != nil {
		return nil, err
	}

	status := domain.DeriveStatus(sample, &pump.Pump)

	metric := &domain.PumpMetric{
		PumpID:            pumpID,
		FlowRate:          sample.FlowRate,
		Pressure:          sample.Pressure,
		Temperature:       sample.Temperature,
		PowerConsumption:  sample.PowerConsumption,
		CurrentEfficiency: sample.CurrentEfficiency,
		IsOperating:       sample.IsOperating,
	}

	if err := s.metricRepo.InsertWithStatus(ctx, metric, status); err != nil {
		return nil, err
	}

	metrics.ObserveSample(source)
	metrics.ObserveStatusTransition(string(status))

	if s.cache != nil {
		// The freshly recorded row is the new current reading.
		if err := s.cache.SetJSON(ctx, currentKey(pumpID), metric, currentReadingTTL); err != nil {
			s.logger.Warn("failed to refresh reading cache", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("metric recorded",
		slog.Int64("pump_id", pumpID),
		slog.Int64("user_id", userID),
		slog.String("source", source),
		slog.String("status", string(status)),
	)

	return metric, nil
}

func currentKey(pumpID int64) string {
	return fmt.Sprintf("pump:%d:current", pumpID)
}

// defaultMetric is the synthesized reading for a pump with no metric rows.
func defaultMetric(pumpID int64) *domain.PumpMetric {
	return &domain.PumpMetric{
		PumpID:      pumpID,
		Temperature: 20,
		Timestamp:   time.Now(),
	}
}
