package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/apperrors"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/domain"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/repository/memory"
)

func newTestMetricsService() (*MetricsService, *PumpService, *memory.Store) {
	store := memory.NewStore()
	svc := NewMetricsService(store.PumpRepo(), store.MetricRepo(), newSampleSourceWithSeed(42), nil, nil)
	return svc, NewPumpService(store.PumpRepo(), nil), store
}

func TestRecordDerivesStatus(t *testing.T) {
	svc, pumps, store := newTestMetricsService()
	ctx := context.Background()

	minP, maxP, power := 20.0, 80.0, 15.0
	pump, err := pumps.Create(ctx, &domain.Pump{
		Name:        "P1",
		MinPressure: &minP,
		MaxPressure: &maxP,
		PowerRating: &power,
	}, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	steps := []struct {
		sample domain.MetricSample
		want   domain.PumpStatus
	}{
		{domain.MetricSample{Temperature: 90, Pressure: 50, IsOperating: true}, domain.StatusError},
		{domain.MetricSample{Temperature: 50, Pressure: 10, IsOperating: true}, domain.StatusError},
		{domain.MetricSample{Temperature: 50, Pressure: 50, IsOperating: false}, domain.StatusInactive},
		{domain.MetricSample{Temperature: 50, Pressure: 50, IsOperating: true}, domain.StatusActive},
	}

	for i, step := range steps {
		if _, err := svc.Record(ctx, pump.ID, 1, step.sample); err != nil {
			t.Fatalf("step %d: Record failed: %v", i, err)
		}
		if got := store.PumpStatus(pump.ID); got != step.want {
			t.Errorf("step %d: pump status = %q, want %q", i, got, step.want)
		}
	}
}

func TestRecordRequiresOwnership(t *testing.T) {
	svc, pumps, _ := newTestMetricsService()
	ctx := context.Background()

	pump, err := pumps.Create(ctx, &domain.Pump{Name: "P1"}, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = svc.Record(ctx, pump.ID, 2, domain.MetricSample{IsOperating: true})
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found for other user's pump, got %v", err)
	}
}

func TestCurrentReturnsLatest(t *testing.T) {
	svc, pumps, _ := newTestMetricsService()
	ctx := context.Background()

	pump, err := pumps.Create(ctx, &domain.Pump{Name: "P1"}, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// The creation transaction leaves a zero-valued initial reading.
	current, err := svc.Current(ctx, pump.ID, 1)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.FlowRate != 0 || current.IsOperating {
		t.Errorf("expected zero initial reading, got %+v", current)
	}

	recorded, err := svc.Record(ctx, pump.ID, 1, domain.MetricSample{
		FlowRate:    120,
		Pressure:    55,
		Temperature: 42,
		IsOperating: true,
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	current, err = svc.Current(ctx, pump.ID, 1)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.ID != recorded.ID || current.FlowRate != 120 {
		t.Errorf("current = %+v, want the freshly recorded reading", current)
	}
}

func TestHistoryWindowAndLimit(t *testing.T) {
	svc, pumps, store := newTestMetricsService()
	ctx := context.Background()

	pump, err := pumps.Create(ctx, &domain.Pump{Name: "P1"}, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Backdate readings directly so the time window has something to cut.
	now := time.Now()
	for i, age := range []time.Duration{48 * time.Hour, 2 * time.Hour, time.Hour, time.Minute} {
		store.SeedMetric(&domain.PumpMetric{
			PumpID:    pump.ID,
			FlowRate:  float64(i + 1),
			Timestamp: now.Add(-age),
		})
	}

	history, err := svc.History(ctx, pump.ID, 1, 0, 24)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	// Three backdated rows plus the initial reading fall inside the window.
	if len(history) != 4 {
		t.Fatalf("history rows = %d, want 4 (48h-old row excluded)", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].Timestamp.After(history[i-1].Timestamp) {
			t.Fatal("history not sorted newest first")
		}
	}

	limited, err := svc.History(ctx, pump.ID, 1, 2, 24)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited history rows = %d, want 2", len(limited))
	}
}

func TestSimulateStaysInBounds(t *testing.T) {
	svc, pumps, _ := newTestMetricsService()
	ctx := context.Background()

	minP, maxP, power := 30.0, 90.0, 12.0
	pump, err := pumps.Create(ctx, &domain.Pump{
		Name:        "P1",
		MinPressure: &minP,
		MaxPressure: &maxP,
		PowerRating: &power,
	}, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for i := 0; i < 50; i++ {
		m, err := svc.Simulate(ctx, pump.ID, 1)
		if err != nil {
			t.Fatalf("Simulate failed: %v", err)
		}
		if m.FlowRate < 50 || m.FlowRate > 200 {
			t.Errorf("flow rate %v out of range", m.FlowRate)
		}
		if m.Pressure < minP || m.Pressure > maxP {
			t.Errorf("pressure %v outside configured bounds", m.Pressure)
		}
		if m.Temperature < 20 || m.Temperature > 75 {
			t.Errorf("temperature %v out of range", m.Temperature)
		}
		if m.PowerConsumption < 5 || m.PowerConsumption > power {
			t.Errorf("power %v outside rating", m.PowerConsumption)
		}
		if m.CurrentEfficiency < 75 || m.CurrentEfficiency > 95 {
			t.Errorf("efficiency %v out of range", m.CurrentEfficiency)
		}
	}
}

// fakeCache records cache traffic for the current-reading path.
type fakeCache struct {
	data map[string][]byte
	hits int
}

func (c *fakeCache) GetJSON(_ context.Context, key string, out any) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, out)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func TestCurrentServesFromCache(t *testing.T) {
	store := memory.NewStore()
	cache := &fakeCache{data: make(map[string][]byte)}
	svc := NewMetricsService(store.PumpRepo(), store.MetricRepo(), newSampleSourceWithSeed(1), cache, nil)
	pumps := NewPumpService(store.PumpRepo(), nil)
	ctx := context.Background()

	pump, err := pumps.Create(ctx, &domain.Pump{Name: "P1"}, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := svc.Current(ctx, pump.ID, 1); err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if len(cache.data) != 1 {
		t.Fatalf("expected cache primed after first read, entries = %d", len(cache.data))
	}

	if _, err := svc.Current(ctx, pump.ID, 1); err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}

	// Recording refreshes the cached reading in place.
	if _, err := svc.Record(ctx, pump.ID, 1, domain.MetricSample{FlowRate: 99, IsOperating: true}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	current, err := svc.Current(ctx, pump.ID, 1)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.FlowRate != 99 {
		t.Errorf("cached reading not refreshed after record: flow = %v", current.FlowRate)
	}
}

func TestCurrentIgnoresBackdatedRows(t *testing.T) {
	svc, pumps, store := newTestMetricsService()
	ctx := context.Background()

	pump, err := pumps.Create(ctx, &domain.Pump{Name: "P1"}, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	recorded, err := svc.Record(ctx, pump.ID, 1, domain.MetricSample{
		FlowRate:    80,
		Pressure:    45,
		Temperature: 40,
		IsOperating: true,
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// A row appended later with an older timestamp must not displace the
	// newest reading; latest follows timestamps, not append order.
	store.SeedMetric(&domain.PumpMetric{
		PumpID:    pump.ID,
		FlowRate:  1,
		Timestamp: time.Now().Add(-time.Hour),
	})

	current, err := svc.Current(ctx, pump.ID, 1)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.ID != recorded.ID || current.FlowRate != 80 {
		t.Errorf("current = %+v, want the recorded reading", current)
	}

	// The pump view carries the same newest reading.
	got, err := pumps.Get(ctx, pump.ID, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Metrics) != 1 || got.Metrics[0].ID != recorded.ID {
		t.Errorf("joined metric = %+v, want the recorded reading", got.Metrics)
	}
}
