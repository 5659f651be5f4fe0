// Package memory provides in-memory implementations of the domain
// repositories. They back tests and local demos and mirror the Postgres
// implementations' contract, including owner scoping and the
// pump-plus-initial-metric creation transaction.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/apperrors"
	"github.com/urielfelipevz0z/proyecto-progra-web/internal/domain"
)

// UserRepo is an in-memory domain.UserRepository
type UserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

// NewUserRepo creates an empty in-memory user repository
func NewUserRepo() *UserRepo {
	return &UserRepo{nextID: 1, users: make(map[int64]*domain.User)}
}

func (r *UserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return apperrors.NewConflict("Email already exists")
		}
		if u.Username == user.Username {
			return apperrors.NewConflict("Username already exists")
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, apperrors.NewNotFound("User not found")
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r *UserRepo) GetByUsernameOrEmail(_ context.Context, identifier string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool {
		return u.Username == identifier || u.Email == identifier
	})
}

func (r *UserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return apperrors.NewNotFound("User not found")
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepo) find(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, apperrors.NewNotFound("User not found")
}

// Store holds pumps and metrics behind one lock so the metric repository
// can update pump status the way the transactional implementation does.
type Store struct {
	mu           sync.Mutex
	nextPumpID   int64
	nextMetricID int64
	pumps        map[int64]*domain.Pump
	metrics      map[int64][]*domain.PumpMetric // keyed by pump id
}

// NewStore creates an empty pump and metric store
func NewStore() *Store {
	return &Store{
		nextPumpID:   1,
		nextMetricID: 1,
		pumps:        make(map[int64]*domain.Pump),
		metrics:      make(map[int64][]*domain.PumpMetric),
	}
}

// PumpRepo returns the store's domain.PumpRepository view
func (s *Store) PumpRepo() *PumpRepo { return &PumpRepo{store: s} }

// MetricRepo returns the store's domain.MetricRepository view
func (s *Store) MetricRepo() *MetricRepo { return &MetricRepo{store: s} }

// PumpStatus returns the stored status for a pump, for assertions.
func (s *Store) PumpStatus(pumpID int64) domain.PumpStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pumps[pumpID]; ok {
		return p.Status
	}
	return ""
}

// MetricCount returns the number of stored metric rows for a pump.
func (s *Store) MetricCount(pumpID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.metrics[pumpID])
}

// SeedMetric inserts a metric row directly, bypassing status derivation.
// Tests use it to backdate history.
func (s *Store) SeedMetric(metric *domain.PumpMetric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertMetricLocked(metric)
}

// PumpRepo is an in-memory domain.PumpRepository
type PumpRepo struct{ store *Store }

// MetricRepo is an in-memory domain.MetricRepository
type MetricRepo struct{ store *Store }

func (r *PumpRepo) ListByUser(_ context.Context, userID int64) ([]*domain.PumpWithMetric, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.PumpWithMetric
	for _, p := range r.store.pumps {
		if p.UserID == userID {
			out = append(out, r.store.joined(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *PumpRepo) GetForUser(_ context.Context, pumpID, userID int64) (*domain.PumpWithMetric, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.pumps[pumpID]
	if !ok || p.UserID != userID {
		return nil, apperrors.NewNotFound("Pump not found")
	}
	return r.store.joined(p), nil
}

func (r *PumpRepo) Create(_ context.Context, pump *domain.Pump) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	pump.ID = r.store.nextPumpID
	r.store.nextPumpID++
	pump.CreatedAt = time.Now()
	pump.UpdatedAt = pump.CreatedAt
	clone := *pump
	r.store.pumps[pump.ID] = &clone
	r.store.insertMetricLocked(&domain.PumpMetric{PumpID: pump.ID})
	return nil
}

func (r *PumpRepo) Update(_ context.Context, pump *domain.Pump) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.pumps[pump.ID]
	if !ok || existing.UserID != pump.UserID {
		return apperrors.NewNotFound("Pump not found")
	}
	pump.UpdatedAt = time.Now()
	clone := *pump
	r.store.pumps[pump.ID] = &clone
	return nil
}

func (r *PumpRepo) Delete(_ context.Context, pumpID, userID int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.pumps[pumpID]
	if !ok || p.UserID != userID {
		return apperrors.NewNotFound("Pump not found")
	}
	delete(r.store.pumps, pumpID)
	delete(r.store.metrics, pumpID)
	return nil
}

func (r *MetricRepo) Latest(_ context.Context, pumpID int64) (*domain.PumpMetric, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rows := r.store.metrics[pumpID]
	if len(rows) == 0 {
		return nil, nil
	}
	clone := *latestByTimestamp(rows)
	return &clone, nil
}

// latestByTimestamp picks the max-timestamp row, matching the SQL
// ORDER BY timestamp DESC LIMIT 1 regardless of append order.
func latestByTimestamp(rows []*domain.PumpMetric) *domain.PumpMetric {
	latest := rows[0]
	for _, row := range rows[1:] {
		if row.Timestamp.After(latest.Timestamp) {
			latest = row
		}
	}
	return latest
}

func (r *MetricRepo) History(_ context.Context, pumpID int64, since time.Time, limit int) ([]*domain.PumpMetric, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.PumpMetric
	for _, row := range r.store.metrics[pumpID] {
		if row.Timestamp.Before(since) {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MetricRepo) InsertWithStatus(_ context.Context, metric *domain.PumpMetric, status domain.PumpStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.pumps[metric.PumpID]
	if !ok {
		return apperrors.NewNotFound("Pump not found")
	}
	r.store.insertMetricLocked(metric)
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

func (s *Store) insertMetricLocked(metric *domain.PumpMetric) {
	metric.ID = s.nextMetricID
	s.nextMetricID++
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now()
	}
	metric.CreatedAt = metric.Timestamp
	metric.UpdatedAt = metric.Timestamp
	clone := *metric
	s.metrics[metric.PumpID] = append(s.metrics[metric.PumpID], &clone)
}

func (s *Store) joined(p *domain.Pump) *domain.PumpWithMetric {
	out := &domain.PumpWithMetric{Pump: *p, Metrics: []*domain.PumpMetric{}}
	if rows := s.metrics[p.ID]; len(rows) > 0 {
		clone := *latestByTimestamp(rows)
		out.Metrics = append(out.Metrics, &clone)
	}
	return out
}
