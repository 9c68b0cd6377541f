package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonesrussell/jobsweep/internal/domain"
)

// MemoryRepository keeps schedule entries in process memory. It backs
// deployments without Postgres.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]domain.ScheduleEntry
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]domain.ScheduleEntry)}
}

// Create stores a copy of e.
func (r *MemoryRepository) Create(_ context.Context, e *domain.ScheduleEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[e.ID]; exists {
		return fmt.Errorf("failed to create schedule: duplicate id %s", e.ID)
	}
	r.entries[e.ID] = cloneEntry(*e)
	return nil
}

// GetByID returns a copy of the entry.
func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.ScheduleEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrScheduleNotFound, id)
	}
	c := cloneEntry(e)
	return &c, nil
}

// List returns every entry, oldest first.
func (r *MemoryRepository) List(_ context.Context) ([]*domain.ScheduleEntry, error) {
	return r.list(false), nil
}

// ListEnabled returns the enabled entries, oldest first.
func (r *MemoryRepository) ListEnabled(_ context.Context) ([]*domain.ScheduleEntry, error) {
	return r.list(true), nil
}

func (r *MemoryRepository) list(enabledOnly bool) []*domain.ScheduleEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.ScheduleEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if enabledOnly && !e.Enabled {
			continue
		}
		c := cloneEntry(e)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// SetEnabled toggles an entry.
func (r *MemoryRepository) SetEnabled(_ context.Context, id string, enabled bool, now time.Time) error {
	return r.update(id, func(e *domain.ScheduleEntry) {
		e.Enabled = enabled
		e.UpdatedAt = now
	})
}

// RecordRun sets the last run time and increments the run count.
func (r *MemoryRepository) RecordRun(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(e *domain.ScheduleEntry) {
		e.LastRunAt = &at
		e.RunCount++
	})
}

// Delete removes an entry.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrScheduleNotFound, id)
	}
	delete(r.entries, id)
	return nil
}

func (r *MemoryRepository) update(id string, fn func(*domain.ScheduleEntry)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrScheduleNotFound, id)
	}
	fn(&e)
	r.entries[id] = e
	return nil
}

func cloneEntry(e domain.ScheduleEntry) domain.ScheduleEntry {
	e.Sources = append(domain.SourceList(nil), e.Sources...)
	if e.LastRunAt != nil {
		t := *e.LastRunAt
		e.LastRunAt = &t
	}
	return e
}

var _ Repository = (*MemoryRepository)(nil)
