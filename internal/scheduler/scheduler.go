// Package scheduler triggers recurring operations from stored schedule
// entries and manages those entries.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
)

const defaultCheckInterval = 10 * time.Second

// Store is the part of the schedule repository the ticker needs.
type Store interface {
	ListEnabled(ctx context.Context) ([]*domain.ScheduleEntry, error)
	RecordRun(ctx context.Context, id string, at time.Time) error
}

// Submitter enqueues the task for a due entry.
type Submitter interface {
	SubmitScheduled(ctx context.Context, scheduleID string, params domain.SearchParameters) (string, error)
}

// Metrics counts triggers and skipped invocations.
type Metrics interface {
	ScheduleSkipped()
	ScheduleTriggered()
}

// IntervalScheduler polls enabled entries and submits a task for every
// entry whose next run is due. An entry never has two tasks in flight.
type IntervalScheduler struct {
	log       logger.Logger
	store     Store
	submitter Submitter
	metrics   Metrics
	now       func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// active maps schedule id to the time its current task was submitted.
	// skipped maps schedule id to the latest slot dropped because the entry
	// was still active. Both are guarded by activeMu.
	active   map[string]time.Time
	skipped  map[string]time.Time
	activeMu sync.Mutex

	checkInterval time.Duration
}

// SchedulerOption is a functional option for configuring the IntervalScheduler.
type SchedulerOption func(*IntervalScheduler)

// WithCheckInterval sets how often the scheduler polls for due entries.
// Default: 10 seconds
func WithCheckInterval(interval time.Duration) SchedulerOption {
	return func(s *IntervalScheduler) {
		if interval > 0 {
			s.checkInterval = interval
		}
	}
}

// WithMetrics sets the trigger and skip counters.
func WithMetrics(m Metrics) SchedulerOption {
	return func(s *IntervalScheduler) {
		s.metrics = m
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *IntervalScheduler) {
		s.now = now
	}
}

// NewIntervalScheduler creates a new interval-based scheduler.
func NewIntervalScheduler(log logger.Logger, store Store, submitter Submitter, opts ...SchedulerOption) *IntervalScheduler {
	if log == nil {
		log = logger.NewNop()
	}
	s := &IntervalScheduler{
		log:           log.With(logger.String("component", "scheduler")),
		store:         store,
		submitter:     submitter,
		now:           func() time.Time { return time.Now().UTC() },
		active:        make(map[string]time.Time),
		skipped:       make(map[string]time.Time),
		checkInterval: defaultCheckInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the poll loop.
func (s *IntervalScheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.poll(ctx)

	s.log.Info("Interval scheduler started", logger.Duration("check_interval", s.checkInterval))
	return nil
}

// Stop ends the poll loop. Tasks already submitted keep running in the
// worker pool.
func (s *IntervalScheduler) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("Interval scheduler stopped")
	return nil
}

func (s *IntervalScheduler) poll(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckDue(ctx)
		}
	}
}

// CheckDue triggers every due entry once and returns how many tasks were
// submitted.
func (s *IntervalScheduler) CheckDue(ctx context.Context) int {
	entries, err := s.store.ListEnabled(ctx)
	if err != nil {
		s.log.Error("Failed to list enabled schedules", logger.Error(err))
		return 0
	}

	now := s.now()
	triggered := 0
	for _, entry := range entries {
		slot, dueErr := nextRunFrom(entry, s.skippedThrough(entry.ID))
		if dueErr != nil {
			s.log.Warn("Skipping schedule with invalid interval",
				logger.String("schedule_id", entry.ID),
				logger.Error(dueErr),
			)
			continue
		}
		if slot.After(now) {
			continue
		}
		if s.trigger(ctx, entry, slot, now) {
			triggered++
		}
	}
	return triggered
}

// trigger submits the entry's task for slot. A slot that comes due while
// the previous task is still running is dropped: it is logged and counted
// once and never fires later.
func (s *IntervalScheduler) trigger(ctx context.Context, entry *domain.ScheduleEntry, slot, now time.Time) bool {
	s.activeMu.Lock()
	if since, running := s.active[entry.ID]; running {
		if last, ok := s.skipped[entry.ID]; ok && !last.Before(slot) {
			s.activeMu.Unlock()
			return false
		}
		s.skipped[entry.ID] = slot
		s.activeMu.Unlock()

		s.log.Info("schedule invocation skipped: previous run still active",
			logger.String("schedule_id", entry.ID),
			logger.Time("slot", slot),
			logger.Time("active_since", since),
			logger.Error(domain.ErrScheduleOverlap),
		)
		if s.metrics != nil {
			s.metrics.ScheduleSkipped()
		}
		return false
	}
	s.active[entry.ID] = now
	delete(s.skipped, entry.ID)
	s.activeMu.Unlock()

	taskID, err := s.submitter.SubmitScheduled(ctx, entry.ID, entry.Params())
	if err != nil {
		s.release(entry.ID)
		s.log.Error("Failed to submit scheduled operation",
			logger.String("schedule_id", entry.ID),
			logger.Error(err),
		)
		return false
	}

	if err = s.store.RecordRun(ctx, entry.ID, now); err != nil {
		s.log.Error("Failed to record schedule run",
			logger.String("schedule_id", entry.ID),
			logger.Error(err),
		)
	}
	if s.metrics != nil {
		s.metrics.ScheduleTriggered()
	}

	s.log.Info("Scheduled operation submitted",
		logger.String("schedule_id", entry.ID),
		logger.String("task_id", taskID),
	)
	return true
}

// TaskCompleted releases the schedule that triggered task. It matches the
// worker's completion callback signature.
func (s *IntervalScheduler) TaskCompleted(task domain.Task, _ domain.TaskResult) {
	if task.ScheduleID == "" {
		return
	}
	s.release(task.ScheduleID)
}

func (s *IntervalScheduler) release(id string) {
	s.activeMu.Lock()
	delete(s.active, id)
	s.activeMu.Unlock()
}

func (s *IntervalScheduler) skippedThrough(id string) time.Time {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	return s.skipped[id]
}

// IsActive reports whether the entry has a task in flight.
func (s *IntervalScheduler) IsActive(id string) bool {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	_, ok := s.active[id]
	return ok
}

// ParseSpec parses a schedule expression: a five-field cron line or a
// descriptor such as "@every 30m".
func ParseSpec(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule %q: %w", spec, err)
	}
	return sched, nil
}

// NextRun returns when the entry is next due.
func NextRun(entry *domain.ScheduleEntry) (time.Time, error) {
	return nextRunFrom(entry, time.Time{})
}

// nextRunFrom computes the next slot after the latest of the last run (or
// creation) and skippedThrough.
func nextRunFrom(entry *domain.ScheduleEntry, skippedThrough time.Time) (time.Time, error) {
	sched, err := ParseSpec(entry.Spec())
	if err != nil {
		return time.Time{}, err
	}
	base := entry.CreatedAt
	if entry.LastRunAt != nil {
		base = *entry.LastRunAt
	}
	if skippedThrough.After(base) {
		base = skippedThrough
	}
	return sched.Next(base), nil
}

// IsDue reports whether the entry's next run is at or before now.
func IsDue(entry *domain.ScheduleEntry, now time.Time) (bool, error) {
	next, err := NextRun(entry)
	if err != nil {
		return false, err
	}
	return !next.After(now), nil
}
