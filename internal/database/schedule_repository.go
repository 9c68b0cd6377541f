package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/jobsweep/internal/domain"
)

const scheduleColumns = `id, cron_like_interval, interval_minutes, sources, date_range, keywords,
	owner, enabled, last_run_at, run_count, created_at, updated_at`

// ScheduleRepository handles database operations for schedule entries.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts a new entry.
func (r *ScheduleRepository) Create(ctx context.Context, e *domain.ScheduleEntry) error {
	query := `
		INSERT INTO schedule_entries (` + scheduleColumns + `)
		VALUES (:id, :cron_like_interval, :interval_minutes, :sources, :date_range, :keywords,
			:owner, :enabled, :last_run_at, :run_count, :created_at, :updated_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

// GetByID retrieves an entry by its ID.
func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*domain.ScheduleEntry, error) {
	var e domain.ScheduleEntry
	query := `SELECT ` + scheduleColumns + ` FROM schedule_entries WHERE id = $1`

	if err := r.db.GetContext(ctx, &e, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrScheduleNotFound, id)
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &e, nil
}

// List returns every entry, oldest first.
func (r *ScheduleRepository) List(ctx context.Context) ([]*domain.ScheduleEntry, error) {
	return r.selectEntries(ctx, `SELECT `+scheduleColumns+` FROM schedule_entries ORDER BY created_at`)
}

// ListEnabled returns the entries the scheduler should consider.
func (r *ScheduleRepository) ListEnabled(ctx context.Context) ([]*domain.ScheduleEntry, error) {
	return r.selectEntries(ctx,
		`SELECT `+scheduleColumns+` FROM schedule_entries WHERE enabled = TRUE ORDER BY created_at`)
}

func (r *ScheduleRepository) selectEntries(ctx context.Context, query string) ([]*domain.ScheduleEntry, error) {
	var entries []*domain.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	if entries == nil {
		entries = []*domain.ScheduleEntry{}
	}
	return entries, nil
}

// SetEnabled activates or deactivates an entry.
func (r *ScheduleRepository) SetEnabled(ctx context.Context, id string, enabled bool, now time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE schedule_entries SET enabled = $1, updated_at = $2 WHERE id = $3`,
		enabled, now, id,
	)
	return requireRows(result, err, "update schedule", fmt.Errorf("%w: %s", domain.ErrScheduleNotFound, id))
}

// Delete removes an entry.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedule_entries WHERE id = $1`, id)
	return requireRows(result, err, "delete schedule", fmt.Errorf("%w: %s", domain.ErrScheduleNotFound, id))
}

// RecordRun stamps last_run_at and increments run_count.
func (r *ScheduleRepository) RecordRun(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE schedule_entries SET last_run_at = $1, run_count = run_count + 1, updated_at = $1 WHERE id = $2`,
		at, id,
	)
	return requireRows(result, err, "record schedule run", fmt.Errorf("%w: %s", domain.ErrScheduleNotFound, id))
}
