package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/jobsweep/internal/domain"
)

const operationColumns = `request_id, task_id, requesting_user, sources, date_range, keywords,
	per_source_state, per_source_error, per_source_count, listings, listings_count,
	outcome, created_at, completed_at`

// OperationRepository persists completed operations.
type OperationRepository struct {
	db *sqlx.DB
}

// NewOperationRepository creates a new operation repository.
func NewOperationRepository(db *sqlx.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

// Save inserts op. Saving the same request id again overwrites the result,
// so a retried save is harmless.
func (r *OperationRepository) Save(ctx context.Context, op *domain.Operation) error {
	query := `
		INSERT INTO operations (` + operationColumns + `)
		VALUES (:request_id, :task_id, :requesting_user, :sources, :date_range, :keywords,
			:per_source_state, :per_source_error, :per_source_count, :listings, :listings_count,
			:outcome, :created_at, :completed_at)
		ON CONFLICT (request_id) DO UPDATE SET
			per_source_state = EXCLUDED.per_source_state,
			per_source_error = EXCLUDED.per_source_error,
			per_source_count = EXCLUDED.per_source_count,
			listings = EXCLUDED.listings,
			listings_count = EXCLUDED.listings_count,
			outcome = EXCLUDED.outcome,
			completed_at = EXCLUDED.completed_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, op); err != nil {
		return fmt.Errorf("failed to save operation %s: %w", op.RequestID, err)
	}
	return nil
}

// GetByTaskID returns the operation a task produced.
func (r *OperationRepository) GetByTaskID(ctx context.Context, taskID string) (*domain.Operation, error) {
	var op domain.Operation
	query := `SELECT ` + operationColumns + ` FROM operations WHERE task_id = $1`

	if err := r.db.GetContext(ctx, &op, query, taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: task %s", domain.ErrOperationNotFound, taskID)
		}
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}
	return &op, nil
}

// ListByUser returns a user's operations, newest first. Listings are not
// loaded; ListingsCount carries their number.
func (r *OperationRepository) ListByUser(ctx context.Context, user string, limit, offset int) ([]*domain.Operation, error) {
	var ops []*domain.Operation
	query := `
		SELECT request_id, task_id, requesting_user, sources, date_range, keywords,
		       per_source_state, per_source_error, per_source_count, listings_count,
		       outcome, created_at, completed_at
		FROM operations
		WHERE requesting_user = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	if err := r.db.SelectContext(ctx, &ops, query, user, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	if ops == nil {
		ops = []*domain.Operation{}
	}
	return ops, nil
}

// Delete removes one of user's operations. Another user's operation is
// reported as not found.
func (r *OperationRepository) Delete(ctx context.Context, user, requestID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM operations WHERE request_id = $1 AND requesting_user = $2`,
		requestID, user,
	)
	return requireRows(result, err, "delete operation",
		fmt.Errorf("%w: %s", domain.ErrOperationNotFound, requestID))
}
