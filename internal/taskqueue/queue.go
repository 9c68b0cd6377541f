// Package taskqueue carries operation requests from the API and the
// scheduler to the worker pool, and stores their results.
package taskqueue

import (
	"context"
	"errors"

	"github.com/jonesrussell/jobsweep/internal/domain"
)

var (
	// ErrTaskNotFound is returned for unknown task ids.
	ErrTaskNotFound = errors.New("task not found")
	// ErrQueueClosed is returned by Dequeue after Close.
	ErrQueueClosed = errors.New("queue closed")
)

// Ack acknowledges a dequeued task once the worker has produced its result.
type Ack func(ctx context.Context) error

// Queue is a FIFO of tasks with at-least-once delivery.
type Queue interface {
	Enqueue(ctx context.Context, task domain.Task) error
	// Dequeue blocks until a task is available or ctx is done.
	Dequeue(ctx context.Context) (domain.Task, Ack, error)
	Close() error
}

// ResultStore keeps the externally visible status of every task.
type ResultStore interface {
	MarkPending(ctx context.Context, id, owner string) error
	MarkRunning(ctx context.Context, id, owner string) error
	Save(ctx context.Context, result domain.TaskResult) error
	Get(ctx context.Context, id string) (domain.TaskResult, error)
}

func noopAck(context.Context) error { return nil }
