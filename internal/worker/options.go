package worker

import (
	"context"

	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/retry"
)

// Runner executes one operation. The orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, params domain.SearchParameters) (*domain.Operation, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, params domain.SearchParameters) (*domain.Operation, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, params domain.SearchParameters) (*domain.Operation, error) {
	return f(ctx, params)
}

// OperationStore persists completed operations.
type OperationStore interface {
	Save(ctx context.Context, op *domain.Operation) error
}

// Indexer makes listings searchable. Failures never fail the task.
type Indexer interface {
	IndexOperation(ctx context.Context, op *domain.Operation) error
}

// Notifier publishes the final message of a task to its user.
type Notifier interface {
	Info(channel, message string)
	Error(channel, message string)
}

// Metrics receives task lifecycle counts.
type Metrics interface {
	TaskStarted()
	TaskFinished()
	RecordOperation(outcome domain.Outcome, seconds float64)
}

// CompletionFunc is called after a task's result has been stored.
type CompletionFunc func(task domain.Task, result domain.TaskResult)

// Option configures a Pool.
type Option func(*Pool)

// WithOperationStore sets where completed operations are persisted.
func WithOperationStore(s OperationStore) Option {
	return func(p *Pool) {
		p.operations = s
	}
}

// WithIndexer enables listing indexing.
func WithIndexer(i Indexer) Option {
	return func(p *Pool) {
		p.indexer = i
	}
}

// WithNotifier sets the receiver of final task messages.
func WithNotifier(n Notifier) Option {
	return func(p *Pool) {
		p.notifier = n
	}
}

// WithMetrics sets the task metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

// WithPersistRetry overrides the backoff used when saving operations.
func WithPersistRetry(cfg retry.Config) Option {
	return func(p *Pool) {
		p.persistRetry = cfg
	}
}
