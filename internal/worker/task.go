package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
	"github.com/jonesrussell/jobsweep/internal/retry"
	"github.com/jonesrussell/jobsweep/internal/taskqueue"
)

// process executes one task end to end. The result is always stored and
// the task acknowledged, even when the operation panics.
func (p *Pool) process(ctx context.Context, task domain.Task, ack taskqueue.Ack) {
	log := p.log.With(
		logger.String("task_id", task.ID),
		logger.String("user", task.Params.RequestingUser),
	)
	if task.ScheduleID != "" {
		log = log.With(logger.String("schedule_id", task.ScheduleID))
	}

	startedAt := time.Now().UTC()
	if p.metrics != nil {
		p.metrics.TaskStarted()
		defer p.metrics.TaskFinished()
	}

	// Bookkeeping survives task cancellation so a cancelled task still
	// reports its terminal status.
	bg := context.WithoutCancel(ctx)

	if err := p.results.MarkRunning(bg, task.ID, task.Params.RequestingUser); err != nil {
		log.Warn("failed to mark task running", logger.Error(err))
	}

	taskCtx, cancel := context.WithTimeout(ctx, p.config.TaskTimeout)
	defer cancel()

	result := p.execute(taskCtx, task, startedAt, log)

	if err := p.results.Save(bg, result); err != nil {
		log.Error("failed to save task result", logger.Error(err))
	}
	if ack != nil {
		if err := ack(bg); err != nil {
			log.Warn("failed to acknowledge task", logger.Error(err))
		}
	}

	p.totalProcessed.Add(1)
	if result.Status == domain.TaskFailed || result.Status == domain.TaskInternalError {
		p.totalFailed.Add(1)
	}

	log.Info("task completed",
		logger.String("status", string(result.Status)),
		logger.Int("listings", result.ListingsCount),
		logger.Duration("duration", time.Since(startedAt)),
	)

	p.callbacksMu.RLock()
	callbacks := append([]CompletionFunc(nil), p.callbacks...)
	p.callbacksMu.RUnlock()
	for _, fn := range callbacks {
		fn(task, result)
	}
}

func (p *Pool) execute(ctx context.Context, task domain.Task, startedAt time.Time, log logger.Logger) (result domain.TaskResult) {
	channel := task.Params.RequestingUser

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: task panicked: %v", domain.ErrInvariant, r)
			log.Error("task panicked", logger.Error(err))
			now := time.Now().UTC()
			result = domain.TaskResult{
				TaskID:      task.ID,
				Owner:       task.Params.RequestingUser,
				Status:      domain.TaskInternalError,
				Listings:    []domain.Listing{},
				StartedAt:   &startedAt,
				CompletedAt: &now,
			}
			p.finish(channel, domain.OutcomeInternalError, 0, startedAt)
		}
	}()

	op, err := p.runner.Run(ctx, task.Params)
	if err != nil {
		log.Error("operation failed", logger.Error(err))
	}
	if op == nil {
		now := time.Now().UTC()
		op = domain.NewOperation("", task.ID, task.Params, startedAt)
		op.Outcome = domain.OutcomeInternalError
		op.CompletedAt = &now
	}
	op.TaskID = task.ID

	p.persist(ctx, op, log)
	p.index(ctx, op, log)

	p.finish(channel, op.Outcome, op.ListingsCount, startedAt)
	return domain.ResultFromOperation(op, startedAt)
}

func (p *Pool) persist(ctx context.Context, op *domain.Operation, log logger.Logger) {
	if p.operations == nil || op.RequestID == "" {
		return
	}
	bg := context.WithoutCancel(ctx)
	err := retry.Do(bg, p.persistRetry, func() error {
		return p.operations.Save(bg, op)
	})
	if err != nil {
		log.Error("failed to persist operation",
			logger.String("request_id", op.RequestID),
			logger.Error(err),
		)
	}
}

func (p *Pool) index(ctx context.Context, op *domain.Operation, log logger.Logger) {
	if p.indexer == nil || op.ListingsCount == 0 {
		return
	}
	if err := p.indexer.IndexOperation(context.WithoutCancel(ctx), op); err != nil {
		log.Warn("failed to index listings",
			logger.String("request_id", op.RequestID),
			logger.Error(err),
		)
	}
}

// finish publishes the final message and records the outcome.
func (p *Pool) finish(channel string, outcome domain.Outcome, listings int, startedAt time.Time) {
	if p.metrics != nil {
		p.metrics.RecordOperation(outcome, time.Since(startedAt).Seconds())
	}
	if p.notifier == nil {
		return
	}
	switch outcome {
	case domain.OutcomeSuccess:
		p.notifier.Info(channel, fmt.Sprintf("Operation complete: %d listings collected", listings))
	case domain.OutcomePartial:
		p.notifier.Info(channel, fmt.Sprintf("Operation complete with errors: %d listings collected", listings))
	case domain.OutcomeFailed:
		p.notifier.Error(channel, "Operation failed: no source completed")
	default:
		p.notifier.Error(channel, "Operation failed: internal error")
	}
}
