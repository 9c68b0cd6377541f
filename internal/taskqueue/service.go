package taskqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
)

// Service validates requests and turns them into queued tasks.
type Service struct {
	queue   Queue
	results ResultStore
	log     logger.Logger
	now     func() time.Time
}

// NewService creates a submission service.
func NewService(queue Queue, results ResultStore, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		queue:   queue,
		results: results,
		log:     log.With(logger.String("component", "taskqueue")),
		now:     time.Now,
	}
}

// Submit validates params, enqueues a task and returns its id. Validation
// failures wrap domain.ErrValidation.
func (s *Service) Submit(ctx context.Context, params domain.SearchParameters) (string, error) {
	return s.submit(ctx, "", params)
}

// SubmitScheduled enqueues a task on behalf of a schedule entry.
func (s *Service) SubmitScheduled(ctx context.Context, scheduleID string, params domain.SearchParameters) (string, error) {
	return s.submit(ctx, scheduleID, params)
}

func (s *Service) submit(ctx context.Context, scheduleID string, params domain.SearchParameters) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	task := domain.Task{
		ID:         uuid.NewString(),
		ScheduleID: scheduleID,
		Params:     params,
		EnqueuedAt: s.now().UTC(),
	}
	if err := s.results.MarkPending(ctx, task.ID, params.RequestingUser); err != nil {
		return "", fmt.Errorf("failed to record pending task: %w", err)
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	s.log.Info("Task submitted",
		logger.String("task_id", task.ID),
		logger.String("schedule_id", scheduleID),
		logger.String("user", params.RequestingUser),
	)
	return task.ID, nil
}

// Result returns the stored result for id.
func (s *Service) Result(ctx context.Context, id string) (domain.TaskResult, error) {
	return s.results.Get(ctx, id)
}
