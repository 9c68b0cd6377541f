package taskqueue

import (
	"context"
	"sync"
	"time"

	"github.com/jonesrussell/jobsweep/internal/domain"
)

const defaultMemoryCapacity = 256

// MemoryQueue is a buffered channel queue for single-process deployments.
type MemoryQueue struct {
	tasks     chan domain.Task
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryQueue creates a queue holding up to capacity undelivered tasks.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryQueue{
		tasks: make(chan domain.Task, capacity),
		done:  make(chan struct{}),
	}
}

// Enqueue blocks while the queue is full.
func (q *MemoryQueue) Enqueue(ctx context.Context, task domain.Task) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrQueueClosed
	}
}

// Dequeue returns the oldest task.
func (q *MemoryQueue) Dequeue(ctx context.Context) (domain.Task, Ack, error) {
	select {
	case task := <-q.tasks:
		return task, noopAck, nil
	case <-ctx.Done():
		return domain.Task{}, nil, ctx.Err()
	case <-q.done:
		return domain.Task{}, nil, ErrQueueClosed
	}
}

// Close unblocks every waiting caller.
func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}

// MemoryResultStore keeps results in process memory.
type MemoryResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.TaskResult
	now     func() time.Time
}

// NewMemoryResultStore creates an empty store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{
		results: make(map[string]domain.TaskResult),
		now:     time.Now,
	}
}

func (s *MemoryResultStore) MarkPending(_ context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = domain.TaskResult{TaskID: id, Owner: owner, Status: domain.TaskPending, Listings: []domain.Listing{}}
	return nil
}

func (s *MemoryResultStore) MarkRunning(_ context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.results[id] = domain.TaskResult{
		TaskID:    id,
		Owner:     owner,
		Status:    domain.TaskRunning,
		Listings:  []domain.Listing{},
		StartedAt: &now,
	}
	return nil
}

func (s *MemoryResultStore) Save(_ context.Context, result domain.TaskResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.TaskID] = result
	return nil
}

func (s *MemoryResultStore) Get(_ context.Context, id string) (domain.TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return domain.TaskResult{}, ErrTaskNotFound
	}
	return r, nil
}
