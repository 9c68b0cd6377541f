package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonesrussell/jobsweep/internal/logger"
	"github.com/jonesrussell/jobsweep/internal/retry"
	"github.com/jonesrussell/jobsweep/internal/taskqueue"
)

// PoolState represents the current state of the pool.
type PoolState int32

const (
	// PoolStateStopped means the pool is not running.
	PoolStateStopped PoolState = iota

	// PoolStateRunning means the pool is dequeuing and executing tasks.
	PoolStateRunning

	// PoolStateDraining means the pool is shutting down gracefully.
	PoolStateDraining
)

// dequeueErrorBackoff is the pause after a failed Dequeue.
const dequeueErrorBackoff = time.Second

// String returns the string representation of a pool state.
func (s PoolState) String() string {
	switch s {
	case PoolStateStopped:
		return "stopped"
	case PoolStateRunning:
		return "running"
	case PoolStateDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// Pool pulls tasks from a queue and executes at most PoolSize of them
// concurrently.
type Pool struct {
	config  Config
	queue   taskqueue.Queue
	results taskqueue.ResultStore
	runner  Runner
	log     logger.Logger

	operations   OperationStore
	indexer      Indexer
	notifier     Notifier
	metrics      Metrics
	persistRetry retry.Config

	state          atomic.Int32
	sem            chan struct{}
	wg             sync.WaitGroup
	dispatchDone   chan struct{}
	stopDispatch   context.CancelFunc
	cancelTasks    context.CancelFunc
	callbacksMu    sync.RWMutex
	callbacks      []CompletionFunc
	totalProcessed atomic.Int64
	totalFailed    atomic.Int64
}

// NewPool creates a worker pool.
func NewPool(
	cfg Config,
	queue taskqueue.Queue,
	results taskqueue.ResultStore,
	runner Runner,
	log logger.Logger,
	opts ...Option,
) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if queue == nil || results == nil {
		return nil, errors.New("queue and result store are required")
	}
	if runner == nil {
		return nil, errors.New("runner cannot be nil")
	}
	if log == nil {
		log = logger.NewNop()
	}

	p := &Pool{
		config:       cfg,
		queue:        queue,
		results:      results,
		runner:       runner,
		log:          log,
		persistRetry: retry.Config{MaxAttempts: 5, InitialDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second},
		sem:          make(chan struct{}, cfg.PoolSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.state.Store(int32(PoolStateStopped))

	return p, nil
}

// OnComplete registers fn to run after every task result is stored.
func (p *Pool) OnComplete(fn CompletionFunc) {
	p.callbacksMu.Lock()
	defer p.callbacksMu.Unlock()
	p.callbacks = append(p.callbacks, fn)
}

// Start begins dequeuing tasks. Tasks run under ctx; cancelling it aborts
// them immediately while Stop drains them first.
func (p *Pool) Start(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(PoolStateStopped), int32(PoolStateRunning)) {
		return errors.New("pool is already running")
	}

	taskCtx, cancelTasks := context.WithCancel(ctx)
	dispatchCtx, stopDispatch := context.WithCancel(taskCtx)
	p.cancelTasks = cancelTasks
	p.stopDispatch = stopDispatch
	p.dispatchDone = make(chan struct{})

	go p.dispatch(dispatchCtx, taskCtx)

	p.log.Info("worker pool started",
		logger.Int("pool_size", p.config.PoolSize),
	)
	return nil
}

// Stop stops dequeuing and waits for running tasks. Tasks still running
// after the drain timeout are cancelled.
func (p *Pool) Stop(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(PoolStateRunning), int32(PoolStateDraining)) {
		return errors.New("pool is not running")
	}

	p.log.Info("worker pool draining")
	p.stopDispatch()
	<-p.dispatchDone

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("worker pool stopped gracefully")
	case <-ctx.Done():
		p.log.Warn("worker pool stop timed out, cancelling running tasks")
		p.cancelTasks()
		<-done
	case <-time.After(p.config.DrainTimeout):
		p.log.Warn("worker pool drain timeout exceeded, cancelling running tasks")
		p.cancelTasks()
		<-done
	}

	p.cancelTasks()
	p.state.Store(int32(PoolStateStopped))
	return nil
}

func (p *Pool) dispatch(ctx, taskCtx context.Context) {
	defer close(p.dispatchDone)

	for {
		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		task, ack, err := p.queue.Dequeue(ctx)
		if err != nil {
			<-p.sem
			if ctx.Err() != nil || errors.Is(err, taskqueue.ErrQueueClosed) {
				return
			}
			p.log.Error("failed to dequeue task", logger.Error(err))
			select {
			case <-time.After(dequeueErrorBackoff):
			case <-ctx.Done():
				return
			}
			continue
		}

		p.wg.Add(1)
		go func() {
			defer func() {
				<-p.sem
				p.wg.Done()
			}()
			p.process(taskCtx, task, ack)
		}()
	}
}

// State returns the current pool state.
func (p *Pool) State() PoolState {
	return PoolState(p.state.Load())
}

// IsRunning returns true if the pool is running.
func (p *Pool) IsRunning() bool {
	return p.State() == PoolStateRunning
}

// Size returns the pool size.
func (p *Pool) Size() int {
	return p.config.PoolSize
}

// ActiveCount returns the number of tasks currently executing.
func (p *Pool) ActiveCount() int {
	return len(p.sem)
}

// PoolStats is a point-in-time view of the pool.
type PoolStats struct {
	State     string `json:"state"`
	Size      int    `json:"size"`
	Active    int    `json:"active"`
	Processed int64  `json:"processed"`
	Failed    int64  `json:"failed"`
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		State:     p.State().String(),
		Size:      p.config.PoolSize,
		Active:    p.ActiveCount(),
		Processed: p.totalProcessed.Load(),
		Failed:    p.totalFailed.Load(),
	}
}
