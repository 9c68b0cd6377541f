package bootstrap

import (
	"context"
	"fmt"

	"github.com/jonesrussell/jobsweep/internal/adapter"
	"github.com/jonesrussell/jobsweep/internal/config"
	"github.com/jonesrussell/jobsweep/internal/database"
	"github.com/jonesrussell/jobsweep/internal/logger"
	"github.com/jonesrussell/jobsweep/internal/metrics"
	"github.com/jonesrussell/jobsweep/internal/orchestrator"
	"github.com/jonesrussell/jobsweep/internal/scheduler"
	"github.com/jonesrussell/jobsweep/internal/scrapejob"
	"github.com/jonesrussell/jobsweep/internal/sse"
	"github.com/jonesrussell/jobsweep/internal/statemanager"
	"github.com/jonesrussell/jobsweep/internal/storage"
	"github.com/jonesrussell/jobsweep/internal/taskqueue"
	"github.com/jonesrussell/jobsweep/internal/worker"
)

// Services holds the running application services.
type Services struct {
	Metrics      *metrics.Metrics
	Broker       sse.Broker
	Manager      *statemanager.Manager
	Registry     *adapter.Registry
	Orchestrator *orchestrator.Orchestrator
	Queue        taskqueue.Queue
	Results      taskqueue.ResultStore
	Tasks        *taskqueue.Service
	Pool         *worker.Pool
	Schedules    *scheduler.Service
	Scheduler    *scheduler.IntervalScheduler
	Operations   *database.OperationRepository
}

// NewOrchestrator wires an orchestrator with the configured polling limits.
func NewOrchestrator(
	cfg *config.Config,
	registry *adapter.Registry,
	notifier orchestrator.Notifier,
	recorder scrapejob.Recorder,
	log logger.Logger,
) *orchestrator.Orchestrator {
	runnerOpts := []scrapejob.Option{scrapejob.WithLogger(log)}
	if cfg.Scrape.PollInterval > 0 {
		runnerOpts = append(runnerOpts, scrapejob.WithPollInterval(cfg.Scrape.PollInterval))
	}
	if cfg.Scrape.MaxWait > 0 {
		runnerOpts = append(runnerOpts, scrapejob.WithMaxWait(cfg.Scrape.MaxWait))
	}

	opts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithNotifier(notifier),
		orchestrator.WithRunnerOptions(runnerOpts...),
	}
	if recorder != nil {
		opts = append(opts, orchestrator.WithRecorder(recorder))
	}
	return orchestrator.New(registry, opts...)
}

// SetupServices creates and starts the broker, worker pool and scheduler.
func SetupServices(ctx context.Context, deps *CommandDeps, infra *Infrastructure) (*Services, error) {
	cfg := deps.Config
	log := deps.Logger

	s := &Services{Metrics: metrics.New()}

	s.Broker = sse.NewBroker(log, sse.WithConfig(cfg.SSE))
	if err := s.Broker.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start SSE broker: %w", err)
	}

	registry, err := BuildRegistry(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build adapter registry: %w", err)
	}
	s.Registry = registry
	s.Manager = statemanager.New(registry.Sources(), s.Broker, log)
	s.Orchestrator = NewOrchestrator(cfg, registry, s.Manager, s.Metrics, log)

	if err = setupQueue(ctx, cfg, infra, log, s); err != nil {
		return nil, err
	}
	s.Tasks = taskqueue.NewService(s.Queue, s.Results, log)

	workerOpts := []worker.Option{
		worker.WithNotifier(s.Manager),
		worker.WithMetrics(s.Metrics),
	}

	var scheduleRepo scheduler.Repository = scheduler.NewMemoryRepository()
	if infra.DB != nil {
		s.Operations = database.NewOperationRepository(infra.DB)
		scheduleRepo = database.NewScheduleRepository(infra.DB)
		workerOpts = append(workerOpts, worker.WithOperationStore(s.Operations))
	}
	s.Schedules = scheduler.NewService(scheduleRepo, log)

	if infra.ES != nil {
		indexer := storage.NewListingIndexer(infra.ES, cfg.Elasticsearch.Index, log)
		if err = indexer.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure listings index: %w", err)
		}
		workerOpts = append(workerOpts, worker.WithIndexer(indexer))
	}

	s.Pool, err = worker.NewPool(cfg.Worker, s.Queue, s.Results, s.Orchestrator, log, workerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	if cfg.Scheduler.Enabled {
		s.Scheduler = scheduler.NewIntervalScheduler(log, scheduleRepo, s.Tasks,
			scheduler.WithCheckInterval(cfg.Scheduler.CheckInterval),
			scheduler.WithMetrics(s.Metrics),
		)
		s.Pool.OnComplete(s.Scheduler.TaskCompleted)
	}

	if err = s.Pool.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start worker pool: %w", err)
	}
	if s.Scheduler != nil {
		if err = s.Scheduler.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	log.Info("Services started",
		logger.Strings("sources", sourceNames(registry)),
		logger.String("queue", cfg.Queue.Backend),
		logger.Int("pool_size", cfg.Worker.PoolSize),
		logger.Bool("scheduler", s.Scheduler != nil),
		logger.Bool("persistence", infra.DB != nil),
		logger.Bool("indexing", infra.ES != nil),
	)
	return s, nil
}

func setupQueue(ctx context.Context, cfg *config.Config, infra *Infrastructure, log logger.Logger, s *Services) error {
	if cfg.Queue.Backend != config.QueueBackendRedis {
		s.Queue = taskqueue.NewMemoryQueue(cfg.Queue.MemoryCapacity)
		s.Results = taskqueue.NewMemoryResultStore()
		return nil
	}

	queue, err := taskqueue.NewStreamQueue(infra.Redis, cfg.Queue.StreamConfig, log)
	if err != nil {
		return fmt.Errorf("failed to create stream queue: %w", err)
	}
	if err = queue.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize stream queue: %w", err)
	}
	s.Queue = queue
	s.Results = taskqueue.NewRedisResultStore(infra.Redis, cfg.Queue.ResultPrefix, cfg.Queue.ResultTTL)
	return nil
}

func sourceNames(registry *adapter.Registry) []string {
	sources := registry.Sources()
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	return names
}
