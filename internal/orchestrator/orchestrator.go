// Package orchestrator fans one search request out over several sources and
// aggregates the per-source outcomes into an Operation.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/jobsweep/internal/adapter"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
	"github.com/jonesrussell/jobsweep/internal/scrapejob"
)

// Notifier receives scrape job progress and can reset sources in the
// platform table.
type Notifier interface {
	scrapejob.Observer
	Reset(channel string, sources ...domain.Source)
}

// Orchestrator runs one scrape job per requested source.
type Orchestrator struct {
	registry   *adapter.Registry
	notifier   Notifier
	recorder   scrapejob.Recorder
	runnerOpts []scrapejob.Option
	log        logger.Logger
	now        func() time.Time
	newID      func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the receiver of state changes and messages.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

// WithRecorder sets the transition metrics recorder passed to every runner.
func WithRecorder(r scrapejob.Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithRunnerOptions appends options applied to every runner, such as the
// poll interval or a fake clock.
func WithRunnerOptions(opts ...scrapejob.Option) Option {
	return func(o *Orchestrator) {
		o.runnerOpts = append(o.runnerOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithNow replaces the wall clock used for operation timestamps.
func WithNow(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an orchestrator over registry.
func New(registry *adapter.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		log:      logger.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With(logger.String("component", "orchestrator"))
	return o
}

// Run executes one scrape job per source and blocks until all of them are
// terminal. Source failures are reported on the Operation, not as an error;
// the returned error is non-nil only for an invariant violation.
func (o *Orchestrator) Run(ctx context.Context, params domain.SearchParameters) (*domain.Operation, error) {
	op := domain.NewOperation(o.newID(), "", params, o.now())

	if err := checkSources(params.Sources); err != nil {
		o.log.Error("Refusing to run operation", logger.String("request_id", op.RequestID), logger.Error(err))
		o.complete(op, domain.OutcomeInternalError)
		return op, err
	}

	o.log.Info("Operation started",
		logger.String("request_id", op.RequestID),
		logger.Int("sources", len(params.Sources)),
		logger.String("date_range", string(params.DateRange)),
	)

	jobs := make([]*scrapejob.Job, len(params.Sources))
	var g errgroup.Group
	for i, s := range params.Sources {
		g.Go(func() error {
			jobs[i] = o.runSource(ctx, s, params)
			return nil
		})
	}
	_ = g.Wait()

	o.aggregate(op, jobs)
	return op, nil
}

func (o *Orchestrator) runSource(ctx context.Context, s domain.Source, params domain.SearchParameters) (job *scrapejob.Job) {
	channel := params.RequestingUser
	defer func() {
		if r := recover(); r != nil {
			job = o.failedJob(s, params, fmt.Errorf("%w: scrape job panicked: %v", domain.ErrInvariant, r))
		}
	}()

	a, err := o.registry.New(s)
	if err != nil {
		return o.failedJob(s, params, err)
	}

	opts := make([]scrapejob.Option, 0, len(o.runnerOpts)+3)
	opts = append(opts, scrapejob.WithLogger(o.log))
	if o.notifier != nil {
		opts = append(opts, scrapejob.WithObserver(o.notifier))
	}
	if o.recorder != nil {
		opts = append(opts, scrapejob.WithRecorder(o.recorder))
	}
	opts = append(opts, o.runnerOpts...)

	return scrapejob.NewRunner(a, opts...).Run(ctx, params.ForSource(s), channel)
}

// failedJob records a source that could not run at all.
func (o *Orchestrator) failedJob(s domain.Source, params domain.SearchParameters, err error) *scrapejob.Job {
	now := o.now()
	channel := params.RequestingUser
	o.log.Error("Source could not run", logger.String("source", s.String()), logger.Error(err))
	if o.notifier != nil {
		o.notifier.SetState(channel, s, domain.PlatformError)
		o.notifier.Error(channel, fmt.Sprintf("%s: %s", s, err))
	}
	if o.recorder != nil {
		o.recorder.RecordTransition(s, domain.JobStateError)
	}
	return &scrapejob.Job{
		Source:           s,
		Params:           params.ForSource(s),
		Channel:          channel,
		State:            domain.JobStateError,
		StartedAt:        now,
		LastTransitionAt: now,
		ErrorDetail:      err.Error(),
		Err:              err,
	}
}

func (o *Orchestrator) aggregate(op *domain.Operation, jobs []*scrapejob.Job) {
	var succeeded, failed int
	listings := domain.Listings{}

	for _, job := range jobs {
		op.PerSourceState[job.Source] = job.State
		if job.Succeeded() {
			succeeded++
			op.PerSourceCount[job.Source] = len(job.Listings)
			listings = append(listings, job.Listings...)
			continue
		}
		failed++
		op.PerSourceCount[job.Source] = 0
		op.PerSourceError[job.Source] = job.ErrorDetail
	}
	op.AggregatedListings = listings
	op.ListingsCount = len(listings)

	outcome := domain.OutcomeSuccess
	switch {
	case succeeded == 0:
		outcome = domain.OutcomeFailed
	case failed > 0:
		outcome = domain.OutcomePartial
		o.log.Warn("Operation completed with source failures",
			logger.String("request_id", op.RequestID),
			logger.Int("failed_sources", failed),
			logger.Error(domain.ErrPartialFailure),
		)
	}
	o.complete(op, outcome)

	if len(listings) == 0 && o.notifier != nil {
		o.notifier.Reset(op.RequestingUser, op.Sources...)
	}

	o.log.Info("Operation completed",
		logger.String("request_id", op.RequestID),
		logger.String("outcome", string(outcome)),
		logger.Int("listings", len(listings)),
	)
}

func (o *Orchestrator) complete(op *domain.Operation, outcome domain.Outcome) {
	now := o.now()
	op.Outcome = outcome
	op.CompletedAt = &now
}

// checkSources guards against callers that skipped SearchParameters.Validate.
func checkSources(sources []domain.Source) error {
	if len(sources) == 0 {
		return fmt.Errorf("%w: operation has no sources", domain.ErrInvariant)
	}
	seen := make(map[domain.Source]struct{}, len(sources))
	for _, s := range sources {
		if parsed, err := domain.ParseSource(string(s)); err != nil || parsed != s {
			return fmt.Errorf("%w: unknown source %q", domain.ErrInvariant, s)
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: duplicate source %q", domain.ErrInvariant, s)
		}
		seen[s] = struct{}{}
	}
	return nil
}
