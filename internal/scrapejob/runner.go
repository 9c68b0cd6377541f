package scrapejob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/jobsweep/internal/adapter"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
)

// Runner drives one adapter through the machine. It performs the adapter
// I/O for each state and feeds the outcome back as an event.
type Runner struct {
	adapter      adapter.Adapter
	observer     Observer
	recorder     Recorder
	log          logger.Logger
	clock        Clock
	pollInterval time.Duration
	maxWait      time.Duration
}

// NewRunner creates a runner for a. The adapter must be fresh for this job.
func NewRunner(a adapter.Adapter, opts ...Option) *Runner {
	r := &Runner{
		adapter:      a,
		observer:     nopObserver{},
		recorder:     nopRecorder{},
		log:          logger.NewNop(),
		clock:        realClock{},
		pollInterval: DefaultPollInterval,
		maxWait:      DefaultMaxWait,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.String("source", a.Source().String()))
	return r
}

// run is the per-invocation state shared by the handlers.
type run struct {
	*Runner
	job      *Job
	machine  *Machine
	platform domain.PlatformState
	warned   int
}

// Run executes the job to a terminal state. It never returns an adapter
// error; failures are recorded on the returned Job.
func (r *Runner) Run(ctx context.Context, params domain.SearchParameters, channel string) *Job {
	now := r.clock.Now()
	x := &run{
		Runner:  r,
		machine: NewMachine(),
		job: &Job{
			Source:           r.adapter.Source(),
			Params:           params,
			Channel:          channel,
			State:            domain.JobStateIdle,
			StartedAt:        now,
			LastTransitionAt: now,
		},
		platform: domain.PlatformIdle,
	}

	x.fire(EventStart)
	x.requestData(ctx)
	return x.job
}

func (x *run) fire(ev Event) {
	to, err := x.machine.Fire(ev)
	if err != nil {
		// Only reachable through a handler bug.
		x.log.Error("Rejected scrape job transition", logger.Error(err))
		return
	}
	x.job.State = to
	x.job.LastTransitionAt = x.clock.Now()
	x.recorder.RecordTransition(x.job.Source, to)
	x.log.Debug("Scrape job transition", logger.String("state", string(to)))

	if p := to.Platform(); p != x.platform {
		x.platform = p
		x.observer.SetState(x.job.Channel, x.job.Source, p)
	}
}

func (x *run) fail(err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	x.job.Err = err
	x.job.ErrorDetail = err.Error()
	x.job.Listings = nil
	x.fire(EventFailed)
	x.log.Error("Scrape job failed", logger.Error(err))
	x.observer.Error(x.job.Channel, fmt.Sprintf("%s: %s", x.job.Source, x.job.ErrorDetail))
}

// forwardWarnings publishes warnings the adapter accumulated since the last call.
func (x *run) forwardWarnings() {
	w, ok := x.adapter.(adapter.Warner)
	if !ok {
		return
	}
	all := w.Warnings()
	for _, msg := range all[min(x.warned, len(all)):] {
		x.job.Warnings = append(x.job.Warnings, msg)
		x.observer.Warn(x.job.Channel, msg)
	}
	x.warned = len(all)
}

func (x *run) requestData(ctx context.Context) {
	start, err := x.adapter.StartCollection(ctx, x.job.Params)
	x.forwardWarnings()
	if err != nil {
		x.fail(err)
		return
	}

	if start.Immediate {
		x.fire(EventImmediateData)
		x.processData(ctx, start.Handle)
		return
	}
	x.fire(EventHandleReceived)
	x.waitData(ctx, start.Handle)
}

func (x *run) waitData(ctx context.Context, h adapter.Handle) {
	began := x.clock.Now()
	x.observer.Info(x.job.Channel,
		fmt.Sprintf("Waiting for %s listings, this can take several minutes", x.job.Source))

	for {
		x.job.Attempts++
		status, msg, err := x.adapter.PollStatus(ctx, h)
		if err != nil {
			x.fail(err)
			return
		}

		switch status {
		case adapter.PollReady:
			x.observer.Info(x.job.Channel, fmt.Sprintf("Data for %s ready", x.job.Source))
			x.fire(EventDataReady)
			x.processData(ctx, h)
			return
		case adapter.PollFailed:
			if msg == "" {
				msg = "remote collection failed"
			}
			x.fail(fmt.Errorf("%w: %s", domain.ErrAdapterTransport, msg))
			return
		}

		elapsed := x.clock.Now().Sub(began)
		if elapsed >= x.maxWait {
			x.fail(fmt.Errorf("%w: timed out after %s waiting for %s data",
				domain.ErrAdapterTimeout, x.maxWait, x.job.Source))
			return
		}
		x.observer.Info(x.job.Channel, fmt.Sprintf("Still waiting for %s data, %d minutes elapsed",
			x.job.Source, int(elapsed.Minutes())))

		if err = x.sleep(ctx, min(x.pollInterval, x.maxWait-elapsed)); err != nil {
			x.fail(err)
			return
		}
	}
}

func (x *run) sleep(ctx context.Context, d time.Duration) error {
	c, stop := x.clock.NewTimer(d)
	defer stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c:
		return nil
	}
}

func (x *run) processData(ctx context.Context, h adapter.Handle) {
	records, err := x.adapter.Collect(ctx, h)
	x.forwardWarnings()
	if err != nil {
		x.fail(err)
		return
	}

	listings := make([]domain.Listing, 0, len(records))
	for _, rec := range records {
		l, mapErr := x.adapter.MapToCanonical(rec)
		if mapErr != nil {
			x.job.DroppedRecords++
			x.log.Debug("Dropped record", logger.Error(mapErr))
			continue
		}
		listings = append(listings, l)
	}
	if d, ok := x.adapter.(adapter.DropReporter); ok {
		x.job.DroppedRecords += d.Dropped()
	}
	if x.job.DroppedRecords > 0 {
		x.observer.Debug(x.job.Channel, fmt.Sprintf("Dropped %d %s records that could not be mapped",
			x.job.DroppedRecords, x.job.Source))
	}

	x.job.Listings = listings
	x.fire(EventResultsMapped)
	x.sendResult()
}

func (x *run) sendResult() {
	if len(x.job.Listings) == 0 {
		x.observer.Warn(x.job.Channel, fmt.Sprintf("No jobs found on %s for your search criteria", x.job.Source))
		return
	}
	x.observer.Info(x.job.Channel,
		fmt.Sprintf("Total listings found on %s: %d", x.job.Source, len(x.job.Listings)))
}
