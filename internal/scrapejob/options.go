package scrapejob

import (
	"time"

	"github.com/jonesrussell/jobsweep/internal/logger"
)

const (
	// DefaultPollInterval is the wait between progress checks.
	DefaultPollInterval = 60 * time.Second
	// DefaultMaxWait bounds the total time spent in waiting_data.
	DefaultMaxWait = 1000 * time.Second
)

// Option configures a Runner.
type Option func(*Runner)

// WithPollInterval sets the wait between progress checks.
// Default: 60 seconds
func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// WithMaxWait bounds the time spent waiting for a polling source.
// Default: 1000 seconds
func WithMaxWait(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.maxWait = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(r *Runner) {
		r.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(r *Runner) {
		r.log = log
	}
}

// WithObserver sets the receiver of state changes and messages.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithRecorder sets the transition metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}
