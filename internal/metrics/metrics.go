// Package metrics holds the Prometheus collectors for scrape jobs,
// operations, the worker pool and the scheduler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonesrussell/jobsweep/internal/domain"
)

const (
	// Namespace prefixes every metric name.
	Namespace = "jobsweep"
)

// Metrics holds all collectors. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	ScrapeJobTransitions *prometheus.CounterVec
	OperationsTotal      *prometheus.CounterVec
	OperationDuration    prometheus.Histogram
	TasksInflight        prometheus.Gauge
	SchedulerSkips       prometheus.Counter
	SchedulerTriggers    prometheus.Counter
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ScrapeJobTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "scrapejob",
				Name:      "transitions_total",
				Help:      "Scrape job state transitions by source and target state",
			},
			[]string{"source", "state"},
		),
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "operations_total",
				Help:      "Completed operations by outcome",
			},
			[]string{"outcome"},
		),
		OperationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "operation_duration_seconds",
				Help:      "Wall time of an operation from dequeue to result",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17min
			},
		),
		TasksInflight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "tasks_inflight",
				Help:      "Tasks currently executing in the worker pool",
			},
		),
		SchedulerSkips: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "skips_total",
				Help:      "Schedule invocations skipped because the previous run was still active",
			},
		),
		SchedulerTriggers: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "triggers_total",
				Help:      "Schedule invocations that submitted a task",
			},
		),
	}
}

// RecordTransition counts a scrape job entering state.
func (m *Metrics) RecordTransition(source domain.Source, state domain.JobState) {
	if m == nil {
		return
	}
	m.ScrapeJobTransitions.WithLabelValues(source.String(), string(state)).Inc()
}

// RecordOperation counts a completed operation.
func (m *Metrics) RecordOperation(outcome domain.Outcome, seconds float64) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(string(outcome)).Inc()
	m.OperationDuration.Observe(seconds)
}

// TaskStarted increments the in-flight gauge.
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.TasksInflight.Inc()
}

// TaskFinished decrements the in-flight gauge.
func (m *Metrics) TaskFinished() {
	if m == nil {
		return
	}
	m.TasksInflight.Dec()
}

// ScheduleSkipped counts an overlapping invocation.
func (m *Metrics) ScheduleSkipped() {
	if m == nil {
		return
	}
	m.SchedulerSkips.Inc()
}

// ScheduleTriggered counts a submitted invocation.
func (m *Metrics) ScheduleTriggered() {
	if m == nil {
		return
	}
	m.SchedulerTriggers.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
