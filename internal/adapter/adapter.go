// Package adapter defines the contract every job-listing source implements
// and the helpers shared by the concrete adapters.
package adapter

//go:generate mockgen -destination=mocks/mock_adapter.go -package=mocks . Adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/jobsweep/internal/domain"
)

// Mode is the behavioral flavor of an adapter.
type Mode string

const (
	// ModePolling adapters hand back a handle and must be polled until ready.
	ModePolling Mode = "polling"
	// ModePaginating adapters have data immediately and page through it in Collect.
	ModePaginating Mode = "paginating"
)

// PollStatus is the remote state of a polling collection.
type PollStatus string

const (
	PollReady   PollStatus = "ready"
	PollRunning PollStatus = "running"
	PollFailed  PollStatus = "failed"
)

// Handle identifies an in-flight collection on the remote side.
type Handle string

// Start is the result of StartCollection.
type Start struct {
	Handle    Handle
	Immediate bool
}

// RawRecord is one source-native record before canonicalization.
type RawRecord map[string]any

// Adapter is implemented once per source. A new Adapter is created for every
// scrape job, so implementations may keep per-run state.
type Adapter interface {
	Source() domain.Source
	Mode() Mode
	StartCollection(ctx context.Context, params domain.SearchParameters) (Start, error)
	PollStatus(ctx context.Context, h Handle) (PollStatus, string, error)
	Collect(ctx context.Context, h Handle) ([]RawRecord, error)
	MapToCanonical(rec RawRecord) (domain.Listing, error)
}

// Warner is implemented by adapters that substitute unsupported request
// values (for example a date range the source cannot express).
type Warner interface {
	Warnings() []string
}

// DropReporter is implemented by adapters that drop records while collecting.
type DropReporter interface {
	Dropped() int
}

// Factory builds a fresh adapter for one scrape job.
type Factory func() Adapter

// ErrNoAdapter is returned when no factory is registered for a source.
var ErrNoAdapter = errors.New("no adapter registered for source")

// Registry maps sources to adapter factories.
type Registry struct {
	factories map[domain.Source]Factory
	order     []domain.Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[domain.Source]Factory)}
}

// Register adds or replaces the factory for s.
func (r *Registry) Register(s domain.Source, f Factory) {
	if _, exists := r.factories[s]; !exists {
		r.order = append(r.order, s)
	}
	r.factories[s] = f
}

// New builds an adapter for s.
func (r *Registry) New(s domain.Source) (Adapter, error) {
	f, ok := r.factories[s]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAdapter, s)
	}
	return f(), nil
}

// Sources returns the registered sources in registration order.
func (r *Registry) Sources() []domain.Source {
	return append([]domain.Source(nil), r.order...)
}

// Has reports whether s is registered.
func (r *Registry) Has(s domain.Source) bool {
	_, ok := r.factories[s]
	return ok
}

// WarningList accumulates substitution warnings. Adapters embed it to satisfy Warner.
type WarningList struct {
	items []string
}

// Warn records a warning.
func (w *WarningList) Warn(format string, args ...any) {
	w.items = append(w.items, fmt.Sprintf(format, args...))
}

// Warnings returns the recorded warnings.
func (w *WarningList) Warnings() []string {
	return append([]string(nil), w.items...)
}
