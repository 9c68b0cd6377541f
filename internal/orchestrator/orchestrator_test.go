package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jonesrussell/jobsweep/internal/adapter"
	"github.com/jonesrussell/jobsweep/internal/adapter/mocks"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/orchestrator"
	"github.com/jonesrussell/jobsweep/internal/scrapejob"
	"github.com/jonesrussell/jobsweep/internal/statemanager"
)

// instantClock fires every timer immediately.
type instantClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *instantClock) NewTimer(d time.Duration) (<-chan time.Time, func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch, func() bool { return false }
}

type resetCounter struct {
	*statemanager.Manager
	mu     sync.Mutex
	resets int
	reset  []domain.Source
}

func (r *resetCounter) Reset(channel string, sources ...domain.Source) {
	r.mu.Lock()
	r.resets++
	r.reset = append(r.reset, sources...)
	r.mu.Unlock()
	r.Manager.Reset(channel, sources...)
}

func newNotifier() *resetCounter {
	return &resetCounter{Manager: statemanager.New(domain.AllSources, nil, nil)}
}

func records(urls ...string) []adapter.RawRecord {
	out := make([]adapter.RawRecord, 0, len(urls))
	for _, u := range urls {
		out = append(out, adapter.RawRecord{"title": "Go Engineer", "url": u})
	}
	return out
}

func mapRecord(source domain.Source) func(adapter.RawRecord) (domain.Listing, error) {
	return func(rec adapter.RawRecord) (domain.Listing, error) {
		l := domain.Listing{
			Source:     source,
			Title:      adapter.StringField(rec, "title"),
			URL:        adapter.StringField(rec, "url"),
			PostedDate: domain.Unspecified,
		}
		return l, l.Validate()
	}
}

// paginating returns a mock that yields recs immediately. Collect runs
// before, when set.
func paginating(ctrl *gomock.Controller, s domain.Source, recs []adapter.RawRecord, before func()) *mocks.MockAdapter {
	m := mocks.NewMockAdapter(ctrl)
	m.EXPECT().Source().Return(s).AnyTimes()
	m.EXPECT().Mode().Return(adapter.ModePaginating).AnyTimes()
	m.EXPECT().StartCollection(gomock.Any(), gomock.Any()).Return(adapter.Start{Immediate: true}, nil)
	m.EXPECT().Collect(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, adapter.Handle) ([]adapter.RawRecord, error) {
			if before != nil {
				before()
			}
			return recs, nil
		})
	m.EXPECT().MapToCanonical(gomock.Any()).DoAndReturn(mapRecord(s)).AnyTimes()
	return m
}

func failingPoll(ctrl *gomock.Controller, s domain.Source, msg string) *mocks.MockAdapter {
	m := mocks.NewMockAdapter(ctrl)
	m.EXPECT().Source().Return(s).AnyTimes()
	m.EXPECT().Mode().Return(adapter.ModePolling).AnyTimes()
	m.EXPECT().StartCollection(gomock.Any(), gomock.Any()).Return(adapter.Start{Handle: "snap-1"}, nil)
	m.EXPECT().PollStatus(gomock.Any(), adapter.Handle("snap-1")).Return(adapter.PollFailed, msg, nil)
	return m
}

func newOrchestrator(reg *adapter.Registry, n orchestrator.Notifier) *orchestrator.Orchestrator {
	clock := &instantClock{now: time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)}
	return orchestrator.New(reg,
		orchestrator.WithNotifier(n),
		orchestrator.WithRunnerOptions(scrapejob.WithClock(clock)),
	)
}

func params(sources ...domain.Source) domain.SearchParameters {
	return domain.SearchParameters{
		Sources:        sources,
		DateRange:      domain.PastWeek,
		Keywords:       "golang",
		RequestingUser: "user-1",
	}
}

func TestRun_AllSucceedKeepsSubmissionOrder(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	jobstreetDone := make(chan struct{})

	reg := adapter.NewRegistry()
	reg.Register(domain.SourceKalibrr, func() adapter.Adapter {
		// finishes after jobstreet
		return paginating(ctrl, domain.SourceKalibrr, records("k1", "k2"), func() { <-jobstreetDone })
	})
	reg.Register(domain.SourceJobStreet, func() adapter.Adapter {
		return paginating(ctrl, domain.SourceJobStreet, records("j1"), func() { close(jobstreetDone) })
	})

	n := newNotifier()
	op, err := newOrchestrator(reg, n).Run(context.Background(), params(domain.SourceKalibrr, domain.SourceJobStreet))
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSuccess, op.Outcome)
	require.Len(t, op.AggregatedListings, 3)
	assert.Equal(t, []string{"k1", "k2", "j1"}, []string{
		op.AggregatedListings[0].URL, op.AggregatedListings[1].URL, op.AggregatedListings[2].URL,
	})
	assert.Equal(t, 2, op.PerSourceCount[domain.SourceKalibrr])
	assert.Equal(t, 1, op.PerSourceCount[domain.SourceJobStreet])
	assert.Equal(t, 3, op.ListingsCount)
	assert.Empty(t, op.PerSourceError)
	assert.NotNil(t, op.CompletedAt)
	assert.NotEmpty(t, op.RequestID)
	assert.Equal(t, 0, n.resets)

	snap := n.Snapshot()
	assert.Equal(t, domain.PlatformFinished, snap[domain.SourceKalibrr])
	assert.Equal(t, domain.PlatformFinished, snap[domain.SourceJobStreet])
}

func TestRun_PartialTolerance(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	reg := adapter.NewRegistry()
	reg.Register(domain.SourceLinkedIn, func() adapter.Adapter {
		return failingPoll(ctrl, domain.SourceLinkedIn, "dataset quota exceeded")
	})
	reg.Register(domain.SourceKalibrr, func() adapter.Adapter {
		return paginating(ctrl, domain.SourceKalibrr, records("k1", "k2"), nil)
	})

	n := newNotifier()
	op, err := newOrchestrator(reg, n).Run(context.Background(), params(domain.SourceLinkedIn, domain.SourceKalibrr))
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomePartial, op.Outcome)
	assert.Len(t, op.AggregatedListings, 2)
	assert.Equal(t, domain.JobStateError, op.PerSourceState[domain.SourceLinkedIn])
	assert.Equal(t, domain.JobStateSendingResult, op.PerSourceState[domain.SourceKalibrr])
	assert.Contains(t, op.PerSourceError[domain.SourceLinkedIn], "dataset quota exceeded")

	snap := n.Snapshot()
	assert.Equal(t, domain.PlatformError, snap[domain.SourceLinkedIn])
	assert.Equal(t, domain.PlatformFinished, snap[domain.SourceKalibrr])
}

func TestRun_AllFailed(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	reg := adapter.NewRegistry()
	reg.Register(domain.SourceIndeed, func() adapter.Adapter {
		return failingPoll(ctrl, domain.SourceIndeed, "snapshot failed")
	})

	n := newNotifier()
	op, err := newOrchestrator(reg, n).Run(context.Background(), params(domain.SourceIndeed))
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeFailed, op.Outcome)
	assert.Empty(t, op.AggregatedListings)
	assert.Equal(t, 1, n.resets)
}

func TestRun_NoDataIsSuccess(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	reg := adapter.NewRegistry()
	reg.Register(domain.SourceKalibrr, func() adapter.Adapter {
		return paginating(ctrl, domain.SourceKalibrr, nil, nil)
	})

	n := newNotifier()
	// Another user's operation is mid-flight on a different source.
	n.SetState("bob", domain.SourceLinkedIn, domain.PlatformProcessing)

	op, err := newOrchestrator(reg, n).Run(context.Background(), params(domain.SourceKalibrr))
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSuccess, op.Outcome)
	assert.NotNil(t, op.AggregatedListings)
	assert.Empty(t, op.AggregatedListings)
	assert.Equal(t, 1, n.resets)
	assert.Equal(t, []domain.Source{domain.SourceKalibrr}, n.reset)

	snap := n.Snapshot()
	assert.Equal(t, domain.PlatformIdle, snap[domain.SourceKalibrr])
	assert.Equal(t, domain.PlatformProcessing, snap[domain.SourceLinkedIn], "reset leaves other operations' sources alone")
}

func TestRun_MissingFactoryIsSourceError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	reg := adapter.NewRegistry()
	reg.Register(domain.SourceKalibrr, func() adapter.Adapter {
		return paginating(ctrl, domain.SourceKalibrr, records("k1"), nil)
	})

	op, err := newOrchestrator(reg, newNotifier()).Run(context.Background(), params(domain.SourceJobStreet, domain.SourceKalibrr))
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomePartial, op.Outcome)
	assert.Equal(t, domain.JobStateError, op.PerSourceState[domain.SourceJobStreet])
	assert.Contains(t, op.PerSourceError[domain.SourceJobStreet], adapter.ErrNoAdapter.Error())
}

func TestRun_AdapterPanicIsSourceError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	reg := adapter.NewRegistry()
	reg.Register(domain.SourceKalibrr, func() adapter.Adapter {
		m := mocks.NewMockAdapter(ctrl)
		m.EXPECT().Source().Return(domain.SourceKalibrr).AnyTimes()
		m.EXPECT().StartCollection(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, domain.SearchParameters) (adapter.Start, error) {
				panic("nil map")
			})
		return m
	})

	op, err := newOrchestrator(reg, newNotifier()).Run(context.Background(), params(domain.SourceKalibrr))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, op.Outcome)
	assert.Contains(t, op.PerSourceError[domain.SourceKalibrr], "panicked")
}

func TestRun_InvalidSourceSetIsInvariantViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sources []domain.Source
	}{
		{name: "empty", sources: nil},
		{name: "unknown", sources: []domain.Source{"monster"}},
		{name: "duplicate", sources: []domain.Source{domain.SourceKalibrr, domain.SourceKalibrr}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			op, err := orchestrator.New(adapter.NewRegistry()).Run(context.Background(), params(tt.sources...))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvariant))
			require.NotNil(t, op)
			assert.Equal(t, domain.OutcomeInternalError, op.Outcome)
		})
	}
}
