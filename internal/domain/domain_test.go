package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchParameters_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		params      domain.SearchParameters
		wantErr     bool
		wantField   string
		wantSources []domain.Source
		wantRange   domain.DateRange
	}{
		{
			name:        "valid enum key",
			params:      domain.SearchParameters{Sources: []domain.Source{"kalibrr"}, DateRange: "PAST_WEEK"},
			wantSources: []domain.Source{domain.SourceKalibrr},
			wantRange:   domain.PastWeek,
		},
		{
			name:        "legacy label and duplicate sources",
			params:      domain.SearchParameters{Sources: []domain.Source{"Indeed", "kalibrr", "indeed"}, DateRange: "Past 15 days"},
			wantSources: []domain.Source{domain.SourceIndeed, domain.SourceKalibrr},
			wantRange:   domain.Past15Days,
		},
		{
			name:      "empty source set",
			params:    domain.SearchParameters{DateRange: "PAST_WEEK"},
			wantErr:   true,
			wantField: "sources",
		},
		{
			name:      "unknown source",
			params:    domain.SearchParameters{Sources: []domain.Source{"monster"}, DateRange: "PAST_WEEK"},
			wantErr:   true,
			wantField: "sources",
		},
		{
			name:      "unknown date range",
			params:    domain.SearchParameters{Sources: []domain.Source{"linkedin"}, DateRange: "PAST_YEAR"},
			wantErr:   true,
			wantField: "dateRange",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := tt.params
			err := p.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrValidation)
				var verr *domain.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.wantField, verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSources, p.Sources)
			assert.Equal(t, tt.wantRange, p.DateRange)
		})
	}
}

func TestDateRange_WindowStart(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 20, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC), domain.Past24Hours.WindowStart(now))
	assert.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), domain.PastWeek.WindowStart(now))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), domain.Past15Days.WindowStart(now))
	assert.Equal(t, time.Date(2024, 2, 19, 0, 0, 0, 0, time.UTC), domain.PastMonth.WindowStart(now))

	assert.True(t, domain.PastWeek.Contains(time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, domain.PastWeek.Contains(time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, "Past week", domain.PastWeek.Label())
}

func TestListing_Validate(t *testing.T) {
	t.Parallel()

	ok := domain.Listing{Title: "Go Engineer", URL: "https://example.com/1"}
	require.NoError(t, ok.Validate())

	noURL := domain.Listing{Title: "Go Engineer"}
	assert.ErrorIs(t, noURL.Validate(), domain.ErrMapping)

	noTitle := domain.Listing{URL: "https://example.com/1"}
	assert.ErrorIs(t, noTitle.Validate(), domain.ErrMapping)
}

func TestListing_Posted(t *testing.T) {
	t.Parallel()

	l := domain.Listing{PostedDate: "2024-03-20"}
	got, ok := l.Posted()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), got)

	_, ok = domain.Listing{PostedDate: domain.Unspecified}.Posted()
	assert.False(t, ok)
	assert.Equal(t, domain.Unspecified, domain.OrUnspecified("  "))
}

func TestJobState_Platform(t *testing.T) {
	t.Parallel()

	tests := map[domain.JobState]domain.PlatformState{
		domain.JobStateIdle:           domain.PlatformIdle,
		domain.JobStateRequestingData: domain.PlatformWaiting,
		domain.JobStateWaitingData:    domain.PlatformWaiting,
		domain.JobStateProcessingData: domain.PlatformProcessing,
		domain.JobStateSendingResult:  domain.PlatformFinished,
		domain.JobStateError:          domain.PlatformError,
	}
	for state, want := range tests {
		assert.Equal(t, want, state.Platform(), state)
	}
}

func TestResultFromOperation(t *testing.T) {
	t.Parallel()

	now := time.Now()
	params := domain.SearchParameters{
		Sources:   []domain.Source{domain.SourceKalibrr, domain.SourceLinkedIn},
		DateRange: domain.PastWeek,
	}
	op := domain.NewOperation("req-1", "task-1", params, now)
	op.Outcome = domain.OutcomePartial
	op.PerSourceError[domain.SourceLinkedIn] = "timed out"
	op.AggregatedListings = domain.Listings{{Title: "a", URL: "u"}}
	op.CompletedAt = &now

	res := domain.ResultFromOperation(op, now)
	assert.Equal(t, domain.TaskPartial, res.Status)
	assert.Equal(t, 1, res.ListingsCount)
	assert.Equal(t, "timed out", res.SourceErrors[domain.SourceLinkedIn])
	assert.True(t, res.Status.IsTerminal())
	assert.False(t, domain.TaskRunning.IsTerminal())
}

func TestSourceStates_ScanValue(t *testing.T) {
	t.Parallel()

	in := domain.SourceStates{domain.SourceKalibrr: domain.JobStateSendingResult}
	v, err := in.Value()
	require.NoError(t, err)

	var out domain.SourceStates
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)

	var empty domain.Listings
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}
