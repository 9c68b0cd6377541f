package kalibrr_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jonesrussell/jobsweep/internal/adapter"
	"github.com/jonesrussell/jobsweep/internal/adapter/kalibrr"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kalibrrJob(id int, activated time.Time) map[string]any {
	return map[string]any{
		"id":              id,
		"name":            fmt.Sprintf("React Developer %d", id),
		"slug":            fmt.Sprintf("react-developer-%d", id),
		"company_name":    "Acme PH",
		"company":         map[string]any{"code": "acme"},
		"activation_date": activated.Format("2006-01-02T15:04:05.000000"),
		"tenure":          "Full time",
		"description":     "<p>Join us.</p><ul><li>React</li><li>TypeScript</li></ul>",
		"salary_shown":    true,
		"base_salary":     40000,
		"maximum_salary":  65000,
		"salary_currency": "PHP",
		"salary_interval": "month",
		"google_location": map[string]any{
			"address_components": map[string]any{"city": "Makati", "region": "Metro Manila"},
		},
	}
}

type board struct {
	mu      sync.Mutex
	jobs    []map[string]any
	offsets []int
	query   map[string]string
}

func (b *board) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	b.offsets = append(b.offsets, offset)
	b.query = map[string]string{
		"text":           q.Get("text"),
		"country":        q.Get("country"),
		"sort_direction": q.Get("sort_direction"),
		"sort_field":     q.Get("sort_field"),
	}

	end := min(offset+limit, len(b.jobs))
	var page []map[string]any
	if offset < len(b.jobs) {
		page = b.jobs[offset:end]
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"jobs": page})
}

func newAdapter(t *testing.T, b *board, pageSize int) *kalibrr.Adapter {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return kalibrr.New(kalibrr.Options{SiteURL: srv.URL, PageSize: pageSize}, srv.Client(), adapter.NewHostLimiter(0, 1), nil)
}

func TestAdapter_CollectStopsOutsideWindow(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	b := &board{}
	for i := range 12 {
		b.jobs = append(b.jobs, kalibrrJob(i+1, now.AddDate(0, 0, -i)))
	}
	a := newAdapter(t, b, 3)
	ctx := context.Background()

	start, err := a.StartCollection(ctx, domain.SearchParameters{DateRange: domain.PastWeek, Keywords: "react"})
	require.NoError(t, err)
	assert.True(t, start.Immediate)

	status, _, err := a.PollStatus(ctx, start.Handle)
	require.NoError(t, err)
	assert.Equal(t, adapter.PollReady, status)

	records, err := a.Collect(ctx, start.Handle)
	require.NoError(t, err)
	assert.Len(t, records, 8)
	assert.Zero(t, a.Dropped())

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, []int{0, 3, 6, 9}, b.offsets)
	assert.Equal(t, "react", b.query["text"])
	assert.Equal(t, "Philippines", b.query["country"])
	assert.Equal(t, "desc", b.query["sort_direction"])
	assert.Equal(t, "activation_date", b.query["sort_field"])
}

func TestAdapter_MapToCanonical(t *testing.T) {
	t.Parallel()

	a := kalibrr.New(kalibrr.Options{}, nil, nil, nil)
	activated := time.Date(2024, 3, 20, 8, 15, 0, 0, time.UTC)

	l, err := a.MapToCanonical(adapter.RawRecord(kalibrrJob(42, activated)))
	require.NoError(t, err)
	assert.Equal(t, domain.Listing{
		Source:         domain.SourceKalibrr,
		PostedDate:     "2024-03-20",
		Title:          "React Developer 42",
		Company:        "Acme PH",
		Location:       "Makati, Metro Manila",
		EmploymentType: "Full time",
		Seniority:      domain.Unspecified,
		Compensation:   "PHP 40,000 - 65,000 per month",
		Description:    "Join us.\n• React\n• TypeScript",
		URL:            "https://www.kalibrr.com/c/acme/jobs/42/react-developer-42",
	}, l)
}

func TestAdapter_MapKeepsUnparseableDate(t *testing.T) {
	t.Parallel()

	a := kalibrr.New(kalibrr.Options{}, nil, nil, nil)
	rec := kalibrrJob(7, time.Now())
	rec["activation_date"] = "sometime last week"
	rec["salary_shown"] = false
	delete(rec, "google_location")

	l, err := a.MapToCanonical(adapter.RawRecord(rec))
	require.NoError(t, err)
	assert.Equal(t, domain.Unspecified, l.PostedDate)
	assert.Equal(t, domain.Unspecified, l.Compensation)
	assert.Equal(t, domain.Unspecified, l.Location)
}

func TestAdapter_MapRejectsMissingCompany(t *testing.T) {
	t.Parallel()

	a := kalibrr.New(kalibrr.Options{}, nil, nil, nil)
	rec := kalibrrJob(7, time.Now())
	delete(rec, "company")

	_, err := a.MapToCanonical(adapter.RawRecord(rec))
	require.ErrorIs(t, err, domain.ErrMapping)
}

func TestAdapter_PageErrorIsTransport(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	a := kalibrr.New(kalibrr.Options{SiteURL: srv.URL}, srv.Client(), nil, nil)
	_, err := a.StartCollection(context.Background(), domain.SearchParameters{DateRange: domain.PastWeek})
	require.NoError(t, err)

	_, err = a.Collect(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrAdapterTransport)
}

func TestDecodeOptions(t *testing.T) {
	t.Parallel()

	opts, err := kalibrr.DecodeOptions(map[string]any{"page_size": "30", "country": "Philippines"})
	require.NoError(t, err)
	assert.Equal(t, 30, opts.PageSize)
}
