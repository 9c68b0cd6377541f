package brightdata_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonesrussell/jobsweep/internal/adapter"
	"github.com/jonesrussell/jobsweep/internal/adapter/brightdata"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	progress []string
	calls    int
	trigger  []map[string]any
	records  []map[string]any
	authSeen string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /trigger", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.authSeen = r.Header.Get("Authorization")
		assert.Equal(t, "discover_new", r.URL.Query().Get("type"))
		assert.Equal(t, "keyword", r.URL.Query().Get("discover_by"))
		assert.Equal(t, "gd_test", r.URL.Query().Get("dataset_id"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.trigger))
		_, _ = w.Write([]byte(`{"snapshot_id":"s_123"}`))
	})
	mux.HandleFunc("GET /progress/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "s_123", r.PathValue("id"))
		f.mu.Lock()
		defer f.mu.Unlock()
		status := f.progress[min(f.calls, len(f.progress)-1)]
		f.calls++
		_ = json.NewEncoder(w).Encode(brightdata.Progress{Status: status, ErrorMessage: "quota exceeded"})
	})
	mux.HandleFunc("GET /snapshot/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(f.records)
	})
	return mux
}

func newAdapter(t *testing.T, api *fakeAPI, profile brightdata.Profile) *brightdata.Adapter {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	client := brightdata.NewClient("secret", brightdata.WithBaseURL(srv.URL), brightdata.WithHTTPClient(srv.Client()))
	return brightdata.New(client, profile, brightdata.Options{}, nil)
}

func TestAdapter_LinkedInFlow(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		progress: []string{"running", "ready"},
		records: []map[string]any{{
			"job_posted_date":     "2024-03-20T00:00:00Z",
			"job_title":           "Backend Engineer",
			"company_name":        "Acme",
			"job_location":        "Manila",
			"job_employment_type": "Full-time",
			"job_seniority_level": "Mid-Senior level",
			"job_summary":         "Build things",
			"url":                 "https://www.linkedin.com/jobs/view/1",
		}},
	}
	a := newAdapter(t, api, brightdata.LinkedIn("gd_test"))
	ctx := context.Background()

	assert.Equal(t, domain.SourceLinkedIn, a.Source())
	assert.Equal(t, adapter.ModePolling, a.Mode())

	start, err := a.StartCollection(ctx, domain.SearchParameters{DateRange: domain.PastWeek, Keywords: "golang"})
	require.NoError(t, err)
	assert.Equal(t, adapter.Handle("s_123"), start.Handle)
	assert.False(t, start.Immediate)
	api.mu.Lock()
	assert.Equal(t, "Bearer secret", api.authSeen)
	require.Len(t, api.trigger, 1)
	assert.Equal(t, "Past week", api.trigger[0]["time_range"])
	assert.Equal(t, "golang", api.trigger[0]["keyword"])
	api.mu.Unlock()
	assert.Empty(t, a.Warnings())

	status, _, err := a.PollStatus(ctx, start.Handle)
	require.NoError(t, err)
	assert.Equal(t, adapter.PollRunning, status)
	status, _, err = a.PollStatus(ctx, start.Handle)
	require.NoError(t, err)
	assert.Equal(t, adapter.PollReady, status)

	records, err := a.Collect(ctx, start.Handle)
	require.NoError(t, err)
	require.Len(t, records, 1)

	l, err := a.MapToCanonical(records[0])
	require.NoError(t, err)
	assert.Equal(t, domain.Listing{
		Source:         domain.SourceLinkedIn,
		PostedDate:     "2024-03-20",
		Title:          "Backend Engineer",
		Company:        "Acme",
		Location:       "Manila",
		EmploymentType: "Full-time",
		Seniority:      "Mid-Senior level",
		Compensation:   domain.Unspecified,
		Description:    "Build things",
		URL:            "https://www.linkedin.com/jobs/view/1",
	}, l)
}

func TestAdapter_LinkedInSubstitutesFifteenDays(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{progress: []string{"ready"}}
	a := newAdapter(t, api, brightdata.LinkedIn("gd_test"))

	_, err := a.StartCollection(context.Background(), domain.SearchParameters{DateRange: domain.Past15Days})
	require.NoError(t, err)
	api.mu.Lock()
	assert.Equal(t, "Past month", api.trigger[0]["time_range"])
	api.mu.Unlock()
	require.Len(t, a.Warnings(), 1)
	assert.Contains(t, a.Warnings()[0], "Past 15 days")
}

func TestAdapter_PollFailedCarriesMessage(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{progress: []string{"failed"}}
	a := newAdapter(t, api, brightdata.LinkedIn("gd_test"))

	status, msg, err := a.PollStatus(context.Background(), "s_123")
	require.NoError(t, err)
	assert.Equal(t, adapter.PollFailed, status)
	assert.Equal(t, "BrightData failed: quota exceeded", msg)
}

func TestAdapter_IndeedFiltersByPostedDate(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	api := &fakeAPI{
		progress: []string{"ready"},
		records: []map[string]any{
			{"date_posted_parsed": now.Format(time.RFC3339), "job_title": "Fresh", "url": "https://indeed.com/1"},
			{"date_posted_parsed": now.AddDate(0, 0, -40).Format(time.RFC3339), "job_title": "Stale", "url": "https://indeed.com/2"},
			{"date_posted_parsed": "", "job_title": "Undated", "url": "https://indeed.com/3"},
		},
	}
	a := newAdapter(t, api, brightdata.Indeed("gd_test"))
	ctx := context.Background()

	_, err := a.StartCollection(ctx, domain.SearchParameters{DateRange: domain.PastWeek, Keywords: "go"})
	require.NoError(t, err)
	api.mu.Lock()
	assert.Equal(t, "indeed.com", api.trigger[0]["domain"])
	api.mu.Unlock()

	records, err := a.Collect(ctx, "s_123")
	require.NoError(t, err)
	require.Len(t, records, 2)

	l, err := a.MapToCanonical(records[1])
	require.NoError(t, err)
	assert.Equal(t, domain.Unspecified, l.PostedDate)
	assert.Equal(t, domain.Unspecified, l.Seniority)
}

func TestAdapter_MapRejectsMissingURL(t *testing.T) {
	t.Parallel()

	a := brightdata.New(brightdata.NewClient("k"), brightdata.Indeed("gd"), brightdata.Options{}, nil)
	_, err := a.MapToCanonical(adapter.RawRecord{"job_title": "No link"})
	require.ErrorIs(t, err, domain.ErrMapping)
}

func TestClient_TransportErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	client := brightdata.NewClient("bad", brightdata.WithBaseURL(srv.URL))
	_, err := client.Trigger(context.Background(), "gd", []map[string]any{{}})
	require.ErrorIs(t, err, domain.ErrAdapterTransport)
	assert.Contains(t, err.Error(), "status 401")
}

func TestClient_MissingSnapshotID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	client := brightdata.NewClient("k", brightdata.WithBaseURL(srv.URL))
	_, err := client.Trigger(context.Background(), "gd", nil)
	require.ErrorIs(t, err, brightdata.ErrNoSnapshotID)
}

func TestDecodeOptions(t *testing.T) {
	t.Parallel()

	opts, err := brightdata.DecodeOptions(map[string]any{"dataset_id": "gd_x", "country": "PH"})
	require.NoError(t, err)
	assert.Equal(t, brightdata.Options{DatasetID: "gd_x", Country: "PH"}, opts)

	_, err = brightdata.DecodeOptions(map[string]any{"bogus": 1})
	require.Error(t, err)
}
