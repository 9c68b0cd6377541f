package jobstreet_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonesrussell/jobsweep/internal/adapter"
	"github.com/jonesrussell/jobsweep/internal/adapter/jobstreet"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailTemplate = `<html><body>
<div data-automation="jobDetailsPage">
  <h1 data-automation="job-detail-title">%s</h1>
  <span data-automation="advertiser-name">Globex Manila</span>
  <span data-automation="job-detail-location">Taguig City</span>
  <span data-automation="job-detail-work-type">Full time</span>
  <span data-automation="job-detail-salary">₱50,000 – ₱70,000 per month</span>
  <span>%s</span>
  <div data-automation="jobAdDetails"><p>About the role</p><ul><li>Go</li><li>Postgres</li></ul></div>
</div>
</body></html>`

type site struct {
	mu       sync.Mutex
	pages    map[int][]string
	posted   map[string]string
	queries  []string
	failJobs map[string]bool
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := strings.CutPrefix(r.URL.Path, "/job/"); ok {
		if s.failJobs[id] {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, detailTemplate, "Go Engineer "+id, s.posted[id])
		return
	}

	s.queries = append(s.queries, r.URL.Path+"?"+r.URL.RawQuery)
	var page int
	_, _ = fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)

	var b strings.Builder
	b.WriteString("<html><body>")
	for _, id := range s.pages[page] {
		fmt.Fprintf(&b, `<article data-job-id="%s"><a href="/job/%s">job</a></article>`, id, id)
	}
	b.WriteString("</body></html>")
	_, _ = w.Write([]byte(b.String()))
}

func newAdapter(t *testing.T, s *site) *jobstreet.Adapter {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return jobstreet.New(jobstreet.Options{SiteURL: srv.URL, RequestTimeout: 5 * time.Second}, adapter.NewHostLimiter(0, 1), nil)
}

func TestAdapter_CollectWalksPagesUntilOutOfWindow(t *testing.T) {
	t.Parallel()

	s := &site{
		pages: map[int][]string{
			1: {"101", "102"},
			2: {"201", "202"},
			3: {"301"},
		},
		posted: map[string]string{
			"101": "Posted 5h ago",
			"102": "Posted 2d ago",
			"201": "Posted 20d ago",
			"202": "Posted 25d ago",
			"301": "Posted 1d ago",
		},
	}
	a := newAdapter(t, s)
	ctx := context.Background()

	_, err := a.StartCollection(ctx, domain.SearchParameters{DateRange: domain.PastWeek, Keywords: "Go Developer"})
	require.NoError(t, err)

	records, err := a.Collect(ctx, "")
	require.NoError(t, err)
	require.Len(t, records, 2)

	s.mu.Lock()
	assert.Equal(t, []string{
		"/go-developer-jobs?daterange=7&page=1",
		"/go-developer-jobs?daterange=7&page=2",
	}, s.queries)
	s.mu.Unlock()

	l, err := a.MapToCanonical(records[1])
	require.NoError(t, err)
	assert.Equal(t, domain.SourceJobStreet, l.Source)
	assert.Equal(t, "Go Engineer 102", l.Title)
	assert.Equal(t, domain.FormatDay(time.Now().UTC().AddDate(0, 0, -2)), l.PostedDate)
	assert.Equal(t, "Globex Manila", l.Company)
	assert.Equal(t, "Full time", l.EmploymentType)
	assert.Equal(t, domain.Unspecified, l.Seniority)
	assert.Equal(t, "About the role\n• Go\n• Postgres", l.Description)
	assert.True(t, strings.HasSuffix(l.URL, "/job/102"))
}

func TestAdapter_DetailFailureDropsRecord(t *testing.T) {
	t.Parallel()

	s := &site{
		pages:    map[int][]string{1: {"1", "2", "3"}},
		posted:   map[string]string{"1": "Posted 1d ago", "2": "Posted 1d ago", "3": "Posted 1d ago"},
		failJobs: map[string]bool{"2": true},
	}
	a := newAdapter(t, s)
	_, err := a.StartCollection(context.Background(), domain.SearchParameters{DateRange: domain.PastMonth})
	require.NoError(t, err)

	records, err := a.Collect(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 1, a.Dropped())
}

func TestAdapter_SearchURLWithoutKeywords(t *testing.T) {
	t.Parallel()

	a := jobstreet.New(jobstreet.Options{SiteURL: "https://www.jobstreet.com.ph/"}, nil, nil)
	_, err := a.StartCollection(context.Background(), domain.SearchParameters{DateRange: domain.PastMonth})
	require.NoError(t, err)
	assert.Equal(t, "https://www.jobstreet.com.ph/jobs?daterange=31&page=3", a.SearchURL(2))
}

func TestParseDetail(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fmt.Sprintf(detailTemplate, "Data Engineer", "Posted 3d ago")))
	require.NoError(t, err)

	rec := jobstreet.ParseDetail(doc.Selection, now)
	require.NotNil(t, rec)
	assert.Equal(t, "Data Engineer", rec["title"])
	assert.Equal(t, "2024-03-17", rec["listing_date"])
	assert.Equal(t, "Taguig City", rec["location"])

	empty, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><p>Not found</p></body></html>"))
	require.NoError(t, err)
	assert.Nil(t, jobstreet.ParseDetail(empty.Selection, now))
}

func TestDecodeOptions(t *testing.T) {
	t.Parallel()

	opts, err := jobstreet.DecodeOptions(map[string]any{"request_timeout": "20s", "max_pages": 5})
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, opts.RequestTimeout)
	assert.Equal(t, 5, opts.MaxPages)
}
