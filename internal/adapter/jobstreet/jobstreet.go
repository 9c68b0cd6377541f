// Package jobstreet implements the paginating adapter for JobStreet search
// and job detail pages.
package jobstreet

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/jonesrussell/jobsweep/internal/adapter"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
	"github.com/mitchellh/mapstructure"
)

const (
	defaultSiteURL        = "https://www.jobstreet.com.ph"
	defaultRequestTimeout = 30 * time.Second
	defaultUserAgent      = "Mozilla/5.0 (compatible; jobsweep/1.0)"
)

// dateRangeDays maps windows onto the site's daterange query values.
var dateRangeDays = map[domain.DateRange]int{
	domain.Past24Hours: 1,
	domain.PastWeek:    7,
	domain.Past15Days:  15,
	domain.PastMonth:   31,
}

// Options are read from adapters.jobstreet.options.
type Options struct {
	SiteURL        string        `mapstructure:"site_url"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxPages       int           `mapstructure:"max_pages"`
}

// DecodeOptions decodes a raw option map from configuration. Durations may be
// given as strings ("20s").
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return opts, fmt.Errorf("failed to create options decoder: %w", err)
	}
	if err = dec.Decode(raw); err != nil {
		return opts, fmt.Errorf("failed to decode jobstreet options: %w", err)
	}
	return opts, nil
}

func (o *Options) setDefaults() {
	if o.SiteURL == "" {
		o.SiteURL = defaultSiteURL
	}
	o.SiteURL = strings.TrimRight(o.SiteURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
}

// Adapter walks JobStreet search pages and visits each job's detail page.
type Adapter struct {
	opts    Options
	limiter *adapter.HostLimiter
	log     logger.Logger
	now     func() time.Time

	params  domain.SearchParameters
	dropped int
}

// New creates a JobStreet adapter. limiter may be nil.
func New(opts Options, limiter *adapter.HostLimiter, log logger.Logger) *Adapter {
	opts.setDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &Adapter{
		opts:    opts,
		limiter: limiter,
		log:     log.With(logger.String("source", domain.SourceJobStreet.String())),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Source implements adapter.Adapter.
func (a *Adapter) Source() domain.Source { return domain.SourceJobStreet }

// Mode implements adapter.Adapter.
func (a *Adapter) Mode() adapter.Mode { return adapter.ModePaginating }

// StartCollection records the parameters; pages are fetched in Collect.
func (a *Adapter) StartCollection(_ context.Context, params domain.SearchParameters) (adapter.Start, error) {
	a.params = params
	a.log.Info("Retrieving job listings from Jobstreet, this may take a few minutes")
	return adapter.Start{Immediate: true}, nil
}

// PollStatus is always ready for a paginating source.
func (a *Adapter) PollStatus(context.Context, adapter.Handle) (adapter.PollStatus, string, error) {
	return adapter.PollReady, "", nil
}

// Collect runs the shared pagination loop over search pages.
func (a *Adapter) Collect(ctx context.Context, _ adapter.Handle) ([]adapter.RawRecord, error) {
	res, err := adapter.Paginate(ctx, a, adapter.PaginateOptions{
		Window:   a.params.DateRange,
		Now:      a.now(),
		MaxPages: a.opts.MaxPages,
		Logger:   a.log,
	})
	a.dropped = res.Dropped
	if err != nil {
		return nil, err
	}
	a.log.Info(fmt.Sprintf("Total listings found on Jobstreet: %d", len(res.Records)),
		logger.Int("pages", res.Pages),
		logger.Int("dropped", res.Dropped),
	)
	return res.Records, nil
}

// Dropped implements adapter.DropReporter.
func (a *Adapter) Dropped() int { return a.dropped }

// SearchURL builds the search page URL for a zero-based page.
func (a *Adapter) SearchURL(page int) string {
	path := "jobs"
	if kw := strings.Join(strings.Fields(a.params.Keywords), "-"); kw != "" {
		path = url.PathEscape(strings.ToLower(kw)) + "-jobs"
	}
	q := url.Values{}
	if days, ok := dateRangeDays[a.params.DateRange]; ok {
		q.Set("daterange", strconv.Itoa(days))
	}
	q.Set("page", strconv.Itoa(page+1))
	return a.opts.SiteURL + "/" + path + "?" + q.Encode()
}

func (a *Adapter) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(a.opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(a.opts.RequestTimeout)
	return c
}

// visit fetches target with a fresh collector and classifies failures as
// transport errors.
func (a *Adapter) visit(ctx context.Context, c *colly.Collector, target string) error {
	if err := a.limiter.WaitURL(ctx, target); err != nil {
		return err
	}
	if err := c.Visit(target); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: failed to visit %s: %w", domain.ErrAdapterTransport, target, err)
	}
	return nil
}

// FetchPage implements adapter.PageSource.
func (a *Adapter) FetchPage(ctx context.Context, page int) ([]adapter.RawRecord, error) {
	c := a.newCollector(ctx)

	var candidates []adapter.RawRecord
	seen := make(map[string]struct{})
	c.OnHTML("article[data-job-id]", func(e *colly.HTMLElement) {
		id := strings.TrimSpace(e.Attr("data-job-id"))
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		candidates = append(candidates, adapter.RawRecord{
			"job_id":   id,
			"job_link": a.opts.SiteURL + "/job/" + url.PathEscape(id),
		})
	})

	target := a.SearchURL(page)
	a.log.Debug("Fetching search page", logger.String("url", target))
	if err := a.visit(ctx, c, target); err != nil {
		return nil, err
	}
	return candidates, nil
}

// FetchDetail implements adapter.PageSource.
func (a *Adapter) FetchDetail(ctx context.Context, candidate adapter.RawRecord) (adapter.RawRecord, error) {
	link := adapter.StringField(candidate, "job_link")
	c := a.newCollector(ctx)

	var rec adapter.RawRecord
	c.OnHTML("html", func(e *colly.HTMLElement) {
		rec = ParseDetail(e.DOM, a.now())
	})

	if err := a.visit(ctx, c, link); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: no job details on %s", domain.ErrMapping, link)
	}
	rec["job_id"] = candidate["job_id"]
	rec["job_link"] = link
	return rec, nil
}

// MapToCanonical implements adapter.Adapter.
func (a *Adapter) MapToCanonical(rec adapter.RawRecord) (domain.Listing, error) {
	l := domain.Listing{
		Source:         domain.SourceJobStreet,
		PostedDate:     adapter.NormalizeDate(adapter.StringField(rec, "listing_date")),
		Title:          adapter.StringField(rec, "title"),
		Company:        domain.OrUnspecified(adapter.StringField(rec, "company")),
		Location:       domain.OrUnspecified(adapter.StringField(rec, "location")),
		EmploymentType: domain.OrUnspecified(adapter.StringField(rec, "work_type")),
		Seniority:      domain.OrUnspecified(adapter.StringField(rec, "position")),
		Compensation:   domain.OrUnspecified(adapter.StringField(rec, "salary")),
		Description:    domain.OrUnspecified(adapter.StringField(rec, "description")),
		URL:            adapter.StringField(rec, "job_link"),
	}
	if err := l.Validate(); err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}
