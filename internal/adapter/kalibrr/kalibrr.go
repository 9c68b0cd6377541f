// Package kalibrr implements the paginating adapter for the Kalibrr job
// board JSON API.
package kalibrr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonesrussell/jobsweep/internal/adapter"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
	"github.com/mitchellh/mapstructure"
)

const (
	defaultSiteURL  = "https://www.kalibrr.com"
	searchPath      = "/kjs/job_board/search"
	defaultPageSize = 15
	defaultCountry  = "Philippines"
	defaultFunction = "IT and Software"
	defaultTimeout  = 30 * time.Second

	minErrorStatusCode = 400
)

// Options are read from adapters.kalibrr.options.
type Options struct {
	SiteURL  string `mapstructure:"site_url"`
	Country  string `mapstructure:"country"`
	Function string `mapstructure:"function"`
	PageSize int    `mapstructure:"page_size"`
	MaxPages int    `mapstructure:"max_pages"`
}

// DecodeOptions decodes a raw option map from configuration.
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	if err := mapstructure.WeakDecode(raw, &opts); err != nil {
		return opts, fmt.Errorf("failed to decode kalibrr options: %w", err)
	}
	return opts, nil
}

func (o *Options) setDefaults() {
	if o.SiteURL == "" {
		o.SiteURL = defaultSiteURL
	}
	if o.Country == "" {
		o.Country = defaultCountry
	}
	if o.Function == "" {
		o.Function = defaultFunction
	}
	if o.PageSize <= 0 {
		o.PageSize = defaultPageSize
	}
}

// Adapter collects listings page by page, newest first.
type Adapter struct {
	opts       Options
	httpClient *http.Client
	limiter    *adapter.HostLimiter
	log        logger.Logger
	now        func() time.Time

	params  domain.SearchParameters
	dropped int
}

// New creates a Kalibrr adapter. limiter may be nil.
func New(opts Options, httpClient *http.Client, limiter *adapter.HostLimiter, log logger.Logger) *Adapter {
	opts.setDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Adapter{
		opts:       opts,
		httpClient: httpClient,
		limiter:    limiter,
		log:        log.With(logger.String("source", domain.SourceKalibrr.String())),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Source implements adapter.Adapter.
func (a *Adapter) Source() domain.Source { return domain.SourceKalibrr }

// Mode implements adapter.Adapter.
func (a *Adapter) Mode() adapter.Mode { return adapter.ModePaginating }

// StartCollection records the parameters; data is available immediately.
func (a *Adapter) StartCollection(_ context.Context, params domain.SearchParameters) (adapter.Start, error) {
	a.params = params
	a.log.Info("Retrieving job listings from Kalibrr")
	return adapter.Start{Immediate: true}, nil
}

// PollStatus is always ready for a paginating source.
func (a *Adapter) PollStatus(context.Context, adapter.Handle) (adapter.PollStatus, string, error) {
	return adapter.PollReady, "", nil
}

// Collect pages through the search results until the date window is exhausted.
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
	a.log.Info(fmt.Sprintf("Total listings found on Kalibrr: %d", len(res.Records)),
		logger.Int("pages", res.Pages),
		logger.String("stop", string(res.Stop)),
	)
	return res.Records, nil
}

// Dropped implements adapter.DropReporter.
func (a *Adapter) Dropped() int { return a.dropped }

type searchResponse struct {
	Jobs []map[string]any `json:"jobs"`
}

// FetchPage implements adapter.PageSource.
func (a *Adapter) FetchPage(ctx context.Context, page int) ([]adapter.RawRecord, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(a.opts.PageSize))
	q.Set("offset", strconv.Itoa(page*a.opts.PageSize))
	q.Set("country", a.opts.Country)
	q.Set("sort_direction", "desc")
	q.Set("sort_field", "activation_date")
	q.Set("function", a.opts.Function)
	if a.params.Keywords != "" {
		q.Set("text", a.params.Keywords)
	}
	endpoint := a.opts.SiteURL + searchPath + "?" + q.Encode()

	if err := a.limiter.WaitURL(ctx, endpoint); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", domain.ErrAdapterTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= minErrorStatusCode {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: API error (status %d): %s", domain.ErrAdapterTransport, resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err = json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", domain.ErrAdapterTransport, err)
	}

	records := make([]adapter.RawRecord, 0, len(sr.Jobs))
	for _, j := range sr.Jobs {
		records = append(records, adapter.RawRecord(j))
	}
	return records, nil
}

// FetchDetail implements adapter.PageSource. Search results already carry
// the full job, so there is no detail request.
func (a *Adapter) FetchDetail(_ context.Context, candidate adapter.RawRecord) (adapter.RawRecord, error) {
	return candidate, nil
}
