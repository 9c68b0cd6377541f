package brightdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/jobsweep/internal/adapter"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
)

// Adapter is a polling adapter over one BrightData dataset profile.
type Adapter struct {
	adapter.WarningList

	client  *Client
	profile Profile
	opts    Options
	log     logger.Logger
	now     func() time.Time

	params domain.SearchParameters
}

// New creates an adapter for profile. A fresh adapter is needed per scrape job.
func New(client *Client, profile Profile, opts Options, log logger.Logger) *Adapter {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.DatasetID != "" {
		profile.DatasetID = opts.DatasetID
	}
	return &Adapter{
		client:  client,
		profile: profile,
		opts:    opts,
		log:     log.With(logger.String("source", profile.Source.String())),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Source implements adapter.Adapter.
func (a *Adapter) Source() domain.Source { return a.profile.Source }

// Mode implements adapter.Adapter.
func (a *Adapter) Mode() adapter.Mode { return adapter.ModePolling }

// StartCollection triggers a snapshot and returns its id as the handle.
func (a *Adapter) StartCollection(ctx context.Context, params domain.SearchParameters) (adapter.Start, error) {
	a.params = params
	payload := a.profile.Payload(params, a.opts, &a.WarningList)

	a.log.Debug("Requesting snapshot",
		logger.String("dataset_id", a.profile.DatasetID),
		logger.Any("payload", payload),
	)

	id, err := a.client.Trigger(ctx, a.profile.DatasetID, []map[string]any{payload})
	if err != nil {
		return adapter.Start{}, err
	}
	a.log.Info("Job listings request successful", logger.String("snapshot_id", id))
	return adapter.Start{Handle: adapter.Handle(id)}, nil
}

// PollStatus maps snapshot progress onto adapter poll states. Unknown
// statuses are treated as still running.
func (a *Adapter) PollStatus(ctx context.Context, h adapter.Handle) (adapter.PollStatus, string, error) {
	p, err := a.client.Progress(ctx, string(h))
	if err != nil {
		return "", "", err
	}
	switch p.Status {
	case "ready":
		return adapter.PollReady, "", nil
	case "failed":
		return adapter.PollFailed, fmt.Sprintf("BrightData failed: %s", p.ErrorMessage), nil
	case "running", "building", "collecting", "digesting":
		return adapter.PollRunning, "", nil
	default:
		a.log.Warn("Unknown snapshot status", logger.String("status", p.Status))
		return adapter.PollRunning, "", nil
	}
}

// Collect downloads the snapshot. Profiles without a native window are
// filtered on their posted date here; undated records are kept.
func (a *Adapter) Collect(ctx context.Context, h adapter.Handle) ([]adapter.RawRecord, error) {
	rows, err := a.client.Snapshot(ctx, string(h))
	if err != nil {
		return nil, err
	}

	now := a.now()
	records := make([]adapter.RawRecord, 0, len(rows))
	for _, row := range rows {
		rec := adapter.RawRecord(row)
		if a.profile.FilterByDate && a.params.DateRange.Valid() {
			if posted, ok := adapter.ParseDate(adapter.StringField(rec, a.profile.Fields.PostedDate)); ok &&
				!a.params.DateRange.Contains(truncateDay(posted), now) {
				continue
			}
		}
		records = append(records, rec)
	}

	a.log.Debug("Snapshot retrieved",
		logger.Int("items", len(rows)),
		logger.Int("kept", len(records)),
	)
	return records, nil
}

// MapToCanonical maps a snapshot record through the profile's field map.
func (a *Adapter) MapToCanonical(rec adapter.RawRecord) (domain.Listing, error) {
	f := a.profile.Fields
	field := func(name string) string {
		if name == "" {
			return domain.Unspecified
		}
		return domain.OrUnspecified(adapter.StringField(rec, name))
	}

	l := domain.Listing{
		Source:         a.profile.Source,
		PostedDate:     adapter.NormalizeDate(adapter.StringField(rec, f.PostedDate)),
		Title:          adapter.StringField(rec, f.Title),
		Company:        field(f.Company),
		Location:       field(f.Location),
		EmploymentType: field(f.EmploymentType),
		Seniority:      field(f.Seniority),
		Compensation:   field(f.Compensation),
		Description:    field(f.Description),
		URL:            adapter.StringField(rec, f.URL),
	}
	if err := l.Validate(); err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
