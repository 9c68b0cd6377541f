package domain

import (
	"fmt"
	"time"
)

// ScheduleEntry is a persisted recurring trigger for an operation.
type ScheduleEntry struct {
	ID               string     `db:"id"                 json:"id"`
	CronLikeInterval string     `db:"cron_like_interval" json:"cronLikeInterval"`
	IntervalMinutes  int        `db:"interval_minutes"   json:"intervalMinutes"`
	Sources          SourceList `db:"sources"            json:"sourceSet"`
	DateRange        DateRange  `db:"date_range"         json:"dateRange"`
	Keywords         string     `db:"keywords"           json:"keywords"`
	Owner            string     `db:"owner"              json:"owner"`
	Enabled          bool       `db:"enabled"            json:"enabled"`
	LastRunAt        *time.Time `db:"last_run_at"        json:"lastRunAt"`
	RunCount         int        `db:"run_count"          json:"runCount"`
	CreatedAt        time.Time  `db:"created_at"         json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at"         json:"updatedAt"`
}

// Params returns the stored search parameters, owned by the entry's owner.
func (e *ScheduleEntry) Params() SearchParameters {
	return SearchParameters{
		Sources:        append([]Source(nil), e.Sources...),
		DateRange:      e.DateRange,
		Keywords:       e.Keywords,
		RequestingUser: e.Owner,
	}
}

// Spec returns the cron expression driving the entry.
func (e *ScheduleEntry) Spec() string {
	if e.CronLikeInterval != "" {
		return e.CronLikeInterval
	}
	return fmt.Sprintf("@every %dm", e.IntervalMinutes)
}
