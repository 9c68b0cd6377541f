package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateRange is the requested posting window.
type DateRange string

// Supported windows.
const (
	Past24Hours DateRange = "PAST_24_HOURS"
	PastWeek    DateRange = "PAST_WEEK"
	Past15Days  DateRange = "PAST_15_DAYS"
	PastMonth   DateRange = "PAST_MONTH"
)

const hoursPerDay = 24

var dateRangeDays = map[DateRange]int{
	Past24Hours: 1,
	PastWeek:    7,
	Past15Days:  15,
	PastMonth:   30,
}

// legacy human labels accepted from older clients
var dateRangeLabels = map[string]DateRange{
	"past 24 hours": Past24Hours,
	"past week":     PastWeek,
	"past 15 days":  Past15Days,
	"past month":    PastMonth,
}

// ParseDateRange accepts an enum key (PAST_WEEK) or a label ("Past week").
func ParseDateRange(v string) (DateRange, error) {
	key := DateRange(strings.ToUpper(strings.TrimSpace(v)))
	if _, ok := dateRangeDays[key]; ok {
		return key, nil
	}
	if dr, ok := dateRangeLabels[strings.ToLower(strings.TrimSpace(v))]; ok {
		return dr, nil
	}
	return "", NewValidationError("dateRange", fmt.Sprintf("unknown date range %q", v))
}

// Valid reports whether d is a known window.
func (d DateRange) Valid() bool {
	_, ok := dateRangeDays[d]
	return ok
}

// Days returns the window length in days.
func (d DateRange) Days() int {
	return dateRangeDays[d]
}

// Label returns the human label.
func (d DateRange) Label() string {
	for label, dr := range dateRangeLabels {
		if dr == d {
			return strings.ToUpper(label[:1]) + label[1:]
		}
	}
	return string(d)
}

// WindowStart returns the first day inside the window, at midnight in now's
// location. Listings posted on or after it are in range.
func (d DateRange) WindowStart(now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.Add(-time.Duration(d.Days()*hoursPerDay) * time.Hour)
}

// Contains reports whether posted (day precision) falls within [WindowStart, now].
func (d DateRange) Contains(posted, now time.Time) bool {
	start := d.WindowStart(now)
	return !posted.Before(start) && !posted.After(now)
}
