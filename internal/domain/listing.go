package domain

import (
	"fmt"
	"strings"
	"time"
)

// Unspecified marks an optional listing field the source did not provide or
// that could not be mapped.
const Unspecified = "unspecified"

// DayLayout is the canonical day-precision format for Listing.PostedDate.
const DayLayout = "2006-01-02"

// Listing is the canonical job listing. It is treated as immutable once an
// adapter's MapToCanonical returns it.
type Listing struct {
	Source         Source `json:"source"`
	PostedDate     string `json:"postedDate"`
	Title          string `json:"title"`
	Company        string `json:"company"`
	Location       string `json:"location"`
	EmploymentType string `json:"employmentType"`
	Seniority      string `json:"seniority"`
	Compensation   string `json:"compensation"`
	Description    string `json:"description"`
	URL            string `json:"url"`
}

// Validate checks the fields a returned listing must always carry.
func (l Listing) Validate() error {
	if strings.TrimSpace(l.URL) == "" {
		return fmt.Errorf("%w: listing has no url", ErrMapping)
	}
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("%w: listing %s has no title", ErrMapping, l.URL)
	}
	return nil
}

// Posted parses PostedDate. ok is false when the date is unspecified.
func (l Listing) Posted() (time.Time, bool) {
	if l.PostedDate == "" || l.PostedDate == Unspecified {
		return time.Time{}, false
	}
	t, err := time.Parse(DayLayout, l.PostedDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// OrUnspecified returns the trimmed value or the Unspecified sentinel.
func OrUnspecified(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return Unspecified
	}
	return v
}

// FormatDay renders t in the canonical day format.
func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}
