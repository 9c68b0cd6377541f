package adapter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/jobsweep/internal/domain"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	domain.DayLayout,
	"01-02-06",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate parses the date formats seen across sources.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate converts raw into the canonical day format, or Unspecified
// when it cannot be parsed.
func NormalizeDate(raw string) string {
	t, ok := ParseDate(raw)
	if !ok {
		return domain.Unspecified
	}
	return domain.FormatDay(t.UTC())
}

var relativeDatePattern = regexp.MustCompile(`(?i)(\d+)\s*(m|h|d)\s*ago`)

// ParseRelativeDate converts "Posted 3d ago" style strings relative to now.
func ParseRelativeDate(raw string, now time.Time) (time.Time, bool) {
	m := relativeDatePattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	switch strings.ToLower(m[2]) {
	case "m":
		return now.Add(-time.Duration(n) * time.Minute), true
	case "h":
		return now.Add(-time.Duration(n) * time.Hour), true
	default:
		return now.AddDate(0, 0, -n), true
	}
}

// StringField reads a string value from rec, tolerating missing keys and
// non-string values.
func StringField(rec RawRecord, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return ""
	}
}
