package jobstreet

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonesrussell/jobsweep/internal/adapter"
	"github.com/jonesrussell/jobsweep/internal/domain"
)

const (
	selTitle       = "h1[data-automation='job-detail-title']"
	selCompany     = "span[data-automation='advertiser-name']"
	selLocation    = "span[data-automation='job-detail-location']"
	selWorkType    = "span[data-automation='job-detail-work-type']"
	selSalary      = "span[data-automation='job-detail-salary'], span[data-automation='job-detail-add-expected-salary']"
	selDescription = "div[data-automation='jobAdDetails']"
	selPosted      = "span:contains('Posted')"
)

// ParseDetail extracts a raw record from a job detail document. Relative
// "Posted 3d ago" dates are resolved against now; anything else is kept
// verbatim for the date normalizer to judge.
func ParseDetail(doc *goquery.Selection, now time.Time) adapter.RawRecord {
	if doc.Find(selTitle).Length() == 0 {
		return nil
	}
	rec := adapter.RawRecord{
		"title":     text(doc, selTitle),
		"company":   text(doc, selCompany),
		"location":  text(doc, selLocation),
		"work_type": text(doc, selWorkType),
		"salary":    text(doc, selSalary),
	}

	if html, err := doc.Find(selDescription).First().Html(); err == nil {
		rec["description"] = adapter.FlattenHTML(html)
	}

	posted := text(doc, selPosted)
	if t, ok := adapter.ParseRelativeDate(posted, now); ok {
		posted = domain.FormatDay(t)
	}
	rec["listing_date"] = posted
	return rec
}

func text(doc *goquery.Selection, selector string) string {
	return strings.Join(strings.Fields(doc.Find(selector).First().Text()), " ")
}
