package brightdata

import (
	"fmt"

	"github.com/jonesrussell/jobsweep/internal/adapter"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/mitchellh/mapstructure"
)

// FieldMap names the snapshot fields that feed each canonical field. An
// empty name means the source never provides that field.
type FieldMap struct {
	PostedDate     string
	Title          string
	Company        string
	Location       string
	EmploymentType string
	Seniority      string
	Compensation   string
	Description    string
	URL            string
}

// Options are the per-source knobs read from adapters.<source>.options.
type Options struct {
	DatasetID string `mapstructure:"dataset_id"`
	Location  string `mapstructure:"location"`
	Country   string `mapstructure:"country"`
	Domain    string `mapstructure:"domain"`
}

// DecodeOptions decodes a raw option map from configuration.
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	if len(raw) == 0 {
		return opts, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return opts, fmt.Errorf("failed to create options decoder: %w", err)
	}
	if err = dec.Decode(raw); err != nil {
		return opts, fmt.Errorf("failed to decode brightdata options: %w", err)
	}
	return opts, nil
}

// Profile binds a source to its dataset, request payload and field map.
type Profile struct {
	Source    domain.Source
	DatasetID string
	Fields    FieldMap
	// FilterByDate is set when the dataset cannot express the requested
	// window, so records are filtered on their posted date after collection.
	FilterByDate bool
	payload      func(p domain.SearchParameters, o Options, w *adapter.WarningList) map[string]any
}

// Payload builds the trigger payload entry for params.
func (p Profile) Payload(params domain.SearchParameters, opts Options, w *adapter.WarningList) map[string]any {
	return p.payload(params, opts, w)
}

var linkedInTimeRanges = map[domain.DateRange]string{
	domain.Past24Hours: "Past 24 hours",
	domain.PastWeek:    "Past week",
	domain.PastMonth:   "Past month",
}

// LinkedIn returns the LinkedIn jobs dataset profile.
func LinkedIn(datasetID string) Profile {
	return Profile{
		Source:    domain.SourceLinkedIn,
		DatasetID: datasetID,
		Fields: FieldMap{
			PostedDate:     "job_posted_date",
			Title:          "job_title",
			Company:        "company_name",
			Location:       "job_location",
			EmploymentType: "job_employment_type",
			Seniority:      "job_seniority_level",
			Compensation:   "job_base_pay_range",
			Description:    "job_summary",
			URL:            "url",
		},
		payload: linkedInPayload,
	}
}

func linkedInPayload(params domain.SearchParameters, opts Options, w *adapter.WarningList) map[string]any {
	timeRange, ok := linkedInTimeRanges[params.DateRange]
	if !ok {
		timeRange = linkedInTimeRanges[domain.PastMonth]
		w.Warn("LinkedIn does not support %s, searching %s instead", params.DateRange.Label(), timeRange)
	}
	return map[string]any{
		"keyword":    params.Keywords,
		"location":   opts.Location,
		"country":    opts.Country,
		"time_range": timeRange,
	}
}

// Indeed returns the Indeed jobs dataset profile.
func Indeed(datasetID string) Profile {
	return Profile{
		Source:    domain.SourceIndeed,
		DatasetID: datasetID,
		Fields: FieldMap{
			PostedDate:     "date_posted_parsed",
			Title:          "job_title",
			Company:        "company_name",
			Location:       "location",
			EmploymentType: "job_type",
			Compensation:   "salary_formatted",
			Description:    "description_text",
			URL:            "url",
		},
		FilterByDate: true,
		payload:      indeedPayload,
	}
}

func indeedPayload(params domain.SearchParameters, opts Options, _ *adapter.WarningList) map[string]any {
	country := opts.Country
	if country == "" {
		country = "US"
	}
	site := opts.Domain
	if site == "" {
		site = "indeed.com"
	}
	return map[string]any{
		"keyword_search": params.Keywords,
		"location":       opts.Location,
		"country":        country,
		"domain":         site,
	}
}
