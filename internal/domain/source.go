// Package domain holds the canonical model shared by adapters, scrape jobs,
// the orchestrator and the task layer.
package domain

import (
	"fmt"
	"strings"
)

// Source identifies one external job-listing provider.
type Source string

// Known sources.
const (
	SourceLinkedIn  Source = "linkedin"
	SourceIndeed    Source = "indeed"
	SourceKalibrr   Source = "kalibrr"
	SourceJobStreet Source = "jobstreet"
)

// AllSources lists every source the service knows about, in display order.
var AllSources = []Source{SourceLinkedIn, SourceIndeed, SourceKalibrr, SourceJobStreet}

// ParseSource converts an id (case-insensitive) into a Source.
func ParseSource(id string) (Source, error) {
	s := Source(strings.ToLower(strings.TrimSpace(id)))
	for _, known := range AllSources {
		if s == known {
			return s, nil
		}
	}
	return "", NewValidationError("sources", fmt.Sprintf("unknown source %q", id))
}

func (s Source) String() string {
	return string(s)
}
