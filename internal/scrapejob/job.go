package scrapejob

import (
	"time"

	"github.com/jonesrussell/jobsweep/internal/domain"
)

// Job is the record of one source's run inside an operation.
type Job struct {
	Source           domain.Source
	Params           domain.SearchParameters
	Channel          string
	State            domain.JobState
	Attempts         int
	StartedAt        time.Time
	LastTransitionAt time.Time

	// Listings is set only when State is sending_result.
	Listings []domain.Listing
	// ErrorDetail and Err are set only when State is error.
	ErrorDetail string
	Err         error

	Warnings       []string
	DroppedRecords int
}

// Succeeded reports whether the job reached sending_result.
func (j *Job) Succeeded() bool {
	return j.State.Succeeded()
}
