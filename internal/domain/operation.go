package domain

import "time"

// Outcome summarizes how an operation ended.
type Outcome string

// Operation outcomes.
const (
	OutcomeSuccess       Outcome = "success"
	OutcomePartial       Outcome = "partial"
	OutcomeFailed        Outcome = "failed"
	OutcomeInternalError Outcome = "internal_error"
)

// Operation is one user-visible run across one or more sources.
type Operation struct {
	RequestID          string       `db:"request_id"      json:"requestId"`
	TaskID             string       `db:"task_id"         json:"taskId"`
	RequestingUser     string       `db:"requesting_user" json:"requestingUser"`
	Sources            SourceList   `db:"sources"         json:"sources"`
	DateRange          DateRange    `db:"date_range"      json:"dateRange"`
	Keywords           string       `db:"keywords"        json:"keywords"`
	PerSourceState     SourceStates `db:"per_source_state" json:"perSourceState"`
	PerSourceError     SourceErrors `db:"per_source_error" json:"perSourceError,omitempty"`
	PerSourceCount     SourceCounts `db:"per_source_count" json:"perSourceCount"`
	AggregatedListings Listings     `db:"listings"        json:"listings"`
	ListingsCount      int          `db:"listings_count"  json:"listingsCount"`
	Outcome            Outcome      `db:"outcome"         json:"outcome"`
	CreatedAt          time.Time    `db:"created_at"      json:"createdAt"`
	CompletedAt        *time.Time   `db:"completed_at"    json:"completedAt,omitempty"`
}

// NewOperation creates an operation for params with every source idle.
func NewOperation(requestID, taskID string, params SearchParameters, now time.Time) *Operation {
	op := &Operation{
		RequestID:      requestID,
		TaskID:         taskID,
		RequestingUser: params.RequestingUser,
		Sources:        append(SourceList(nil), params.Sources...),
		DateRange:      params.DateRange,
		Keywords:       params.Keywords,
		PerSourceState: make(SourceStates, len(params.Sources)),
		PerSourceError: make(SourceErrors),
		PerSourceCount: make(SourceCounts, len(params.Sources)),
		CreatedAt:      now,
	}
	for _, s := range params.Sources {
		op.PerSourceState[s] = JobStateIdle
	}
	return op
}

// Params rebuilds the search parameters the operation ran with.
func (o *Operation) Params() SearchParameters {
	return SearchParameters{
		Sources:        append([]Source(nil), o.Sources...),
		DateRange:      o.DateRange,
		Keywords:       o.Keywords,
		RequestingUser: o.RequestingUser,
	}
}
