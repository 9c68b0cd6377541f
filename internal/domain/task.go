package domain

import "time"

// Task is one queued request to run the orchestrator.
type Task struct {
	ID         string           `json:"id"`
	ScheduleID string           `json:"scheduleId,omitempty"`
	Params     SearchParameters `json:"params"`
	EnqueuedAt time.Time        `json:"enqueuedAt"`
}

// TaskStatus is the externally visible status of a task.
type TaskStatus string

// Task statuses.
const (
	TaskPending       TaskStatus = "pending"
	TaskRunning       TaskStatus = "running"
	TaskSuccess       TaskStatus = "success"
	TaskPartial       TaskStatus = "partial"
	TaskFailed        TaskStatus = "failed"
	TaskInternalError TaskStatus = "internal_error"
)

// IsTerminal reports whether the task has a final result.
func (s TaskStatus) IsTerminal() bool {
	return s != TaskPending && s != TaskRunning
}

// TaskStatusFor converts an operation outcome into a task status.
func TaskStatusFor(o Outcome) TaskStatus {
	switch o {
	case OutcomeSuccess:
		return TaskSuccess
	case OutcomePartial:
		return TaskPartial
	case OutcomeFailed:
		return TaskFailed
	default:
		return TaskInternalError
	}
}

// TaskResult is what clients retrieve by task id. Owner is the requesting
// user; only they may read the result.
type TaskResult struct {
	TaskID        string            `json:"taskId"`
	Owner         string            `json:"owner,omitempty"`
	Status        TaskStatus        `json:"status"`
	ListingsCount int               `json:"listingsCount"`
	Listings      []Listing         `json:"listings"`
	SourceErrors  map[Source]string `json:"sourceErrors,omitempty"`
	StartedAt     *time.Time        `json:"startedAt,omitempty"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
}

// ResultFromOperation builds the terminal TaskResult for op.
func ResultFromOperation(op *Operation, startedAt time.Time) TaskResult {
	listings := []Listing(op.AggregatedListings)
	if listings == nil {
		listings = []Listing{}
	}
	res := TaskResult{
		TaskID:        op.TaskID,
		Owner:         op.RequestingUser,
		Status:        TaskStatusFor(op.Outcome),
		ListingsCount: len(listings),
		Listings:      listings,
		StartedAt:     &startedAt,
		CompletedAt:   op.CompletedAt,
	}
	if len(op.PerSourceError) > 0 {
		res.SourceErrors = make(map[Source]string, len(op.PerSourceError))
		for s, msg := range op.PerSourceError {
			res.SourceErrors[s] = msg
		}
	}
	return res
}
