package domain

// JobState is the lifecycle state of a single scrape job.
type JobState string

// Scrape job states.
const (
	JobStateIdle           JobState = "idle"
	JobStateRequestingData JobState = "requesting_data"
	JobStateWaitingData    JobState = "waiting_data"
	JobStateProcessingData JobState = "processing_data"
	JobStateSendingResult  JobState = "sending_result"
	JobStateError          JobState = "error"
)

// IsTerminal reports whether no further transitions are possible.
func (s JobState) IsTerminal() bool {
	return s == JobStateSendingResult || s == JobStateError
}

// Succeeded reports whether the job finished with results.
func (s JobState) Succeeded() bool {
	return s == JobStateSendingResult
}

// PlatformState is the coarse, user-facing state of a source.
type PlatformState string

// Platform states.
const (
	PlatformIdle       PlatformState = "idle"
	PlatformWaiting    PlatformState = "waiting"
	PlatformProcessing PlatformState = "processing"
	PlatformFinished   PlatformState = "finished"
	PlatformError      PlatformState = "error"
)

// Platform maps a job state onto the platform state shown to users.
func (s JobState) Platform() PlatformState {
	switch s {
	case JobStateRequestingData, JobStateWaitingData:
		return PlatformWaiting
	case JobStateProcessingData:
		return PlatformProcessing
	case JobStateSendingResult:
		return PlatformFinished
	case JobStateError:
		return PlatformError
	default:
		return PlatformIdle
	}
}
