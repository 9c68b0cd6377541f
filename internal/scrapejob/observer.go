package scrapejob

import "github.com/jonesrussell/jobsweep/internal/domain"

// Observer receives state changes and user-facing messages. The state
// manager implements it.
type Observer interface {
	SetState(channel string, source domain.Source, state domain.PlatformState)
	Info(channel, message string)
	Warn(channel, message string)
	Error(channel, message string)
	Debug(channel, message string)
}

// Recorder counts transitions for metrics.
type Recorder interface {
	RecordTransition(source domain.Source, state domain.JobState)
}

type nopObserver struct{}

func (nopObserver) SetState(string, domain.Source, domain.PlatformState) {}
func (nopObserver) Info(string, string)                                  {}
func (nopObserver) Warn(string, string)                                  {}
func (nopObserver) Error(string, string)                                 {}
func (nopObserver) Debug(string, string)                                 {}

type nopRecorder struct{}

func (nopRecorder) RecordTransition(domain.Source, domain.JobState) {}
