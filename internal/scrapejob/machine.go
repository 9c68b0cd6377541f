// Package scrapejob runs one source's collection through a fixed state
// machine: idle, requesting_data, waiting_data, processing_data, then
// sending_result or error.
package scrapejob

import (
	"errors"
	"fmt"

	"github.com/jonesrussell/jobsweep/internal/domain"
)

// Event drives the scrape job machine.
type Event string

const (
	EventStart          Event = "start"
	EventHandleReceived Event = "handle_received"
	EventImmediateData  Event = "immediate_data"
	EventDataReady      Event = "data_ready"
	EventResultsMapped  Event = "results_mapped"
	EventFailed         Event = "failed"
)

// ErrInvalidTransition is returned by Fire for an event the current state
// does not accept.
var ErrInvalidTransition = errors.New("invalid scrape job transition")

var validTransitions = map[domain.JobState]map[Event]domain.JobState{
	domain.JobStateIdle: {
		EventStart:  domain.JobStateRequestingData,
		EventFailed: domain.JobStateError,
	},
	domain.JobStateRequestingData: {
		EventHandleReceived: domain.JobStateWaitingData, // polling adapters
		EventImmediateData:  domain.JobStateProcessingData,
		EventFailed:         domain.JobStateError,
	},
	domain.JobStateWaitingData: {
		EventDataReady: domain.JobStateProcessingData,
		EventFailed:    domain.JobStateError,
	},
	domain.JobStateProcessingData: {
		EventResultsMapped: domain.JobStateSendingResult,
		EventFailed:        domain.JobStateError,
	},
	// terminal
	domain.JobStateSendingResult: {},
	domain.JobStateError:         {},
}

// Next returns the state reached from `from` on ev.
func Next(from domain.JobState, ev Event) (domain.JobState, error) {
	events, ok := validTransitions[from]
	if !ok {
		return from, fmt.Errorf("%w: unknown state %s", ErrInvalidTransition, from)
	}
	to, ok := events[ev]
	if !ok {
		return from, fmt.Errorf("%w: %s does not accept %s", ErrInvalidTransition, from, ev)
	}
	return to, nil
}

// Machine holds the current state of one scrape job. It performs no I/O.
type Machine struct {
	state domain.JobState
}

// NewMachine returns a machine in the idle state.
func NewMachine() *Machine {
	return &Machine{state: domain.JobStateIdle}
}

// State returns the current state.
func (m *Machine) State() domain.JobState {
	return m.state
}

// Fire applies ev. The state is unchanged when the transition is invalid.
func (m *Machine) Fire(ev Event) (domain.JobState, error) {
	to, err := Next(m.state, ev)
	if err != nil {
		return m.state, err
	}
	m.state = to
	return to, nil
}
