// Package statemanager keeps the process-wide platform-state table and
// publishes state changes and progress messages to user channels.
package statemanager

import (
	"context"
	"maps"
	"sync"

	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
	"github.com/jonesrussell/jobsweep/internal/sse"
)

// Manager holds the latest platform state per source. It never owns jobs;
// scrape runners report to it.
type Manager struct {
	mu        sync.Mutex
	states    map[domain.Source]domain.PlatformState
	publisher sse.Publisher
	log       logger.Logger
}

// New creates a manager with every source idle.
func New(sources []domain.Source, publisher sse.Publisher, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	m := &Manager{
		states:    make(map[domain.Source]domain.PlatformState, len(sources)),
		publisher: publisher,
		log:       log.With(logger.String("component", "statemanager")),
	}
	for _, s := range sources {
		m.states[s] = domain.PlatformIdle
	}
	return m
}

// SetState records state for source and publishes it to channel. Publishing
// happens under the table lock so a channel sees each source's transitions
// in the order they were made.
func (m *Manager) SetState(channel string, source domain.Source, state domain.PlatformState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[source] = state
	m.publish(sse.NewPlatformStateEvent(channel, map[domain.Source]domain.PlatformState{source: state}))
}

// Snapshot returns a copy of the table.
func (m *Manager) Snapshot() map[domain.Source]domain.PlatformState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.states)
}

// Reset sets sources back to idle and publishes them to channel. With no
// sources every tracked source is reset. An empty channel broadcasts.
func (m *Manager) Reset(channel string, sources ...domain.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(sources) == 0 {
		for s := range m.states {
			m.states[s] = domain.PlatformIdle
		}
		m.publish(sse.NewPlatformStateEvent(channel, maps.Clone(m.states)))
		return
	}

	changed := make(map[domain.Source]domain.PlatformState, len(sources))
	for _, s := range sources {
		if _, ok := m.states[s]; !ok {
			continue
		}
		m.states[s] = domain.PlatformIdle
		changed[s] = domain.PlatformIdle
	}
	if len(changed) > 0 {
		m.publish(sse.NewPlatformStateEvent(channel, changed))
	}
}

// Info publishes an info message.
func (m *Manager) Info(channel, message string) {
	m.log.Info(message, logger.String("channel", channel))
	m.message(channel, sse.TypeInfo, message)
}

// Warn publishes a warning message.
func (m *Manager) Warn(channel, message string) {
	m.log.Warn(message, logger.String("channel", channel))
	m.message(channel, sse.TypeWarning, message)
}

// Error publishes an error message.
func (m *Manager) Error(channel, message string) {
	m.log.Error(message, logger.String("channel", channel))
	m.message(channel, sse.TypeError, message)
}

// Debug publishes a debug message.
func (m *Manager) Debug(channel, message string) {
	m.log.Debug(message, logger.String("channel", channel))
	m.message(channel, sse.TypeDebug, message)
}

func (m *Manager) message(channel, typ, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publish(sse.NewMessageEvent(channel, typ, message))
}

// publish must be called with mu held.
func (m *Manager) publish(event sse.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(context.Background(), event); err != nil {
		m.log.Warn("Failed to publish event",
			logger.String("event_type", event.Type),
			logger.String("channel", event.Channel),
			logger.Error(err),
		)
	}
}
