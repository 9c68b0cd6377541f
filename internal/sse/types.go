// Package sse delivers status events to connected users over Server-Sent Events.
package sse

import (
	"context"
	"time"

	"github.com/jonesrussell/jobsweep/internal/domain"
)

// Event is one Server-Sent Event.
// Format: event: <Type>\ndata: <JSON payload>\n\n
type Event struct {
	// Type is the event type ("platform_state", "info", ...)
	Type string `json:"type"`
	// Data is the JSON payload (must be JSON-serializable)
	Data any `json:"data"`
	// Channel targets a single user; empty broadcasts to everyone.
	Channel string `json:"-"`
	// ID is an optional event ID for client-side tracking
	ID string `json:"id,omitempty"`
}

// Publisher sends events to the broker.
type Publisher interface {
	// Publish queues an event for delivery.
	// Returns error if the broker is not running or the publish buffer is full.
	Publish(ctx context.Context, event Event) error
}

// Subscriber receives events from the broker.
type Subscriber interface {
	// Subscribe returns a channel that receives events.
	// The channel is closed when the subscription ends (client disconnect or broker shutdown)
	// and nil when the subscription is rejected.
	Subscribe(ctx context.Context, opts ...ClientOption) (<-chan Event, func())
}

// Broker manages SSE connections and event distribution.
type Broker interface {
	Publisher
	Subscriber
	// Start begins processing events (non-blocking).
	Start(ctx context.Context) error
	// Stop gracefully shuts down the broker.
	Stop() error
	// ClientCount returns the number of connected clients.
	ClientCount() int
}

// EventFilter determines if an event should be sent to a client.
// Return true to send the event, false to skip.
type EventFilter func(event Event) bool

// ClientOptions configures a single SSE client connection.
type ClientOptions struct {
	// Channel is the user channel the client listens on.
	Channel string
	// Filter is an optional event filter for this client
	Filter EventFilter
	// BufferSize is the event buffer size (default: 100)
	BufferSize int
}

// Message types.
const (
	TypePlatformState = "platform_state"
	TypeInfo          = "info"
	TypeWarning       = "warning"
	TypeError         = "error"
	TypeDebug         = "debug"
	TypeHeartbeat     = "heartbeat"
)

// PlatformStateData is the payload for platform_state events.
type PlatformStateData struct {
	Type      string                                 `json:"type"`
	Platforms map[domain.Source]domain.PlatformState `json:"platforms"`
}

// MessageData is the payload for info, warning, error and debug events.
type MessageData struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HeartbeatData is the payload for heartbeat events.
type HeartbeatData struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// NewPlatformStateEvent creates a platform_state event for channel.
func NewPlatformStateEvent(channel string, platforms map[domain.Source]domain.PlatformState) Event {
	return Event{
		Type:    TypePlatformState,
		Channel: channel,
		Data:    PlatformStateData{Type: TypePlatformState, Platforms: platforms},
	}
}

// NewMessageEvent creates an info, warning, error or debug event for channel.
func NewMessageEvent(channel, typ, message string) Event {
	return Event{
		Type:    typ,
		Channel: channel,
		Data:    MessageData{Type: typ, Message: message},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: TypeHeartbeat,
		Data: HeartbeatData{Type: TypeHeartbeat, Timestamp: time.Now().UTC().Format(time.RFC3339)},
	}
}
