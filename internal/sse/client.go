package sse

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var clientIDCounter atomic.Int64

// client is one connected subscriber.
type client struct {
	id      string
	channel string
	events  chan Event
	filter  EventFilter
	ctx     context.Context
	cancel  context.CancelFunc
	closed  atomic.Bool
	closeMu sync.Mutex

	// lastEvent is the UnixNano time of the last non-heartbeat delivery.
	lastEvent atomic.Int64
}

func newClient(ctx context.Context, opts ClientOptions) *client {
	clientCtx, cancel := context.WithCancel(ctx)

	return &client{
		id:      fmt.Sprintf("sse-client-%d-%d", time.Now().UnixNano(), clientIDCounter.Add(1)),
		channel: opts.Channel,
		events:  make(chan Event, opts.BufferSize),
		filter:  opts.Filter,
		ctx:     clientCtx,
		cancel:  cancel,
	}
}

func (c *client) close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Load() {
		return
	}
	c.closed.Store(true)
	c.cancel()
	close(c.events)
}

// wants reports whether event is addressed to this client.
func (c *client) wants(event Event) bool {
	if event.Channel != "" && event.Channel != c.channel {
		return false
	}
	return c.filter == nil || c.filter(event)
}

// send attempts to deliver event. It returns false only when the client
// buffer is full.
func (c *client) send(event Event) bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Load() || !c.wants(event) {
		return true
	}

	select {
	case c.events <- event:
		if event.Type != TypeHeartbeat {
			c.lastEvent.Store(time.Now().UnixNano())
		}
		return true
	default:
		return false
	}
}

// quietFor reports whether the client has received no event within d of now.
func (c *client) quietFor(d time.Duration, now time.Time) bool {
	last := c.lastEvent.Load()
	return last == 0 || now.Sub(time.Unix(0, last)) >= d
}
