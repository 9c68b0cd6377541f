package sse

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonesrussell/jobsweep/internal/logger"
)

// broker implements the Broker interface. A single loop goroutine delivers
// every event, so events on one channel arrive in publish order.
type broker struct {
	log     logger.Logger
	clients map[string]*client
	mu      sync.RWMutex

	publish chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	eventBufferSize   int
	clientBufferSize  int
	heartbeatInterval time.Duration
	shutdownTimeout   time.Duration
	maxClients        int
}

// NewBroker creates a new SSE broker.
func NewBroker(log logger.Logger, opts ...BrokerOption) Broker {
	b := &broker{
		log:               log.With(logger.String("component", "sse")),
		clients:           make(map[string]*client),
		eventBufferSize:   DefaultEventBufferSize,
		clientBufferSize:  DefaultClientBufferSize,
		heartbeatInterval: DefaultHeartbeatInterval,
		shutdownTimeout:   DefaultShutdownTimeout,
		maxClients:        DefaultMaxClients,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.publish = make(chan Event, b.eventBufferSize)

	return b
}

// Start begins processing events.
func (b *broker) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(1)
	go b.loop()

	b.log.Info("SSE broker started",
		logger.Int("event_buffer_size", b.eventBufferSize),
		logger.Duration("heartbeat_interval", b.heartbeatInterval),
		logger.Int("max_clients", b.maxClients),
	)

	return nil
}

// Stop gracefully shuts down the broker.
func (b *broker) Stop() error {
	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("SSE broker stopped gracefully")
	case <-time.After(b.shutdownTimeout):
		b.log.Warn("SSE broker shutdown timeout exceeded")
	}

	return nil
}

// Publish queues event for delivery.
func (b *broker) Publish(ctx context.Context, event Event) error {
	select {
	case b.publish <- event:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish cancelled: %w", ctx.Err())
	default:
		return fmt.Errorf("publish buffer full (dropped event: %s)", event.Type)
	}
}

// Subscribe creates a new SSE subscription. The returned channel is nil when
// the client limit is reached.
func (b *broker) Subscribe(ctx context.Context, opts ...ClientOption) (events <-chan Event, cleanup func()) {
	clientOpts := ClientOptions{
		BufferSize: b.clientBufferSize,
	}
	for _, opt := range opts {
		opt(&clientOpts)
	}

	b.mu.Lock()
	if b.maxClients > 0 && len(b.clients) >= b.maxClients {
		current := len(b.clients)
		b.mu.Unlock()
		b.log.Warn("Max SSE clients reached, rejecting new connection",
			logger.Int("max_clients", b.maxClients),
			logger.Int("current_clients", current),
		)
		return nil, func() {}
	}
	c := newClient(ctx, clientOpts)
	b.clients[c.id] = c
	total := len(b.clients)
	b.mu.Unlock()

	b.log.Debug("Client subscribed",
		logger.String("client_id", c.id),
		logger.String("channel", c.channel),
		logger.Int("total_clients", total),
	)

	b.wg.Add(1)
	go b.cleanupClient(c)

	return c.events, func() { b.removeClient(c.id) }
}

// ClientCount returns the number of connected clients.
func (b *broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *broker) loop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-b.publish:
			b.broadcast(event)
		case <-ticker.C:
			b.heartbeat(time.Now())
		case <-b.ctx.Done():
			b.disconnectAllClients()
			return
		}
	}
}

// broadcast delivers event to every client it is addressed to. Clients whose
// buffer is full are disconnected.
func (b *broker) broadcast(event Event) {
	b.deliver(event, b.snapshotClients())
}

// heartbeat keeps quiet connections alive. Clients that received an event
// within the last interval are skipped.
func (b *broker) heartbeat(now time.Time) {
	all := b.snapshotClients()
	quiet := all[:0]
	for _, c := range all {
		if c.quietFor(b.heartbeatInterval, now) {
			quiet = append(quiet, c)
		}
	}
	if len(quiet) > 0 {
		b.deliver(NewHeartbeatEvent(), quiet)
	}
}

func (b *broker) snapshotClients() []*client {
	b.mu.RLock()
	defer b.mu.RUnlock()
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	return clients
}

func (b *broker) deliver(event Event, clients []*client) {
	var slow []string
	for _, c := range clients {
		if !c.send(event) {
			slow = append(slow, c.id)
		}
	}

	for _, id := range slow {
		b.log.Warn("Client buffer full, closing slow connection",
			logger.String("client_id", id),
			logger.String("event_type", event.Type),
		)
		b.removeClient(id)
	}
}

func (b *broker) cleanupClient(c *client) {
	defer b.wg.Done()

	<-c.ctx.Done()

	b.removeClient(c.id)
}

func (b *broker) removeClient(clientID string) {
	b.mu.Lock()
	c, exists := b.clients[clientID]
	if exists {
		delete(b.clients, clientID)
	}
	b.mu.Unlock()

	if exists {
		c.close()
		b.log.Debug("Client disconnected", logger.String("client_id", clientID))
	}
}

func (b *broker) disconnectAllClients() {
	b.mu.Lock()
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.clients = make(map[string]*client)
	b.mu.Unlock()

	for _, c := range clients {
		c.close()
	}

	b.log.Info("All SSE clients disconnected", logger.Int("count", len(clients)))
}
