package sse

import "time"

// Default configuration values.
const (
	DefaultEventBufferSize   = 1000
	DefaultClientBufferSize  = 100
	DefaultHeartbeatInterval = 3 * time.Second
	DefaultShutdownTimeout   = 5 * time.Second
	DefaultMaxClients        = 1000
)

// Config holds broker settings.
type Config struct {
	EventBufferSize   int           `yaml:"event_buffer_size"`
	ClientBufferSize  int           `yaml:"client_buffer_size"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxClients        int           `yaml:"max_clients"`
}

// BrokerOption configures the broker.
type BrokerOption func(*broker)

// WithHeartbeatInterval sets how often connected clients receive a heartbeat.
func WithHeartbeatInterval(interval time.Duration) BrokerOption {
	return func(b *broker) {
		if interval > 0 {
			b.heartbeatInterval = interval
		}
	}
}

// WithConfig applies a full Config to the broker.
func WithConfig(cfg Config) BrokerOption {
	return func(b *broker) {
		if cfg.EventBufferSize > 0 {
			b.eventBufferSize = cfg.EventBufferSize
		}
		if cfg.ClientBufferSize > 0 {
			b.clientBufferSize = cfg.ClientBufferSize
		}
		if cfg.HeartbeatInterval > 0 {
			b.heartbeatInterval = cfg.HeartbeatInterval
		}
		if cfg.ShutdownTimeout > 0 {
			b.shutdownTimeout = cfg.ShutdownTimeout
		}
		if cfg.MaxClients > 0 {
			b.maxClients = cfg.MaxClients
		}
	}
}

// ClientOption configures a client subscription.
type ClientOption func(*ClientOptions)

// WithChannel subscribes the client to one user channel.
func WithChannel(channel string) ClientOption {
	return func(opts *ClientOptions) {
		opts.Channel = channel
	}
}

// WithFilter sets an event filter for the client.
func WithFilter(filter EventFilter) ClientOption {
	return func(opts *ClientOptions) {
		opts.Filter = filter
	}
}

// WithoutDebug drops debug events for the client.
func WithoutDebug() ClientOption {
	return WithFilter(func(event Event) bool {
		return event.Type != TypeDebug
	})
}
