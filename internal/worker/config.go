// Package worker provides a bounded pool that executes queued operation
// tasks and records their results.
package worker

import (
	"errors"
	"time"
)

const (
	// DefaultPoolSize is the default number of concurrent tasks.
	DefaultPoolSize = 4

	// DefaultDrainTimeout is the default timeout for graceful shutdown.
	DefaultDrainTimeout = 30 * time.Second

	// DefaultTaskTimeout bounds one operation. It must exceed the polling
	// budget of the slowest source.
	DefaultTaskTimeout = 30 * time.Minute

	// MinPoolSize is the minimum allowed pool size.
	MinPoolSize = 1

	// MaxPoolSize is the maximum allowed pool size.
	MaxPoolSize = 100
)

// Config holds configuration for the worker pool.
type Config struct {
	// PoolSize is the number of tasks executed concurrently.
	PoolSize int `env:"WORKER_POOL_SIZE" yaml:"pool_size"`

	// DrainTimeout is how long Stop waits for running tasks before cancelling them.
	DrainTimeout time.Duration `yaml:"drain_timeout"`

	// TaskTimeout is the deadline of a single task.
	TaskTimeout time.Duration `env:"WORKER_TASK_TIMEOUT" yaml:"task_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PoolSize:     DefaultPoolSize,
		DrainTimeout: DefaultDrainTimeout,
		TaskTimeout:  DefaultTaskTimeout,
	}
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.PoolSize == 0 {
		c.PoolSize = d.PoolSize
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = d.DrainTimeout
	}
	if c.TaskTimeout == 0 {
		c.TaskTimeout = d.TaskTimeout
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.PoolSize < MinPoolSize {
		return errors.New("pool size must be at least 1")
	}
	if c.PoolSize > MaxPoolSize {
		return errors.New("pool size cannot exceed 100")
	}
	if c.DrainTimeout <= 0 {
		return errors.New("drain timeout must be positive")
	}
	if c.TaskTimeout <= 0 {
		return errors.New("task timeout must be positive")
	}
	return nil
}
