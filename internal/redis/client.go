// Package redis bootstraps the go-redis client shared by the task queue and
// the result store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/jobsweep/internal/logger"
	"github.com/jonesrussell/jobsweep/internal/retry"
)

// Config holds Redis connection configuration.
type Config struct {
	Address  string `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `env:"REDIS_DB"       yaml:"db"`
}

// ErrEmptyAddress is returned when Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

const (
	connectionTimeout = 5 * time.Second
	connectAttempts   = 5
)

// NewClient creates a client and waits for the server to answer PING.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}
	if log == nil {
		log = logger.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := retry.Do(ctx, retry.Config{MaxAttempts: connectAttempts, InitialDelay: 500 * time.Millisecond}, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
		defer cancel()
		if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
			log.Warn("Redis not reachable yet", logger.String("address", cfg.Address), logger.Error(pingErr))
			return pingErr
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	log.Info("Connected to Redis", logger.String("address", cfg.Address), logger.Int("db", cfg.DB))
	return client, nil
}
