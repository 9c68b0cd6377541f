// Package storage indexes aggregated listings into Elasticsearch so they can
// be searched across operations.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/jobsweep/internal/logger"
	"github.com/jonesrussell/jobsweep/internal/retry"
)

// NewClient creates an Elasticsearch client and verifies the connection,
// retrying with exponential backoff.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*es.Client, error) {
	cfg.SetDefaults()

	clientConfig := es.Config{
		Addresses:  cfg.Addresses,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.APIKey != "" {
		clientConfig.APIKey = cfg.APIKey
	} else if cfg.Username != "" && cfg.Password != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	client, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	log.Info("Verifying Elasticsearch connection", logger.Strings("addresses", cfg.Addresses))

	retryCfg := retry.Config{MaxAttempts: 5, InitialDelay: 2 * time.Second, MaxDelay: 10 * time.Second}
	if err = retry.Do(ctx, retryCfg, func() error {
		return ping(ctx, client, cfg.PingTimeout)
	}); err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch after retries: %w", err)
	}

	return client, nil
}

func ping(ctx context.Context, client *es.Client, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := client.Ping(client.Ping.WithContext(pingCtx))
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("ping returned error [%s]: %s", res.Status(), body)
	}
	return nil
}
