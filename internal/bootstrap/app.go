// Package bootstrap handles application initialization and lifecycle management.
//
// The bootstrap process follows these phases:
//   - Phase 1: Config & Logger - Load configuration and create logger
//   - Phase 2: Infrastructure - Connect to Postgres, Redis and Elasticsearch (each optional)
//   - Phase 3: Services - Registry, state manager, queue, worker pool and scheduler
//   - Phase 4: Server - Create and start HTTP server
//   - Phase 5: Run - Wait for interrupt signal or error, then shut down
package bootstrap

import (
	"context"
	"fmt"
)

// Start initializes and starts the application. It blocks until the
// process is interrupted or the server fails.
func Start(opts Options) error {
	// Phase 1: config and logger
	deps, err := NewCommandDeps(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer func() { _ = deps.Logger.Sync() }()

	if deps.Config.Auth.JWTSecret == "" {
		return ErrMissingSecret
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Phase 2: infrastructure
	infra, err := SetupInfrastructure(ctx, deps)
	if err != nil {
		return fmt.Errorf("failed to setup infrastructure: %w", err)
	}
	defer infra.Close(deps.Logger)

	// Phase 3: services
	services, err := SetupServices(ctx, deps, infra)
	if err != nil {
		return fmt.Errorf("failed to setup services: %w", err)
	}

	// Phase 4: HTTP server
	server := SetupHTTPServer(deps, infra, services)

	// Phase 5: run until interrupt or error
	return RunUntilInterrupt(deps.Logger, cancel, server, services, deps.Config.Server.ShutdownTimeout)
}
