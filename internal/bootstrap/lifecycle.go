package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonesrussell/jobsweep/internal/logger"
)

const signalChannelBufferSize = 1

// RunUntilInterrupt blocks until a signal or a server error, then shuts
// everything down.
func RunUntilInterrupt(
	log logger.Logger,
	cancel context.CancelFunc,
	server *ServerComponents,
	services *Services,
	timeout time.Duration,
) error {
	sigChan := make(chan os.Signal, signalChannelBufferSize)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case serverErr := <-server.ErrorChan:
		log.Error("Server error", logger.Error(serverErr))
		Shutdown(log, cancel, server, services, timeout)
		return fmt.Errorf("server error: %w", serverErr)
	case sig := <-sigChan:
		log.Info("Shutdown signal received", logger.String("signal", sig.String()))
		return Shutdown(log, cancel, server, services, timeout)
	}
}

// Shutdown stops services in dependency order: scheduler, worker pool,
// event broker, HTTP server, queue. Tasks still running when the timeout
// expires are cancelled and end in error.
func Shutdown(
	log logger.Logger,
	cancel context.CancelFunc,
	server *ServerComponents,
	services *Services,
	timeout time.Duration,
) error {
	ctx, done := context.WithTimeout(context.Background(), timeout)
	defer done()
	defer cancel()

	if services.Scheduler != nil {
		log.Info("Stopping scheduler")
		if err := services.Scheduler.Stop(); err != nil {
			log.Error("Failed to stop scheduler", logger.Error(err))
		}
	}

	log.Info("Draining worker pool")
	if err := services.Pool.Stop(ctx); err != nil {
		log.Error("Failed to stop worker pool", logger.Error(err))
	}

	log.Info("Stopping SSE broker")
	if err := services.Broker.Stop(); err != nil {
		log.Error("Failed to stop SSE broker", logger.Error(err))
	}

	log.Info("Stopping HTTP server")
	var shutdownErr error
	if err := server.Server.Shutdown(ctx); err != nil {
		log.Error("Failed to stop server", logger.Error(err))
		shutdownErr = fmt.Errorf("failed to stop server: %w", err)
	}

	if err := services.Queue.Close(); err != nil {
		log.Warn("Failed to close queue", logger.Error(err))
	}

	log.Info("Server stopped")
	return shutdownErr
}
