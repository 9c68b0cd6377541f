package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonesrussell/jobsweep/internal/api"
	"github.com/jonesrussell/jobsweep/internal/logger"
	"github.com/jonesrussell/jobsweep/internal/statemanager"
)

// ServerComponents holds the HTTP server and its failure channel.
type ServerComponents struct {
	Server    *http.Server
	ErrorChan <-chan error
}

// SetupHTTPServer builds the API server and starts listening.
func SetupHTTPServer(deps *CommandDeps, infra *Infrastructure, services *Services) *ServerComponents {
	cfg := deps.Config

	apiDeps := api.Dependencies{
		Tasks:     services.Tasks,
		Schedules: services.Schedules,
		Events:    services.Broker,
		Snapshot:  services.Manager.Snapshot,
		Reset:     resetAllPlatforms(services.Manager),
		Metrics:   services.Metrics.Handler(),
		Checks:    healthChecks(infra),
	}
	if services.Operations != nil {
		apiDeps.History = services.Operations
	}

	server := api.NewServer(api.Config{
		Address:      cfg.Server.Address(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		JWTSecret:    cfg.Auth.JWTSecret,
		JWTIssuer:    cfg.Auth.Issuer,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Debug:        cfg.Logging.Level == "debug",
	}, apiDeps, deps.Logger)

	errCh := make(chan error, 1)
	go func() {
		deps.Logger.Info("HTTP server listening", logger.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return &ServerComponents{Server: server, ErrorChan: errCh}
}

func resetAllPlatforms(m *statemanager.Manager) api.ResetFunc {
	return func(channel string) { m.Reset(channel) }
}

func healthChecks(infra *Infrastructure) map[string]api.HealthCheck {
	checks := make(map[string]api.HealthCheck)
	if infra.DB != nil {
		checks["database"] = infra.DB.PingContext
	}
	if infra.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return infra.Redis.Ping(ctx).Err()
		}
	}
	if infra.ES != nil {
		checks["elasticsearch"] = func(ctx context.Context) error {
			res, err := infra.ES.Ping(infra.ES.Ping.WithContext(ctx))
			if err != nil {
				return err
			}
			defer res.Body.Close()
			if res.IsError() {
				return fmt.Errorf("ping returned %s", res.Status())
			}
			return nil
		}
	}
	return checks
}
