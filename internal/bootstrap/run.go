package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/jobsweep/internal/database"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/statemanager"
)

// ErrDatabaseDisabled is returned by commands that read persisted state
// when no database is configured.
var ErrDatabaseDisabled = errors.New("database is not enabled")

// RunOnce executes a single operation in process, bypassing the queue and
// the HTTP server. State changes are logged instead of streamed.
func RunOnce(ctx context.Context, deps *CommandDeps, params domain.SearchParameters) (*domain.Operation, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	registry, err := BuildRegistry(deps.Config, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build adapter registry: %w", err)
	}

	manager := statemanager.New(registry.Sources(), nil, deps.Logger)
	orch := NewOrchestrator(deps.Config, registry, manager, nil, deps.Logger)

	return orch.Run(ctx, params)
}

// ListSchedules loads every persisted schedule entry.
func ListSchedules(ctx context.Context, deps *CommandDeps) ([]*domain.ScheduleEntry, error) {
	if !deps.Config.Database.Enabled {
		return nil, ErrDatabaseDisabled
	}

	db, err := database.NewPostgresConnection(ctx, deps.Config.Database.Config, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	return database.NewScheduleRepository(db).List(ctx)
}
