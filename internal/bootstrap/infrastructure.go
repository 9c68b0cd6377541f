package bootstrap

import (
	"context"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jonesrussell/jobsweep/internal/config"
	"github.com/jonesrussell/jobsweep/internal/database"
	"github.com/jonesrussell/jobsweep/internal/logger"
	"github.com/jonesrussell/jobsweep/internal/redis"
	"github.com/jonesrussell/jobsweep/internal/storage"
)

// Infrastructure holds the external connections. Each is nil when its
// backend is not configured.
type Infrastructure struct {
	DB    *sqlx.DB
	Redis *goredis.Client
	ES    *es.Client
}

// SetupInfrastructure connects to the configured backends and migrates the
// database schema.
func SetupInfrastructure(ctx context.Context, deps *CommandDeps) (*Infrastructure, error) {
	cfg := deps.Config
	log := deps.Logger
	infra := &Infrastructure{}

	if cfg.Database.Enabled {
		db, err := database.NewPostgresConnection(ctx, cfg.Database.Config, log)
		if err != nil {
			return nil, err
		}
		infra.DB = db
		if err = database.Migrate(ctx, db); err != nil {
			infra.Close(log)
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("Database ready", logger.String("host", cfg.Database.Host))
	}

	if cfg.Queue.Backend == config.QueueBackendRedis {
		client, err := redis.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			infra.Close(log)
			return nil, err
		}
		infra.Redis = client
	}

	if cfg.Elasticsearch.Enabled {
		client, err := storage.NewClient(ctx, cfg.Elasticsearch, log)
		if err != nil {
			infra.Close(log)
			return nil, err
		}
		infra.ES = client
	}

	return infra, nil
}

// Close releases every open connection.
func (i *Infrastructure) Close(log logger.Logger) {
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			log.Warn("Failed to close Redis client", logger.Error(err))
		}
	}
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			log.Warn("Failed to close database", logger.Error(err))
		}
	}
}
