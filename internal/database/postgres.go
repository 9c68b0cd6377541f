// Package database provides the PostgreSQL connection and the repositories
// for operations and schedule entries.
package database

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/jonesrussell/jobsweep/internal/logger"
	"github.com/jonesrussell/jobsweep/internal/retry"
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum connection lifetime
	DefaultConnMaxLifetime = 5 * time.Minute
	// DefaultPingTimeout is the default timeout for ping operations
	DefaultPingTimeout = 5 * time.Second
)

//go:embed schema.sql
var schema string

// Config holds database configuration.
type Config struct {
	Host     string `env:"POSTGRES_HOST"     yaml:"host"`
	Port     string `env:"POSTGRES_PORT"     yaml:"port"`
	User     string `env:"POSTGRES_USER"     yaml:"user"`
	Password string `env:"POSTGRES_PASSWORD" yaml:"password"`
	DBName   string `env:"POSTGRES_DB"       yaml:"dbname"`
	SSLMode  string `env:"POSTGRES_SSLMODE"  yaml:"sslmode"`
}

// DSN renders the lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// NewPostgresConnection connects, retrying transient failures, and applies
// the pool settings.
func NewPostgresConnection(ctx context.Context, cfg Config, log logger.Logger) (*sqlx.DB, error) {
	var db *sqlx.DB
	err := retry.Do(ctx, retry.Config{MaxAttempts: 5, InitialDelay: time.Second}, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
		defer cancel()

		conn, connErr := sqlx.ConnectContext(pingCtx, "postgres", cfg.DSN())
		if connErr != nil {
			log.Warn("Database not reachable yet", logger.String("host", cfg.Host), logger.Error(connErr))
			return connErr
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	return db, nil
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
