package bootstrap

import (
	"errors"
	"fmt"

	"github.com/jonesrussell/jobsweep/internal/config"
	"github.com/jonesrussell/jobsweep/internal/logger"
)

// ErrMissingSecret is returned when serve is started without a JWT secret.
var ErrMissingSecret = config.ErrMissingJWTSecret

var errConfigRequired = errors.New("config is required")

// Options carry command-line overrides into bootstrap.
type Options struct {
	ConfigPath string
	LogLevel   string
	Debug      bool
}

// CommandDeps holds the dependencies every command needs.
type CommandDeps struct {
	Logger logger.Logger
	Config *config.Config
}

// NewCommandDeps loads config and creates the logger.
func NewCommandDeps(opts Options) (*CommandDeps, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return newCommandDeps(cfg, opts)
}

func newCommandDeps(cfg *config.Config, opts Options) (*CommandDeps, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.Debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "console"
		cfg.Logging.Development = true
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &CommandDeps{
		Logger: log.With(logger.String("service", "jobsweep")),
		Config: cfg,
	}, nil
}
