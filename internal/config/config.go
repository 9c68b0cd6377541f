// Package config loads the jobsweep configuration from YAML, .env files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jonesrussell/jobsweep/internal/database"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
	"github.com/jonesrussell/jobsweep/internal/redis"
	"github.com/jonesrussell/jobsweep/internal/sse"
	"github.com/jonesrussell/jobsweep/internal/storage"
	"github.com/jonesrussell/jobsweep/internal/taskqueue"
	"github.com/jonesrussell/jobsweep/internal/worker"
)

// Queue backends.
const (
	QueueBackendRedis  = "redis"
	QueueBackendMemory = "memory"
)

const (
	defaultServerHost      = "0.0.0.0"
	defaultServerPort      = 8080
	defaultReadTimeout     = 15 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultSchedulerTick   = 10 * time.Second
	defaultRequestsPerSec  = 2.0
	defaultBurst           = 2
	defaultJWTIssuer       = "jobsweep"
	defaultMemoryCapacity  = 256
)

// Config is the root configuration.
type Config struct {
	Server        ServerConfig             `yaml:"server"`
	Database      DatabaseConfig           `yaml:"database"`
	Redis         redis.Config             `yaml:"redis"`
	Queue         QueueConfig              `yaml:"queue"`
	Worker        worker.Config            `yaml:"worker"`
	Scheduler     SchedulerConfig          `yaml:"scheduler"`
	Scrape        ScrapeConfig             `yaml:"scrape"`
	BrightData    BrightDataConfig         `yaml:"brightdata"`
	Elasticsearch storage.Config           `yaml:"elasticsearch"`
	Auth          AuthConfig               `yaml:"auth"`
	Logging       logger.Config            `yaml:"logging"`
	SSE           sse.Config               `yaml:"sse"`
	Adapters      map[string]AdapterConfig `yaml:"adapters"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host        string        `env:"SERVER_HOST" yaml:"host"`
	Port        int           `env:"SERVER_PORT" yaml:"port"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout stays zero by default so event streams are not cut off.
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" yaml:"cors_origins"`
}

// Address returns host:port.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig enables Postgres persistence of operations and schedules.
type DatabaseConfig struct {
	Enabled         bool `env:"DATABASE_ENABLED" yaml:"enabled"`
	database.Config `yaml:",inline"`
}

// QueueConfig selects and configures the task queue.
type QueueConfig struct {
	Backend                string `env:"QUEUE_BACKEND" yaml:"backend"`
	taskqueue.StreamConfig `yaml:",inline"`
	MemoryCapacity         int           `yaml:"memory_capacity"`
	ResultTTL              time.Duration `yaml:"result_ttl"`
	ResultPrefix           string        `yaml:"result_prefix"`
}

// SchedulerConfig configures the schedule ticker.
type SchedulerConfig struct {
	Enabled       bool          `env:"SCHEDULER_ENABLED" yaml:"enabled"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

// ScrapeConfig holds limits shared by every scrape job.
type ScrapeConfig struct {
	PollInterval      time.Duration `env:"SCRAPE_POLL_INTERVAL" yaml:"poll_interval"`
	MaxWait           time.Duration `env:"SCRAPE_MAX_WAIT"      yaml:"max_wait"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	// MaxPages and RequestTimeout apply to paginating adapters unless their
	// own options override them.
	MaxPages       int           `env:"SCRAPE_MAX_PAGES"       yaml:"max_pages"`
	RequestTimeout time.Duration `env:"SCRAPE_REQUEST_TIMEOUT" yaml:"request_timeout"`
}

// BrightDataConfig configures the dataset API used by LinkedIn and Indeed.
type BrightDataConfig struct {
	BaseURL           string `env:"BRIGHTDATA_BASE_URL"         yaml:"base_url"`
	APIKey            string `env:"BRIGHTDATA_API_KEY"          yaml:"api_key"`
	LinkedInDatasetID string `env:"BRIGHTDATA_LINKEDIN_DATASET" yaml:"linkedin_dataset_id"`
	IndeedDatasetID   string `env:"BRIGHTDATA_INDEED_DATASET"   yaml:"indeed_dataset_id"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
	Issuer    string `env:"AUTH_JWT_ISSUER" yaml:"issuer"`
}

// AdapterConfig configures one source. Options are decoded by the adapter.
type AdapterConfig struct {
	Disabled bool           `yaml:"disabled"`
	Options  map[string]any `yaml:"options"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = defaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultServerPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaultReadTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaultShutdownTimeout
	}

	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == "" {
		c.Database.Port = "5432"
	}
	if c.Database.DBName == "" {
		c.Database.DBName = "jobsweep"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.Queue.Backend == "" {
		c.Queue.Backend = QueueBackendMemory
	}
	if c.Queue.Consumer == "" {
		c.Queue.Consumer = defaultConsumer()
	}
	if c.Queue.MemoryCapacity == 0 {
		c.Queue.MemoryCapacity = defaultMemoryCapacity
	}
	if c.Queue.ResultTTL == 0 {
		c.Queue.ResultTTL = taskqueue.DefaultResultTTL
	}

	c.Worker.SetDefaults()

	if c.Scheduler.CheckInterval == 0 {
		c.Scheduler.CheckInterval = defaultSchedulerTick
	}

	if c.Scrape.RequestsPerSecond == 0 {
		c.Scrape.RequestsPerSecond = defaultRequestsPerSec
	}
	if c.Scrape.Burst == 0 {
		c.Scrape.Burst = defaultBurst
	}

	c.Elasticsearch.SetDefaults()
	c.Logging.SetDefaults()

	if c.Auth.Issuer == "" {
		c.Auth.Issuer = defaultJWTIssuer
	}
	if c.Adapters == nil {
		c.Adapters = make(map[string]AdapterConfig)
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: "must be between 1 and 65535"}
	}

	switch c.Queue.Backend {
	case QueueBackendRedis:
		if c.Redis.Address == "" {
			return &ValidationError{Field: "redis.address", Message: "is required for the redis queue backend"}
		}
	case QueueBackendMemory:
	default:
		return &ValidationError{Field: "queue.backend", Message: "must be one of: redis, memory"}
	}

	if err := c.Worker.Validate(); err != nil {
		return &ValidationError{Field: "worker", Message: err.Error()}
	}

	if c.Database.Enabled && c.Database.User == "" {
		return &ValidationError{Field: "database.user", Message: "is required when the database is enabled"}
	}

	if c.Elasticsearch.Enabled && len(c.Elasticsearch.Addresses) == 0 {
		return &ValidationError{Field: "elasticsearch.addresses", Message: "is required when indexing is enabled"}
	}

	if c.Scrape.MaxPages < 0 {
		return &ValidationError{Field: "scrape.max_pages", Message: "must not be negative"}
	}

	if c.Scrape.RequestsPerSecond < 0 {
		return &ValidationError{Field: "scrape.requests_per_second", Message: "must not be negative"}
	}

	if err := validateLogLevel(c.Logging.Level); err != nil {
		return err
	}

	for name := range c.Adapters {
		if _, err := domain.ParseSource(name); err != nil {
			return &ValidationError{Field: "adapters." + name, Message: "unknown source"}
		}
	}
	return nil
}

// Adapter returns the settings for source.
func (c *Config) Adapter(source domain.Source) AdapterConfig {
	return c.Adapters[string(source)]
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrMissingJWTSecret is returned when the API is started without a signing secret.
var ErrMissingJWTSecret = errors.New("auth.jwt_secret is required to serve the API")

func validateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
		return nil
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error, fatal"}
	}
}

// defaultConsumer is stable across restarts so a restarted worker recovers
// its own unacknowledged tasks.
func defaultConsumer() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "jobsweep"
	}
	return host
}
