package storage

import "time"

const (
	// DefaultIndex is the index aggregated listings are written to.
	DefaultIndex = "jobsweep_listings"

	defaultAddress     = "http://localhost:9200"
	defaultMaxRetries  = 3
	defaultPingTimeout = 5 * time.Second
)

// Config holds Elasticsearch client configuration.
type Config struct {
	// Enabled turns listing indexing on. Operations are persisted to
	// Postgres either way.
	Enabled     bool          `env:"ELASTICSEARCH_ENABLED"   yaml:"enabled"`
	Addresses   []string      `env:"ELASTICSEARCH_ADDRESSES" yaml:"addresses"`
	Username    string        `env:"ELASTICSEARCH_USERNAME"  yaml:"username"`
	Password    string        `env:"ELASTICSEARCH_PASSWORD"  yaml:"password"`
	APIKey      string        `env:"ELASTICSEARCH_API_KEY"   yaml:"api_key"`
	Index       string        `env:"ELASTICSEARCH_INDEX"     yaml:"index"`
	MaxRetries  int           `yaml:"max_retries"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
}

// SetDefaults applies default values to the config if not set.
func (c *Config) SetDefaults() {
	if len(c.Addresses) == 0 {
		c.Addresses = []string{defaultAddress}
	}
	if c.Index == "" {
		c.Index = DefaultIndex
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = defaultPingTimeout
	}
}
