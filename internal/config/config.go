package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store and cache backends.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	Debug     bool   `envconfig:"DEBUG" default:"false"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	StoreDriver   string `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	TxMaxAttempts int    `envconfig:"TX_MAX_ATTEMPTS" default:"5"`

	AuthSecret    string `envconfig:"AUTH_SECRET" required:"true"`
	TriggerSecret string `envconfig:"TRIGGER_SECRET" required:"true"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	StreamAPIKey    string `envconfig:"STREAM_API_KEY"`
	StreamAPISecret string `envconfig:"STREAM_API_SECRET"`

	CacheBackend        string        `envconfig:"CACHE_BACKEND" default:"memory"`
	CacheDisabled       bool          `envconfig:"CACHE_DISABLED" default:"false"`
	SearchCacheTTL      time.Duration `envconfig:"SEARCH_CACHE_TTL" default:"15s"`
	SearchCacheSize     int           `envconfig:"SEARCH_CACHE_SIZE" default:"200"`
	PopularCacheTTL     time.Duration `envconfig:"POPULAR_CACHE_TTL" default:"120s"`
	PopularCacheSize    int           `envconfig:"POPULAR_CACHE_SIZE" default:"500"`
	PopularHitThreshold int           `envconfig:"POPULAR_HIT_THRESHOLD" default:"3"`

	BrandIndexTTL           time.Duration `envconfig:"BRAND_INDEX_TTL" default:"10m"`
	PresenceCleanupInterval time.Duration `envconfig:"PRESENCE_CLEANUP_INTERVAL" default:"30m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("SHOPPLE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the rules that span more than one field.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres store")
		}
	case DriverMemory:
		if c.CacheBackend == DriverPostgres {
			return errors.New("config: postgres cache backend requires the postgres store")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.CacheBackend {
	case DriverMemory, DriverPostgres:
	default:
		return fmt.Errorf("config: unknown CACHE_BACKEND %q", c.CacheBackend)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("config: unknown LOG_FORMAT %q", c.LogFormat)
	}

	if c.SearchCacheSize <= 0 || c.PopularCacheSize <= 0 {
		return errors.New("config: cache sizes must be positive")
	}
	if c.SearchCacheTTL <= 0 || c.PopularCacheTTL <= 0 || c.BrandIndexTTL <= 0 || c.PresenceCleanupInterval <= 0 {
		return errors.New("config: durations must be positive")
	}
	return nil
}

func (c *Config) HasChat() bool {
	return c.StreamAPIKey != "" && c.StreamAPISecret != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
