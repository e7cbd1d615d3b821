package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL      string        `env:"DATABASE_URL,required" validate:"required"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"30s"`
	RunMigrations    bool          `env:"RUN_MIGRATIONS" envDefault:"false"`

	CacheProvider         string        `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string        `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`
	CacheMemorySize       int           `env:"CACHE_MEMORY_SIZE" envDefault:"10000" validate:"min=1"`
	RateTableCacheTTL     time.Duration `env:"RATE_TABLE_CACHE_TTL" envDefault:"5m"`

	AdminAPIToken    string `env:"ADMIN_API_TOKEN" validate:"omitempty,min=16"`
	BatchConcurrency int    `env:"BATCH_CONCURRENCY" envDefault:"8" validate:"min=1,max=64"`

	SentryDSN   string `env:"SENTRY_DSN" validate:"omitempty,url"`
	Environment string `env:"ENVIRONMENT" envDefault:"development" validate:"omitempty,oneof=development staging production"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AdminEnabled reports whether the admin API accepts requests at all.
func (c *Config) AdminEnabled() bool {
	return strings.TrimSpace(c.AdminAPIToken) != ""
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	if c.DBConnectTimeout <= 0 {
		return fmt.Errorf("DB_CONNECT_TIMEOUT must be positive")
	}
	if c.RateTableCacheTTL <= 0 {
		return fmt.Errorf("RATE_TABLE_CACHE_TTL must be positive")
	}

	if c.IsProduction() && !c.AdminEnabled() {
		return fmt.Errorf("ADMIN_API_TOKEN is required in production")
	}
	if c.IsProduction() && c.CacheProvider != "redis" {
		// Replicas with private caches would each serve stale tables after a
		// replace on another replica until the TTL expires.
		return fmt.Errorf("CACHE_PROVIDER must be redis in production")
	}

	return nil
}
