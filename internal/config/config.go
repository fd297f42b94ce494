package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the briefing service.
// Environment variables are parsed from the DAYBRIEF_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./data/daybrief.db"`

	// Aggregation
	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"8s"`

	// Provider API endpoint overrides, used by tests and local mocks.
	// Empty means the provider's production endpoint.
	GmailBaseURL    string `envconfig:"GMAIL_BASE_URL" default:""`
	CalendarBaseURL string `envconfig:"CALENDAR_BASE_URL" default:""`
	GitHubBaseURL   string `envconfig:"GITHUB_BASE_URL" default:""`
	SlackBaseURL    string `envconfig:"SLACK_BASE_URL" default:""`
	NotionBaseURL   string `envconfig:"NOTION_BASE_URL" default:""`
	LinkedInBaseURL string `envconfig:"LINKEDIN_BASE_URL" default:""`
	ZoomBaseURL     string `envconfig:"ZOOM_BASE_URL" default:""`
}

// ResolveDefaults validates driver selection and cross-field requirements.
func (c *Config) ResolveDefaults() error {
	switch c.DBDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH required for sqlite driver")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN required for postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: DAYBRIEF_HTTP_PORT, DAYBRIEF_DB_DRIVER.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("DAYBRIEF", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Dur("provider_timeout", cfg.ProviderTimeout).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing.
func NewForTesting() *Config {
	return &Config{
		Environment:     EnvTesting,
		HTTPPort:        8080,
		DBDriver:        "sqlite",
		SQLitePath:      ":memory:",
		ProviderTimeout: 2 * time.Second,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
