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

// Config holds the configuration for the shoptalk service.
// Environment variables are parsed from the SHOPTALK_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// PublicBaseURL is the externally reachable base of this service,
	// embedded in tenant webhook URLs and the OAuth redirect.
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`

	// Persistence: sqlite (default) or postgres when a DSN is provided.
	DBDriver    string `envconfig:"DB_DRIVER" default:"auto"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./data/shoptalk.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Storefront OAuth app credentials. Leaving them empty disables the
	// connect flow; the webhook path keeps working for already-connected
	// tenants.
	OAuthClientID     string `envconfig:"OAUTH_CLIENT_ID" default:""`
	OAuthClientSecret string `envconfig:"OAUTH_CLIENT_SECRET" default:""`
	OAuthScopes       string `envconfig:"OAUTH_SCOPES" default:"read_products,read_orders,write_draft_orders"`

	// CommerceAPIVersion pins the storefront REST API version segment.
	CommerceAPIVersion string `envconfig:"COMMERCE_API_VERSION" default:"2024-01"`

	// RequestTimeout bounds every outbound commerce/identity call.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
}

// ResolveDefaults validates the driver selection and derives DBDriver when
// set to "auto" or empty: postgres when a DSN is configured, sqlite otherwise.
func (c *Config) ResolveDefaults() error {
	if c.DBDriver == "" || c.DBDriver == "auto" {
		if c.PostgresDSN != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "sqlite"
		}
	}

	allowedDB := map[string]bool{"sqlite": true, "postgres": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
	}
	return nil
}

// OAuthConfigured reports whether the connect flow can run.
func (c *Config) OAuthConfigured() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != ""
}

// New creates a new Config by parsing environment variables.
// Example: SHOPTALK_HTTP_PORT, SHOPTALK_OAUTH_CLIENT_ID.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("SHOPTALK", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	if !cfg.OAuthConfigured() {
		log.Warn().Msg("OAuth credentials missing; /auth endpoints will refuse requests")
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("db_driver", cfg.DBDriver).
		Str("public_base_url", cfg.PublicBaseURL).
		Str("commerce_api_version", cfg.CommerceAPIVersion).
		Bool("oauth_configured", cfg.OAuthConfigured()).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing.
func NewForTesting() *Config {
	return &Config{
		Environment:        EnvTesting,
		HTTPPort:           8080,
		PublicBaseURL:      "http://localhost:8080",
		DBDriver:           "sqlite",
		SQLitePath:         ":memory:",
		OAuthClientID:      "test-client",
		OAuthClientSecret:  "test-secret",
		OAuthScopes:        "read_products,read_orders,write_draft_orders",
		CommerceAPIVersion: "2024-01",
		RequestTimeout:     10 * time.Second,
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
