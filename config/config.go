package config

import (
	"os"
	"strings"

	"github.com/medportal/portalgate/internal/domain/access"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: central login configuration
//   - database.go: profile database and session Redis configuration
//   - http.go: base URL, cookie scope and server timeouts
//   - portals.go: per-portal listeners, upstreams and exemptions
//   - session.go: session backend, TTL and read timeout
type AppConfig struct {
	// IsDev selects development URLs (http://localhost:<port>) for every portal.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Auth AuthConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP    HTTPConfig
	Portals PortalsConfig
	Session SessionConfig `envPrefix:"SESSION_"`
	JWT     JWTConfig     `envPrefix:"JWT_"`

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Portals.Sanitize()
	c.Session.Sanitize()
	c.JWT.Sanitize()
	c.Observability.Sanitize()

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback since the portal apps share it.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// Environment returns the registry environment implied by IsDev.
func (c *AppConfig) Environment() access.Environment {
	return access.EnvironmentFor(c.IsDev)
}
