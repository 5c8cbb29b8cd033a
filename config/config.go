package config

import (
	"os"
	"strings"
	"time"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config files for
// details on available environment variables:
//   - identity.go: identity source configuration
//   - database.go: database and session-store configuration
//   - http.go: HTTP server and upstream configuration
//
// Infrastructure lives here; the SSO behavior settings (enabled flag,
// attribute names, SP URLs) are persisted state managed through the settings
// store, not environment variables.
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Identity source configuration
	Identity IdentityConfig

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Session configuration
	Session SessionConfig

	// Audit configuration
	Audit AuditConfig
}

// SessionConfig controls local session lifetime.
type SessionConfig struct {
	// TTL is the local session lifetime. The upstream IdP session is
	// re-checked on every request regardless, so this only bounds how long a
	// session record lives in the store.
	TTL time.Duration `env:"SESSION_TTL" envDefault:"8h"`
}

// AuditConfig controls where login-failure audit events are delivered beyond
// the structured log.
type AuditConfig struct {
	// WebhookURL, when set, receives a POST for every login-failure event.
	WebhookURL string `env:"AUDIT_WEBHOOK_URL" envDefault:""`

	// WebhookBody is an optional JMESPath expression applied to the event
	// payload to shape the webhook body. Empty means the whole event.
	WebhookBody string `env:"AUDIT_WEBHOOK_BODY" envDefault:""`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()

	if c.Session.TTL <= 0 {
		c.Session.TTL = 8 * time.Hour
	}

	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
