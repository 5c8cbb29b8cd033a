package config

import (
	"fmt"
	"strings"
)

// IdentityMode selects where the per-request identity assertion comes from.
type IdentityMode string

const (
	// IdentityModeShib trusts headers injected by a Shibboleth SP module (or
	// equivalent authenticating proxy) in front of this gateway.
	IdentityModeShib IdentityMode = "shib"
	// IdentityModeOIDC runs an OIDC code flow directly against an IdP, for
	// deployments without an SP module.
	IdentityModeOIDC IdentityMode = "oidc"
	// IdentityModeMock injects a fixed assertion (for development only).
	IdentityModeMock IdentityMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for IdentityMode.
func (m *IdentityMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "shib", "oidc", "mock":
		*m = IdentityMode(v)
		return nil
	default:
		return fmt.Errorf("invalid IdentityMode: %q (valid options: shib, oidc, mock)", v)
	}
}

// OIDCConfig contains OIDC/OAuth configuration (used when Mode=oidc).
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/sso/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// MockAssertionConfig controls the fixed assertion injected when Mode=mock.
type MockAssertionConfig struct {
	Username  string `env:"USERNAME"   envDefault:"dev-user"`
	Email     string `env:"EMAIL"      envDefault:"dev@example.com"`
	FirstName string `env:"FIRST_NAME" envDefault:"Dev"`
	LastName  string `env:"LAST_NAME"  envDefault:"User"`
}

// IdentityConfig groups identity-source configuration.
type IdentityConfig struct {
	// Mode determines which assertion source to use.
	Mode IdentityMode `env:"IDENTITY_MODE" envDefault:"shib"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// Mock configuration (used when Mode=mock).
	Mock MockAssertionConfig `envPrefix:"MOCK_"`
}
