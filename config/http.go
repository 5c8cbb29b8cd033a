package config

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains HTTP server and upstream configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the externally visible base URL of this gateway
	// (e.g., "https://www.example.edu"). Used when building absolute
	// return-target URLs for the session initiator.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// UpstreamURL is the host application this gateway fronts. Authorized
	// requests are reverse-proxied here.
	UpstreamURL string `env:"UPSTREAM_URL" envDefault:"http://localhost:3000"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.BaseURL = strings.TrimRight(strings.TrimSpace(h.BaseURL), "/")
	h.UpstreamURL = strings.TrimSpace(h.UpstreamURL)

	// A cookie scoped to a bare public suffix (e.g. "edu", "co.uk") would be
	// rejected by browsers or, worse, leak across unrelated sites on suffixes
	// not on their blocklists. Fall back to the request domain instead.
	if d := strings.TrimPrefix(h.CookieDomain, "."); d != "" {
		if suffix, _ := publicsuffix.PublicSuffix(d); suffix == d {
			h.CookieDomain = ""
		}
	}
}
