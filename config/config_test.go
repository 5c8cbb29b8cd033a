package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPConfig_Sanitize_TrimsBaseURL(t *testing.T) {
	h := HTTPConfig{BaseURL: " https://www.example.edu/ ", UpstreamURL: " http://app:3000 "}
	h.Sanitize()

	assert.Equal(t, "https://www.example.edu", h.BaseURL)
	assert.Equal(t, "http://app:3000", h.UpstreamURL)
}

func TestHTTPConfig_Sanitize_RejectsPublicSuffixCookieDomain(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"edu", ""},
		{".co.uk", ""},
		{"example.edu", "example.edu"},
		{".example.co.uk", ".example.co.uk"},
		{"", ""},
	}
	for _, tt := range tests {
		h := HTTPConfig{CookieDomain: tt.domain}
		h.Sanitize()
		assert.Equal(t, tt.want, h.CookieDomain, "cookie domain %q", tt.domain)
	}
}

func TestAppConfig_Sanitize_SessionTTLFloor(t *testing.T) {
	c := AppConfig{Session: SessionConfig{TTL: -time.Minute}}
	c.Sanitize()
	assert.Equal(t, 8*time.Hour, c.Session.TTL)
}

func TestIdentityMode_UnmarshalText(t *testing.T) {
	var m IdentityMode
	require.NoError(t, m.UnmarshalText([]byte("OIDC")))
	assert.Equal(t, IdentityModeOIDC, m)

	require.NoError(t, m.UnmarshalText([]byte("shib")))
	assert.Equal(t, IdentityModeShib, m)

	assert.Error(t, m.UnmarshalText([]byte("saml")))
}
