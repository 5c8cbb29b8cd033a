package sso

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInitiatorURL_NoRedirect(t *testing.T) {
	settings := DefaultSettings()

	got := BuildInitiatorURL(settings, "https://www.example.edu/sso/login", "")

	assert.Equal(t,
		"/Shibboleth.sso/Login?target=https%3A%2F%2Fwww.example.edu%2Fsso%2Flogin",
		got)
}

func TestBuildInitiatorURL_EncodesExactlyOnce(t *testing.T) {
	settings := DefaultSettings()
	loginURL := "https://www.example.edu/sso/login"
	redirectTo := "/private/page?a=1&b=2"

	got := BuildInitiatorURL(settings, loginURL, redirectTo)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/Shibboleth.sso/Login", u.Path)

	// One decode of target restores the inner URL byte for byte, with the
	// redirect_to pasted in raw.
	target := u.Query().Get("target")
	assert.Equal(t, loginURL+"?redirect_to="+redirectTo, target)

	// The raw query must carry no unencoded separators from the inner URL.
	assert.NotContains(t, u.RawQuery, "redirect_to=")
}

func TestBuildInitiatorURL_CustomInitiator(t *testing.T) {
	settings := DefaultSettings()
	settings.SessionInitURL = "https://sp.example.edu/Login"

	got := BuildInitiatorURL(settings, "/sso/login", "/deep")

	assert.Equal(t,
		"https://sp.example.edu/Login?target=%2Fsso%2Flogin%3Fredirect_to%3D%2Fdeep",
		got)
}
