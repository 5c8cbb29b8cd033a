// Package devassert provides a fixed-assertion reader for local development.
// It stands in for a Shibboleth SP so the full reconciliation and
// provisioning path can be exercised without an IdP.
package devassert

import (
	"errors"
	"net/http"

	"github.com/campusops/shibgate/internal/domain/sso"
)

// Config controls the injected identity. Username and Email are required.
type Config struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// Reader returns the configured assertion for every request, unless the
// request carries the X-Dev-Logged-Out header, which simulates an expired
// upstream session so the force-logout path can be tested by hand.
type Reader struct {
	assertion sso.Assertion
}

// HeaderLoggedOut simulates a disappeared IdP session in dev mode.
const HeaderLoggedOut = "X-Dev-Logged-Out"

// NewReader constructs a dev assertion reader from Config.
func NewReader(cfg Config) (*Reader, error) {
	if cfg.Username == "" {
		return nil, errors.New("dev assert: Username is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev assert: Email is required")
	}
	return &Reader{
		assertion: sso.Assertion{
			Present:   true,
			Username:  cfg.Username,
			Email:     cfg.Email,
			FirstName: cfg.FirstName,
			LastName:  cfg.LastName,
		},
	}, nil
}

func (rd *Reader) Read(_ sso.Settings, r *http.Request) sso.Assertion {
	if r.Header.Get(HeaderLoggedOut) != "" {
		return sso.Assertion{}
	}
	return rd.assertion
}
