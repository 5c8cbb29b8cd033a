// Package shibheaders reads the identity assertion injected by a Shibboleth
// SP module (mod_shib) running in the web server in front of this gateway.
//
// Deployment contract: the fronting web server MUST strip or overwrite the
// auth-type, session-id, and attribute headers on every inbound request
// before the SP module sets them. The reader can verify that the markers are
// present and consistent, but it cannot prove from inside the request that
// they came from the SP rather than the client; that guarantee belongs to the
// web server configuration and is a hard deployment requirement.
package shibheaders

import (
	"net/http"
	"strings"

	"github.com/campusops/shibgate/internal/domain/sso"
)

// Transport trust markers set by the SP module. Both must be present for any
// attribute header to be believed.
const (
	// HeaderAuthType carries the authentication type negotiated by the web
	// server. The SP module sets it to "shibboleth".
	HeaderAuthType = "Auth-Type"

	// HeaderSessionID carries the SP's session identifier. Empty means no
	// upstream session exists, whatever the attribute headers claim.
	HeaderSessionID = "Shib-Session-Id"
)

// authTypeShibboleth is the value the SP module sets on authenticated requests.
const authTypeShibboleth = "shibboleth"

// Reader derives assertions from SP-injected request headers.
type Reader struct{}

// NewReader creates a Reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read returns the assertion for the current request. Present is true only
// when the transport trust markers AND all four configured attribute headers
// are non-empty. Checking the attribute headers alone would let a client
// spoof an identity on deployments where the trust markers are stripped but
// the attributes are not, so the markers are never optional.
func (rd *Reader) Read(settings sso.Settings, r *http.Request) sso.Assertion {
	if !strings.EqualFold(r.Header.Get(HeaderAuthType), authTypeShibboleth) {
		return sso.Assertion{}
	}
	if r.Header.Get(HeaderSessionID) == "" {
		return sso.Assertion{}
	}

	username := r.Header.Get(settings.AttrUsername)
	email := r.Header.Get(settings.AttrEmail)
	firstName := r.Header.Get(settings.AttrFirstName)
	lastName := r.Header.Get(settings.AttrLastName)

	// A partial assertion is never valid.
	if username == "" || email == "" || firstName == "" || lastName == "" {
		return sso.Assertion{}
	}

	return sso.Assertion{
		Present:   true,
		Username:  username,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	}
}

// TrustedHeaders lists every header name this reader consults for the given
// settings. The proxy strips them from requests forwarded upstream so the
// host application can never observe client-supplied copies.
func TrustedHeaders(settings sso.Settings) []string {
	return []string{
		HeaderAuthType,
		HeaderSessionID,
		settings.AttrUsername,
		settings.AttrEmail,
		settings.AttrFirstName,
		settings.AttrLastName,
	}
}
