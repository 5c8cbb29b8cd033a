// Package sso contains domain-level types for the SSO bridge: the persisted
// behavior settings, the per-request identity assertion, and the
// reconciliation outcome. It is pure and free of framework/adapter concerns.
package sso

import (
	"strings"
	"time"
)

// Default attribute header names released by most Shibboleth IdPs.
const (
	DefaultAttrUsername  = "uid"
	DefaultAttrEmail     = "mail"
	DefaultAttrFirstName = "givenName"
	DefaultAttrLastName  = "sn"
)

// Default SP handler URLs (mod_shib convention).
const (
	DefaultSessionInitURL   = "/Shibboleth.sso/Login"
	DefaultSessionLogoutURL = "/Shibboleth.sso/Logout"
)

// Settings is the persisted SSO behavior configuration. It is a value object:
// loaded once per request cycle and replaced atomically on save. A Settings
// value obtained through Sanitized is always fully populated; core logic must
// never act on a partial record.
type Settings struct {
	// Enabled is the master switch. When false the gateway passes every
	// request through to the upstream untouched.
	Enabled bool `json:"enabled"`

	// Autoprovision controls whether a local account is created
	// automatically for a validly asserted identity that has none.
	Autoprovision bool `json:"autoprovision"`

	// Debug enables reconciliation outcome logging.
	Debug bool `json:"debug"`

	// Names of the trusted headers carrying identity attributes.
	AttrUsername  string `json:"attr_username"`
	AttrEmail     string `json:"attr_email"`
	AttrFirstName string `json:"attr_first_name"`
	AttrLastName  string `json:"attr_last_name"`

	// SessionInitURL initiates an upstream login (the SP session initiator).
	SessionInitURL string `json:"session_init_url"`

	// SessionLogoutURL terminates the upstream session.
	SessionLogoutURL string `json:"session_logout_url"`

	// PassChangeURL and PassResetURL are informational URLs surfaced to end
	// users; the core logic never follows them itself.
	PassChangeURL string `json:"pass_change_url"`
	PassResetURL  string `json:"pass_reset_url"`
}

// DefaultSettings returns the settings record created on first activation.
// SSO starts disabled so an operator cannot be locked out by installing
// the gateway before the SP module is in place.
func DefaultSettings() Settings {
	return Settings{
		Enabled:          false,
		Autoprovision:    false,
		Debug:            false,
		AttrUsername:     DefaultAttrUsername,
		AttrEmail:        DefaultAttrEmail,
		AttrFirstName:    DefaultAttrFirstName,
		AttrLastName:     DefaultAttrLastName,
		SessionInitURL:   DefaultSessionInitURL,
		SessionLogoutURL: DefaultSessionLogoutURL,
	}
}

// Sanitized returns a copy with whitespace trimmed and every empty field
// replaced by its default, so callers always see a fully populated record.
func (s Settings) Sanitized() Settings {
	def := DefaultSettings()

	fill := func(v *string, d string) {
		*v = strings.TrimSpace(*v)
		if *v == "" {
			*v = d
		}
	}

	fill(&s.AttrUsername, def.AttrUsername)
	fill(&s.AttrEmail, def.AttrEmail)
	fill(&s.AttrFirstName, def.AttrFirstName)
	fill(&s.AttrLastName, def.AttrLastName)
	fill(&s.SessionInitURL, def.SessionInitURL)
	fill(&s.SessionLogoutURL, def.SessionLogoutURL)
	s.PassChangeURL = strings.TrimSpace(s.PassChangeURL)
	s.PassResetURL = strings.TrimSpace(s.PassResetURL)

	return s
}

// Assertion is the identity asserted for the current request. It is derived
// fresh on every request and never persisted.
//
// Present is true only when the transport trust marker AND all four
// attributes were found; a partial assertion is never valid.
type Assertion struct {
	Present   bool
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// DisplayName returns the "First Last" form used for provisioned accounts.
func (a Assertion) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Outcome is the result of reconciling local and upstream session state.
type Outcome string

const (
	// OutcomePassThrough: authenticated on both sides; allow the request.
	OutcomePassThrough Outcome = "pass_through"
	// OutcomeLogin: upstream session without a local one; provision and log in.
	OutcomeLogin Outcome = "provision_and_login"
	// OutcomeRedirectToIdP: no session anywhere; send the user to the IdP.
	OutcomeRedirectToIdP Outcome = "redirect_to_idp"
	// OutcomeForceLogout: the upstream session disappeared while a local one
	// persists; terminate the local session immediately.
	OutcomeForceLogout Outcome = "force_logout"
)

// Reconcile maps the two session-state booleans onto exactly one outcome.
// It is evaluated on every request so that a silently expired upstream
// session cannot leave a stale local session authenticated.
func Reconcile(localSessionActive, assertionPresent bool) Outcome {
	switch {
	case localSessionActive && assertionPresent:
		return OutcomePassThrough
	case !localSessionActive && assertionPresent:
		return OutcomeLogin
	case !localSessionActive && !assertionPresent:
		return OutcomeRedirectToIdP
	default:
		return OutcomeForceLogout
	}
}

// Session is the server-side record persisted for an authenticated user.
// ID is an opaque identifier carried in an HttpOnly cookie.
type Session struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}
