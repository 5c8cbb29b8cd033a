package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/campusops/shibgate/internal/domain/sso"
)

// Cookie names used by the gateway.
const (
	SessionCookie      = "session_id"
	oauthStateCookie   = "oauth_state"
	oauthNonceCookie   = "oauth_nonce"
	postLoginRedirect  = "post_login_redirect"
	oauthCookieTTLSecs = 600 // 10 minutes
)

// Cookies centralizes cookie attributes so setting and clearing stay in sync.
type Cookies struct {
	Domain string
}

func (c Cookies) isSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// SetSession writes the session cookie based on the session's expiry.
func (c Cookies) SetSession(w http.ResponseWriter, r *http.Request, s sso.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    s.ID,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.isSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
	})
}

// Clear expires a cookie immediately, mirroring the attributes used when
// setting it so deletion works across browsers.
func (c Cookies) Clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.isSecure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// oauthCookieParams groups values stored across the OIDC redirect round trip.
type oauthCookieParams struct {
	State       string
	Nonce       string
	RedirectURI string
}

// setOAuth stores OAuth state, nonce, and the post-login redirect in secure cookies.
func (c Cookies) setOAuth(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	secure := c.isSecure(r)
	for _, ck := range []struct{ name, value string }{
		{oauthStateCookie, p.State},
		{oauthNonceCookie, p.Nonce},
		{postLoginRedirect, p.RedirectURI},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     ck.name,
			Value:    ck.value,
			Path:     "/",
			Domain:   c.Domain,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   oauthCookieTTLSecs,
		})
	}
}

func (c Cookies) clearOAuth(w http.ResponseWriter, r *http.Request) {
	c.Clear(w, r, oauthStateCookie)
	c.Clear(w, r, oauthNonceCookie)
	c.Clear(w, r, postLoginRedirect)
}

// sessionIDFromRequest returns the session cookie value, or empty when absent.
func sessionIDFromRequest(r *http.Request) string {
	ck, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return ck.Value
}
