package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/campusops/shibgate/internal/domain/sso"
	apperrors "github.com/campusops/shibgate/internal/errors"
	"github.com/campusops/shibgate/internal/ports"
	"github.com/campusops/shibgate/internal/service"
)

// SSOHandlers serves the gateway-owned authentication endpoints under /sso/.
type SSOHandlers struct {
	Settings *service.SettingsService
	SSO      *service.SSOService
	Reader   ports.AssertionReader
	// Provider is set only in oidc mode; nil means identity arrives as
	// trusted headers and the IdP round trip happens at the SP layer.
	Provider ports.LoginProvider
	Accounts ports.AccountStore
	Cookies  Cookies
	BaseURL  string
	Logger   *slog.Logger
}

func (h *SSOHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login is the post-IdP landing point in header modes and the flow starter
// in oidc mode. It always ends in a redirect: to the requested page on
// success, or back into the IdP flow when no identity is present yet.
func (h *SSOHandlers) Login(w http.ResponseWriter, r *http.Request) {
	settings, ok := loadSettings(w, r, h.Settings, h.logger())
	if !ok {
		return
	}
	if !settings.Enabled {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	redirectTo := sanitizeRedirect(r.URL.Query().Get("redirect_to"))

	if h.Provider != nil {
		h.beginProviderLogin(w, r, redirectTo)
		return
	}

	decision, err := h.SSO.Reconcile(r.Context(), service.ReconcileInput{
		Settings:  settings,
		Assertion: h.Reader.Read(settings, r),
		SessionID: sessionIDFromRequest(r),
	})
	if err != nil {
		writeReconcileError(w, err, h.logger())
		return
	}

	switch decision.Outcome {
	case sso.OutcomePassThrough:
		http.Redirect(w, r, redirectTo, http.StatusFound)

	case sso.OutcomeLogin:
		h.Cookies.SetSession(w, r, *decision.Session)
		http.Redirect(w, r, redirectTo, http.StatusFound)

	case sso.OutcomeForceLogout:
		h.Cookies.Clear(w, r, SessionCookie)
		http.Redirect(w, r, "/", http.StatusFound)

	default: // sso.OutcomeRedirectToIdP
		http.Redirect(w, r, h.initiatorURL(settings, r), http.StatusFound)
	}
}

// initiatorURL rebuilds the SP session-initiator redirect whose target is
// this login endpoint, preserving the caller's redirect_to.
func (h *SSOHandlers) initiatorURL(settings sso.Settings, r *http.Request) string {
	loginURL := h.BaseURL + "/sso/login"
	return sso.BuildInitiatorURL(settings, loginURL, r.URL.Query().Get("redirect_to"))
}

func (h *SSOHandlers) beginProviderLogin(w http.ResponseWriter, r *http.Request, redirectTo string) {
	callbackURL := h.BaseURL + "/sso/callback"
	authURL, state, nonce, err := h.Provider.Begin(r.Context(), callbackURL)
	if err != nil {
		h.logger().Error("begin login flow", slog.String("error", err.Error()))
		WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "idp_unavailable", Err: errors.New("identity provider unavailable")})
		return
	}
	h.Cookies.setOAuth(w, r, oauthCookieParams{State: state, Nonce: nonce, RedirectURI: redirectTo})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes the oidc login flow.
func (h *SSOHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	if h.Provider == nil {
		http.NotFound(w, r)
		return
	}
	settings, ok := loadSettings(w, r, h.Settings, h.logger())
	if !ok {
		return
	}

	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_state", Err: errors.New("state mismatch")})
		return
	}
	nonceCookie, err := r.Cookie(oauthNonceCookie)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_nonce", Err: errors.New("nonce cookie missing")})
		return
	}

	assertion, err := h.Provider.Exchange(r.Context(), ports.ExchangeInput{
		Code:  r.URL.Query().Get("code"),
		State: state,
		Nonce: nonceCookie.Value,
	})
	if err != nil {
		h.logger().Error("complete login flow", slog.String("error", err.Error()))
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "login_failed", Err: errors.New("login failed")})
		return
	}

	session, _, err := h.SSO.Login(r.Context(), assertion, settings)
	if err != nil {
		writeReconcileError(w, err, h.logger())
		return
	}

	h.Cookies.SetSession(w, r, *session)
	h.Cookies.clearOAuth(w, r)

	redirectTo := "/"
	if ck, ckErr := r.Cookie(postLoginRedirect); ckErr == nil {
		redirectTo = sanitizeRedirect(ck.Value)
	}
	http.Redirect(w, r, redirectTo, http.StatusFound)
}

// Logout terminates the local session without confirmation and hands the
// browser to the upstream logout URL so the SP session ends too.
func (h *SSOHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	settings, ok := loadSettings(w, r, h.Settings, h.logger())
	if !ok {
		return
	}

	if sessionID := sessionIDFromRequest(r); sessionID != "" {
		if err := h.SSO.Logout(r.Context(), sessionID); err != nil {
			h.logger().Warn("logout", slog.String("error", err.Error()))
		}
	}
	h.Cookies.Clear(w, r, SessionCookie)
	http.Redirect(w, r, settings.SessionLogoutURL, http.StatusFound)
}

// Password redirects to the IdP's password change page when one is
// configured. Local password management is disabled while SSO is on.
func (h *SSOHandlers) Password(w http.ResponseWriter, r *http.Request) {
	h.redirectOrExplain(w, r, func(s sso.Settings) string { return s.PassChangeURL })
}

// LostPassword redirects to the IdP's password reset page when one is
// configured.
func (h *SSOHandlers) LostPassword(w http.ResponseWriter, r *http.Request) {
	h.redirectOrExplain(w, r, func(s sso.Settings) string { return s.PassResetURL })
}

func (h *SSOHandlers) redirectOrExplain(w http.ResponseWriter, r *http.Request, pick func(sso.Settings) string) {
	settings, ok := loadSettings(w, r, h.Settings, h.logger())
	if !ok {
		return
	}
	if target := pick(settings); target != "" {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "passwords are managed by your identity provider; contact your administrator",
	})
}

// Status reports the authentication state of the calling browser.
func (h *SSOHandlers) Status(w http.ResponseWriter, r *http.Request) {
	settings, ok := loadSettings(w, r, h.Settings, h.logger())
	if !ok {
		return
	}

	sess, live := h.SSO.Session(r.Context(), sessionIDFromRequest(r))
	if !live {
		WriteJSON(w, http.StatusOK, map[string]any{
			"sso_enabled":   settings.Enabled,
			"authenticated": false,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"sso_enabled":   settings.Enabled,
		"authenticated": true,
		"user": map[string]any{
			"username":     sess.Username,
			"email":        sess.Email,
			"display_name": sess.DisplayName,
		},
		"expires_at": sess.ExpiresAt,
	})
}

// Profile fields owned by the IdP while SSO is enabled.
var ownedProfileFields = []string{"first_name", "last_name", "display_name", "email"}

// ProfileGuard accepts a proposed profile update and rewrites IdP-owned
// fields back to their stored values, so edits made in the upstream's UI can
// never diverge the local record from the IdP's view.
func (h *SSOHandlers) ProfileGuard(w http.ResponseWriter, r *http.Request) {
	settings, ok := loadSettings(w, r, h.Settings, h.logger())
	if !ok {
		return
	}

	var proposed map[string]any
	if !DecodeJSON(w, r, &proposed) {
		return
	}
	if proposed == nil {
		proposed = map[string]any{}
	}

	if !settings.Enabled {
		WriteJSON(w, http.StatusOK, proposed)
		return
	}

	sess, live := h.SSO.Session(r.Context(), sessionIDFromRequest(r))
	if !live {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required", Err: errors.New("authentication required")})
		return
	}

	account, err := h.Accounts.FindByUsername(r.Context(), sess.Username)
	if err != nil {
		if apperrors.IsNotFound(err) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "account_not_found", Err: errors.New("account not found")})
			return
		}
		h.logger().Error("profile guard lookup", slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	stored := map[string]any{
		"first_name":   account.FirstName,
		"last_name":    account.LastName,
		"display_name": account.DisplayName,
		"email":        account.Email,
	}
	for _, f := range ownedProfileFields {
		if _, edited := proposed[f]; edited {
			proposed[f] = stored[f]
		}
	}
	WriteJSON(w, http.StatusOK, proposed)
}

// sanitizeRedirect keeps post-login redirects on this host: only a relative
// path is accepted, anything else collapses to "/".
func sanitizeRedirect(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	return raw
}
