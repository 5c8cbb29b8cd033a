package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/campusops/shibgate/internal/adapters/shibheaders"
	"github.com/campusops/shibgate/internal/domain/sso"
	apperrors "github.com/campusops/shibgate/internal/errors"
	"github.com/campusops/shibgate/internal/ports"
	"github.com/campusops/shibgate/internal/service"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// GateOptions groups dependencies for the authentication gates that wrap the
// upstream proxy.
type GateOptions struct {
	Settings *service.SettingsService
	SSO      *service.SSOService
	Reader   ports.AssertionReader
	Cookies  Cookies
	// BaseURL is the externally visible base of the gateway, without a
	// trailing slash. May be empty for same-host relative redirects.
	BaseURL string
	Logger  *slog.Logger
}

// ReconcileGate returns the per-request session reconciliation middleware
// used when identity arrives as trusted headers (shib and mock modes). Every
// proxied request is reconciled against the upstream assertion so that an
// expired upstream session cannot leave a stale local session authenticated.
func ReconcileGate(opts GateOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			settings, ok := loadSettings(w, r, opts.Settings, logger)
			if !ok {
				return
			}
			if !settings.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			decision, err := opts.SSO.Reconcile(r.Context(), service.ReconcileInput{
				Settings:  settings,
				Assertion: opts.Reader.Read(settings, r),
				SessionID: sessionIDFromRequest(r),
			})
			if err != nil {
				writeReconcileError(w, err, logger)
				return
			}

			switch decision.Outcome {
			case sso.OutcomePassThrough:
				serveAuthenticated(w, r, next, settings, decision.Session)

			case sso.OutcomeLogin:
				opts.Cookies.SetSession(w, r, *decision.Session)
				serveAuthenticated(w, r, next, settings, decision.Session)

			case sso.OutcomeForceLogout:
				// The upstream session is gone; land on the home location so
				// the next navigation restarts the flow from scratch.
				opts.Cookies.Clear(w, r, SessionCookie)
				http.Redirect(w, r, "/", http.StatusFound)

			default: // sso.OutcomeRedirectToIdP
				redirectToInitiator(w, r, settings, opts.BaseURL)
			}
		})
	}
}

// SessionGate returns the middleware used when the gateway authenticates
// browsers itself (oidc mode): a live local session passes through, anything
// else is sent into the interactive login flow. There is no per-request
// upstream assertion to reconcile against in this mode, so session lifetime
// is bounded by the store TTL alone.
func SessionGate(opts GateOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			settings, ok := loadSettings(w, r, opts.Settings, logger)
			if !ok {
				return
			}
			if !settings.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			if sess, live := opts.SSO.Session(r.Context(), sessionIDFromRequest(r)); live {
				serveAuthenticated(w, r, next, settings, &sess)
				return
			}

			login := opts.BaseURL + "/sso/login?redirect_to=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, login, http.StatusFound)
		})
	}
}

func loadSettings(w http.ResponseWriter, r *http.Request, svc *service.SettingsService, logger *slog.Logger) (sso.Settings, bool) {
	settings, err := svc.Load(r.Context())
	if err != nil {
		// Fail closed: passing traffic with unknown settings could expose
		// the upstream unauthenticated.
		logger.Error("settings load failed", slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return sso.Settings{}, false
	}
	return settings, true
}

// serveAuthenticated forwards to next with the session in context and the
// upstream's trusted identity headers removed, so the upstream only ever
// sees the gateway's own identity headers.
func serveAuthenticated(w http.ResponseWriter, r *http.Request, next http.Handler, settings sso.Settings, sess *sso.Session) {
	for _, h := range shibheaders.TrustedHeaders(settings) {
		r.Header.Del(h)
	}
	next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), sess)))
}

func redirectToInitiator(w http.ResponseWriter, r *http.Request, settings sso.Settings, baseURL string) {
	loginURL := baseURL + "/sso/login"
	redirectTo := ""
	if r.Method == http.MethodGet && r.URL.RequestURI() != "/" {
		redirectTo = r.URL.RequestURI()
	}
	http.Redirect(w, r, sso.BuildInitiatorURL(settings, loginURL, redirectTo), http.StatusFound)
}

func writeReconcileError(w http.ResponseWriter, err error, logger *slog.Logger) {
	switch {
	case apperrors.IsAccessDenied(err):
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "access_denied", Err: err})
	case apperrors.IsProvisioning(err):
		logger.Error("provisioning failed",
			slog.String("phase", apperrors.GetPhase(err)),
			slog.String("error", err.Error()))
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "provisioning_failed", Err: err})
	default:
		logger.Error("reconcile failed", slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
