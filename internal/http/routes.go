package httpx

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/campusops/shibgate/internal/ports"
	"github.com/campusops/shibgate/internal/service"
)

// RouterServices holds everything the HTTP router needs. Exactly one of
// Reader / Provider drives authentication: Reader for the header-trust modes,
// Provider for the interactive oidc mode.
type RouterServices struct {
	Settings *service.SettingsService
	SSO      *service.SSOService
	Accounts ports.AccountStore
	Reader   ports.AssertionReader
	Provider ports.LoginProvider

	Upstream     *url.URL
	BaseURL      string
	CookieDomain string
	Logger       *slog.Logger
}

// NewRouter wires the gateway: its own /sso/ and health endpoints, and the
// authenticated reverse proxy for everything else.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cookies := Cookies{Domain: services.CookieDomain}

	mux := http.NewServeMux()

	ssoHandlers := &SSOHandlers{
		Settings: services.Settings,
		SSO:      services.SSO,
		Reader:   services.Reader,
		Provider: services.Provider,
		Accounts: services.Accounts,
		Cookies:  cookies,
		BaseURL:  services.BaseURL,
		Logger:   logger,
	}

	mux.HandleFunc("GET /sso/login", ssoHandlers.Login)
	mux.HandleFunc("GET /sso/callback", ssoHandlers.Callback)
	mux.HandleFunc("GET /sso/logout", ssoHandlers.Logout)
	mux.HandleFunc("GET /sso/password", ssoHandlers.Password)
	mux.HandleFunc("GET /sso/lost-password", ssoHandlers.LostPassword)
	mux.HandleFunc("GET /sso/status", ssoHandlers.Status)
	mux.HandleFunc("POST /profile", ssoHandlers.ProfileGuard)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	gateOpts := GateOptions{
		Settings: services.Settings,
		SSO:      services.SSO,
		Reader:   services.Reader,
		Cookies:  cookies,
		BaseURL:  services.BaseURL,
		Logger:   logger,
	}
	gate := ReconcileGate(gateOpts)
	if services.Provider != nil {
		gate = SessionGate(gateOpts)
	}
	proxy := NewUpstreamProxy(services.Upstream, logger)
	mux.Handle("/", gate(proxy))

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
