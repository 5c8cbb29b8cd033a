package httpx

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// Identity headers attached to proxied requests for upstream consumption.
// Client-supplied copies are always removed before the gateway's own values
// are set.
const (
	HeaderAuthUsername = "X-Auth-Username"
	HeaderAuthEmail    = "X-Auth-Email"
	HeaderAuthName     = "X-Auth-Name"
)

var identityHeaders = []string{HeaderAuthUsername, HeaderAuthEmail, HeaderAuthName}

// NewUpstreamProxy returns a reverse proxy to the upstream application.
// When the request context carries an authenticated session, the proxied
// request carries the identity headers; otherwise they are absent.
func NewUpstreamProxy(upstream *url.URL, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
			pr.Out.Host = upstream.Host

			for _, h := range identityHeaders {
				pr.Out.Header.Del(h)
			}
			if sess, ok := GetSessionFromContext(pr.In.Context()); ok {
				pr.Out.Header.Set(HeaderAuthUsername, sess.Username)
				pr.Out.Header.Set(HeaderAuthEmail, sess.Email)
				pr.Out.Header.Set(HeaderAuthName, sess.DisplayName)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("upstream proxy",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()))
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		},
	}
}
