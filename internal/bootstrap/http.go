package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campusops/shibgate/config"
	httpx "github.com/campusops/shibgate/internal/http"
)

const shutdownTimeout = 15 * time.Second

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// BuildHandler constructs the gateway's HTTP handler.
func BuildHandler(cfg *HTTPServerConfig) (http.Handler, error) {
	upstream, err := url.Parse(cfg.Config.HTTP.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream URL: %w", err)
	}
	if upstream.Scheme != "http" && upstream.Scheme != "https" {
		return nil, fmt.Errorf("upstream URL scheme must be http or https, got %q", upstream.Scheme)
	}

	return httpx.NewRouter(httpx.RouterServices{
		Settings:     cfg.Services.Settings,
		SSO:          cfg.Services.SSO,
		Accounts:     cfg.Services.Accounts,
		Reader:       cfg.Services.Reader,
		Provider:     cfg.Services.Provider,
		Upstream:     upstream,
		BaseURL:      cfg.Config.HTTP.BaseURL,
		CookieDomain: cfg.Config.HTTP.CookieDomain,
		Logger:       cfg.Logger,
	}), nil
}

// RunServer starts the HTTP server and blocks until the context is cancelled
// by a signal or the server fails, then shuts down gracefully.
func RunServer(ctx context.Context, cfg *HTTPServerConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler, err := BuildHandler(cfg)
	if err != nil {
		return err
	}

	addr := cfg.Config.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server",
			"addr", server.Addr,
			"upstream", cfg.Config.HTTP.UpstreamURL,
			"identity_mode", string(cfg.Config.Identity.Mode))
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", serveErr)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("shutdown http server: %w", shutdownErr)
		}
		return nil
	})

	return g.Wait()
}
