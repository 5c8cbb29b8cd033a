package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/campusops/shibgate/config"
)

// InitLogger initializes the structured logger.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateConfig rejects configurations the gateway cannot run with.
func ValidateConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if cfg.HTTP.UpstreamURL == "" {
		return errors.New("UPSTREAM_URL is required")
	}
	if cfg.Identity.Mode == config.IdentityModeOIDC {
		if cfg.Identity.OIDC.ClientID == "" || cfg.Identity.OIDC.ClientSecret == "" || cfg.Identity.OIDC.DiscoveryURL == "" {
			return errors.New("identity mode oidc requires OIDC_CLIENT_ID, OIDC_CLIENT_SECRET, and OIDC_DISCOVERY_URL")
		}
	}
	if cfg.Identity.Mode == config.IdentityModeMock && !cfg.IsDev {
		return errors.New("identity mode mock is only allowed in development mode")
	}
	return nil
}
