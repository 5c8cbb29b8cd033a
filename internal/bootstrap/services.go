package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/campusops/shibgate/config"
	"github.com/campusops/shibgate/internal/adapters/devassert"
	"github.com/campusops/shibgate/internal/adapters/oidc"
	"github.com/campusops/shibgate/internal/adapters/redis"
	"github.com/campusops/shibgate/internal/adapters/shibheaders"
	"github.com/campusops/shibgate/internal/data"
	"github.com/campusops/shibgate/internal/ports"
	"github.com/campusops/shibgate/internal/service"
)

// ServiceDeps contains dependencies for service construction.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient goredis.UniversalClient
	Logger      *slog.Logger
}

// ServiceContainer holds the constructed services and the identity source
// for the configured mode. Exactly one of Reader / Provider is non-nil.
type ServiceContainer struct {
	Settings *service.SettingsService
	SSO      *service.SSOService
	Accounts ports.AccountStore
	Reader   ports.AssertionReader
	Provider ports.LoginProvider
}

// NewServices wires repositories, adapters, and services together.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	accounts := data.NewAccountRepo(deps.DB)
	settingsRepo := data.NewSettingsRepo(deps.DB)
	sessions := redis.NewSessionStore(deps.RedisClient)

	audit, err := service.NewAuditLog(service.AuditLogOptions{
		Logger:      logger,
		WebhookURL:  cfg.Audit.WebhookURL,
		WebhookBody: cfg.Audit.WebhookBody,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("audit log: %w", err)
	}

	provisioner := service.NewProvisioner(service.ProvisionerOptions{
		Accounts: accounts,
		Audit:    audit,
		Logger:   logger,
	})

	sso := service.NewSSOService(service.SSOServiceOptions{
		Sessions:    sessions,
		Provisioner: provisioner,
		SessionTTL:  cfg.Session.TTL,
		Logger:      logger,
	})

	container := ServiceContainer{
		Settings: service.NewSettingsService(settingsRepo),
		SSO:      sso,
		Accounts: accounts,
	}

	switch cfg.Identity.Mode {
	case config.IdentityModeShib:
		container.Reader = shibheaders.NewReader()

	case config.IdentityModeMock:
		reader, readerErr := devassert.NewReader(devassert.Config{
			Username:  cfg.Identity.Mock.Username,
			Email:     cfg.Identity.Mock.Email,
			FirstName: cfg.Identity.Mock.FirstName,
			LastName:  cfg.Identity.Mock.LastName,
		})
		if readerErr != nil {
			return ServiceContainer{}, fmt.Errorf("mock assertion reader: %w", readerErr)
		}
		logger.Warn("using mock identity assertions; never enable this outside development")
		container.Reader = reader

	case config.IdentityModeOIDC:
		provider, providerErr := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     cfg.Identity.OIDC.ClientID,
			ClientSecret: cfg.Identity.OIDC.ClientSecret,
			RedirectURL:  cfg.Identity.OIDC.RedirectURL,
			Scope:        cfg.Identity.OIDC.Scope,
			DiscoveryURL: cfg.Identity.OIDC.DiscoveryURL,
		})
		if providerErr != nil {
			return ServiceContainer{}, fmt.Errorf("oidc provider: %w", providerErr)
		}
		container.Provider = provider

	default:
		return ServiceContainer{}, fmt.Errorf("unsupported identity mode %q", cfg.Identity.Mode)
	}

	return container, nil
}
