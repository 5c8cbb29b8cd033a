// Package ports defines interfaces (hexagonal ports) for the SSO bridge.
// Implementations live in internal/adapters and internal/data; orchestration
// in internal/service.
package ports

import (
	"context"
	"net/http"

	"github.com/campusops/shibgate/internal/domain/model"
	"github.com/campusops/shibgate/internal/domain/sso"
	"github.com/google/uuid"
)

// AssertionReader derives the identity assertion for the current request from
// its trusted transport context. Implementations must treat only
// proxy-injected values as trustworthy, never client-supplied headers, and
// must return Present=false on any check failure. There is no error path.
type AssertionReader interface {
	Read(settings sso.Settings, r *http.Request) sso.Assertion
}

// AccountStore is the host application's user store as seen by the core:
// lookup by username, create, and update. Nothing else.
type AccountStore interface {
	// FindByUsername returns the account with the exact username, or an error
	// satisfying errors.IsNotFound when none exists.
	FindByUsername(ctx context.Context, username string) (*model.Account, error)

	Create(ctx context.Context, fields model.AccountFields) (*model.Account, error)
	Update(ctx context.Context, id uuid.UUID, fields model.AccountFields) (*model.Account, error)
}

// SessionStore persists and retrieves local application sessions.
type SessionStore interface {
	Save(ctx context.Context, sess sso.Session) error
	Get(ctx context.Context, id string) (sso.Session, error)
	Delete(ctx context.Context, id string) error
}

// SettingsStore persists the single SSO settings record under a stable key.
type SettingsStore interface {
	// Load returns the stored record, or an error satisfying
	// errors.IsNotFound when none has been saved yet.
	Load(ctx context.Context) (sso.Settings, error)
	Save(ctx context.Context, settings sso.Settings) error
}

// AuditSink receives security-relevant events. Every denial of access emits
// one so repeated attempts are observable.
type AuditSink interface {
	LoginFailed(ctx context.Context, username string)
}

// ExchangeInput groups parameters for completing a direct IdP login flow.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// LoginProvider runs an interactive login flow against an IdP for identity
// modes where no SP module injects trusted headers (e.g. OIDC). The exchanged
// identity is expressed as the same Assertion the reconciler consumes.
type LoginProvider interface {
	// Begin starts the flow and returns the provider auth URL, an opaque
	// state, and a nonce.
	Begin(ctx context.Context, redirectURL string) (authURL, state, nonce string, err error)

	// Exchange completes the flow, verifying state and nonce.
	Exchange(ctx context.Context, in ExchangeInput) (sso.Assertion, error)
}
