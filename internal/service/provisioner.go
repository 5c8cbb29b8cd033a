package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/campusops/shibgate/internal/domain/model"
	"github.com/campusops/shibgate/internal/domain/sso"
	apperrors "github.com/campusops/shibgate/internal/errors"
	"github.com/campusops/shibgate/internal/ports"
)

// ProvisionerOptions groups dependencies for Provisioner.
type ProvisionerOptions struct {
	Accounts ports.AccountStore
	Audit    ports.AuditSink
	Logger   *slog.Logger
}

// Provisioner maps a valid identity assertion onto a local account:
// find by username, create when permitted, and resync identity fields on
// every login so the local record never drifts from the IdP's view.
type Provisioner struct {
	accounts ports.AccountStore
	audit    ports.AuditSink
	logger   *slog.Logger
}

// NewProvisioner constructs a new Provisioner.
func NewProvisioner(opts ProvisionerOptions) *Provisioner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		accounts: opts.Accounts,
		audit:    opts.Audit,
		logger:   logger,
	}
}

// ProvisionOrLogin resolves the asserted identity to a local account.
//
// An existing account is updated in place; an unknown username is created
// only when settings allow autoprovisioning, otherwise the attempt is denied.
// Every path that denies the login (unknown user, lookup failure, or a store
// rejection) emits a login-failure audit event so repeated denials are
// observable. The account's credential column is overwritten with a fresh
// unusable placeholder on every call, so a password set before SSO was
// enabled cannot survive as a back door.
func (p *Provisioner) ProvisionOrLogin(ctx context.Context, assertion sso.Assertion, settings sso.Settings) (*model.Account, error) {
	if !assertion.Present {
		return nil, apperrors.Validation("assertion is not present")
	}

	fields, err := fieldsFromAssertion(assertion)
	if err != nil {
		return nil, err
	}

	account, err := p.accounts.FindByUsername(ctx, assertion.Username)
	switch {
	case err == nil:
		synced, syncErr := p.accounts.Update(ctx, account.ID, fields)
		if syncErr != nil {
			p.logger.Error("account sync failed",
				slog.String("username", assertion.Username),
				slog.String("error", syncErr.Error()))
			p.audit.LoginFailed(ctx, assertion.Username)
			return nil, apperrors.Provisioning(apperrors.PhaseSync, syncErr)
		}
		return synced, nil

	case apperrors.IsNotFound(err):
		if !settings.Autoprovision {
			p.audit.LoginFailed(ctx, assertion.Username)
			return nil, apperrors.AccessDenied()
		}
		created, createErr := p.accounts.Create(ctx, fields)
		if createErr != nil {
			p.logger.Error("account creation failed",
				slog.String("username", assertion.Username),
				slog.String("error", createErr.Error()))
			p.audit.LoginFailed(ctx, assertion.Username)
			return nil, apperrors.Provisioning(apperrors.PhaseCreate, createErr)
		}
		p.logger.Info("account provisioned", slog.String("username", created.Username))
		return created, nil

	default:
		p.audit.LoginFailed(ctx, assertion.Username)
		return nil, apperrors.Provisioning(apperrors.PhaseSync, err)
	}
}

func fieldsFromAssertion(a sso.Assertion) (model.AccountFields, error) {
	placeholder, err := newPlaceholderCredential()
	if err != nil {
		return model.AccountFields{}, apperrors.Provisioning(apperrors.PhaseCreate, err)
	}
	return model.AccountFields{
		Username:            a.Username,
		Email:               a.Email,
		DisplayName:         a.DisplayName(),
		FirstName:           a.FirstName,
		LastName:            a.LastName,
		PasswordPlaceholder: placeholder,
	}, nil
}

// newPlaceholderCredential returns a random value for the account store's
// credential column. It is regenerated on every login and never usable for
// interactive authentication.
func newPlaceholderCredential() (string, error) {
	b := make([]byte, 30)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate placeholder credential: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
