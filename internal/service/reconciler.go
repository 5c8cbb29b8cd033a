package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/campusops/shibgate/internal/domain/model"
	"github.com/campusops/shibgate/internal/domain/sso"
	"github.com/campusops/shibgate/internal/ports"
)

// SSOServiceOptions groups dependencies for SSOService.
type SSOServiceOptions struct {
	Sessions    ports.SessionStore
	Provisioner *Provisioner
	SessionTTL  time.Duration
	Logger      *slog.Logger
}

// SSOService reconciles local and upstream session state on every request and
// drives the resulting side effects: session creation on login, session
// destruction on forced logout.
type SSOService struct {
	sessions    ports.SessionStore
	provisioner *Provisioner
	sessionTTL  time.Duration
	logger      *slog.Logger
}

// NewSSOService constructs a new SSOService.
func NewSSOService(opts SSOServiceOptions) *SSOService {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SSOService{
		sessions:    opts.Sessions,
		provisioner: opts.Provisioner,
		sessionTTL:  ttl,
		logger:      logger,
	}
}

// ReconcileInput carries the per-request facts the reconciler acts on.
type ReconcileInput struct {
	Settings  sso.Settings
	Assertion sso.Assertion
	// SessionID is the value of the session cookie, or empty when absent.
	SessionID string
}

// Decision is the reconciler's verdict for one request. Session and Account
// are populated only for outcomes that carry an authenticated identity.
type Decision struct {
	Outcome sso.Outcome
	Session *sso.Session
	Account *model.Account
}

// Reconcile evaluates the four-way session state machine for one request and
// performs the outcome's side effects. It never errors for the redirect and
// forced-logout outcomes; a failed login provision surfaces as an error so the
// transport layer can render the denial.
func (s *SSOService) Reconcile(ctx context.Context, in ReconcileInput) (Decision, error) {
	local, localActive := s.lookupSession(ctx, in.SessionID)
	outcome := sso.Reconcile(localActive, in.Assertion.Present)

	if in.Settings.Debug {
		s.logger.Debug("session reconciled",
			slog.Bool("local_session", localActive),
			slog.Bool("assertion_present", in.Assertion.Present),
			slog.String("outcome", string(outcome)))
	}

	switch outcome {
	case sso.OutcomePassThrough:
		return Decision{Outcome: outcome, Session: &local}, nil

	case sso.OutcomeLogin:
		session, account, err := s.Login(ctx, in.Assertion, in.Settings)
		if err != nil {
			return Decision{Outcome: outcome}, err
		}
		return Decision{Outcome: outcome, Session: session, Account: account}, nil

	case sso.OutcomeForceLogout:
		if err := s.sessions.Delete(ctx, local.ID); err != nil {
			// The cookie is cleared regardless; an orphaned record only
			// lingers until its TTL.
			s.logger.Warn("session delete failed",
				slog.String("session_id", local.ID),
				slog.String("error", err.Error()))
		}
		return Decision{Outcome: outcome}, nil

	default: // sso.OutcomeRedirectToIdP
		return Decision{Outcome: outcome}, nil
	}
}

// Login provisions (or syncs) the asserted account and establishes a local
// session for it. It is the shared tail of the reconciler's login outcome and
// the interactive IdP callback.
func (s *SSOService) Login(ctx context.Context, assertion sso.Assertion, settings sso.Settings) (*sso.Session, *model.Account, error) {
	account, err := s.provisioner.ProvisionOrLogin(ctx, assertion, settings)
	if err != nil {
		return nil, nil, err
	}

	session := sso.Session{
		ID:          uuid.NewString(),
		Username:    account.Username,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		ExpiresAt:   time.Now().Add(s.sessionTTL),
	}
	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, nil, fmt.Errorf("save session: %w", saveErr)
	}

	s.logger.Info("user logged in", slog.String("username", account.Username))
	return &session, account, nil
}

// Logout destroys the local session. A missing session is not an error.
func (s *SSOService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !isStoreNotFound(err) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Session returns the live session for id, or (zero, false) when the cookie
// does not correspond to an unexpired record.
func (s *SSOService) Session(ctx context.Context, id string) (sso.Session, bool) {
	return s.lookupSession(ctx, id)
}

func (s *SSOService) lookupSession(ctx context.Context, id string) (sso.Session, bool) {
	if id == "" {
		return sso.Session{}, false
	}
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if !isStoreNotFound(err) {
			s.logger.Warn("session lookup failed",
				slog.String("session_id", id),
				slog.String("error", err.Error()))
		}
		return sso.Session{}, false
	}
	return sess, true
}

func isStoreNotFound(err error) bool {
	var nf interface{ NotFound() bool }
	return errors.As(err, &nf) && nf.NotFound()
}
