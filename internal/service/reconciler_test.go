package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/shibgate/internal/domain/model"
	"github.com/campusops/shibgate/internal/domain/sso"
	apperrors "github.com/campusops/shibgate/internal/errors"
	ssomocks "github.com/campusops/shibgate/internal/mocks/sso"
)

type reconcilerFixture struct {
	svc      *SSOService
	sessions *ssomocks.MemorySessionStore
	accounts *ssomocks.MemoryAccountStore
	audit    *ssomocks.RecordingAuditSink
}

func newReconcilerFixture(t *testing.T) *reconcilerFixture {
	t.Helper()
	sessions := ssomocks.NewMemorySessionStore()
	accounts := ssomocks.NewMemoryAccountStore()
	audit := &ssomocks.RecordingAuditSink{}
	svc := NewSSOService(SSOServiceOptions{
		Sessions: sessions,
		Provisioner: NewProvisioner(ProvisionerOptions{
			Accounts: accounts,
			Audit:    audit,
		}),
		SessionTTL: time.Hour,
	})
	return &reconcilerFixture{svc: svc, sessions: sessions, accounts: accounts, audit: audit}
}

func enabledSettings() sso.Settings {
	s := sso.DefaultSettings()
	s.Enabled = true
	s.Autoprovision = true
	return s
}

func (f *reconcilerFixture) activeSession(t *testing.T) sso.Session {
	t.Helper()
	sess := sso.Session{
		ID:        "sess-1",
		Username:  "jdoe",
		Email:     "jdoe@example.edu",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, f.sessions.Save(context.Background(), sess))
	return sess
}

func TestSSOService_Reconcile_PassThrough(t *testing.T) {
	f := newReconcilerFixture(t)
	sess := f.activeSession(t)

	decision, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Settings:  enabledSettings(),
		Assertion: testAssertion(),
		SessionID: sess.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, sso.OutcomePassThrough, decision.Outcome)
	require.NotNil(t, decision.Session)
	assert.Equal(t, "jdoe", decision.Session.Username)
}

func TestSSOService_Reconcile_LoginProvisionsAndCreatesSession(t *testing.T) {
	f := newReconcilerFixture(t)

	decision, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Settings:  enabledSettings(),
		Assertion: testAssertion(),
	})

	require.NoError(t, err)
	assert.Equal(t, sso.OutcomeLogin, decision.Outcome)
	require.NotNil(t, decision.Session)
	require.NotNil(t, decision.Account)
	assert.Equal(t, "jdoe", decision.Account.Username)
	assert.NotEmpty(t, decision.Session.ID)
	assert.Equal(t, 1, f.sessions.Len())

	stored, err := f.sessions.Get(context.Background(), decision.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.Username)
}

func TestSSOService_Reconcile_LoginDenied_NoSessionCreated(t *testing.T) {
	f := newReconcilerFixture(t)
	settings := enabledSettings()
	settings.Autoprovision = false

	_, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Settings:  settings,
		Assertion: testAssertion(),
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsAccessDenied(err))
	assert.Equal(t, 0, f.sessions.Len())
	assert.Equal(t, 1, f.audit.FailureCount())
}

func TestSSOService_Reconcile_NoSessions_RedirectsToIdP(t *testing.T) {
	f := newReconcilerFixture(t)

	decision, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Settings: enabledSettings(),
	})

	require.NoError(t, err)
	assert.Equal(t, sso.OutcomeRedirectToIdP, decision.Outcome)
	assert.Nil(t, decision.Session)
}

func TestSSOService_Reconcile_ForceLogout_TerminatesSession(t *testing.T) {
	f := newReconcilerFixture(t)
	sess := f.activeSession(t)

	decision, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Settings:  enabledSettings(),
		SessionID: sess.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, sso.OutcomeForceLogout, decision.Outcome)
	assert.Equal(t, 0, f.sessions.Len())
}

func TestSSOService_Reconcile_ForceLogoutWinsOverStaleAssertionAbsence(t *testing.T) {
	// An expired local record behaves like no local session: the user is
	// sent back to the IdP rather than force-logged-out.
	f := newReconcilerFixture(t)
	require.NoError(t, f.sessions.Save(context.Background(), sso.Session{
		ID:        "expired",
		Username:  "jdoe",
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, f.sessions.Delete(context.Background(), "expired"))

	decision, err := f.svc.Reconcile(context.Background(), ReconcileInput{
		Settings:  enabledSettings(),
		SessionID: "expired",
	})

	require.NoError(t, err)
	assert.Equal(t, sso.OutcomeRedirectToIdP, decision.Outcome)
}

func TestSSOService_Login_Direct(t *testing.T) {
	f := newReconcilerFixture(t)
	f.accounts.Seed(model.Account{Username: "jdoe", Email: "jdoe@example.edu"})

	session, account, err := f.svc.Login(context.Background(), testAssertion(), enabledSettings())

	require.NoError(t, err)
	assert.Equal(t, account.Username, session.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)
}

func TestSSOService_Logout(t *testing.T) {
	f := newReconcilerFixture(t)
	sess := f.activeSession(t)

	require.NoError(t, f.svc.Logout(context.Background(), sess.ID))
	assert.Equal(t, 0, f.sessions.Len())

	// Logging out twice or with no cookie is not an error.
	require.NoError(t, f.svc.Logout(context.Background(), sess.ID))
	require.NoError(t, f.svc.Logout(context.Background(), ""))
}

func TestSSOService_Session_Lookup(t *testing.T) {
	f := newReconcilerFixture(t)
	sess := f.activeSession(t)

	got, ok := f.svc.Session(context.Background(), sess.ID)
	assert.True(t, ok)
	assert.Equal(t, sess.Username, got.Username)

	_, ok = f.svc.Session(context.Background(), "missing")
	assert.False(t, ok)

	_, ok = f.svc.Session(context.Background(), "")
	assert.False(t, ok)
}
