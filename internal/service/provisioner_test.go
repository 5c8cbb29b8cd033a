package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/campusops/shibgate/internal/domain/model"
	"github.com/campusops/shibgate/internal/domain/sso"
	apperrors "github.com/campusops/shibgate/internal/errors"
	"github.com/campusops/shibgate/internal/mocks"
	ssomocks "github.com/campusops/shibgate/internal/mocks/sso"
)

func testAssertion() sso.Assertion {
	return sso.Assertion{
		Present:   true,
		Username:  "jdoe",
		Email:     "jdoe@example.edu",
		FirstName: "Jane",
		LastName:  "Doe",
	}
}

func TestProvisioner_UnknownUser_AutoprovisionOff_Denied(t *testing.T) {
	accounts := ssomocks.NewMemoryAccountStore()
	audit := &ssomocks.RecordingAuditSink{}
	p := NewProvisioner(ProvisionerOptions{Accounts: accounts, Audit: audit})

	settings := sso.DefaultSettings()
	settings.Enabled = true

	_, err := p.ProvisionOrLogin(context.Background(), testAssertion(), settings)

	require.Error(t, err)
	assert.True(t, apperrors.IsAccessDenied(err))
	assert.Equal(t, []string{"jdoe"}, audit.Failures)
	assert.Empty(t, accounts.CreateCalls)
}

func TestProvisioner_UnknownUser_AutoprovisionOn_Creates(t *testing.T) {
	accounts := ssomocks.NewMemoryAccountStore()
	audit := &ssomocks.RecordingAuditSink{}
	p := NewProvisioner(ProvisionerOptions{Accounts: accounts, Audit: audit})

	settings := sso.DefaultSettings()
	settings.Enabled = true
	settings.Autoprovision = true

	account, err := p.ProvisionOrLogin(context.Background(), testAssertion(), settings)

	require.NoError(t, err)
	assert.Equal(t, "jdoe", account.Username)
	assert.Equal(t, "Jane Doe", account.DisplayName)
	require.Len(t, accounts.CreateCalls, 1)
	assert.NotEmpty(t, accounts.CreateCalls[0].PasswordPlaceholder)
	assert.Zero(t, audit.FailureCount())
}

func TestProvisioner_ExistingUser_ResyncsIdentityFields(t *testing.T) {
	accounts := ssomocks.NewMemoryAccountStore()
	accounts.Seed(model.Account{
		Username:    "jdoe",
		Email:       "old@example.edu",
		FirstName:   "J",
		LastName:    "D",
		DisplayName: "J D",
	})
	p := NewProvisioner(ProvisionerOptions{Accounts: accounts, Audit: &ssomocks.RecordingAuditSink{}})

	// Autoprovision off must not matter for an account that already exists.
	account, err := p.ProvisionOrLogin(context.Background(), testAssertion(), sso.DefaultSettings())

	require.NoError(t, err)
	assert.Equal(t, "jdoe@example.edu", account.Email)
	assert.Equal(t, "Jane", account.FirstName)
	assert.Equal(t, "Doe", account.LastName)
	assert.Equal(t, "Jane Doe", account.DisplayName)
	require.Len(t, accounts.UpdateCalls, 1)
}

func TestProvisioner_ResyncIsIdempotent(t *testing.T) {
	accounts := ssomocks.NewMemoryAccountStore()
	settings := sso.DefaultSettings()
	settings.Autoprovision = true
	p := NewProvisioner(ProvisionerOptions{Accounts: accounts, Audit: &ssomocks.RecordingAuditSink{}})

	first, err := p.ProvisionOrLogin(context.Background(), testAssertion(), settings)
	require.NoError(t, err)
	second, err := p.ProvisionOrLogin(context.Background(), testAssertion(), settings)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Email, second.Email)
	assert.Len(t, accounts.CreateCalls, 1)
	assert.Len(t, accounts.UpdateCalls, 1)
}

func TestProvisioner_AbsentAssertionRejected(t *testing.T) {
	p := NewProvisioner(ProvisionerOptions{
		Accounts: ssomocks.NewMemoryAccountStore(),
		Audit:    &ssomocks.RecordingAuditSink{},
	})

	_, err := p.ProvisionOrLogin(context.Background(), sso.Assertion{}, sso.DefaultSettings())

	assert.True(t, apperrors.IsValidation(err))
}

func TestProvisioner_CreateFailure_CarriesPhase(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accounts := mocks.NewMockAccountStore(ctrl)
	accounts.EXPECT().FindByUsername(gomock.Any(), "jdoe").Return(nil, apperrors.NotFound("no account"))
	accounts.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, apperrors.Conflict("duplicate username"))

	audit := &ssomocks.RecordingAuditSink{}
	p := NewProvisioner(ProvisionerOptions{Accounts: accounts, Audit: audit})
	settings := sso.DefaultSettings()
	settings.Autoprovision = true

	_, err := p.ProvisionOrLogin(context.Background(), testAssertion(), settings)

	require.Error(t, err)
	assert.True(t, apperrors.IsProvisioning(err))
	assert.Equal(t, apperrors.PhaseCreate, apperrors.GetPhase(err))
	assert.Equal(t, []string{"jdoe"}, audit.Failures, "a failed create denies the login and must be audited")
}

func TestProvisioner_SyncFailure_CarriesPhase(t *testing.T) {
	accounts := ssomocks.NewMemoryAccountStore()
	accounts.Seed(model.Account{Username: "jdoe"})
	accounts.UpdateErr = assert.AnError
	audit := &ssomocks.RecordingAuditSink{}
	p := NewProvisioner(ProvisionerOptions{Accounts: accounts, Audit: audit})

	_, err := p.ProvisionOrLogin(context.Background(), testAssertion(), sso.DefaultSettings())

	require.Error(t, err)
	assert.True(t, apperrors.IsProvisioning(err))
	assert.Equal(t, apperrors.PhaseSync, apperrors.GetPhase(err))
	assert.Equal(t, []string{"jdoe"}, audit.Failures, "a failed resync denies the login and must be audited")
}

func TestProvisioner_LookupFailure_Audited(t *testing.T) {
	accounts := ssomocks.NewMemoryAccountStore()
	accounts.FindErr = assert.AnError
	audit := &ssomocks.RecordingAuditSink{}
	p := NewProvisioner(ProvisionerOptions{Accounts: accounts, Audit: audit})

	_, err := p.ProvisionOrLogin(context.Background(), testAssertion(), sso.DefaultSettings())

	require.Error(t, err)
	assert.True(t, apperrors.IsProvisioning(err))
	assert.Equal(t, []string{"jdoe"}, audit.Failures)
}

func TestNewPlaceholderCredential_Random(t *testing.T) {
	a, err := newPlaceholderCredential()
	require.NoError(t, err)
	b, err := newPlaceholderCredential()
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
