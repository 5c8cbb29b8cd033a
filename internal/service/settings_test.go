package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/shibgate/internal/domain/sso"
	ssomocks "github.com/campusops/shibgate/internal/mocks/sso"
)

func TestSettingsService_Load_DefaultsWhenUnsaved(t *testing.T) {
	svc := NewSettingsService(&ssomocks.MemorySettingsStore{})

	got, err := svc.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, sso.DefaultSettings(), got)
}

func TestSettingsService_Load_PropagatesStoreFailure(t *testing.T) {
	store := &ssomocks.MemorySettingsStore{LoadErr: assert.AnError}
	svc := NewSettingsService(store)

	_, err := svc.Load(context.Background())
	assert.Error(t, err)
}

func TestSettingsService_Save_Sanitizes(t *testing.T) {
	store := &ssomocks.MemorySettingsStore{}
	svc := NewSettingsService(store)

	saved, err := svc.Save(context.Background(), sso.Settings{
		Enabled:      true,
		AttrUsername: "  eppn  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "eppn", saved.AttrUsername)
	assert.Equal(t, "mail", saved.AttrEmail)

	loaded, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestSettingsService_SetEnabled_PreservesOtherFields(t *testing.T) {
	store := &ssomocks.MemorySettingsStore{}
	svc := NewSettingsService(store)

	settings := sso.DefaultSettings()
	settings.Autoprovision = true
	settings.AttrUsername = "eppn"
	_, err := svc.Save(context.Background(), settings)
	require.NoError(t, err)

	enabled, err := svc.SetEnabled(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, enabled.Enabled)
	assert.True(t, enabled.Autoprovision)
	assert.Equal(t, "eppn", enabled.AttrUsername)

	disabled, err := svc.SetEnabled(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled)
	assert.True(t, disabled.Autoprovision)
}
