package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/shibgate/internal/domain/sso"
	apperrors "github.com/campusops/shibgate/internal/errors"
	"github.com/campusops/shibgate/internal/testutil"
)

func TestSettingsRepo_LoadBeforeSaveIsNotFound(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewSettingsRepo(db)

		_, err := repo.Load(context.Background())
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestSettingsRepo_SaveAndLoadRoundTrip(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewSettingsRepo(db)
		ctx := context.Background()

		settings := sso.DefaultSettings()
		settings.Enabled = true
		settings.Autoprovision = true
		settings.AttrUsername = "eppn"
		settings.PassResetURL = "https://idp.example.edu/reset"

		require.NoError(t, repo.Save(ctx, settings))

		got, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, settings, got)
	})
}

func TestSettingsRepo_SaveReplacesAtomically(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewSettingsRepo(db)
		ctx := context.Background()

		first := sso.DefaultSettings()
		first.Enabled = true
		require.NoError(t, repo.Save(ctx, first))

		second := sso.DefaultSettings()
		second.Debug = true
		require.NoError(t, repo.Save(ctx, second))

		got, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, second, got)

		// Still a single row under the stable key.
		var count int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM sso_settings`).Scan(&count))
		assert.Equal(t, 1, count)
	})
}

func TestSettingsRepo_Delete(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewSettingsRepo(db)
		ctx := context.Background()

		require.NoError(t, repo.Save(ctx, sso.DefaultSettings()))
		require.NoError(t, repo.Delete(ctx))

		_, err := repo.Load(ctx)
		assert.True(t, apperrors.IsNotFound(err))

		// Deleting again is harmless.
		assert.NoError(t, repo.Delete(ctx))
	})
}
