package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/campusops/shibgate/internal/domain/sso"
	apperrors "github.com/campusops/shibgate/internal/errors"
)

// settingsKey is the stable key the single SSO settings record lives under.
const settingsKey = "sso"

// SettingsRepo persists the SSO settings record as a JSONB document under a
// stable key. The record is written whole on every save so readers always see
// a consistent snapshot.
type SettingsRepo struct {
	DB *sql.DB
}

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{DB: db}
}

// Load returns the stored settings record. A missing record is reported as a
// not-found error; the settings service turns that into defaults.
func (r *SettingsRepo) Load(ctx context.Context) (sso.Settings, error) {
	var raw []byte
	query := `SELECT value FROM sso_settings WHERE key = $1`
	err := r.DB.QueryRowContext(ctx, query, settingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return sso.Settings{}, apperrors.NotFound("sso settings not found")
	}
	if err != nil {
		return sso.Settings{}, fmt.Errorf("load sso settings: %w", err)
	}

	var s sso.Settings
	if unmarshalErr := json.Unmarshal(raw, &s); unmarshalErr != nil {
		return sso.Settings{}, fmt.Errorf("unmarshal sso settings: %w", unmarshalErr)
	}
	return s, nil
}

// Save upserts the settings record atomically.
func (r *SettingsRepo) Save(ctx context.Context, settings sso.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal sso settings: %w", err)
	}

	query := `
		INSERT INTO sso_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	if _, execErr := r.DB.ExecContext(ctx, query, settingsKey, raw); execErr != nil {
		return fmt.Errorf("save sso settings: %w", execErr)
	}
	return nil
}

// Delete removes the settings record (uninstall housekeeping).
func (r *SettingsRepo) Delete(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM sso_settings WHERE key = $1`, settingsKey); err != nil {
		return fmt.Errorf("delete sso settings: %w", err)
	}
	return nil
}
