package service

import (
	"context"
	"fmt"

	"github.com/campusops/shibgate/internal/domain/sso"
	apperrors "github.com/campusops/shibgate/internal/errors"
	"github.com/campusops/shibgate/internal/ports"
)

// SettingsService mediates access to the single persisted settings record.
// Reads always yield a fully populated record: missing storage falls back to
// defaults, and saved records are sanitized before they are written.
type SettingsService struct {
	store ports.SettingsStore
}

// NewSettingsService constructs a new SettingsService.
func NewSettingsService(store ports.SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

// Load returns the current settings. When nothing has been saved yet it
// returns the defaults (SSO disabled) without writing them.
func (s *SettingsService) Load(ctx context.Context) (sso.Settings, error) {
	settings, err := s.store.Load(ctx)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return sso.DefaultSettings(), nil
		}
		return sso.Settings{}, fmt.Errorf("load sso settings: %w", err)
	}
	return settings.Sanitized(), nil
}

// Save sanitizes and persists the record, replacing it atomically.
func (s *SettingsService) Save(ctx context.Context, settings sso.Settings) (sso.Settings, error) {
	sanitized := settings.Sanitized()
	if err := s.store.Save(ctx, sanitized); err != nil {
		return sso.Settings{}, fmt.Errorf("save sso settings: %w", err)
	}
	return sanitized, nil
}

// SetEnabled flips the master switch, preserving every other field.
func (s *SettingsService) SetEnabled(ctx context.Context, enabled bool) (sso.Settings, error) {
	settings, err := s.Load(ctx)
	if err != nil {
		return sso.Settings{}, err
	}
	settings.Enabled = enabled
	return s.Save(ctx, settings)
}
