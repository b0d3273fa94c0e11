package driving

import (
	"context"

	"github.com/custodia-labs/hask/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with defaults filled in.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single dotted key, validating the value.
	Set(key, value string) error

	// Validate checks the current settings.
	Validate() error

	// CheckProviders contacts every enabled provider and reports per stage.
	CheckProviders(ctx context.Context) ([]domain.ProviderCheck, error)

	// Keys lists every key accepted by Set, sorted.
	Keys() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
