package ai

import "github.com/arin/wordpeek/internal/config"

// SettingsProvider supplies a settings snapshot for each lookup.
// config.Store is the production implementation.
type SettingsProvider interface {
	Get() (config.Settings, error)
}

// StaticSettings always returns the same snapshot.
type StaticSettings config.Settings

// Get implements SettingsProvider.
func (s StaticSettings) Get() (config.Settings, error) {
	return config.Settings(s), nil
}
