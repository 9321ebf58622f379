package domain

import "fmt"

const (
	ThemeDarkBlue = "Dark Blue"
	ThemeLight    = "Light"

	DefaultTheme = ThemeDarkBlue
)

// Themes lists the defined theme names
var Themes = []string{ThemeDarkBlue, ThemeLight}

// Settings is the persisted user preference document
type Settings struct {
	Theme string `json:"theme" mapstructure:"theme"`
}

// DefaultSettings returns the settings written on first start
func DefaultSettings() *Settings {
	return &Settings{Theme: DefaultTheme}
}

// ValidateTheme checks that name is a defined theme
func ValidateTheme(name string) error {
	for _, t := range Themes {
		if t == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidTheme, name)
}

// SettingsStore persists Settings as a single document
type SettingsStore interface {
	// Load returns the stored settings, writing the defaults first if none exist
	Load() (*Settings, error)

	// Save replaces the stored document
	Save(settings *Settings) error
}
