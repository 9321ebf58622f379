package infrastructure

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/yourusername/tubetrove-go/internal/domain"
)

// JSONSettingsStore implements domain.SettingsStore on a single JSON document
type JSONSettingsStore struct {
	fs   afero.Fs
	path string
}

// NewJSONSettingsStore creates a settings store for the document at path.
// The path must carry a .json extension.
func NewJSONSettingsStore(fs afero.Fs, path string) *JSONSettingsStore {
	return &JSONSettingsStore{fs: fs, path: path}
}

// Path returns the location of the settings document
func (s *JSONSettingsStore) Path() string {
	return s.path
}

// Load reads the settings document, creating it with the defaults when absent.
// A document that cannot be parsed is returned as an error.
func (s *JSONSettingsStore) Load() (*domain.Settings, error) {
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat settings file: %w", err)
	}
	if !exists {
		settings := domain.DefaultSettings()
		if err := s.write(settings); err != nil {
			return nil, err
		}
		return settings, nil
	}

	v := s.newViper()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", s.path, err)
	}

	var settings domain.Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings file %s: %w", s.path, err)
	}
	return &settings, nil
}

// Save replaces the whole settings document
func (s *JSONSettingsStore) Save(settings *domain.Settings) error {
	if settings == nil {
		return fmt.Errorf("%w: nil settings", domain.ErrInvalidTheme)
	}
	if err := domain.ValidateTheme(settings.Theme); err != nil {
		return err
	}
	return s.write(settings)
}

func (s *JSONSettingsStore) write(settings *domain.Settings) error {
	v := s.newViper()
	v.Set("theme", settings.Theme)
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write settings file %s: %w", s.path, err)
	}
	return nil
}

func (s *JSONSettingsStore) newViper() *viper.Viper {
	v := viper.New()
	v.SetFs(s.fs)
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	return v
}
