package app

import (
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/tubetrove-go/internal/domain"
)

// ThemeApplier re-renders a view with a new theme
type ThemeApplier interface {
	SetTheme(theme string)
}

// SettingsService holds the loaded settings and applies changes to them
type SettingsService struct {
	store  domain.SettingsStore
	view   ThemeApplier
	hub    *EventHub
	logger *zap.Logger

	mu      sync.Mutex
	current domain.Settings
}

// NewSettingsService creates a settings service starting from already loaded settings
func NewSettingsService(store domain.SettingsStore, initial *domain.Settings, view ThemeApplier, hub *EventHub, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		store:   store,
		view:    view,
		hub:     hub,
		logger:  logger,
		current: *initial,
	}
}

// Current returns the settings in effect
func (s *SettingsService) Current() domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// ChangeTheme persists a new theme and re-renders the gallery with it. Unknown
// themes are rejected before anything is written.
func (s *SettingsService) ChangeTheme(name string) (domain.Settings, error) {
	if err := domain.ValidateTheme(name); err != nil {
		return s.Current(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	next.Theme = name
	if err := s.store.Save(&next); err != nil {
		return s.current, err
	}
	s.current = next

	// applied under the lock so the gallery sees themes in the order they were saved
	s.view.SetTheme(name)
	s.hub.Publish(Event{Type: EventSettings, Message: "Theme changed to " + name, Settings: &next})
	s.logger.Info("Theme changed", zap.String("theme", name))
	return next, nil
}
