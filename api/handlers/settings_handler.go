package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/tubetrove-go/internal/domain"
)

// SettingsService reads and changes the user settings
type SettingsService interface {
	Current() domain.Settings
	ChangeTheme(name string) (domain.Settings, error)
}

// SettingsHandler handles the settings document
type SettingsHandler struct {
	settings SettingsService
	logger   *zap.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// UpdateSettingsRequest is the body of PUT /api/v1/settings
type UpdateSettingsRequest struct {
	Theme string `json:"theme" binding:"required"`
}

// GetSettings handles GET /api/v1/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Current())
}

// UpdateSettings handles PUT /api/v1/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.settings.ChangeTheme(req.Theme)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTheme) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "themes": domain.Themes})
			return
		}
		h.logger.Error("Failed to save settings", zap.String("theme", req.Theme), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// GetThemes handles GET /api/v1/themes
func (h *SettingsHandler) GetThemes(c *gin.Context) {
	c.JSON(http.StatusOK, domain.Themes)
}
