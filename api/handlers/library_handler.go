package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/tubetrove-go/internal/app"
	"github.com/yourusername/tubetrove-go/internal/domain"
)

// LibraryService exposes the gallery state
type LibraryService interface {
	Snapshot(ctx context.Context) (app.GallerySnapshot, error)
	Open(ctx context.Context, category domain.Category, index int) (app.Tile, error)
	Refresh(reason string)
}

// LibraryHandler serves the gallery grid and opens entries
type LibraryHandler struct {
	library LibraryService
	logger  *zap.Logger
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(library LibraryService, logger *zap.Logger) *LibraryHandler {
	return &LibraryHandler{library: library, logger: logger}
}

// GetLibrary handles GET /api/v1/library. With ?category= only that grid is returned.
func (h *LibraryHandler) GetLibrary(c *gin.Context) {
	snap, err := h.library.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read library", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	if name := c.Query("category"); name != "" {
		category, err := domain.ParseCategory(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snap.View(category))
		return
	}

	c.JSON(http.StatusOK, snap)
}

// Refresh handles POST /api/v1/library/refresh
func (h *LibraryHandler) Refresh(c *gin.Context) {
	h.library.Refresh("api")
	c.JSON(http.StatusAccepted, gin.H{"message": "library refresh requested"})
}

// Open handles POST /api/v1/library/:category/:index/open
func (h *LibraryHandler) Open(c *gin.Context) {
	category, index, ok := tileParams(c)
	if !ok {
		return
	}

	tile, err := h.library.Open(c.Request.Context(), category, index)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to open library entry",
			zap.String("category", string(category)),
			zap.Int("index", index),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, tile)
}

// Thumbnail handles GET /api/v1/library/:category/:index/thumbnail
func (h *LibraryHandler) Thumbnail(c *gin.Context) {
	category, index, ok := tileParams(c)
	if !ok {
		return
	}

	snap, err := h.library.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	tiles := snap.View(category).Tiles
	if index >= len(tiles) {
		c.JSON(http.StatusNotFound, gin.H{"error": "library entry not found"})
		return
	}

	c.File(tiles[index].ThumbnailPath)
}

func tileParams(c *gin.Context) (domain.Category, int, bool) {
	category, err := domain.ParseCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", 0, false
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a non-negative integer"})
		return "", 0, false
	}
	return category, index, true
}
