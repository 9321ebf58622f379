package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/tubetrove-go/internal/domain"
)

// DownloadService admits and looks up downloads
type DownloadService interface {
	Submit(req domain.DownloadRequest) (*domain.Download, error)
	GetDownload(id string) (*domain.Download, error)
	ListDownloads(filters map[string]interface{}) ([]*domain.Download, error)
	GetStats() (*domain.DownloadStats, error)
}

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	downloads DownloadService
	logger    *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(downloads DownloadService, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		downloads: downloads,
		logger:    logger,
	}
}

// AddDownloadRequest represents a request to add a download
type AddDownloadRequest struct {
	URL    string `json:"url" binding:"required"`
	Kind   string `json:"kind,omitempty"`
	Format string `json:"format,omitempty"`
}

// AddDownload handles POST /api/v1/downloads
func (h *DownloadHandler) AddDownload(c *gin.Context) {
	var body AddDownloadRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := domain.KindVideo
	if body.Kind != "" {
		parsed, err := domain.ParseMediaKind(body.Kind)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		kind = parsed
	}

	req, err := domain.NewDownloadRequest(body.URL, kind, body.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	download, err := h.downloads.Submit(req)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, download)
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrQueueFull), errors.Is(err, domain.ErrQueueStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "download": download})
	default:
		h.logger.Error("Failed to add download", zap.String("url", req.URL), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	id := c.Param("id")

	download, err := h.downloads.GetDownload(id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
			return
		}
		h.logger.Error("Failed to get download", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, download)
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	filters := make(map[string]interface{})

	if stage := c.Query("stage"); stage != "" {
		filters["stage"] = stage
	}
	if kind := c.Query("kind"); kind != "" {
		filters["kind"] = kind
	}

	downloads, err := h.downloads.ListDownloads(filters)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to list downloads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if downloads == nil {
		downloads = []*domain.Download{}
	}

	c.JSON(http.StatusOK, downloads)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.downloads.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetFormats handles GET /api/v1/formats
func (h *DownloadHandler) GetFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		string(domain.KindVideo): domain.KindVideo.Formats(),
		string(domain.KindAudio): domain.KindAudio.Formats(),
	})
}
