package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// QueueStatus reports whether the download workers are running
type QueueStatus interface {
	IsRunning() bool
}

// TranscoderStatus reports whether the ffmpeg binary is present
type TranscoderStatus interface {
	Available() error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	queue      QueueStatus
	transcoder TranscoderStatus
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(queue QueueStatus, transcoder TranscoderStatus) *HealthHandler {
	return &HealthHandler{
		queue:      queue,
		transcoder: transcoder,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Queue   struct {
		Running bool `json:"running"`
	} `json:"queue"`
	Transcoder struct {
		Available bool   `json:"available"`
		Error     string `json:"error,omitempty"`
	} `json:"transcoder"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}
	response.Queue.Running = h.queue.IsRunning()
	if err := h.transcoder.Available(); err != nil {
		response.Transcoder.Error = err.Error()
	} else {
		response.Transcoder.Available = true
	}

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.queue.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "queue manager not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
