package domain

// DownloadRepository defines the interface for download history persistence
type DownloadRepository interface {
	// Create creates a new download
	Create(download *Download) error

	// Update updates an existing download
	Update(download *Download) error

	// FindByID finds a download by ID, returning ErrNotFound if absent
	FindByID(id string) (*Download, error)

	// FindAll finds all downloads with optional column filters, newest first
	FindAll(filters map[string]interface{}) ([]*Download, error)

	// MarkInterrupted fails every non-terminal download left over from a previous run
	MarkInterrupted() (int64, error)

	// GetStats returns download statistics
	GetStats() (*DownloadStats, error)
}

// DownloadStats represents download statistics
type DownloadStats struct {
	Total      int64 `json:"total"`
	InProgress int64 `json:"in_progress"`
	Done       int64 `json:"done"`
	Failed     int64 `json:"failed"`
}
