package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaKind is the kind of media a request asks for
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

// Category maps a media kind to its gallery category
func (k MediaKind) Category() Category {
	if k == KindAudio {
		return CategoryAudio
	}
	return CategoryVideo
}

// Formats returns the container extensions offered for the kind
func (k MediaKind) Formats() []string {
	switch k {
	case KindVideo:
		return []string{"mp4", "m4a", "mkv"}
	case KindAudio:
		return []string{"mp3", "ogg", "wav"}
	}
	return nil
}

// DefaultFormat is the first offered format for the kind
func (k MediaKind) DefaultFormat() string {
	if formats := k.Formats(); len(formats) > 0 {
		return formats[0]
	}
	return ""
}

// SupportsFormat reports whether ext is offered for the kind
func (k MediaKind) SupportsFormat(ext string) bool {
	for _, f := range k.Formats() {
		if f == ext {
			return true
		}
	}
	return false
}

// ParseMediaKind parses a case-insensitive kind name
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "video":
		return KindVideo, nil
	case "audio":
		return KindAudio, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, s)
}

// DownloadRequest is a single user submission
type DownloadRequest struct {
	URL    string    `json:"url"`
	Kind   MediaKind `json:"kind"`
	Format string    `json:"format"`
}

// NewDownloadRequest normalizes and validates a submission. The format may be
// given with a leading dot (".mp4") and defaults to the kind's first format.
func NewDownloadRequest(url string, kind MediaKind, format string) (DownloadRequest, error) {
	req := DownloadRequest{
		URL:    strings.TrimSpace(url),
		Kind:   kind,
		Format: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), ".")),
	}
	if req.Format == "" {
		req.Format = kind.DefaultFormat()
	}
	return req, req.Validate()
}

// Validate checks the request fields
func (r DownloadRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("%w: please enter a URL", ErrInvalidRequest)
	}
	if r.Kind != KindVideo && r.Kind != KindAudio {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, r.Kind)
	}
	if !r.Kind.SupportsFormat(r.Format) {
		return fmt.Errorf("%w: %q for %s", ErrUnsupportedFormat, r.Format, r.Kind)
	}
	return nil
}

// Stage is a step of the per-request state machine
type Stage string

const (
	StageIdle           Stage = "idle"
	StageResolving      Stage = "resolving"
	StageDownloading    Stage = "downloading"
	StagePostprocessing Stage = "postprocessing"
	StageRelocating     Stage = "relocating"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
)

// IsTerminal reports whether no further transition can happen
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// Download records one request and its progress through the pipeline
type Download struct {
	ID            string     `json:"id" gorm:"primaryKey"`
	URL           string     `json:"url" gorm:"not null"`
	Kind          MediaKind  `json:"kind" gorm:"not null;index"`
	Format        string     `json:"format" gorm:"not null"`
	Title         string     `json:"title,omitempty" gorm:"index"`
	Stage         Stage      `json:"stage" gorm:"not null;index"`
	Progress      string     `json:"progress,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	MediaPath     string     `json:"media_path,omitempty"`
	ThumbnailPath string     `json:"thumbnail_path,omitempty"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// NewDownload creates a download record for a validated request
func NewDownload(req DownloadRequest) *Download {
	now := time.Now()
	return &Download{
		ID:        uuid.New().String(),
		URL:       req.URL,
		Kind:      req.Kind,
		Format:    req.Format,
		Stage:     StageIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Request returns the request the record was created from
func (d *Download) Request() DownloadRequest {
	return DownloadRequest{URL: d.URL, Kind: d.Kind, Format: d.Format}
}

// Transition moves the download to the next stage
func (d *Download) Transition(stage Stage) {
	now := time.Now()
	if d.StartedAt == nil && stage != StageIdle {
		d.StartedAt = &now
	}
	d.Stage = stage
	d.UpdatedAt = now
}

// MarkDone marks the download as finished
func (d *Download) MarkDone(mediaPath, thumbnailPath string) {
	d.Transition(StageDone)
	d.MediaPath = mediaPath
	d.ThumbnailPath = thumbnailPath
	d.Progress = "100.0%"
	d.CompletedAt = &d.UpdatedAt
}

// MarkFailed marks the download as failed
func (d *Download) MarkFailed(err error) {
	d.Transition(StageFailed)
	d.ErrorMessage = err.Error()
	d.CompletedAt = &d.UpdatedAt
}

// StatusMessage renders the human-readable status line for the download
func (d *Download) StatusMessage() string {
	switch d.Stage {
	case StageIdle:
		return "Starting download: " + d.URL
	case StageResolving:
		return "Fetching metadata: " + d.URL
	case StageDownloading:
		if d.Progress != "" {
			return fmt.Sprintf("Downloading: %s - %s", d.displayName(), d.Progress)
		}
		return "Downloading: " + d.displayName()
	case StagePostprocessing:
		return "Embedding thumbnail: " + d.displayName()
	case StageRelocating:
		return "Moving artwork: " + d.displayName()
	case StageDone:
		return fmt.Sprintf("Download completed: %s.%s", d.Title, d.Format)
	case StageFailed:
		return "Download failed: " + d.ErrorMessage
	}
	return string(d.Stage)
}

func (d *Download) displayName() string {
	if d.Title == "" {
		return d.URL
	}
	return d.Title + "." + d.Format
}
