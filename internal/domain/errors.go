package domain

import "errors"

var (
	// ErrTranscoderMissing is returned when the ffmpeg binary is absent.
	ErrTranscoderMissing = errors.New("transcoder binary not found")
	ErrDuplicateTitle    = errors.New("a download with the same title is already in progress")
	ErrInvalidRequest    = errors.New("invalid download request")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrInvalidTheme      = errors.New("invalid theme")
	ErrQueueFull         = errors.New("download queue is full")
	ErrQueueStopped      = errors.New("download queue is not running")
	ErrNotFound          = errors.New("not found")
)
