package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/yourusername/tubetrove-go/internal/domain"
)

// FFmpegTranscoder implements domain.Transcoder with a local ffmpeg binary
type FFmpegTranscoder struct {
	binary string
}

// NewFFmpegTranscoder creates a transcoder for the binary at path
func NewFFmpegTranscoder(binary string) *FFmpegTranscoder {
	return &FFmpegTranscoder{binary: binary}
}

// Binary returns the configured binary path
func (t *FFmpegTranscoder) Binary() string {
	return t.binary
}

// Available checks that the binary exists as a file
func (t *FFmpegTranscoder) Available() error {
	info, err := os.Stat(t.binary)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", domain.ErrTranscoderMissing, t.binary)
	}
	return nil
}

// EmbedCover remuxes mediaPath with imagePath attached as cover art. Streams
// are copied, never re-encoded. The result replaces the original file.
func (t *FFmpegTranscoder) EmbedCover(ctx context.Context, mediaPath, imagePath string) error {
	tmpPath := embedTempPath(mediaPath)
	cmd := exec.CommandContext(ctx, t.binary, embedArgs(mediaPath, imagePath, tmpPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(tmpPath)
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("ffmpeg error: %s", msg)
	}

	if err := os.Rename(tmpPath, mediaPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", mediaPath, err)
	}
	return nil
}

// embedArgs maps every stream of the media plus the first stream of the image,
// marking the image as the attached picture.
func embedArgs(mediaPath, imagePath, outPath string) []string {
	return []string{
		"-y", "-loglevel", "error",
		"-i", mediaPath,
		"-i", imagePath,
		"-map", "0", "-map", "1:0",
		"-c", "copy",
		"-disposition:v:1", "attached_pic",
		outPath,
	}
}

// embedTempPath keeps the container extension so ffmpeg picks the same muxer
func embedTempPath(mediaPath string) string {
	ext := filepath.Ext(mediaPath)
	return strings.TrimSuffix(mediaPath, ext) + ".cover" + ext
}
