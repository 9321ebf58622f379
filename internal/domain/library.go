package domain

import "fmt"

// Category groups library entries for display
type Category string

const (
	CategoryVideo Category = "video"
	CategoryAudio Category = "audio"
)

// Categories lists every category in display order
var Categories = []Category{CategoryVideo, CategoryAudio}

// ParseCategory accepts the category names and the gallery tab labels
// ("videos", "music").
func ParseCategory(s string) (Category, error) {
	switch s {
	case "video", "videos":
		return CategoryVideo, nil
	case "audio", "music":
		return CategoryAudio, nil
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidRequest, s)
}

// ArtExtensions are the image extensions tried, in order, when pairing a
// media file with its art.
var ArtExtensions = []string{"webp", "jpg", "jpeg", "png"}

// LibraryEntry is a displayable media file paired with its art.
type LibraryEntry struct {
	Title         string   `json:"title"`
	MediaPath     string   `json:"media_path"`
	ThumbnailPath string   `json:"thumbnail_path"`
	Category      Category `json:"category"`
}

// Layout is the resolved set of library directories
type Layout struct {
	VideoDir     string
	MusicDir     string
	ThumbnailDir string
	CoverDir     string
	FFmpegDir    string
}

// Dirs returns every directory of the layout
func (l Layout) Dirs() []string {
	return []string{l.VideoDir, l.MusicDir, l.ThumbnailDir, l.CoverDir, l.FFmpegDir}
}

// MediaDir returns the media directory for a category
func (l Layout) MediaDir(c Category) string {
	if c == CategoryAudio {
		return l.MusicDir
	}
	return l.VideoDir
}

// ArtDir returns the art directory for a category
func (l Layout) ArtDir(c Category) string {
	if c == CategoryAudio {
		return l.CoverDir
	}
	return l.ThumbnailDir
}
