package domain

import "context"

// Progress is a byte-counter update reported while the downloader runs
type Progress struct {
	Filename        string
	DownloadedBytes int64
	TotalBytes      int64
	Finished        bool
}

// Percent returns the completion percentage, or -1 when the total is unknown
func (p Progress) Percent() float64 {
	if p.TotalBytes <= 0 {
		return -1
	}
	pct := float64(p.DownloadedBytes) / float64(p.TotalBytes) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// ProgressCallback receives progress updates from the downloader
type ProgressCallback func(Progress)

// FetchJob is everything the downloader needs for one download
type FetchJob struct {
	ID        string
	Request   DownloadRequest
	Title     string
	OutputDir string
}

// Fetcher is the external downloader boundary
type Fetcher interface {
	// ResolveTitle fetches metadata only and returns the raw title
	ResolveTitle(ctx context.Context, url string) (string, error)

	// Fetch downloads media and thumbnail into job.OutputDir, named after job.Title
	Fetch(ctx context.Context, job FetchJob, progress ProgressCallback) error
}

// Transcoder is the external media muxer boundary
type Transcoder interface {
	// Available returns ErrTranscoderMissing if the binary cannot be found
	Available() error

	// EmbedCover remuxes mediaPath in place with imagePath attached as cover art
	EmbedCover(ctx context.Context, mediaPath, imagePath string) error
}

// CoverTagger embeds cover art directly into audio tags
type CoverTagger interface {
	EmbedCover(mediaPath string, artwork []byte) error
}
