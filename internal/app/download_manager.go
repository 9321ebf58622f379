package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/yourusername/tubetrove-go/internal/domain"
	"github.com/yourusername/tubetrove-go/internal/infrastructure"
	"github.com/yourusername/tubetrove-go/internal/metrics"
	"github.com/yourusername/tubetrove-go/pkg/logger"
)

// mediaExtensions are the containers a finished download may end up in
var mediaExtensions = map[string]bool{".mp4": true, ".m4a": true, ".mkv": true, ".mp3": true, ".ogg": true, ".wav": true}

// coverArtContainers accept an attached cover picture stream
var coverArtContainers = map[string]bool{"mp4": true, "m4a": true, "mkv": true}

// Notifier sends desktop notifications about downloads
type Notifier interface {
	NotifyDownloadStarted(d *domain.Download)
	NotifyDownloadCompleted(d *domain.Download)
	NotifyDownloadFailed(d *domain.Download)
}

// DownloadObserver receives a copy of a download after every state change
type DownloadObserver interface {
	DownloadUpdated(d domain.Download)
}

// DownloadManager runs the per-request pipeline:
// resolve title, download, embed the thumbnail, move the artwork.
type DownloadManager struct {
	repo        domain.DownloadRepository
	fetcher     domain.Fetcher
	transcoder  domain.Transcoder
	tagger      domain.CoverTagger
	notifier    Notifier
	fs          afero.Fs
	layout      domain.Layout
	config      *domain.DownloadConfig
	logger      *zap.Logger
	multiLogger *logger.MultiLogger
	titles      *lru.LRU[string, string]

	mu        sync.Mutex
	inFlight  map[string]string // category/title -> download ID
	observers []DownloadObserver
}

// NewDownloadManager creates a new download manager
func NewDownloadManager(
	repo domain.DownloadRepository,
	fetcher domain.Fetcher,
	transcoder domain.Transcoder,
	tagger domain.CoverTagger,
	notifier Notifier,
	fs afero.Fs,
	layout domain.Layout,
	config *domain.DownloadConfig,
	logger *zap.Logger,
	multiLogger *logger.MultiLogger,
) *DownloadManager {
	cacheSize := config.TitleCacheSize
	if cacheSize < 1 {
		cacheSize = 1
	}
	return &DownloadManager{
		repo:        repo,
		fetcher:     fetcher,
		transcoder:  transcoder,
		tagger:      tagger,
		notifier:    notifier,
		fs:          fs,
		layout:      layout,
		config:      config,
		logger:      logger,
		multiLogger: multiLogger,
		titles:      lru.NewLRU[string, string](cacheSize, nil, config.TitleCacheTTL),
		inFlight:    make(map[string]string),
	}
}

// AddObserver registers an observer for download updates
func (dm *DownloadManager) AddObserver(o DownloadObserver) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.observers = append(dm.observers, o)
}

// Announce tells observers about a download without changing it
func (dm *DownloadManager) Announce(d *domain.Download) {
	dm.mu.Lock()
	observers := append([]DownloadObserver(nil), dm.observers...)
	dm.mu.Unlock()

	snapshot := *d
	for _, o := range observers {
		o.DownloadUpdated(snapshot)
	}
}

// ProcessDownload runs a download through every stage. The returned error is
// also recorded on the download; nothing is retried.
func (dm *DownloadManager) ProcessDownload(ctx context.Context, download *domain.Download) error {
	started := time.Now()
	metrics.DownloadsInFlight.Inc()
	defer metrics.DownloadsInFlight.Dec()

	dm.logger.Info("Processing download",
		zap.String("id", download.ID),
		zap.String("url", download.URL),
		zap.String("kind", string(download.Kind)),
		zap.String("format", download.Format))
	dm.notifier.NotifyDownloadStarted(download)

	err := dm.run(ctx, download)
	if err != nil {
		download.MarkFailed(err)
	}
	dm.save(download)
	dm.Announce(download)

	result := string(download.Stage)
	metrics.DownloadsTotal.WithLabelValues(string(download.Kind), result).Inc()
	metrics.DownloadDuration.WithLabelValues(string(download.Kind)).Observe(time.Since(started).Seconds())

	if err != nil {
		dm.logger.Error("Download failed",
			zap.String("id", download.ID),
			zap.String("url", download.URL),
			zap.Error(err))
		dm.multiLogger.LogDownloadEvent("download_failed",
			zap.String("id", download.ID),
			zap.String("url", download.URL),
			zap.String("error", err.Error()))
		dm.notifier.NotifyDownloadFailed(download)
		return err
	}

	dm.logger.Info("Download completed",
		zap.String("id", download.ID),
		zap.String("title", download.Title),
		zap.String("file", download.MediaPath))
	dm.multiLogger.LogDownloadEvent("download_done",
		zap.String("id", download.ID),
		zap.String("title", download.Title),
		zap.String("media_path", download.MediaPath),
		zap.String("thumbnail_path", download.ThumbnailPath))
	dm.notifier.NotifyDownloadCompleted(download)
	return nil
}

func (dm *DownloadManager) run(ctx context.Context, d *domain.Download) error {
	if err := dm.transcoder.Available(); err != nil {
		return err
	}

	category := d.Kind.Category()

	dm.advance(d, domain.StageResolving)
	title, err := dm.resolveTitle(ctx, d.URL)
	if err != nil {
		return err
	}
	d.Title = title

	release, err := dm.claimTitle(category, title, d.ID)
	if err != nil {
		return err
	}
	defer release()

	dm.advance(d, domain.StageDownloading)
	mediaDir := dm.layout.MediaDir(category)
	job := domain.FetchJob{ID: d.ID, Request: d.Request(), Title: title, OutputDir: mediaDir}
	if err := dm.fetcher.Fetch(ctx, job, dm.progressReporter(d)); err != nil {
		return err
	}

	mediaPath, thumbPath, err := dm.locateOutputs(mediaDir, title, d.Format)
	if err != nil {
		return err
	}

	if thumbPath == "" {
		// nothing to embed or relocate; the entry will not show in the gallery
		dm.logger.Warn("No thumbnail was downloaded", zap.String("id", d.ID), zap.String("title", title))
		d.MarkDone(mediaPath, "")
		return nil
	}

	dm.advance(d, domain.StagePostprocessing)
	if err := dm.embedCover(ctx, d, mediaPath, thumbPath); err != nil {
		return err
	}

	dm.advance(d, domain.StageRelocating)
	artPath := filepath.Join(dm.layout.ArtDir(category), title+strings.ToLower(filepath.Ext(thumbPath)))
	if err := moveFile(dm.fs, thumbPath, artPath); err != nil {
		return fmt.Errorf("failed to move thumbnail: %w", err)
	}

	d.MarkDone(mediaPath, artPath)
	return nil
}

// advance moves d to stage, persists it and tells observers
func (dm *DownloadManager) advance(d *domain.Download, stage domain.Stage) {
	d.Transition(stage)
	dm.save(d)
	dm.Announce(d)
}

func (dm *DownloadManager) save(d *domain.Download) {
	if err := dm.repo.Update(d); err != nil {
		dm.logger.Error("Failed to update download", zap.String("id", d.ID), zap.Error(err))
	}
}

// resolveTitle returns the sanitized title of url, consulting the cache first
func (dm *DownloadManager) resolveTitle(ctx context.Context, url string) (string, error) {
	if title, ok := dm.titles.Get(url); ok {
		metrics.TitleCacheHitsTotal.Inc()
		return title, nil
	}
	metrics.TitleCacheMissesTotal.Inc()

	raw, err := dm.fetcher.ResolveTitle(ctx, url)
	if err != nil {
		return "", err
	}
	title := domain.SanitizeTitle(raw)
	dm.titles.Add(url, title)
	return title, nil
}

// claimTitle reserves a title within its category so two downloads never
// write the same files at once.
func (dm *DownloadManager) claimTitle(category domain.Category, title, id string) (func(), error) {
	key := string(category) + "/" + title

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if holder, ok := dm.inFlight[key]; ok && holder != id {
		return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateTitle, title)
	}
	dm.inFlight[key] = id

	return func() {
		dm.mu.Lock()
		defer dm.mu.Unlock()
		delete(dm.inFlight, key)
	}, nil
}

// progressReporter turns byte counters into the download's progress text,
// publishing at most once per configured interval.
func (dm *DownloadManager) progressReporter(d *domain.Download) domain.ProgressCallback {
	var last time.Time
	return func(p domain.Progress) {
		if p.Finished {
			return
		}
		d.Progress = formatProgress(p)
		if time.Since(last) < dm.config.ProgressInterval {
			return
		}
		last = time.Now()
		dm.Announce(d)
	}
}

func formatProgress(p domain.Progress) string {
	if pct := p.Percent(); pct >= 0 {
		return fmt.Sprintf("%.1f%% (%s of %s)", pct,
			humanize.Bytes(uint64(p.DownloadedBytes)), humanize.Bytes(uint64(p.TotalBytes)))
	}
	return humanize.Bytes(uint64(p.DownloadedBytes))
}

// locateOutputs finds the media file and the thumbnail written for title
func (dm *DownloadManager) locateOutputs(dir, title, format string) (string, string, error) {
	infos, err := afero.ReadDir(dm.fs, dir)
	if err != nil {
		return "", "", fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var media, fallback, thumb string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		name := info.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if strings.TrimSuffix(name, filepath.Ext(name)) != title {
			continue
		}
		path := filepath.Join(dir, name)
		switch {
		case ext == "."+format:
			media = path
		case mediaExtensions[ext]:
			fallback = path
		case isArtExtension(ext) && thumb == "":
			thumb = path
		}
	}

	if media == "" {
		media = fallback
	}
	if media == "" {
		return "", "", fmt.Errorf("downloaded media file not found for %q", title)
	}
	return media, thumb, nil
}

func isArtExtension(ext string) bool {
	for _, e := range domain.ArtExtensions {
		if ext == "."+e {
			return true
		}
	}
	return false
}

// embedCover attaches the thumbnail to the media container. Videos are
// remuxed by the transcoder; mp3 files get an ID3 picture frame.
func (dm *DownloadManager) embedCover(ctx context.Context, d *domain.Download, mediaPath, thumbPath string) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(mediaPath)), ".")

	switch {
	case d.Kind == domain.KindVideo && coverArtContainers[format]:
		cover, err := dm.coverJPEG(thumbPath)
		if err != nil {
			return err
		}
		coverPath := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + ".cover.jpg"
		if err := afero.WriteFile(dm.fs, coverPath, cover, 0644); err != nil {
			return fmt.Errorf("failed to write cover: %w", err)
		}
		defer dm.fs.Remove(coverPath)
		return dm.transcoder.EmbedCover(ctx, mediaPath, coverPath)

	case d.Kind == domain.KindAudio && format == "mp3" && dm.config.EmbedAudioCover && dm.tagger != nil:
		cover, err := dm.coverJPEG(thumbPath)
		if err != nil {
			return err
		}
		if err := dm.tagger.EmbedCover(mediaPath, cover); err != nil {
			return err
		}
	}
	return nil
}

func (dm *DownloadManager) coverJPEG(thumbPath string) ([]byte, error) {
	data, err := afero.ReadFile(dm.fs, thumbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read thumbnail: %w", err)
	}
	return infrastructure.CoverJPEG(data, dm.config.CoverMaxSize)
}

// moveFile renames src to dst, copying when a rename cannot cross devices
func moveFile(fs afero.Fs, src, dst string) error {
	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := fs.Rename(src, dst); err == nil {
		return nil
	}

	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	out, err := fs.Create(dst)
	if err != nil {
		in.Close()
		return err
	}
	_, copyErr := io.Copy(out, in)
	if err := errors.Join(copyErr, out.Close(), in.Close()); err != nil {
		return err
	}
	return fs.Remove(src)
}
