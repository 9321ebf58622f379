package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/tubetrove-go/internal/domain"
	"github.com/yourusername/tubetrove-go/pkg/logger"
)

var testLayout = domain.Layout{
	VideoDir:     "/lib/videos",
	MusicDir:     "/lib/music",
	ThumbnailDir: "/lib/thumbnails",
	CoverDir:     "/lib/covers",
	FFmpegDir:    "/lib/ffmpeg",
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: 80, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeFetcher writes the media file and thumbnail yt-dlp would produce
type fakeFetcher struct {
	fs       afero.Fs
	titles   map[string]string
	thumbExt string
	thumb    []byte
	writeExt string
	fetchErr error
	progress []domain.Progress
	entered  chan struct{}
	unblock  chan struct{}

	mu           sync.Mutex
	resolveCalls int
	fetchCalls   int
}

func (f *fakeFetcher) ResolveTitle(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.resolveCalls++
	f.mu.Unlock()
	title, ok := f.titles[url]
	if !ok {
		return "", fmt.Errorf("ERROR: unsupported URL: %s", url)
	}
	return title, nil
}

func (f *fakeFetcher) Fetch(ctx context.Context, job domain.FetchJob, progress domain.ProgressCallback) error {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.unblock
	}
	for _, p := range f.progress {
		progress(p)
	}
	if f.fetchErr != nil {
		return f.fetchErr
	}

	ext := job.Request.Format
	if f.writeExt != "" {
		ext = f.writeExt
	}
	base := filepath.Join(job.OutputDir, job.Title)
	if err := afero.WriteFile(f.fs, base+"."+ext, []byte("media"), 0644); err != nil {
		return err
	}
	if f.thumbExt != "" {
		return afero.WriteFile(f.fs, base+f.thumbExt, f.thumb, 0644)
	}
	return nil
}

func (f *fakeFetcher) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolveCalls, f.fetchCalls
}

type fakeTranscoder struct {
	fs           afero.Fs
	availableErr error
	embedErr     error

	mu         sync.Mutex
	embedded   []string
	coverSeen  bool
	coverImage string
}

func (f *fakeTranscoder) Available() error { return f.availableErr }

func (f *fakeTranscoder) EmbedCover(ctx context.Context, mediaPath, imagePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedded = append(f.embedded, mediaPath)
	f.coverImage = imagePath
	f.coverSeen, _ = afero.Exists(f.fs, imagePath)
	return f.embedErr
}

type fakeTagger struct {
	mu     sync.Mutex
	tagged map[string][]byte
}

func (f *fakeTagger) EmbedCover(mediaPath string, artwork []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tagged == nil {
		f.tagged = make(map[string][]byte)
	}
	f.tagged[mediaPath] = artwork
	return nil
}

type fakeNotifier struct {
	mu                         sync.Mutex
	started, completed, failed int
}

func (n *fakeNotifier) NotifyDownloadStarted(d *domain.Download) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started++
}

func (n *fakeNotifier) NotifyDownloadCompleted(d *domain.Download) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed++
}

func (n *fakeNotifier) NotifyDownloadFailed(d *domain.Download) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed++
}

// recordingObserver keeps every update it is given
type recordingObserver struct {
	mu      sync.Mutex
	updates []domain.Download
}

func (o *recordingObserver) DownloadUpdated(d domain.Download) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates = append(o.updates, d)
}

// stages returns the observed stages with consecutive repeats collapsed
func (o *recordingObserver) stages() []domain.Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []domain.Stage
	for _, d := range o.updates {
		if len(out) == 0 || out[len(out)-1] != d.Stage {
			out = append(out, d.Stage)
		}
	}
	return out
}

func (o *recordingObserver) progressTexts() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for _, d := range o.updates {
		if d.Stage == domain.StageDownloading && d.Progress != "" {
			out = append(out, d.Progress)
		}
	}
	return out
}

type dmFixture struct {
	fs         afero.Fs
	repo       *mockRepo
	fetcher    *fakeFetcher
	transcoder *fakeTranscoder
	tagger     *fakeTagger
	notifier   *fakeNotifier
	observer   *recordingObserver
	dm         *DownloadManager
}

func newDMFixture(t *testing.T) *dmFixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, dir := range testLayout.Dirs() {
		require.NoError(t, fs.MkdirAll(dir, 0755))
	}

	f := &dmFixture{
		fs:   fs,
		repo: newMockRepo(),
		fetcher: &fakeFetcher{
			fs:       fs,
			titles:   map[string]string{},
			thumbExt: ".png",
			thumb:    pngBytes(t, 16, 9),
		},
		transcoder: &fakeTranscoder{fs: fs},
		tagger:     &fakeTagger{},
		notifier:   &fakeNotifier{},
		observer:   &recordingObserver{},
	}
	config := &domain.DownloadConfig{
		EmbedAudioCover:  true,
		CoverMaxSize:     100,
		TitleCacheSize:   8,
		TitleCacheTTL:    time.Minute,
		ProgressInterval: 0,
	}
	f.dm = NewDownloadManager(f.repo, f.fetcher, f.transcoder, f.tagger, f.notifier,
		fs, testLayout, config, zap.NewNop(), logger.NewNopMultiLogger())
	f.dm.AddObserver(f.observer)
	return f
}

func (f *dmFixture) submit(t *testing.T, url string, kind domain.MediaKind, format string) *domain.Download {
	t.Helper()
	req, err := domain.NewDownloadRequest(url, kind, format)
	require.NoError(t, err)
	d := domain.NewDownload(req)
	require.NoError(t, f.repo.Create(d))
	return d
}

func exists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	return ok
}

func TestProcessDownload_Video(t *testing.T) {
	f := newDMFixture(t)
	f.fetcher.titles["https://example.com/v"] = "Clip/One"
	f.fetcher.progress = []domain.Progress{{DownloadedBytes: 50, TotalBytes: 100}}
	d := f.submit(t, "https://example.com/v", domain.KindVideo, "mp4")

	require.NoError(t, f.dm.ProcessDownload(context.Background(), d))

	assert.Equal(t, domain.StageDone, d.Stage)
	assert.Equal(t, "Clip_One", d.Title)
	assert.Equal(t, "/lib/videos/Clip_One.mp4", d.MediaPath)
	assert.Equal(t, "/lib/thumbnails/Clip_One.png", d.ThumbnailPath)
	assert.Equal(t, "Download completed: Clip_One.mp4", d.StatusMessage())

	assert.True(t, exists(t, f.fs, "/lib/thumbnails/Clip_One.png"))
	assert.False(t, exists(t, f.fs, "/lib/videos/Clip_One.png"))
	assert.False(t, exists(t, f.fs, "/lib/videos/Clip_One.cover.jpg"))

	assert.Equal(t, []string{"/lib/videos/Clip_One.mp4"}, f.transcoder.embedded)
	assert.Equal(t, "/lib/videos/Clip_One.cover.jpg", f.transcoder.coverImage)
	assert.True(t, f.transcoder.coverSeen)

	assert.Equal(t, []domain.Stage{
		domain.StageResolving,
		domain.StageDownloading,
		domain.StagePostprocessing,
		domain.StageRelocating,
		domain.StageDone,
	}, f.observer.stages())
	assert.Equal(t, []string{"50.0% (50 B of 100 B)"}, f.observer.progressTexts())

	stored := f.repo.get(t, d.ID)
	assert.Equal(t, domain.StageDone, stored.Stage)
	assert.Equal(t, 1, f.notifier.started)
	assert.Equal(t, 1, f.notifier.completed)
	assert.Zero(t, f.notifier.failed)
}

func TestProcessDownload_Mp3TagsCover(t *testing.T) {
	f := newDMFixture(t)
	f.fetcher.titles["https://example.com/a"] = "Song"
	d := f.submit(t, "https://example.com/a", domain.KindAudio, "mp3")

	require.NoError(t, f.dm.ProcessDownload(context.Background(), d))

	assert.Equal(t, domain.StageDone, d.Stage)
	assert.Equal(t, "/lib/covers/Song.png", d.ThumbnailPath)
	assert.Empty(t, f.transcoder.embedded)

	art, ok := f.tagger.tagged["/lib/music/Song.mp3"]
	require.True(t, ok)
	assert.Equal(t, []byte{0xFF, 0xD8}, art[:2])
}

func TestProcessDownload_OggSkipsEmbed(t *testing.T) {
	f := newDMFixture(t)
	f.fetcher.titles["https://example.com/a"] = "Song"
	d := f.submit(t, "https://example.com/a", domain.KindAudio, "ogg")

	require.NoError(t, f.dm.ProcessDownload(context.Background(), d))

	assert.Equal(t, domain.StageDone, d.Stage)
	assert.Empty(t, f.transcoder.embedded)
	assert.Empty(t, f.tagger.tagged)
	assert.True(t, exists(t, f.fs, "/lib/covers/Song.png"))
}

func TestProcessDownload_TranscoderMissing(t *testing.T) {
	f := newDMFixture(t)
	f.transcoder.availableErr = fmt.Errorf("%w: %s", domain.ErrTranscoderMissing, "/opt/ffmpeg/ffmpeg")
	f.fetcher.titles["https://example.com/v"] = "Clip"
	d := f.submit(t, "https://example.com/v", domain.KindVideo, "mp4")

	err := f.dm.ProcessDownload(context.Background(), d)
	require.ErrorIs(t, err, domain.ErrTranscoderMissing)

	assert.Equal(t, domain.StageFailed, d.Stage)
	assert.Contains(t, d.ErrorMessage, "/opt/ffmpeg/ffmpeg")
	resolves, fetches := f.fetcher.calls()
	assert.Zero(t, resolves)
	assert.Zero(t, fetches)
	assert.Equal(t, []domain.Stage{domain.StageFailed}, f.observer.stages())
	assert.Equal(t, 1, f.notifier.failed)
}

func TestProcessDownload_FetchFailure(t *testing.T) {
	f := newDMFixture(t)
	f.fetcher.titles["https://example.com/v"] = "Clip"
	f.fetcher.fetchErr = errors.New("ERROR: video unavailable")
	d := f.submit(t, "https://example.com/v", domain.KindVideo, "mp4")

	err := f.dm.ProcessDownload(context.Background(), d)
	require.Error(t, err)

	assert.Equal(t, domain.StageFailed, d.Stage)
	assert.Equal(t, "ERROR: video unavailable", d.ErrorMessage)
	assert.Equal(t, "Download failed: ERROR: video unavailable", d.StatusMessage())
	assert.Equal(t, domain.StageFailed, f.repo.get(t, d.ID).Stage)

	// the title is free again once the download has failed
	release, err := f.dm.claimTitle(domain.CategoryVideo, "Clip", "other")
	require.NoError(t, err)
	release()
}

func TestProcessDownload_ResolveFailure(t *testing.T) {
	f := newDMFixture(t)
	d := f.submit(t, "https://example.com/unknown", domain.KindVideo, "mp4")

	err := f.dm.ProcessDownload(context.Background(), d)
	require.Error(t, err)
	assert.Contains(t, d.ErrorMessage, "unsupported URL")
	_, fetches := f.fetcher.calls()
	assert.Zero(t, fetches)
}

func TestProcessDownload_NoThumbnail(t *testing.T) {
	f := newDMFixture(t)
	f.fetcher.titles["https://example.com/v"] = "Clip"
	f.fetcher.thumbExt = ""
	d := f.submit(t, "https://example.com/v", domain.KindVideo, "mp4")

	require.NoError(t, f.dm.ProcessDownload(context.Background(), d))
	assert.Equal(t, domain.StageDone, d.Stage)
	assert.Equal(t, "/lib/videos/Clip.mp4", d.MediaPath)
	assert.Empty(t, d.ThumbnailPath)
	assert.Empty(t, f.transcoder.embedded)
}

func TestProcessDownload_MissingMedia(t *testing.T) {
	f := newDMFixture(t)
	f.fetcher.titles["https://example.com/v"] = "Clip"
	f.fetcher.writeExt = "part"
	d := f.submit(t, "https://example.com/v", domain.KindVideo, "mp4")

	err := f.dm.ProcessDownload(context.Background(), d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "downloaded media file not found")
}

func TestProcessDownload_EmbedFailureKeepsThumbnail(t *testing.T) {
	f := newDMFixture(t)
	f.fetcher.titles["https://example.com/v"] = "Clip"
	f.transcoder.embedErr = errors.New("ffmpeg failed: invalid data")
	d := f.submit(t, "https://example.com/v", domain.KindVideo, "mp4")

	require.Error(t, f.dm.ProcessDownload(context.Background(), d))
	assert.Equal(t, domain.StageFailed, d.Stage)
	assert.True(t, exists(t, f.fs, "/lib/videos/Clip.png"))
	assert.False(t, exists(t, f.fs, "/lib/thumbnails/Clip.png"))
	assert.False(t, exists(t, f.fs, "/lib/videos/Clip.cover.jpg"))
}

func TestProcessDownload_TitleCache(t *testing.T) {
	f := newDMFixture(t)
	f.fetcher.titles["https://example.com/a"] = "Song"

	for i := 0; i < 2; i++ {
		d := f.submit(t, "https://example.com/a", domain.KindAudio, "ogg")
		require.NoError(t, f.dm.ProcessDownload(context.Background(), d))
		assert.Equal(t, "Song", d.Title)
	}

	resolves, fetches := f.fetcher.calls()
	assert.Equal(t, 1, resolves)
	assert.Equal(t, 2, fetches)
}

func TestProcessDownload_DuplicateTitleInFlight(t *testing.T) {
	f := newDMFixture(t)
	f.fetcher.titles["https://example.com/1"] = "Same"
	f.fetcher.titles["https://example.com/2"] = "Same"
	f.fetcher.entered = make(chan struct{}, 1)
	f.fetcher.unblock = make(chan struct{})

	first := f.submit(t, "https://example.com/1", domain.KindVideo, "mp4")
	done := make(chan error, 1)
	go func() { done <- f.dm.ProcessDownload(context.Background(), first) }()

	select {
	case <-f.fetcher.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first download never reached the fetcher")
	}

	second := f.submit(t, "https://example.com/2", domain.KindVideo, "mp4")
	err := f.dm.ProcessDownload(context.Background(), second)
	require.ErrorIs(t, err, domain.ErrDuplicateTitle)
	assert.Equal(t, domain.StageFailed, second.Stage)

	close(f.fetcher.unblock)
	require.NoError(t, <-done)
	assert.Equal(t, domain.StageDone, first.Stage)
}

func TestClaimTitle(t *testing.T) {
	f := newDMFixture(t)

	release, err := f.dm.claimTitle(domain.CategoryVideo, "Clip", "a")
	require.NoError(t, err)

	_, err = f.dm.claimTitle(domain.CategoryVideo, "Clip", "b")
	assert.ErrorIs(t, err, domain.ErrDuplicateTitle)

	releaseAudio, err := f.dm.claimTitle(domain.CategoryAudio, "Clip", "b")
	require.NoError(t, err)
	releaseAudio()

	release()
	release, err = f.dm.claimTitle(domain.CategoryVideo, "Clip", "b")
	require.NoError(t, err)
	release()
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "42.0% (4.2 MB of 10 MB)", formatProgress(domain.Progress{DownloadedBytes: 4200000, TotalBytes: 10000000}))
	assert.Equal(t, "1.5 kB", formatProgress(domain.Progress{DownloadedBytes: 1500}))
}

func TestProgressReporterThrottles(t *testing.T) {
	f := newDMFixture(t)
	f.dm.config.ProgressInterval = time.Hour
	d := domain.NewDownload(videoRequest("https://example.com/v"))
	d.Transition(domain.StageDownloading)

	report := f.dm.progressReporter(d)
	report(domain.Progress{DownloadedBytes: 10, TotalBytes: 100})
	report(domain.Progress{DownloadedBytes: 20, TotalBytes: 100})
	report(domain.Progress{Finished: true})

	assert.Equal(t, []string{"10.0% (10 B of 100 B)"}, f.observer.progressTexts())
	assert.Equal(t, "20.0% (20 B of 100 B)", d.Progress)
}

func TestLocateOutputs_FallsBackToOtherContainer(t *testing.T) {
	f := newDMFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, "/lib/videos/Clip.mkv", []byte("m"), 0644))
	require.NoError(t, afero.WriteFile(f.fs, "/lib/videos/Clip.webp", []byte("i"), 0644))
	require.NoError(t, afero.WriteFile(f.fs, "/lib/videos/Other.mp4", []byte("m"), 0644))

	media, thumb, err := f.dm.locateOutputs("/lib/videos", "Clip", "mp4")
	require.NoError(t, err)
	assert.Equal(t, "/lib/videos/Clip.mkv", media)
	assert.Equal(t, "/lib/videos/Clip.webp", thumb)
}

func TestMoveFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a/thumb.jpg", []byte("art"), 0644))

	require.NoError(t, moveFile(fs, "/a/thumb.jpg", "/b/c/thumb.jpg"))

	data, err := afero.ReadFile(fs, "/b/c/thumb.jpg")
	require.NoError(t, err)
	assert.Equal(t, "art", string(data))
	assert.False(t, exists(t, fs, "/a/thumb.jpg"))
}
