package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/yourusername/tubetrove-go/internal/domain"
	"github.com/yourusername/tubetrove-go/internal/library"
	"github.com/yourusername/tubetrove-go/internal/metrics"
)

// ErrGalleryStopped is returned when the gallery loop is not running
var ErrGalleryStopped = errors.New("gallery is not running")

// Tile is a library entry placed on the grid
type Tile struct {
	domain.LibraryEntry
	Row int `json:"row"`
	Col int `json:"col"`
}

// CategoryView is the grid of one category
type CategoryView struct {
	Category domain.Category `json:"category"`
	Tiles    []Tile          `json:"tiles"`
	Rows     int             `json:"rows"`
}

// GallerySnapshot is an immutable view of the gallery. Snapshots are never
// modified after they are handed out.
type GallerySnapshot struct {
	Version   uint64       `json:"version"`
	Theme     string       `json:"theme"`
	Columns   int          `json:"columns"`
	Videos    CategoryView `json:"videos"`
	Music     CategoryView `json:"music"`
	ScannedAt time.Time    `json:"scanned_at"`
	Error     string       `json:"error,omitempty"`
}

// View returns the grid for a category
func (s GallerySnapshot) View(c domain.Category) CategoryView {
	if c == domain.CategoryAudio {
		return s.Music
	}
	return s.Videos
}

// Layout places entries on a grid with the given number of columns, filling
// each row left to right in scan order.
func Layout(entries []domain.LibraryEntry, columns int) []Tile {
	if columns < 1 {
		columns = 1
	}
	tiles := make([]Tile, 0, len(entries))
	for i, e := range entries {
		tiles = append(tiles, Tile{LibraryEntry: e, Row: i / columns, Col: i % columns})
	}
	return tiles
}

func rowsFor(n, columns int) int {
	if n == 0 {
		return 0
	}
	return (n + columns - 1) / columns
}

// Opener launches a file with the system's default application
type Opener interface {
	Open(path string) error
}

type galleryMsg interface{}

type refreshMsg struct{ reason string }

type themeMsg struct{ theme string }

type snapshotMsg struct{ reply chan GallerySnapshot }

type subscribeMsg struct {
	ch    chan GallerySnapshot
	reply chan int
}

type unsubscribeMsg struct{ id int }

// Gallery owns the per-category tile grids. A single goroutine (Run) holds the
// state; every other caller talks to it through messages.
type Gallery struct {
	fs      afero.Fs
	layout  domain.Layout
	columns int
	opener  Opener
	logger  *zap.Logger

	msgs chan galleryMsg
	done chan struct{}
}

// NewGallery creates a gallery over the library layout
func NewGallery(fs afero.Fs, layout domain.Layout, columns int, opener Opener, logger *zap.Logger) *Gallery {
	if columns < 1 {
		columns = 5
	}
	return &Gallery{
		fs:      fs,
		layout:  layout,
		columns: columns,
		opener:  opener,
		logger:  logger,
		msgs:    make(chan galleryMsg, 16),
		done:    make(chan struct{}),
	}
}

// Run scans the library once with the given theme and then serves messages
// until ctx is done. It must be called exactly once.
func (g *Gallery) Run(ctx context.Context, theme string) {
	defer close(g.done)

	var (
		current GallerySnapshot
		subs    = make(map[int]chan GallerySnapshot)
		nextID  int
	)

	broadcast := func() {
		for _, ch := range subs {
			// keep only the newest snapshot in each subscriber's slot
			select {
			case <-ch:
			default:
			}
			ch <- current
		}
	}

	current = g.scan(current.Version+1, theme, "startup")

	for {
		select {
		case <-ctx.Done():
			for _, ch := range subs {
				close(ch)
			}
			return
		case msg := <-g.msgs:
			switch m := msg.(type) {
			case refreshMsg:
				current = g.scan(current.Version+1, current.Theme, m.reason)
				broadcast()
			case themeMsg:
				current = g.scan(current.Version+1, m.theme, "theme")
				broadcast()
			case snapshotMsg:
				m.reply <- current
			case subscribeMsg:
				id := nextID
				nextID++
				subs[id] = m.ch
				m.ch <- current
				m.reply <- id
			case unsubscribeMsg:
				if ch, ok := subs[m.id]; ok {
					delete(subs, m.id)
					close(ch)
				}
			}
		}
	}
}

func (g *Gallery) scan(version uint64, theme, reason string) GallerySnapshot {
	snap := GallerySnapshot{
		Version:   version,
		Theme:     theme,
		Columns:   g.columns,
		Videos:    CategoryView{Category: domain.CategoryVideo, Tiles: []Tile{}},
		Music:     CategoryView{Category: domain.CategoryAudio, Tiles: []Tile{}},
		ScannedAt: time.Now(),
	}

	entries, err := library.ScanLibrary(g.fs, g.layout)
	metrics.LibraryScansTotal.Inc()
	if err != nil {
		g.logger.Error("Library scan failed", zap.String("reason", reason), zap.Error(err))
		snap.Error = err.Error()
		return snap
	}

	videos := entries[domain.CategoryVideo]
	music := entries[domain.CategoryAudio]
	snap.Videos.Tiles = Layout(videos, g.columns)
	snap.Videos.Rows = rowsFor(len(videos), g.columns)
	snap.Music.Tiles = Layout(music, g.columns)
	snap.Music.Rows = rowsFor(len(music), g.columns)

	metrics.LibraryEntries.WithLabelValues(string(domain.CategoryVideo)).Set(float64(len(videos)))
	metrics.LibraryEntries.WithLabelValues(string(domain.CategoryAudio)).Set(float64(len(music)))

	g.logger.Debug("Library scanned",
		zap.String("reason", reason),
		zap.Int("videos", len(videos)),
		zap.Int("music", len(music)))
	return snap
}

func (g *Gallery) send(ctx context.Context, msg galleryMsg) error {
	select {
	case g.msgs <- msg:
		return nil
	case <-g.done:
		return ErrGalleryStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh asks the gallery to re-scan the library
func (g *Gallery) Refresh(reason string) {
	_ = g.send(context.Background(), refreshMsg{reason: reason})
}

// SetTheme re-renders the gallery with a new theme
func (g *Gallery) SetTheme(theme string) {
	_ = g.send(context.Background(), themeMsg{theme: theme})
}

// Snapshot returns the current gallery state
func (g *Gallery) Snapshot(ctx context.Context) (GallerySnapshot, error) {
	reply := make(chan GallerySnapshot, 1)
	if err := g.send(ctx, snapshotMsg{reply: reply}); err != nil {
		return GallerySnapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-g.done:
		return GallerySnapshot{}, ErrGalleryStopped
	case <-ctx.Done():
		return GallerySnapshot{}, ctx.Err()
	}
}

// Subscribe returns a channel that always holds the newest snapshot, starting
// with the current one. The returned function unsubscribes.
func (g *Gallery) Subscribe(ctx context.Context) (<-chan GallerySnapshot, func(), error) {
	ch := make(chan GallerySnapshot, 1)
	reply := make(chan int, 1)
	if err := g.send(ctx, subscribeMsg{ch: ch, reply: reply}); err != nil {
		return nil, nil, err
	}

	var id int
	select {
	case id = <-reply:
	case <-g.done:
		return nil, nil, ErrGalleryStopped
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	return ch, func() { _ = g.send(context.Background(), unsubscribeMsg{id: id}) }, nil
}

// Open launches the media file of the tile at index in a category
func (g *Gallery) Open(ctx context.Context, category domain.Category, index int) (Tile, error) {
	snap, err := g.Snapshot(ctx)
	if err != nil {
		return Tile{}, err
	}
	tiles := snap.View(category).Tiles
	if index < 0 || index >= len(tiles) {
		return Tile{}, fmt.Errorf("%w: no %s entry at index %d", domain.ErrNotFound, category, index)
	}

	tile := tiles[index]
	if err := g.opener.Open(tile.MediaPath); err != nil {
		return tile, err
	}
	g.logger.Info("Opened library entry", zap.String("title", tile.Title), zap.String("path", tile.MediaPath))
	return tile, nil
}

// DownloadUpdated re-scans once a download reaches a terminal stage
func (g *Gallery) DownloadUpdated(d domain.Download) {
	if d.Stage.IsTerminal() {
		g.Refresh("download " + string(d.Stage))
	}
}
