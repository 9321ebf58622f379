// Package tui provides the terminal gallery: a grid of downloaded videos and
// music that can be browsed, opened and re-themed.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yourusername/tubetrove-go/internal/app"
	"github.com/yourusername/tubetrove-go/internal/domain"
)

const (
	requestTimeout = 10 * time.Second
	pollInterval   = 2 * time.Second
)

// Backend is the server the gallery reads from and acts on
type Backend interface {
	Library(ctx context.Context) (*app.GallerySnapshot, error)
	RefreshLibrary(ctx context.Context) error
	Open(ctx context.Context, category domain.Category, index int) (*app.Tile, error)
	SetTheme(ctx context.Context, theme string) (*domain.Settings, error)
}

type snapshotMsg struct{ snap *app.GallerySnapshot }

type openedMsg struct{ tile *app.Tile }

type themeChangedMsg struct{ theme string }

type errMsg struct{ err error }

type tickMsg time.Time

// Model is the Bubble Tea model of the gallery
type Model struct {
	backend  Backend
	keys     keyMap
	help     help.Model
	styles   styles
	theme    string
	snap     *app.GallerySnapshot
	category domain.Category
	selected int
	status   string
	err      error
	width    int
	height   int
}

// NewModel creates a gallery model
func NewModel(backend Backend) *Model {
	return &Model{
		backend:  backend,
		keys:     defaultKeyMap(),
		help:     help.New(),
		styles:   newStyles(PaletteFor(domain.DefaultTheme)),
		theme:    domain.DefaultTheme,
		category: domain.CategoryVideo,
	}
}

// Run starts the gallery program and blocks until the user quits
func Run(backend Backend) error {
	p := tea.NewProgram(NewModel(backend), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load, tick())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case snapshotMsg:
		m.setSnapshot(msg.snap)
		return m, nil

	case openedMsg:
		m.status = "Opened " + msg.tile.Title
		m.err = nil
		return m, nil

	case themeChangedMsg:
		m.status = "Theme: " + msg.theme
		m.applyTheme(msg.theme)
		return m, m.load

	case errMsg:
		m.err = msg.err
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.load, tick())
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Switch):
		if m.category == domain.CategoryVideo {
			m.category = domain.CategoryAudio
		} else {
			m.category = domain.CategoryVideo
		}
		m.selected = 0
	case key.Matches(msg, m.keys.Left):
		if m.selected%m.columns() > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Right):
		if m.selected%m.columns() < m.columns()-1 && m.selected+1 < len(m.tiles()) {
			m.selected++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selected-m.columns() >= 0 {
			m.selected -= m.columns()
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected+m.columns() < len(m.tiles()) {
			m.selected += m.columns()
		}
	case key.Matches(msg, m.keys.Open):
		if m.selected < len(m.tiles()) {
			return m.open(m.category, m.selected)
		}
	case key.Matches(msg, m.keys.Theme):
		return m.setTheme(nextTheme(m.theme))
	case key.Matches(msg, m.keys.Refresh):
		m.status = "Rescanning library..."
		return m.refresh
	}
	return nil
}

func (m *Model) setSnapshot(snap *app.GallerySnapshot) {
	m.snap = snap
	m.err = nil
	if snap.Error != "" {
		m.err = fmt.Errorf("library scan failed: %s", snap.Error)
	}
	if snap.Theme != "" && snap.Theme != m.theme {
		m.applyTheme(snap.Theme)
	}
	if n := len(m.tiles()); m.selected >= n {
		m.selected = max(n-1, 0)
	}
}

func (m *Model) applyTheme(theme string) {
	m.theme = theme
	m.styles = newStyles(PaletteFor(theme))
}

func (m *Model) tiles() []app.Tile {
	if m.snap == nil {
		return nil
	}
	return m.snap.View(m.category).Tiles
}

func (m *Model) columns() int {
	if m.snap == nil || m.snap.Columns < 1 {
		return 1
	}
	return m.snap.Columns
}

// Commands

func (m *Model) load() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	snap, err := m.backend.Library(ctx)
	if err != nil {
		return errMsg{err}
	}
	return snapshotMsg{snap}
}

func (m *Model) refresh() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := m.backend.RefreshLibrary(ctx); err != nil {
		return errMsg{err}
	}
	return m.load()
}

func (m *Model) open(category domain.Category, index int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		tile, err := m.backend.Open(ctx, category, index)
		if err != nil {
			return errMsg{err}
		}
		return openedMsg{tile}
	}
}

func (m *Model) setTheme(theme string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		settings, err := m.backend.SetTheme(ctx, theme)
		if err != nil {
			return errMsg{err}
		}
		return themeChangedMsg{settings.Theme}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// View

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("TubeTrove"))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch {
	case m.snap == nil:
		b.WriteString(m.styles.dim.Render("Loading library..."))
	case len(m.tiles()) == 0:
		b.WriteString(m.styles.dim.Render("Nothing here yet."))
	default:
		b.WriteString(m.renderGrid())
	}
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(m.styles.errorText.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(m.styles.status.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m *Model) renderTabs() string {
	var videos, music int
	if m.snap != nil {
		videos, music = len(m.snap.Videos.Tiles), len(m.snap.Music.Tiles)
	}

	tabs := []struct {
		category domain.Category
		label    string
	}{
		{domain.CategoryVideo, fmt.Sprintf("Videos (%d)", videos)},
		{domain.CategoryAudio, fmt.Sprintf("Music (%d)", music)},
	}

	rendered := make([]string, 0, len(tabs))
	for _, t := range tabs {
		style := m.styles.tab
		if t.category == m.category {
			style = m.styles.activeTab
		}
		rendered = append(rendered, style.Render(t.label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m *Model) renderGrid() string {
	tiles := m.tiles()
	rows := make([]string, 0, (len(tiles)+m.columns()-1)/m.columns())

	var row []string
	for i, tile := range tiles {
		style := m.styles.tile
		if i == m.selected {
			style = m.styles.selectedTile
		}
		row = append(row, style.Render(truncate(tile.Title, tileWidth-2)))
		if tile.Col == m.columns()-1 || i == len(tiles)-1 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}
