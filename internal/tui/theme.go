package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/yourusername/tubetrove-go/internal/domain"
)

// Palette is the set of colors a theme renders with
type Palette struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Error      lipgloss.Color
}

var palettes = map[string]Palette{
	domain.ThemeDarkBlue: {
		Background: lipgloss.Color("#0B1D3A"),
		Foreground: lipgloss.Color("#E6EEF8"),
		Accent:     lipgloss.Color("#3B8ED0"),
		Muted:      lipgloss.Color("#7A8CA5"),
		Error:      lipgloss.Color("#FF6B6B"),
	},
	domain.ThemeLight: {
		Background: lipgloss.Color("#F2F2F2"),
		Foreground: lipgloss.Color("#1A1A1A"),
		Accent:     lipgloss.Color("#1F6AA5"),
		Muted:      lipgloss.Color("#6C757D"),
		Error:      lipgloss.Color("#C0392B"),
	},
}

// PaletteFor returns the palette of a theme, falling back to the default theme
func PaletteFor(theme string) Palette {
	if p, ok := palettes[theme]; ok {
		return p
	}
	return palettes[domain.DefaultTheme]
}

type styles struct {
	title        lipgloss.Style
	tab          lipgloss.Style
	activeTab    lipgloss.Style
	tile         lipgloss.Style
	selectedTile lipgloss.Style
	status       lipgloss.Style
	errorText    lipgloss.Style
	dim          lipgloss.Style
}

const tileWidth = 20

func newStyles(p Palette) styles {
	tile := lipgloss.NewStyle().
		Width(tileWidth).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Muted).
		Foreground(p.Foreground)

	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Accent).
			MarginBottom(1),
		tab: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(p.Muted),
		activeTab: lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(p.Background).
			Background(p.Accent),
		tile: tile,
		selectedTile: tile.
			BorderForeground(p.Accent).
			Bold(true),
		status:    lipgloss.NewStyle().Foreground(p.Foreground),
		errorText: lipgloss.NewStyle().Foreground(p.Error),
		dim:       lipgloss.NewStyle().Foreground(p.Muted),
	}
}

// nextTheme cycles through the defined themes
func nextTheme(current string) string {
	for i, t := range domain.Themes {
		if t == current {
			return domain.Themes[(i+1)%len(domain.Themes)]
		}
	}
	return domain.DefaultTheme
}
