package infrastructure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/tubetrove-go/internal/domain"
)

func TestOpenCommand(t *testing.T) {
	tests := []struct {
		goos string
		name string
		args []string
	}{
		{"linux", "xdg-open", []string{"videos/a b.mp4"}},
		{"freebsd", "xdg-open", []string{"videos/a b.mp4"}},
		{"darwin", "open", []string{"videos/a b.mp4"}},
		{"windows", "explorer", []string{`videos\a b.mp4`}},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args := openCommand(tt.goos, "videos/a b.mp4")
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestOpenCommand_WindowsKeepsShellCharactersInert(t *testing.T) {
	title := domain.SanitizeTitle("x&calc ^%PATH%!")
	name, args := openCommand("windows", "videos/"+title+".mp4")

	assert.Equal(t, "explorer", name)
	assert.Equal(t, []string{`videos\` + title + ".mp4"}, args)
	assert.NotContains(t, args, "/c")
}

func TestSystemOpener_Open(t *testing.T) {
	var got []string
	o := &SystemOpener{goos: "darwin", start: func(name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}}

	assert.NoError(t, o.Open("music/song.mp3"))
	assert.Equal(t, []string{"open", "music/song.mp3"}, got)

	o.start = func(string, ...string) error { return errors.New("not found") }
	assert.ErrorContains(t, o.Open("x"), "failed to open x")
}
