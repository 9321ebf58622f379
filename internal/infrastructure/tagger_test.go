package infrastructure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID3CoverTagger_EmbedCover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake mpeg frames"), 0644))

	tagger := NewID3CoverTagger()
	require.NoError(t, tagger.EmbedCover(path, []byte("first")))
	require.NoError(t, tagger.EmbedCover(path, []byte("second")))

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()

	frames := tag.GetFrames(tag.CommonID("Attached picture"))
	require.Len(t, frames, 1)
	pic, ok := frames[0].(id3v2.PictureFrame)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", pic.MimeType)
	assert.Equal(t, byte(id3v2.PTFrontCover), pic.PictureType)
	assert.Equal(t, []byte("second"), pic.Picture)
}

func TestID3CoverTagger_MissingFile(t *testing.T) {
	err := NewID3CoverTagger().EmbedCover(filepath.Join(t.TempDir(), "missing.mp3"), []byte("x"))
	assert.Error(t, err)
}
