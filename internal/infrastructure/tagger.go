package infrastructure

import (
	"fmt"

	"github.com/bogem/id3v2"
)

// ID3CoverTagger embeds cover art into mp3 files as an APIC front cover frame
type ID3CoverTagger struct{}

// NewID3CoverTagger creates a new ID3 cover tagger
func NewID3CoverTagger() *ID3CoverTagger {
	return &ID3CoverTagger{}
}

// EmbedCover replaces any attached pictures of mediaPath with artwork (JPEG bytes)
func (t *ID3CoverTagger) EmbedCover(mediaPath string, artwork []byte) error {
	tag, err := id3v2.Open(mediaPath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open tags of %s: %w", mediaPath, err)
	}
	defer tag.Close()

	tag.DeleteFrames(tag.CommonID("Attached picture"))
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     artwork,
	})

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags of %s: %w", mediaPath, err)
	}
	return nil
}
