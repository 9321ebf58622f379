package infrastructure

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCoverJPEG_Downscales(t *testing.T) {
	out, err := CoverJPEG(pngBytes(t, 400, 200), 100)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestCoverJPEG_KeepsSmallImages(t *testing.T) {
	out, err := CoverJPEG(pngBytes(t, 64, 48), 1000)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestCoverJPEG_RejectsGarbage(t *testing.T) {
	_, err := CoverJPEG([]byte("not an image"), 100)
	assert.Error(t, err)
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, max     int
		wantW, wantH int
	}{
		{1280, 720, 1000, 1000, 562},
		{720, 1280, 1000, 562, 1000},
		{500, 500, 1000, 500, 500},
		{3000, 1, 100, 100, 1},
		{800, 600, 0, 800, 600},
	}
	for _, tt := range tests {
		w, h := fitWithin(tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}
