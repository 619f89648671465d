package imageprocessor_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// makePNG encodes a solid-color PNG of the given dimensions.
func makePNG(t *testing.T, width, height int, fill color.NRGBA) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}

	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

// makeJPEG encodes a solid-color JPEG of the given dimensions.
func makeJPEG(t *testing.T, width, height int, fill color.NRGBA) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}

	buf := new(bytes.Buffer)
	require.NoError(t, imaging.Encode(buf, img, imaging.JPEG))
	return buf.Bytes()
}

// decodeNRGBA decodes bytes and normalizes the pixels to NRGBA.
func decodeNRGBA(t *testing.T, data []byte) *image.NRGBA {
	t.Helper()

	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return imaging.Clone(img)
}

// dimensions returns the pixel dimensions of encoded image bytes.
func dimensions(t *testing.T, data []byte) (int, int) {
	t.Helper()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

// meanAbsDiff reports the mean absolute per-channel difference between two
// equally sized images.
func meanAbsDiff(t *testing.T, a, b *image.NRGBA) float64 {
	t.Helper()
	require.Equal(t, a.Bounds(), b.Bounds())

	var total float64
	var count int
	for i := range a.Pix {
		d := int(a.Pix[i]) - int(b.Pix[i])
		if d < 0 {
			d = -d
		}
		total += float64(d)
		count++
	}
	return total / float64(count)
}
