package imageprocessor_test

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarkit/media/internal/pkg/imageprocessor"
)

var opaqueBlue = color.NRGBA{R: 20, G: 40, B: 200, A: 255}

func TestResize_Crop_ExactDimensions(t *testing.T) {
	t.Parallel()

	src := makePNG(t, 400, 200, opaqueBlue)

	for _, target := range []struct{ w, h int }{{100, 100}, {150, 150}, {37, 91}, {300, 120}} {
		out, err := imageprocessor.Resize(src, target.w, target.h, imageprocessor.ResizeCrop)
		require.NoError(t, err)

		w, h := dimensions(t, out)
		assert.Equal(t, target.w, w, "crop width must match exactly")
		assert.Equal(t, target.h, h, "crop height must match exactly")
	}
}

func TestResize_Proportional_PreservesAspectRatio(t *testing.T) {
	t.Parallel()

	// 2:1 source fit into a square box keeps the ratio and may not fill the box.
	src := makePNG(t, 400, 200, opaqueBlue)

	for _, mode := range []imageprocessor.ResizeMode{imageprocessor.ResizeProportional, imageprocessor.ResizeFit} {
		out, err := imageprocessor.Resize(src, 100, 100, mode)
		require.NoError(t, err)

		w, h := dimensions(t, out)
		assert.LessOrEqual(t, w, 100)
		assert.LessOrEqual(t, h, 100)
		assert.Equal(t, 100, w)
		assert.Equal(t, 50, h)
	}
}

func TestResize_Exact_RoundTrip(t *testing.T) {
	t.Parallel()

	src := makePNG(t, 333, 111, opaqueBlue)

	out, err := imageprocessor.Resize(src, 120, 80, imageprocessor.ResizeExact)
	require.NoError(t, err)

	meta, err := imageprocessor.ExtractMetadata(out)
	require.NoError(t, err)
	assert.Equal(t, 120, meta.Width)
	assert.Equal(t, 80, meta.Height)
}

func TestResize_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := imageprocessor.Resize([]byte("definitely not an image"), 100, 100, imageprocessor.ResizeCrop)
	assert.ErrorIs(t, err, imageprocessor.ErrDecode)
}

func TestConvertFormat_TransparentToJPEG_FlattensOnWhite(t *testing.T) {
	t.Parallel()

	// Fully transparent red: the color channel must not bleed through.
	src := makePNG(t, 64, 64, color.NRGBA{R: 255, G: 0, B: 0, A: 0})

	out, err := imageprocessor.ConvertFormat(src, imageprocessor.FormatJPG)
	require.NoError(t, err)

	meta, err := imageprocessor.ExtractMetadata(out)
	require.NoError(t, err)
	assert.Equal(t, imageprocessor.FormatJPEG, meta.Format)
	assert.False(t, meta.HasTransparency)

	img := decodeNRGBA(t, out)
	center := img.NRGBAAt(32, 32)
	assert.Greater(t, int(center.R), 240, "transparent region should render white")
	assert.Greater(t, int(center.G), 240)
	assert.Greater(t, int(center.B), 240)
}

func TestConvertFormat_PNGKeepsTransparency(t *testing.T) {
	t.Parallel()

	src := makePNG(t, 32, 32, color.NRGBA{R: 10, G: 10, B: 10, A: 100})

	out, err := imageprocessor.ConvertFormat(src, imageprocessor.FormatPNG)
	require.NoError(t, err)

	meta, err := imageprocessor.ExtractMetadata(out)
	require.NoError(t, err)
	assert.True(t, meta.HasTransparency)
}

func TestOptimize_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	src := makePNG(t, 16, 16, opaqueBlue)
	_, err := imageprocessor.Optimize(src, imageprocessor.Format("tiff"), 0.8)
	assert.ErrorIs(t, err, imageprocessor.ErrUnsupportedFormat)
}

func TestOptimize_Idempotent(t *testing.T) {
	t.Parallel()

	src := makeJPEG(t, 120, 120, opaqueBlue)

	once, err := imageprocessor.Optimize(src, imageprocessor.FormatJPG, 0.85)
	require.NoError(t, err)
	twice, err := imageprocessor.Optimize(once, imageprocessor.FormatJPG, 0.85)
	require.NoError(t, err)

	// A second re-encode at the same quality must not accumulate loss:
	// compare decoded pixels, not raw bytes.
	first := decodeNRGBA(t, once)
	second := decodeNRGBA(t, twice)
	assert.Less(t, meanAbsDiff(t, first, second), 3.0,
		"second optimize pass should be visually equivalent to the first")
}

func TestGenerateThumbnail(t *testing.T) {
	t.Parallel()

	src := makePNG(t, 500, 300, opaqueBlue)

	out, err := imageprocessor.GenerateThumbnail(src, 150)
	require.NoError(t, err)

	w, h := dimensions(t, out)
	assert.Equal(t, 150, w)
	assert.Equal(t, 150, h)
}

func TestExtractMetadata(t *testing.T) {
	t.Parallel()

	t.Run("png", func(t *testing.T) {
		src := makePNG(t, 80, 60, opaqueBlue)

		meta, err := imageprocessor.ExtractMetadata(src)
		require.NoError(t, err)
		assert.Equal(t, 80, meta.Width)
		assert.Equal(t, 60, meta.Height)
		assert.Equal(t, imageprocessor.FormatPNG, meta.Format)
		assert.Equal(t, len(src), meta.FileSizeBytes)
		assert.False(t, meta.HasTransparency)
		assert.Equal(t, 32, meta.ColorDepthBits)
	})

	t.Run("jpeg", func(t *testing.T) {
		src := makeJPEG(t, 40, 40, opaqueBlue)

		meta, err := imageprocessor.ExtractMetadata(src)
		require.NoError(t, err)
		assert.Equal(t, imageprocessor.FormatJPEG, meta.Format)
		assert.False(t, meta.HasTransparency)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := imageprocessor.ExtractMetadata([]byte{0x00, 0x01})
		assert.ErrorIs(t, err, imageprocessor.ErrDecode)
	})
}
