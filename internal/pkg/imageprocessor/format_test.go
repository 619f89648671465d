package imageprocessor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bazaarkit/media/internal/pkg/imageprocessor"
)

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want imageprocessor.Format
	}{
		{"jpeg magic", []byte{0xFF, 0xD8, 0xFF, 0xE0}, imageprocessor.FormatJPEG},
		{"png magic", []byte{0x89, 0x50, 0x4E, 0x47}, imageprocessor.FormatPNG},
		{"gif magic", []byte{0x47, 0x49, 0x46, 0x38}, imageprocessor.FormatGIF},
		{"unknown prefix", []byte{0x00, 0x01, 0x02, 0x03}, imageprocessor.FormatUnknown},
		{"empty", nil, imageprocessor.FormatUnknown},
		{"single byte", []byte{0xFF}, imageprocessor.FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, imageprocessor.DetectFormat(tt.data))
		})
	}
}

func TestDetectFormat_IgnoresDeclaredContentType(t *testing.T) {
	t.Parallel()

	// A buffer starting with FF D8 is jpeg no matter what a client claims.
	data := append([]byte{0xFF, 0xD8}, []byte("<html>definitely not html</html>")...)
	assert.Equal(t, imageprocessor.FormatJPEG, imageprocessor.DetectFormat(data))
}

func TestOptimalFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		enableWebP  bool
		want        imageprocessor.Format
	}{
		{"webp conversion on", "image/png", true, imageprocessor.FormatWebP},
		{"gif exempt from webp", "image/gif", true, imageprocessor.FormatGIF},
		{"jpeg passthrough", "image/jpeg", false, imageprocessor.FormatJPG},
		{"jpg alias", "image/jpg", false, imageprocessor.FormatJPG},
		{"png passthrough", "image/png", false, imageprocessor.FormatPNG},
		{"gif passthrough", "image/gif", false, imageprocessor.FormatGIF},
		{"webp passthrough", "image/webp", false, imageprocessor.FormatWebP},
		{"unknown defaults to jpg", "application/octet-stream", false, imageprocessor.FormatJPG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, imageprocessor.OptimalFormat(tt.contentType, tt.enableWebP))
		})
	}
}
