package imageprocessor

// Format identifies an image container format, either sniffed from raw bytes
// or requested as an encode target.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatJPG     Format = "jpg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatWebP    Format = "webp"
	FormatUnknown Format = "unknown"
)

// IsJPEG reports whether f belongs to the JPEG family. Quality control in
// Optimize only applies to these.
func (f Format) IsJPEG() bool {
	return f == FormatJPEG || f == FormatJPG
}

// DetectFormat classifies raw bytes by magic-number prefix only. It is a
// fast, conservative classifier, not a validator: full headers are never
// parsed, and anything unrecognized is FormatUnknown. The result is what gets
// persisted in ImageMetadata, never a client-declared content type.
func DetectFormat(data []byte) Format {
	if len(data) < 2 {
		return FormatUnknown
	}
	switch {
	case data[0] == 0xFF && data[1] == 0xD8:
		return FormatJPEG
	case data[0] == 0x89 && data[1] == 0x50:
		return FormatPNG
	case data[0] == 0x47 && data[1] == 0x49:
		return FormatGIF
	default:
		return FormatUnknown
	}
}

// OptimalFormat determines the encode target for a variant. When WebP
// conversion is enabled everything except GIF is converted to WebP; GIFs are
// exempted to keep their animation. Unknown content types fall back to JPEG.
func OptimalFormat(contentType string, enableWebPConversion bool) Format {
	if enableWebPConversion && contentType != "image/gif" {
		return FormatWebP
	}

	switch contentType {
	case "image/jpeg", "image/jpg":
		return FormatJPG
	case "image/png":
		return FormatPNG
	case "image/gif":
		return FormatGIF
	case "image/webp":
		return FormatWebP
	default:
		return FormatJPG
	}
}
