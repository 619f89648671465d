package imageprocessor

import "errors"

// Error kinds reported by the transform engine. Callers match with
// errors.Is; every failure is local to the single operation that raised it.
var (
	// ErrDecode means the input bytes are not a decodable image.
	ErrDecode = errors.New("imageprocessor: decode failed")
	// ErrEncode means re-encoding failed after a successful decode.
	ErrEncode = errors.New("imageprocessor: encode failed")
	// ErrUnsupportedFormat means the requested target format has no encoder.
	ErrUnsupportedFormat = errors.New("imageprocessor: unsupported format")
	// ErrInvalidOptions means caller-supplied options failed validation.
	// It is raised before any image work starts.
	ErrInvalidOptions = errors.New("imageprocessor: invalid options")
)
