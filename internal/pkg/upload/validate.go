package upload

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bazaarkit/media/internal/pkg/config"
	"github.com/bazaarkit/media/internal/pkg/imageprocessor"
)

// ErrValidation is the kind for every upload rejection.
var ErrValidation = errors.New("upload: validation failed")

var allowedSniffedMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// maliciousFragments are rejected anywhere in a client filename. Path
// traversal is neutralized by sanitization as well; rejecting early keeps
// the attempt visible to callers.
var maliciousFragments = []string{
	"..", "/", "\\", ":", "*", "?", "\"", "<", ">", "|",
	"script", "javascript", "vbscript", "onload", "onerror",
}

// Validate checks a client upload against the configured whitelist: size
// cap, extension, filename hygiene, and the actual leading bytes. The
// client-declared content type is never consulted.
func Validate(filename string, data []byte, cfg *config.UploadConfig) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if int64(len(data)) > cfg.MaxFileSize {
		return fmt.Errorf("%w: file size %d exceeds maximum %d bytes", ErrValidation, len(data), cfg.MaxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !extensionAllowed(ext, cfg.AllowedExtensions) {
		return fmt.Errorf("%w: extension %q not allowed (allowed: %s)",
			ErrValidation, ext, strings.Join(cfg.AllowedExtensions, ", "))
	}

	lower := strings.ToLower(strings.TrimSuffix(filename, ext))
	for _, fragment := range maliciousFragments {
		if strings.Contains(lower, fragment) {
			return fmt.Errorf("%w: filename contains disallowed pattern %q", ErrValidation, fragment)
		}
	}

	detected := http.DetectContentType(head(data))
	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") {
		return fmt.Errorf("%w: HTML content is not allowed", ErrValidation)
	}
	if strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") || detected == "image/svg+xml" {
		return fmt.Errorf("%w: SVG/XML content is not allowed", ErrValidation)
	}

	// WebP sniffs as image/webp via DetectContentType but not via the
	// two-byte prefix sniffer; accept either signal.
	if allowedSniffedMime[detected] {
		return nil
	}
	if imageprocessor.DetectFormat(data) != imageprocessor.FormatUnknown {
		return nil
	}

	return fmt.Errorf("%w: content does not look like a supported image", ErrValidation)
}

func extensionAllowed(ext string, allowed []string) bool {
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

func head(data []byte) []byte {
	if len(data) > 512 {
		return data[:512]
	}
	return data
}

var (
	unsafeChars   = regexp.MustCompile(`[^a-z0-9._-]`)
	repeatedUnder = regexp.MustCompile(`_{2,}`)
)

// SanitizeFilename produces a filesystem-safe name from a client filename:
// lowercase, whitelisted characters only, collapsed underscores, and a
// timestamp suffix for uniqueness. The extension is preserved.
func SanitizeFilename(original string) string {
	now := time.Now().UnixMilli()
	if strings.TrimSpace(original) == "" {
		return fmt.Sprintf("unnamed_%d", now)
	}

	ext := strings.ToLower(filepath.Ext(original))
	base := strings.ToLower(strings.TrimSuffix(original, filepath.Ext(original)))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = repeatedUnder.ReplaceAllString(base, "_")
	if base == "" {
		base = "unnamed"
	}

	return fmt.Sprintf("%s_%d%s", base, now, ext)
}
