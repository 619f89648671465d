package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarkit/media/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.App.Host)
	assert.Equal(t, "4000", cfg.App.Port)

	assert.Equal(t, int64(10485760), cfg.Upload.MaxFileSize)
	assert.Equal(t, 5, cfg.Upload.MaxFilesPerRequest)
	assert.Equal(t, []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}, cfg.Upload.AllowedExtensions)

	assert.Equal(t, 24, cfg.Storage.TempRetentionHours)

	require.Len(t, cfg.Processing.Sizes, 4)
	assert.Equal(t, config.ImageSize{Name: "thumbnail", Width: 150, Height: 150}, cfg.Processing.Sizes[0])
	assert.Equal(t, config.ImageSize{Name: "large", Width: 1200, Height: 1200}, cfg.Processing.Sizes[3])
	assert.InDelta(t, 0.85, cfg.Processing.JPEGQuality, 0.0001)
	assert.True(t, cfg.Processing.EnableWebPConversion)
	assert.False(t, cfg.Processing.EnableWatermark)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("UPLOAD_MAX_FILE_SIZE", "2048")
	t.Setenv("UPLOAD_ALLOWED_EXTENSIONS", " .PNG , .JPG ")
	t.Setenv("PROCESSING_JPEG_QUALITY", "0.5")
	t.Setenv("PROCESSING_ENABLE_WEBP", "false")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, int64(2048), cfg.Upload.MaxFileSize)
	assert.Equal(t, []string{".png", ".jpg"}, cfg.Upload.AllowedExtensions, "extensions are trimmed and lowercased")
	assert.InDelta(t, 0.5, cfg.Processing.JPEGQuality, 0.0001)
	assert.False(t, cfg.Processing.EnableWebPConversion)
}

func TestLoad_MalformedValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("UPLOAD_MAX_FILE_SIZE", "not-a-number")
	t.Setenv("PROCESSING_JPEG_QUALITY", "high")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, int64(10485760), cfg.Upload.MaxFileSize)
	assert.InDelta(t, 0.85, cfg.Processing.JPEGQuality, 0.0001)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("PROCESSING_JPEG_QUALITY", "1.5")

	_, err := config.Load()
	assert.Error(t, err)
}
