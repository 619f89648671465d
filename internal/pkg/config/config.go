package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bazaarkit/media/internal/pkg/env"
)

// Config is the single configuration object for the whole process. It is
// built once at startup and passed by reference; nothing reads the
// environment after Load returns.
type Config struct {
	App        AppConfig
	Upload     UploadConfig
	Storage    StorageConfig
	Processing ProcessingConfig
}

type AppConfig struct {
	Host string `validate:"required"`
	Port string `validate:"required"`
	// BodyLimit is the maximum accepted request body in bytes.
	BodyLimit int `validate:"gt=0"`
}

type UploadConfig struct {
	MaxFileSize        int64 `validate:"gt=0"`
	MaxFilesPerRequest int   `validate:"gt=0"`
	AllowedExtensions  []string
}

type StorageConfig struct {
	// RootDir is the upload root; no stored file may resolve outside it.
	RootDir string `validate:"required"`
	TempDir string `validate:"required"`
	// TempRetentionHours controls the temp sweep cutoff.
	TempRetentionHours int `validate:"gt=0"`
}

// ImageSize is one named target size for the variant pipeline.
type ImageSize struct {
	Name   string `validate:"required"`
	Width  int    `validate:"gt=0"`
	Height int    `validate:"gt=0"`
}

type ProcessingConfig struct {
	Sizes                []ImageSize `validate:"dive"`
	JPEGQuality          float64     `validate:"gte=0,lte=1"`
	EnableWebPConversion bool
	EnableWatermark      bool
	WatermarkText        string
}

var validate = validator.New()

// Load assembles the configuration from the environment. Defaults match the
// production deployment.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Host:      env.GetEnv("APP_HOST", "localhost"),
			Port:      env.GetEnv("APP_PORT", "4000"),
			BodyLimit: getInt("APP_BODY_LIMIT", 104857600), // 100 MiB
		},
		Upload: UploadConfig{
			MaxFileSize:        getInt64("UPLOAD_MAX_FILE_SIZE", 10485760), // 10 MiB
			MaxFilesPerRequest: getInt("UPLOAD_MAX_FILES_PER_REQUEST", 5),
			AllowedExtensions:  getList("UPLOAD_ALLOWED_EXTENSIONS", ".jpg,.jpeg,.png,.gif,.webp"),
		},
		Storage: StorageConfig{
			RootDir:            env.GetEnv("STORAGE_ROOT_DIR", "uploads"),
			TempDir:            env.GetEnv("STORAGE_TEMP_DIR", "temp"),
			TempRetentionHours: getInt("STORAGE_TEMP_RETENTION_HOURS", 24),
		},
		Processing: ProcessingConfig{
			Sizes: []ImageSize{
				{Name: "thumbnail", Width: 150, Height: 150},
				{Name: "small", Width: 300, Height: 300},
				{Name: "medium", Width: 600, Height: 600},
				{Name: "large", Width: 1200, Height: 1200},
			},
			JPEGQuality:          getFloat("PROCESSING_JPEG_QUALITY", 0.85),
			EnableWebPConversion: getBool("PROCESSING_ENABLE_WEBP", true),
			EnableWatermark:      getBool("PROCESSING_ENABLE_WATERMARK", false),
			WatermarkText:        env.GetEnv("PROCESSING_WATERMARK_TEXT", ""),
		},
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(env.GetEnv(key, "")); err == nil {
		return v
	}
	return def
}

func getInt64(key string, def int64) int64 {
	if v, err := strconv.ParseInt(env.GetEnv(key, ""), 10, 64); err == nil {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(env.GetEnv(key, ""), 64); err == nil {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(env.GetEnv(key, "")); err == nil {
		return v
	}
	return def
}

func getList(key, def string) []string {
	raw := env.GetEnv(key, def)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
