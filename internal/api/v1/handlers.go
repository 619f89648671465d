package apiv1

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/bazaarkit/media/internal/pkg/config"
	"github.com/bazaarkit/media/internal/pkg/exifdata"
	"github.com/bazaarkit/media/internal/pkg/imageprocessor"
	"github.com/bazaarkit/media/internal/pkg/storage"
	"github.com/bazaarkit/media/internal/pkg/upload"
)

// Server is the thin HTTP boundary over the media pipeline and file store.
// Handlers only translate between HTTP and the core contracts.
type Server struct {
	cfg      *config.Config
	pipeline *imageprocessor.Pipeline
	store    *storage.Store
}

func NewServer(cfg *config.Config, pipeline *imageprocessor.Pipeline, store *storage.Store) *Server {
	return &Server{cfg: cfg, pipeline: pipeline, store: store}
}

// RegisterRoutes mounts the v1 API on the given app.
func (s *Server) RegisterRoutes(app *fiber.App) {
	v1 := app.Group("/api/v1")
	v1.Post("/images", s.PostImages)
	v1.Get("/files/:ref", s.GetFile)
	v1.Get("/files/:ref/meta", s.GetFileMeta)
	v1.Delete("/files/:ref", s.DeleteFile)
	v1.Post("/maintenance/sweep", s.PostSweep)
}

// PostImages accepts one or more multipart image uploads, runs the variant
// pipeline over each, and stores every variant with all-or-nothing batch
// semantics per asset.
func (s *Server) PostImages(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "multipart form required")
	}

	files := form.File["files"]
	if len(files) == 0 {
		return badRequest(c, "no files provided")
	}
	if len(files) > s.cfg.Upload.MaxFilesPerRequest {
		return badRequest(c, fmt.Sprintf("too many files, maximum %d per request", s.cfg.Upload.MaxFilesPerRequest))
	}

	assets := make([]imageprocessor.Asset, 0, len(files))
	for _, fh := range files {
		data, err := readMultipartFile(fh)
		if err != nil {
			return internalError(c, err)
		}
		if err := upload.Validate(fh.Filename, data, &s.cfg.Upload); err != nil {
			return badRequest(c, err.Error())
		}
		assets = append(assets, imageprocessor.Asset{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	opts := s.processingOptions()
	results, err := s.pipeline.ProcessBatch(assets, opts)
	if err != nil {
		if errors.Is(err, imageprocessor.ErrInvalidOptions) || errors.Is(err, imageprocessor.ErrDecode) {
			return badRequest(c, err.Error())
		}
		return internalError(c, err)
	}

	directory := c.Query("directory", "images")

	response := make([]fiber.Map, 0, len(results))
	for i, result := range results {
		stored, err := s.storeVariants(result, directory)
		if err != nil {
			if errors.Is(err, storage.ErrPathEscape) {
				return badRequest(c, "invalid storage directory")
			}
			return internalError(c, err)
		}

		exifInfo, _ := exifdata.Extract(assets[i].Data)

		response = append(response, fiber.Map{
			"filename": result.Filename,
			"metadata": fiber.Map{
				"width":            result.Metadata.Width,
				"height":           result.Metadata.Height,
				"format":           result.Metadata.Format,
				"file_size_bytes":  result.Metadata.FileSizeBytes,
				"color_depth_bits": result.Metadata.ColorDepthBits,
				"has_transparency": result.Metadata.HasTransparency,
			},
			"exif":     exifInfo,
			"variants": stored,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"images": response})
}

// storeVariants persists every variant of one pipeline result as a single
// rollback-protected batch.
func (s *Server) storeVariants(result *imageprocessor.Result, directory string) ([]fiber.Map, error) {
	baseName := result.Filename[:len(result.Filename)-len(filepath.Ext(result.Filename))]

	items := make([]storage.BatchItem, 0, len(result.Variants))
	for _, v := range result.Variants {
		items = append(items, storage.BatchItem{
			Filename: fmt.Sprintf("%s_%s.%s", baseName, v.SizeName, v.Format),
			Data:     v.Data,
		})
	}

	storedResults, err := s.store.StoreBatch(items, directory)
	if err != nil {
		return nil, err
	}

	stored := make([]fiber.Map, 0, len(storedResults))
	for i, sr := range storedResults {
		v := result.Variants[i]
		stored = append(stored, fiber.Map{
			"size_name":      v.SizeName,
			"width":          v.Width,
			"height":         v.Height,
			"format":         v.Format,
			"byte_length":    v.ByteLength,
			"file_reference": sr.FileReference,
			"content_type":   sr.ContentType,
		})
	}
	return stored, nil
}

// GetFile streams the referenced blob back to the client.
func (s *Server) GetFile(c *fiber.Ctx) error {
	ref := c.Params("ref")
	data, err := s.store.Retrieve(ref)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return notFound(c, ref)
		}
		return internalError(c, err)
	}

	meta, err := s.store.Metadata(ref)
	if err == nil {
		c.Set(fiber.HeaderContentType, meta.ContentType)
	}
	return c.Send(data)
}

// GetFileMeta returns filesystem attributes for the referenced blob.
func (s *Server) GetFileMeta(c *fiber.Ctx) error {
	ref := c.Params("ref")
	meta, err := s.store.Metadata(ref)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return notFound(c, ref)
		}
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"filename":     meta.Filename,
		"size_bytes":   meta.SizeBytes,
		"content_type": meta.ContentType,
		"created_at":   meta.CreatedAt,
		"modified_at":  meta.ModifiedAt,
	})
}

// DeleteFile removes the referenced blob. Deleting an absent file reports
// deleted=false rather than an error.
func (s *Server) DeleteFile(c *fiber.Ctx) error {
	ref := c.Params("ref")
	deleted, err := s.store.Delete(ref)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

// PostSweep triggers the temp-file retention sweep. Scheduling is left to
// external callers (cron, admin action).
func (s *Server) PostSweep(c *fiber.Ctx) error {
	if err := s.store.SweepTemp(); err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"status": "completed"})
}

func (s *Server) processingOptions() imageprocessor.Options {
	proc := s.cfg.Processing

	sizes := make([]imageprocessor.ImageSize, 0, len(proc.Sizes))
	for _, sz := range proc.Sizes {
		sizes = append(sizes, imageprocessor.ImageSize{Name: sz.Name, Width: sz.Width, Height: sz.Height})
	}

	opts := imageprocessor.Options{
		Sizes:                sizes,
		ResizeMode:           imageprocessor.ResizeProportional,
		EnableWebPConversion: proc.EnableWebPConversion,
		JPEGQuality:          proc.JPEGQuality,
	}
	if proc.EnableWatermark && proc.WatermarkText != "" {
		opts.EnableWatermark = true
		opts.Watermark = &imageprocessor.WatermarkOptions{
			Text:     proc.WatermarkText,
			FontSize: 24,
			Opacity:  0.5,
			Margin:   10,
		}
	}
	return opts
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": message})
}

func notFound(c *fiber.Ctx, ref string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "file not found: " + ref})
}

func internalError(c *fiber.Ctx, err error) error {
	log.Errorf("[API] Internal error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
}
