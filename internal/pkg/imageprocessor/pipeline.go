package imageprocessor

import (
	"bytes"
	"fmt"
	"image"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
)

// Pipeline turns uploaded assets into complete variant sets. It is stateless
// and safe for concurrent use.
type Pipeline struct {
	validate *validator.Validate
}

func NewPipeline() *Pipeline {
	return &Pipeline{validate: validator.New()}
}

// Process produces one Result for a single uploaded asset: every configured
// size variant in order, plus a synthesized "original" variant if the request
// did not name one. Any per-variant failure aborts the whole asset; partial
// results are never returned.
func (p *Pipeline) Process(asset Asset, opts Options) (*Result, error) {
	if err := p.validateOptions(opts); err != nil {
		return nil, err
	}

	log.Infof("[ImageProcessor] Processing %s with %d size variants", asset.Filename, len(opts.Sizes))

	metadata, err := ExtractMetadata(asset.Data)
	if err != nil {
		return nil, fmt.Errorf("extract metadata for %s: %w", asset.Filename, err)
	}

	contentType := asset.ContentType
	if contentType == "" {
		contentType = "image/" + string(metadata.Format)
	}
	targetFormat := OptimalFormat(contentType, opts.EnableWebPConversion)

	variants := make([]ProcessedVariant, 0, len(opts.Sizes)+1)
	for _, size := range opts.Sizes {
		variant, err := p.buildVariant(asset.Data, size, targetFormat, opts)
		if err != nil {
			return nil, fmt.Errorf("process size %q for %s: %w", size.Name, asset.Filename, err)
		}
		variants = append(variants, *variant)

		log.Debugf("[ImageProcessor] Created variant %s (%dx%d, %d bytes)",
			variant.SizeName, variant.Width, variant.Height, variant.ByteLength)
	}

	if !hasOriginal(variants) {
		original, err := p.buildOriginal(asset.Data, metadata, targetFormat, opts)
		if err != nil {
			return nil, fmt.Errorf("process original for %s: %w", asset.Filename, err)
		}
		variants = append(variants, *original)
	}

	return &Result{
		Filename: asset.Filename,
		Variants: variants,
		Metadata: *metadata,
	}, nil
}

// ProcessBatch processes assets sequentially with the same options. The
// whole call fails on the first asset that fails; no partial result is
// returned.
func (p *Pipeline) ProcessBatch(assets []Asset, opts Options) ([]*Result, error) {
	results := make([]*Result, 0, len(assets))
	for _, asset := range assets {
		result, err := p.Process(asset, opts)
		if err != nil {
			log.Errorf("[ImageProcessor] Batch aborted at %s: %v", asset.Filename, err)
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// buildVariant runs one size through resize -> watermark -> optimize and
// measures the actual output dimensions, which for proportional modes may be
// smaller than requested.
func (p *Pipeline) buildVariant(data []byte, size ImageSize, format Format, opts Options) (*ProcessedVariant, error) {
	processed, err := Resize(data, size.Width, size.Height, opts.ResizeMode)
	if err != nil {
		return nil, err
	}

	if opts.EnableWatermark && opts.Watermark != nil {
		processed, err = AddWatermark(processed, *opts.Watermark)
		if err != nil {
			return nil, err
		}
	}

	processed, err = Optimize(processed, format, opts.JPEGQuality)
	if err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(processed))
	if err != nil {
		return nil, fmt.Errorf("%w: measure output: %v", ErrDecode, err)
	}

	return &ProcessedVariant{
		SizeName:   size.Name,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Format:     format,
		ByteLength: len(processed),
		Data:       processed,
	}, nil
}

// buildOriginal applies the watermark and optimize policy to the untouched
// source bytes without resizing.
func (p *Pipeline) buildOriginal(data []byte, metadata *ImageMetadata, format Format, opts Options) (*ProcessedVariant, error) {
	processed := data
	var err error

	if opts.EnableWatermark && opts.Watermark != nil {
		processed, err = AddWatermark(processed, *opts.Watermark)
		if err != nil {
			return nil, err
		}
	}

	processed, err = Optimize(processed, format, opts.JPEGQuality)
	if err != nil {
		return nil, err
	}

	return &ProcessedVariant{
		SizeName:   "original",
		Width:      metadata.Width,
		Height:     metadata.Height,
		Format:     format,
		ByteLength: len(processed),
		Data:       processed,
	}, nil
}

func (p *Pipeline) validateOptions(opts Options) error {
	if err := p.validate.Struct(opts); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	seen := make(map[string]struct{}, len(opts.Sizes))
	for _, size := range opts.Sizes {
		if _, dup := seen[size.Name]; dup {
			return fmt.Errorf("%w: duplicate size name %q", ErrInvalidOptions, size.Name)
		}
		seen[size.Name] = struct{}{}
	}

	if opts.EnableWatermark && opts.Watermark == nil {
		return fmt.Errorf("%w: watermark enabled without watermark options", ErrInvalidOptions)
	}

	return nil
}

func hasOriginal(variants []ProcessedVariant) bool {
	for _, v := range variants {
		if v.SizeName == "original" {
			return true
		}
	}
	return false
}
