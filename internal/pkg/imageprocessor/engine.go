package imageprocessor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	// Register the WebP decoder; imaging covers JPEG/PNG/GIF/BMP/TIFF itself.
	_ "golang.org/x/image/webp"
)

// webpEncodeQuality matches the production encoder preset. WebP output does
// not honor the caller's JPEG quality setting.
const webpEncodeQuality = 85

// Resize decodes, resizes according to mode, and re-encodes. The output is
// always JPEG regardless of the source container; variant pipelines convert
// to their target format afterwards.
func Resize(data []byte, width, height int, mode ResizeMode) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	var resized image.Image
	switch mode {
	case ResizeProportional, ResizeFit:
		resized = imaging.Fit(img, width, height, imaging.Lanczos)
	case ResizeExact:
		resized = imaging.Resize(img, width, height, imaging.Lanczos)
	case ResizeCrop:
		resized = imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	default:
		return nil, fmt.Errorf("%w: unknown resize mode %d", ErrInvalidOptions, mode)
	}

	return encode(resized, FormatJPG, 0)
}

// ConvertFormat re-encodes to the target format. When the target lacks alpha
// support (the JPEG family) and the source has transparency, the transparent
// regions are composited onto an opaque white background first. That loss is
// the documented policy for alpha-incapable targets.
func ConvertFormat(data []byte, target Format) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	if target.IsJPEG() && !isOpaque(img) {
		img = flattenOnWhite(img)
	}

	return encode(img, target, 0)
}

// Optimize re-encodes with compression control. For JPEG-family targets,
// quality in [0,1] is an explicit compression-ratio control; for every other
// format quality is ignored and default codec settings apply. That asymmetry
// mirrors the codecs themselves and is deliberate.
func Optimize(data []byte, format Format, quality float64) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	if format.IsJPEG() && !isOpaque(img) {
		img = flattenOnWhite(img)
	}

	return encode(img, format, quality)
}

// GenerateThumbnail produces a square center-cropped thumbnail.
func GenerateThumbnail(data []byte, size int) ([]byte, error) {
	return Resize(data, size, size, ResizeCrop)
}

// ExtractMetadata decodes the source bytes and reports dimensions, color
// depth and transparency. The format field comes from the magic-byte sniffer,
// never from a caller-supplied MIME type.
func ExtractMetadata(data []byte) (*ImageMetadata, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &ImageMetadata{
		Width:           bounds.Dx(),
		Height:          bounds.Dy(),
		Format:          DetectFormat(data),
		FileSizeBytes:   len(data),
		ColorDepthBits:  colorDepth(img),
		HasTransparency: !isOpaque(img),
	}, nil
}

func decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// encode writes img in the given format. quality <= 0 means codec default.
func encode(img image.Image, format Format, quality float64) ([]byte, error) {
	buf := new(bytes.Buffer)

	switch format {
	case FormatJPEG, FormatJPG:
		var opts []imaging.EncodeOption
		if quality > 0 {
			opts = append(opts, imaging.JPEGQuality(jpegQualityPercent(quality)))
		}
		if err := imaging.Encode(buf, img, imaging.JPEG, opts...); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
	case FormatPNG:
		if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
	case FormatGIF:
		if err := imaging.Encode(buf, img, imaging.GIF); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
	case FormatWebP:
		encOpts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, webpEncodeQuality)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
		if err := webp.Encode(buf, img, encOpts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return buf.Bytes(), nil
}

func jpegQualityPercent(quality float64) int {
	q := int(quality * 100)
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	return q
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return true
}

func flattenOnWhite(img image.Image) image.Image {
	bounds := img.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}

func colorDepth(img image.Image) int {
	switch img.(type) {
	case *image.Gray:
		return 8
	case *image.Gray16:
		return 16
	case *image.YCbCr:
		return 24
	case *image.Paletted:
		return 8
	case *image.NRGBA64, *image.RGBA64:
		return 64
	case *image.NRGBA, *image.RGBA, *image.CMYK:
		return 32
	default:
		return 24
	}
}
