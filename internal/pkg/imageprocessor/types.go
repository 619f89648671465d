package imageprocessor

// ResizeMode selects how source pixels map onto the requested dimensions.
type ResizeMode int

const (
	// ResizeProportional scales to fit within the requested box, preserving
	// aspect ratio. Output may be smaller than requested on one axis.
	ResizeProportional ResizeMode = iota
	// ResizeFit behaves identically to ResizeProportional and exists for
	// callers that think in "fit" terms.
	ResizeFit
	// ResizeExact scales to exactly the requested dimensions, ignoring
	// aspect ratio. May distort.
	ResizeExact
	// ResizeCrop scales to cover the requested box and crops to center,
	// guaranteeing exact output dimensions without distortion.
	ResizeCrop
)

func (m ResizeMode) String() string {
	switch m {
	case ResizeProportional:
		return "proportional"
	case ResizeFit:
		return "fit"
	case ResizeExact:
		return "exact"
	case ResizeCrop:
		return "crop"
	default:
		return "unknown"
	}
}

// WatermarkPosition is one of the nine anchor points for watermark text.
// The zero value is the bottom-right corner.
type WatermarkPosition int

const (
	PositionBottomRight WatermarkPosition = iota
	PositionBottomLeft
	PositionBottomCenter
	PositionTopLeft
	PositionTopCenter
	PositionTopRight
	PositionCenterLeft
	PositionCenter
	PositionCenterRight
)

// WatermarkOptions controls text watermark rendering.
type WatermarkOptions struct {
	Text     string  `validate:"required"`
	FontSize int     `validate:"gt=0"`
	Opacity  float64 `validate:"gte=0,lte=1"`
	// FontColor is a #RRGGBB hex color. Empty means white.
	FontColor string
	// BackgroundColor, when set, paints a solid rectangle behind the text
	// sized to the text bounding box plus 5px padding on each side.
	BackgroundColor string
	Position        WatermarkPosition
	// Margin is the distance in pixels from the anchored image edge.
	Margin int `validate:"gte=0"`
}

// ImageSize is one named target size for the variant pipeline. Names must be
// unique within a single request.
type ImageSize struct {
	Name   string `validate:"required"`
	Width  int    `validate:"gt=0"`
	Height int    `validate:"gt=0"`
}

// Options configures a pipeline run over one or more uploaded assets.
type Options struct {
	Sizes                []ImageSize `validate:"dive"`
	ResizeMode           ResizeMode
	EnableWatermark      bool
	Watermark            *WatermarkOptions `validate:"omitempty"`
	EnableWebPConversion bool
	// JPEGQuality is a compression-ratio control in [0,1] for JPEG-family
	// targets; other formats ignore it.
	JPEGQuality float64 `validate:"gte=0,lte=1"`
}

// ImageMetadata describes the source image as decoded. It is computed once
// from the source bytes and never mutated.
type ImageMetadata struct {
	Width           int
	Height          int
	Format          Format
	FileSizeBytes   int
	ColorDepthBits  int
	HasTransparency bool
}

// ProcessedVariant is one sized and encoded rendition of an uploaded image.
// Data is an owned buffer; the pipeline never aliases it with another stage.
type ProcessedVariant struct {
	SizeName   string
	Width      int
	Height     int
	Format     Format
	ByteLength int
	Data       []byte
}

// Result is the complete per-upload outcome: every requested variant plus a
// guaranteed "original" variant, in request order.
type Result struct {
	Filename string
	Variants []ProcessedVariant
	Metadata ImageMetadata
}

// Asset is one uploaded file handed to the pipeline.
type Asset struct {
	Filename string
	// ContentType is the client-declared MIME type. It only steers target
	// format selection; the sniffed format is what metadata reports.
	ContentType string
	Data        []byte
}
