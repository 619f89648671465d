package imageprocessor

import (
	"fmt"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// backgroundPadding is the padding around the text bounding box when a
// background rectangle is painted.
const backgroundPadding = 5

var (
	watermarkFont     *truetype.Font
	watermarkFontErr  error
	watermarkFontOnce sync.Once
)

func loadWatermarkFont() (*truetype.Font, error) {
	watermarkFontOnce.Do(func() {
		watermarkFont, watermarkFontErr = truetype.Parse(goregular.TTF)
	})
	return watermarkFont, watermarkFontErr
}

// AddWatermark composites text onto the image at the configured anchor point
// and re-encodes. Watermarking always re-encodes to JPEG, the lossy raster
// format used internally; a generation of quality loss is expected.
func AddWatermark(data []byte, opts WatermarkOptions) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	fnt, err := loadWatermarkFont()
	if err != nil {
		return nil, fmt.Errorf("%w: load font: %v", ErrEncode, err)
	}

	dc := gg.NewContextForImage(img)
	dc.SetFontFace(truetype.NewFace(fnt, &truetype.Options{Size: float64(opts.FontSize)}))

	textWidth, textHeight := dc.MeasureString(opts.Text)
	x, y := anchorPoint(
		float64(dc.Width()), float64(dc.Height()),
		textWidth, textHeight,
		opts.Position, float64(opts.Margin),
	)

	alpha := int(opts.Opacity * 255)

	if opts.BackgroundColor != "" {
		r, g, b, err := parseHexColor(opts.BackgroundColor)
		if err != nil {
			return nil, fmt.Errorf("%w: background color: %v", ErrInvalidOptions, err)
		}
		dc.SetRGBA255(r, g, b, alpha)
		dc.DrawRectangle(
			x-backgroundPadding,
			y-textHeight+backgroundPadding,
			textWidth+2*backgroundPadding,
			textHeight,
		)
		dc.Fill()
	}

	fontColor := opts.FontColor
	if fontColor == "" {
		fontColor = "#ffffff"
	}
	r, g, b, err := parseHexColor(fontColor)
	if err != nil {
		return nil, fmt.Errorf("%w: font color: %v", ErrInvalidOptions, err)
	}
	dc.SetRGBA255(r, g, b, alpha)
	dc.DrawString(opts.Text, x, y)

	return encode(dc.Image(), FormatJPG, 0)
}

// anchorPoint returns the text origin (left edge, baseline) for one of the
// nine anchor positions. W/H are image dimensions, tw/th the text bounding
// box, m the margin.
func anchorPoint(w, h, tw, th float64, pos WatermarkPosition, m float64) (x, y float64) {
	switch pos {
	case PositionTopLeft:
		return m, m + th
	case PositionTopCenter:
		return (w - tw) / 2, m + th
	case PositionTopRight:
		return w - tw - m, m + th
	case PositionCenterLeft:
		return m, (h + th) / 2
	case PositionCenter:
		return (w - tw) / 2, (h + th) / 2
	case PositionCenterRight:
		return w - tw - m, (h + th) / 2
	case PositionBottomLeft:
		return m, h - m
	case PositionBottomCenter:
		return (w - tw) / 2, h - m
	case PositionBottomRight:
		return w - tw - m, h - m
	default:
		return w - tw - m, h - m
	}
}

// parseHexColor parses #RGB and #RRGGBB colors.
func parseHexColor(s string) (r, g, b int, err error) {
	switch len(s) {
	case 7:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b)
	case 4:
		_, err = fmt.Sscanf(s, "#%1x%1x%1x", &r, &g, &b)
		r *= 17
		g *= 17
		b *= 17
	default:
		err = fmt.Errorf("invalid hex color %q", s)
	}
	return
}
