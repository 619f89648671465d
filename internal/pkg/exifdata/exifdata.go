package exifdata

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

func init() {
	// Register Nikon and Canon maker notes
	exif.RegisterParsers(mknote.All...)
}

// ExifData is the camera metadata worth surfacing for a stored image.
// Fields are nil when the source carries no corresponding tag.
type ExifData struct {
	CameraModel  *string
	TakenAt      *time.Time
	Latitude     *float64
	Longitude    *float64
	ExposureTime *string
	Aperture     *string
	ISO          *int
	FocalLength  *string
}

// Extract reads EXIF tags from raw image bytes. Images without EXIF data are
// common and not an error; the result is simply empty.
func Extract(data []byte) (*ExifData, error) {
	result := &ExifData{}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debugf("[ExifData] No EXIF data found: %v", err)
		return result, nil
	}

	if m, err := x.Get(exif.Model); err == nil {
		s := strings.TrimSpace(strings.Trim(m.String(), `"`))
		result.CameraModel = &s
	}

	if dt, err := x.DateTime(); err == nil {
		result.TakenAt = &dt
	}

	if lat, long, err := x.LatLong(); err == nil {
		result.Latitude = &lat
		result.Longitude = &long
	}

	if expTag, err := x.Get(exif.ExposureTime); err == nil {
		s := strings.Trim(expTag.String(), `"`)
		result.ExposureTime = &s
	}

	if fTag, err := x.Get(exif.FNumber); err == nil {
		if floatVal, err := fTag.Float(0); err == nil {
			s := fmt.Sprintf("f/%.1f", floatVal)
			result.Aperture = &s
		} else {
			s := strings.Trim(fTag.String(), `"`)
			result.Aperture = &s
		}
	}

	if isoTag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if isoVal, err := isoTag.Int(0); err == nil {
			iso := isoVal
			result.ISO = &iso
		}
	}

	if flTag, err := x.Get(exif.FocalLength); err == nil {
		if floatVal, err := flTag.Float(0); err == nil {
			s := fmt.Sprintf("%.1fmm", floatVal)
			result.FocalLength = &s
		} else {
			s := strings.Trim(flTag.String(), `"`)
			result.FocalLength = &s
		}
	}

	return result, nil
}
