// Package exif extracts GPS coordinates from photo metadata.
package exif

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	goexif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"

	"github.com/couchcryptid/photo-location-scanner/internal/domain"
)

// gpsIfdPath is the EXIF IFD holding the GPS tags.
const gpsIfdPath = "IFD/GPSInfo"

// supportedExtensions are the photo formats considered for extraction.
// Everything else is rejected before the file is even opened.
var supportedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".tiff": {},
	".png":  {},
}

// Extractor reads GPS coordinates from photo files.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Supports reports whether the file extension marks a readable photo format.
func (e *Extractor) Supports(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract reads the photo at path and returns its GPS position in decimal
// degrees. The second return is false when the photo carries no usable GPS
// data, which is an expected case rather than an error: missing EXIF blocks,
// partial or malformed GPS tags, and out-of-range values all land there.
// An error is returned only when the file itself cannot be read.
func (e *Extractor) Extract(path string) (domain.Coordinate, bool, error) {
	if !e.Supports(path) {
		return domain.Coordinate{}, false, nil
	}

	rawExif, err := goexif.SearchFileAndExtractExif(path)
	if err != nil {
		if errors.Is(err, goexif.ErrNoExif) {
			return domain.Coordinate{}, false, nil
		}
		return domain.Coordinate{}, false, err
	}

	tags, _, err := goexif.GetFlatExifData(rawExif, nil)
	if err != nil {
		// Corrupt EXIF payload; treat like a photo without GPS data.
		e.logger.Debug("unparsable exif block", "path", path, "error", err)
		return domain.Coordinate{}, false, nil
	}

	var latRats, lonRats []exifcommon.Rational
	var latRef, lonRef string

	for _, tag := range tags {
		if tag.IfdPath != gpsIfdPath {
			continue
		}
		switch tag.TagName {
		case "GPSLatitude":
			latRats, _ = tag.Value.([]exifcommon.Rational)
		case "GPSLatitudeRef":
			latRef, _ = tag.Value.(string)
		case "GPSLongitude":
			lonRats, _ = tag.Value.([]exifcommon.Rational)
		case "GPSLongitudeRef":
			lonRef, _ = tag.Value.(string)
		}
	}

	lat, ok := dmsToDecimal(latRats, latRef, "N", "S")
	if !ok {
		return domain.Coordinate{}, false, nil
	}
	lon, ok := dmsToDecimal(lonRats, lonRef, "E", "W")
	if !ok {
		return domain.Coordinate{}, false, nil
	}

	coord := domain.Coordinate{Lat: lat, Lon: lon}
	if err := coord.Validate(); err != nil {
		e.logger.Debug("gps tags out of range", "path", path, "coord", coord)
		return domain.Coordinate{}, false, nil
	}
	return coord, true, nil
}

// dmsToDecimal converts the three GPS rationals (degrees, minutes, seconds)
// and their hemisphere reference to signed decimal degrees. Anything short of
// a complete, well-formed triplet with a recognized reference is rejected.
func dmsToDecimal(rats []exifcommon.Rational, ref, positive, negative string) (float64, bool) {
	if len(rats) != 3 {
		return 0, false
	}
	for _, r := range rats {
		if r.Denominator == 0 {
			return 0, false
		}
	}

	deg := float64(rats[0].Numerator) / float64(rats[0].Denominator)
	min := float64(rats[1].Numerator) / float64(rats[1].Denominator)
	sec := float64(rats[2].Numerator) / float64(rats[2].Denominator)
	decimal := deg + min/60 + sec/3600

	switch strings.ToUpper(strings.TrimSpace(ref)) {
	case positive:
		return decimal, true
	case negative:
		return -decimal, true
	default:
		return 0, false
	}
}
