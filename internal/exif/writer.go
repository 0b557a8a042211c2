package exif

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"

	goexif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"

	"github.com/couchcryptid/photo-location-scanner/internal/domain"
)

// WriteJPEG writes a small JPEG at path carrying GPS EXIF tags for coord.
// Used by the extractor tests and the genphotos fixture tool; production code
// never writes photos.
func WriteJPEG(path string, coord domain.Coordinate) error {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.White)

	var base bytes.Buffer
	if err := jpeg.Encode(&base, img, nil); err != nil {
		return fmt.Errorf("encode base jpeg: %w", err)
	}

	jmp := jpegstructure.NewJpegMediaParser()
	intfc, err := jmp.ParseBytes(base.Bytes())
	if err != nil {
		return fmt.Errorf("parse base jpeg: %w", err)
	}
	sl := intfc.(*jpegstructure.SegmentList)

	im := exifcommon.NewIfdMapping()
	if err := exifcommon.LoadStandardIfds(im); err != nil {
		return fmt.Errorf("load standard ifds: %w", err)
	}
	ti := goexif.NewTagIndex()
	rootIb := goexif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)

	gpsIb, err := goexif.GetOrCreateIbFromRootIb(rootIb, gpsIfdPath)
	if err != nil {
		return fmt.Errorf("create gps ifd: %w", err)
	}

	latRef, lonRef := "N", "E"
	if coord.Lat < 0 {
		latRef = "S"
	}
	if coord.Lon < 0 {
		lonRef = "W"
	}

	tags := []struct {
		name  string
		value interface{}
	}{
		{"GPSVersionID", []byte{2, 3, 0, 0}},
		{"GPSLatitudeRef", latRef},
		{"GPSLatitude", decimalToRationals(coord.Lat)},
		{"GPSLongitudeRef", lonRef},
		{"GPSLongitude", decimalToRationals(coord.Lon)},
	}
	for _, tag := range tags {
		if err := gpsIb.SetStandardWithName(tag.name, tag.value); err != nil {
			return fmt.Errorf("set %s: %w", tag.name, err)
		}
	}

	if err := sl.SetExif(rootIb); err != nil {
		return fmt.Errorf("attach exif segment: %w", err)
	}

	var out bytes.Buffer
	if err := sl.Write(&out); err != nil {
		return fmt.Errorf("write jpeg: %w", err)
	}
	return os.WriteFile(path, out.Bytes(), 0o644)
}

// decimalToRationals splits absolute decimal degrees into the EXIF
// degrees/minutes/seconds triplet, seconds at millisecond precision.
func decimalToRationals(v float64) []exifcommon.Rational {
	v = math.Abs(v)
	deg := math.Floor(v)
	minF := (v - deg) * 60
	min := math.Floor(minF)
	sec := (minF - min) * 60

	return []exifcommon.Rational{
		{Numerator: uint32(deg), Denominator: 1},
		{Numerator: uint32(min), Denominator: 1},
		{Numerator: uint32(math.Round(sec * 1000)), Denominator: 1000},
	}
}
