// Command genphotos writes small JPEG fixtures carrying GPS EXIF tags, for
// exercising the scanner against a directory of known coordinates without a
// real photo archive.
//
// Usage:
//
//	go run ./cmd/genphotos \
//	  -out testdata/photos \
//	  -coords "40.7128,-74.0060;48.8566,2.3522" \
//	  -plain 2
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/photo-location-scanner/internal/domain"
	"github.com/couchcryptid/photo-location-scanner/internal/exif"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "", "output directory for generated photos")
	coords := flag.String("coords", "", "semicolon-separated lat,lon pairs, one photo each")
	plain := flag.Int("plain", 0, "number of additional photos without GPS data")
	flag.Parse()

	if *outDir == "" || *coords == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -coords")
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	n := 0
	for _, pair := range strings.Split(*coords, ";") {
		coord, err := parseCoord(pair)
		if err != nil {
			return err
		}
		n++
		path := filepath.Join(*outDir, fmt.Sprintf("photo_%03d.jpg", n))
		if err := exif.WriteJPEG(path, coord); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("%s: %s", path, coord)
	}

	for i := 0; i < *plain; i++ {
		n++
		path := filepath.Join(*outDir, fmt.Sprintf("photo_%03d.jpg", n))
		if err := writePlainJPEG(path); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("%s: no GPS", path)
	}

	log.Printf("total: %d photos", n)
	return nil
}

func parseCoord(pair string) (domain.Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(pair), ",")
	if len(parts) != 2 {
		return domain.Coordinate{}, fmt.Errorf("malformed coordinate pair %q", pair)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("malformed latitude in %q: %w", pair, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("malformed longitude in %q: %w", pair, err)
	}

	coord := domain.Coordinate{Lat: lat, Lon: lon}
	return coord, coord.Validate()
}

func writePlainJPEG(path string) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
