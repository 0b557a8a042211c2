package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/karrick/godirwalk"
	"github.com/schollz/progressbar/v3"

	"github.com/couchcryptid/photo-location-scanner/internal/domain"
	"github.com/couchcryptid/photo-location-scanner/internal/observability"
)

// CoordinateExtractor reads a photo's GPS position. The boolean is false for
// the routine "no GPS data" case; errors are reserved for unreadable files.
type CoordinateExtractor interface {
	Supports(path string) bool
	Extract(path string) (domain.Coordinate, bool, error)
}

// PlaceResolver resolves a coordinate to a place record.
type PlaceResolver interface {
	Resolve(ctx context.Context, coord domain.Coordinate) (domain.PlaceRecord, error)
}

// Scanner walks a photo directory, extracts coordinates, and resolves them
// to places. Photos are processed one at a time in walk order.
type Scanner struct {
	extractor CoordinateExtractor
	resolver  PlaceResolver
	logger    *slog.Logger
	metrics   *observability.Metrics

	// progress receives a progress bar during the resolve phase; nil
	// disables it (tests, non-terminal output).
	progress io.Writer
}

// NewScanner creates a Scanner.
func NewScanner(extractor CoordinateExtractor, resolver PlaceResolver, logger *slog.Logger, metrics *observability.Metrics, progress io.Writer) *Scanner {
	return &Scanner{
		extractor: extractor,
		resolver:  resolver,
		logger:    logger,
		metrics:   metrics,
		progress:  progress,
	}
}

// Run scans root and resolves every extracted coordinate, returning one
// record per supported photo file. No per-photo failure halts the run; only
// an unreadable root or a cancelled context does.
func (s *Scanner) Run(ctx context.Context, root string) ([]domain.PhotoRecord, error) {
	records, err := s.scan(ctx, root)
	if err != nil {
		return nil, err
	}
	if err := s.resolveAll(ctx, records); err != nil {
		return records, err
	}
	return records, nil
}

// scan walks the directory tree and extracts coordinates from supported
// photos. Unreadable subtrees are skipped with a warning.
func (s *Scanner) scan(ctx context.Context, root string) ([]domain.PhotoRecord, error) {
	var records []domain.PhotoRecord
	var cancelled error

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				cancelled = err
				return err
			}
			if !de.IsRegular() || !s.extractor.Supports(path) {
				return nil
			}

			s.metrics.PhotosScanned.Inc()
			rec := domain.PhotoRecord{Path: path}

			coord, ok, err := s.extractor.Extract(path)
			if err != nil {
				s.logger.Warn("cannot read photo metadata", "path", path, "error", err)
			} else if ok {
				rec.Coord = &coord
				s.metrics.PhotosWithGPS.Inc()
			}

			records = append(records, rec)
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			if cancelled != nil {
				return godirwalk.Halt
			}
			s.logger.Warn("cannot access path, skipping", "path", path, "error", err)
			return godirwalk.SkipNode
		},
	})
	if cancelled != nil {
		return nil, cancelled
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	s.logger.Info("scan complete", "photos", len(records), "with_gps", countWithCoords(records))
	return records, nil
}

// resolveAll resolves every record that has a coordinate, in place.
func (s *Scanner) resolveAll(ctx context.Context, records []domain.PhotoRecord) error {
	total := countWithCoords(records)
	if total == 0 {
		return nil
	}

	var bar *progressbar.ProgressBar
	if s.progress != nil {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(s.progress),
			progressbar.OptionSetDescription("resolving"),
			progressbar.OptionShowCount(),
		)
	}

	for i := range records {
		if records[i].Coord == nil {
			continue
		}

		rec, err := s.resolver.Resolve(ctx, *records[i].Coord)
		if err != nil {
			return err
		}
		if !rec.IsZero() {
			records[i].Place = &rec
		}

		if bar != nil {
			bar.Add(1) //nolint:errcheck // progress display only
		}
	}
	return nil
}

func countWithCoords(records []domain.PhotoRecord) int {
	n := 0
	for _, r := range records {
		if r.Coord != nil {
			n++
		}
	}
	return n
}
