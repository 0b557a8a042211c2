// Command photoscan resolves the GPS positions embedded in a photo archive
// into place names. It walks a directory tree, extracts coordinates from
// photo EXIF data, reverse geocodes them through Nominatim with a persistent
// proximity cache, and writes two CSV reports: one row per photo and a
// deduplicated list of visited locations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/photo-location-scanner/internal/adapter/httpserver"
	"github.com/couchcryptid/photo-location-scanner/internal/adapter/nominatim"
	"github.com/couchcryptid/photo-location-scanner/internal/config"
	"github.com/couchcryptid/photo-location-scanner/internal/domain"
	"github.com/couchcryptid/photo-location-scanner/internal/exif"
	"github.com/couchcryptid/photo-location-scanner/internal/geocache"
	"github.com/couchcryptid/photo-location-scanner/internal/observability"
	"github.com/couchcryptid/photo-location-scanner/internal/pipeline"
	"github.com/couchcryptid/photo-location-scanner/internal/report"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:          "photoscan",
		Short:        "resolve photo GPS positions into place names",
		SilenceUsage: true,
	}
	root.AddCommand(newScanCmd(), newCacheCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <directory>",
		Short: "scan a photo directory and write the location reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runScan(args[0])
		},
	}
}

func runScan(root string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := geocache.New(logger)
	if err := cache.Load(cfg.CachePath); err != nil {
		return err
	}
	metrics.CacheEntries.Set(float64(cache.Len()))

	client := nominatim.NewClient(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.NominatimTimeout, metrics, logger)
	resolver := pipeline.NewResolver(cache, client, clockwork.NewRealClock(), cfg.LookupInterval, logger, metrics)
	scanner := pipeline.NewScanner(exif.NewExtractor(logger), resolver, logger, metrics, os.Stderr)

	if cfg.MetricsAddr != "" {
		srv := httpserver.NewServer(cfg.MetricsAddr, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck // shutting down anyway
		}()
	}

	records, runErr := scanner.Run(ctx, root)

	// Persist what was resolved even when the run was interrupted, so the
	// next run starts from the populated cache.
	if err := cache.Persist(cfg.CachePath); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	if err := writeReports(cfg, records); err != nil {
		return err
	}

	printSummary(os.Stdout, cache, records)
	logger.Info("scan finished",
		"photos", len(records),
		"cache_entries", cache.Len(),
		"photos_csv", cfg.PhotosCSV,
		"locations_csv", cfg.LocationsCSV,
	)
	return nil
}

func writeReports(cfg *config.Config, records []domain.PhotoRecord) error {
	photos, err := os.Create(cfg.PhotosCSV)
	if err != nil {
		return fmt.Errorf("create %s: %w", cfg.PhotosCSV, err)
	}
	defer photos.Close()
	if err := report.WritePhotos(photos, records); err != nil {
		return err
	}
	if err := photos.Close(); err != nil {
		return fmt.Errorf("close %s: %w", cfg.PhotosCSV, err)
	}

	locations, err := os.Create(cfg.LocationsCSV)
	if err != nil {
		return fmt.Errorf("create %s: %w", cfg.LocationsCSV, err)
	}
	defer locations.Close()
	if err := report.WriteUniqueLocations(locations, records); err != nil {
		return err
	}
	return locations.Close()
}

func printSummary(w io.Writer, cache *geocache.Cache, records []domain.PhotoRecord) {
	withGPS := 0
	for _, rec := range records {
		if rec.Coord != nil {
			withGPS++
		}
	}
	fmt.Fprintf(w, "%d photos scanned, %d with GPS data\n", len(records), withGPS)

	counts := report.CityCounts(records)
	if len(counts) > 0 {
		fmt.Fprintln(w, "\nCities:")
		for _, c := range counts {
			fmt.Fprintf(w, "  %s: %d photos\n", c.City, c.Count)
		}
	}
	fmt.Fprintf(w, "\n%d unique grid cells in cache\n", cache.Len())
}

func newCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache",
		Short: "show the contents of the location cache store",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := observability.NewLogger(cfg)

			cache := geocache.New(logger)
			if err := cache.Load(cfg.CachePath); err != nil {
				return err
			}

			entries := cache.Entries()
			keys := make([]string, 0, len(entries))
			for k := range entries {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				rec := entries[k]
				fmt.Printf("%s\t%s, %s, %s\n", k, rec.City, rec.State, rec.Country)
			}
			fmt.Printf("%d entries in %s\n", len(entries), cfg.CachePath)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the photoscan version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version)
		},
	}
}
