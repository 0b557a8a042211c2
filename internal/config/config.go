package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Config holds all scanner settings, populated from environment variables.
// The directory to scan is a command argument, not configuration.
type Config struct {
	CachePath    string
	PhotosCSV    string
	LocationsCSV string

	NominatimURL       string
	NominatimUserAgent string
	NominatimTimeout   time.Duration

	// LookupInterval is the minimum delay between consecutive reverse
	// geocoding requests. Nominatim's usage policy asks for at most one
	// request per second.
	LookupInterval time.Duration

	// MetricsAddr enables the /metrics endpoint when non-empty.
	MetricsAddr string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	timeout, err := parseDuration("NOMINATIM_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	interval, err := parseDuration("LOOKUP_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CachePath:    envOrDefault("CACHE_PATH", "location_cache.json"),
		PhotosCSV:    envOrDefault("PHOTOS_CSV", "photos_gps_data.csv"),
		LocationsCSV: envOrDefault("LOCATIONS_CSV", "unique_locations.csv"),

		NominatimURL:       envOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent: envOrDefault("NOMINATIM_USER_AGENT", "photo-location-scanner/1.0 (github.com/couchcryptid/photo-location-scanner)"),
		NominatimTimeout:   timeout,

		LookupInterval: interval,

		MetricsAddr: os.Getenv("METRICS_ADDR"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "text"),
	}

	if cfg.CachePath == "" {
		return nil, errors.New("CACHE_PATH is required")
	}
	if cfg.NominatimTimeout <= 0 {
		return nil, errors.New("NOMINATIM_TIMEOUT must be positive")
	}
	if cfg.NominatimURL == "" {
		return nil, errors.New("NOMINATIM_URL is required")
	}
	// Nominatim rejects requests without an identifying User-Agent.
	if cfg.NominatimUserAgent == "" {
		return nil, errors.New("NOMINATIM_USER_AGENT is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}
