// Package geocache is the proximity cache for resolved places. Coordinates
// are quantized to a coarse grid before keying so that photos taken near each
// other share one cache entry, and the cache persists to a JSON file between
// runs.
package geocache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/couchcryptid/photo-location-scanner/internal/domain"
)

// gridStep is the quantization granularity in degrees. 0.01° is ~1.1 km of
// latitude, coarse enough to collapse a roll of photos from one neighborhood
// into a single lookup.
const gridStep = 0.01

// Quantize snaps a coordinate component to the cache grid. Idempotent:
// quantizing an already-quantized value is a no-op.
func Quantize(v float64) float64 {
	q := math.Round(v/gridStep) * gridStep
	if q == 0 {
		q = 0 // normalize -0 so formatting is stable across the origin
	}
	return q
}

// Key builds the stable string form of a quantized coordinate. Rounding
// happens before formatting so float representation noise cannot produce
// two keys for the same grid cell.
func Key(c domain.Coordinate) string {
	return fmt.Sprintf("%.2f,%.2f", Quantize(c.Lat), Quantize(c.Lon))
}

// Cache maps quantized coordinate keys to resolved places. It is owned by a
// single pipeline run; there are no concurrent writers, so no locking.
type Cache struct {
	entries map[string]domain.PlaceRecord
	logger  *slog.Logger
}

// New creates an empty cache.
func New(logger *slog.Logger) *Cache {
	return &Cache{
		entries: make(map[string]domain.PlaceRecord),
		logger:  logger,
	}
}

// Lookup quantizes the coordinate and returns the stored place, if any.
func (c *Cache) Lookup(coord domain.Coordinate) (domain.PlaceRecord, bool) {
	rec, ok := c.entries[Key(coord)]
	return rec, ok
}

// Store quantizes the coordinate and inserts or overwrites its place.
func (c *Cache) Store(coord domain.Coordinate, rec domain.PlaceRecord) {
	c.entries[Key(coord)] = rec
}

// Len returns the number of cached grid cells.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the cache contents, for reporting.
func (c *Cache) Entries() map[string]domain.PlaceRecord {
	out := make(map[string]domain.PlaceRecord, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Load populates the cache from the JSON store at path. A missing file is a
// normal first run and a corrupt file is downgraded to an empty cache with a
// warning; only a genuinely unreadable path (e.g. permissions) is an error.
func (c *Cache) Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.Info("no cache store yet, starting empty", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache store: %w", err)
	}

	entries := make(map[string]domain.PlaceRecord)
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("cache store is corrupt, starting empty", "path", path, "error", err)
		return nil
	}

	c.entries = entries
	c.logger.Info("cache store loaded", "path", path, "entries", len(entries))
	return nil
}

// Persist writes the full cache to path, replacing prior contents. The write
// goes through a temp file in the same directory followed by a rename, so a
// crash leaves either the old or the new store, never a truncated one.
func (c *Cache) Persist(path string) error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache store: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp cache store: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache store: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace cache store: %w", err)
	}
	return nil
}
