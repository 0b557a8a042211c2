package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/photo-location-scanner/internal/adapter/nominatim"
	"github.com/couchcryptid/photo-location-scanner/internal/domain"
	"github.com/couchcryptid/photo-location-scanner/internal/geocache"
	"github.com/couchcryptid/photo-location-scanner/internal/observability"
	"github.com/couchcryptid/photo-location-scanner/internal/pipeline"
)

// --- mocks ---

type countingGeocoder struct {
	calls int
	rec   domain.PlaceRecord
	err   error
}

func (g *countingGeocoder) ReverseGeocode(_ context.Context, _ domain.Coordinate) (domain.PlaceRecord, error) {
	g.calls++
	return g.rec, g.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newResolver(cache *geocache.Cache, g domain.Geocoder, clock clockwork.Clock, interval time.Duration) *pipeline.Resolver {
	return pipeline.NewResolver(cache, g, clock, interval, testLogger(), observability.NewMetricsForTesting())
}

// --- tests ---

func TestResolver_CacheHitSkipsGeocoder(t *testing.T) {
	cache := geocache.New(testLogger())
	stored := domain.PlaceRecord{City: "Paris", Country: "France"}
	cache.Store(domain.Coordinate{Lat: 48.8566, Lon: 2.3522}, stored)

	g := &countingGeocoder{}
	r := newResolver(cache, g, clockwork.NewRealClock(), time.Second)

	rec, err := r.Resolve(context.Background(), domain.Coordinate{Lat: 48.8567, Lon: 2.3523})
	require.NoError(t, err)
	assert.Equal(t, stored, rec)
	assert.Zero(t, g.calls, "cache hit must not reach the geocoder")
}

func TestResolver_CacheMissCallsAndStores(t *testing.T) {
	cache := geocache.New(testLogger())
	g := &countingGeocoder{rec: domain.PlaceRecord{City: "New York", State: "New York", Country: "United States"}}
	r := newResolver(cache, g, clockwork.NewRealClock(), 0)

	coord := domain.Coordinate{Lat: 40.7128, Lon: -74.0060}
	rec, err := r.Resolve(context.Background(), coord)
	require.NoError(t, err)
	assert.Equal(t, "New York", rec.City)
	assert.Equal(t, 1, g.calls)

	got, ok := cache.Lookup(coord)
	require.True(t, ok, "miss result should be cached")
	assert.Equal(t, rec, got)
}

func TestResolver_SameGridCellCallsOnce(t *testing.T) {
	cache := geocache.New(testLogger())
	g := &countingGeocoder{rec: domain.PlaceRecord{City: "New York", Country: "United States"}}
	r := newResolver(cache, g, clockwork.NewRealClock(), 0)

	// A burst of photos from one street corner.
	coords := []domain.Coordinate{
		{Lat: 40.7128, Lon: -74.0060},
		{Lat: 40.7129, Lon: -74.0059},
		{Lat: 40.7131, Lon: -74.0062},
	}

	var records []domain.PlaceRecord
	for _, c := range coords {
		rec, err := r.Resolve(context.Background(), c)
		require.NoError(t, err)
		records = append(records, rec)
	}

	assert.Equal(t, 1, g.calls, "one grid cell, one external call")
	assert.Equal(t, records[0], records[1])
	assert.Equal(t, records[0], records[2])
}

func TestResolver_LookupFailureNotCachedButNotRetriedThisRun(t *testing.T) {
	cache := geocache.New(testLogger())
	g := &countingGeocoder{err: errors.New("connection refused")}
	r := newResolver(cache, g, clockwork.NewRealClock(), 0)

	coord := domain.Coordinate{Lat: 40.7128, Lon: -74.0060}

	rec, err := r.Resolve(context.Background(), coord)
	require.NoError(t, err, "lookup failure degrades, it does not abort")
	assert.True(t, rec.IsZero())

	// Same cell again: no second request this run.
	_, err = r.Resolve(context.Background(), coord)
	require.NoError(t, err)
	assert.Equal(t, 1, g.calls)

	// Nothing authoritative was cached, so the next run will retry.
	_, ok := cache.Lookup(coord)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestResolver_EmptyResultTreatedAsFailure(t *testing.T) {
	cache := geocache.New(testLogger())
	g := &countingGeocoder{} // zero record, nil error
	r := newResolver(cache, g, clockwork.NewRealClock(), 0)

	rec, err := r.Resolve(context.Background(), domain.Coordinate{Lat: -60, Lon: 0})
	require.NoError(t, err)
	assert.True(t, rec.IsZero())
	assert.Equal(t, 0, cache.Len())
}

func TestResolver_ThrottlesConsecutiveCalls(t *testing.T) {
	cache := geocache.New(testLogger())
	g := &countingGeocoder{rec: domain.PlaceRecord{City: "Somewhere", Country: "Someland"}}
	fc := clockwork.NewFakeClock()
	r := newResolver(cache, g, fc, time.Second)

	// First call never waits.
	_, err := r.Resolve(context.Background(), domain.Coordinate{Lat: 10, Lon: 10})
	require.NoError(t, err)

	// Second distinct cell must wait out the full interval.
	done := make(chan error, 1)
	go func() {
		_, err := r.Resolve(context.Background(), domain.Coordinate{Lat: 20, Lon: 20})
		done <- err
	}()

	fc.BlockUntil(1) // resolver is parked on the throttle timer
	select {
	case <-done:
		t.Fatal("second lookup completed before the interval elapsed")
	case <-time.After(50 * time.Millisecond):
	}

	fc.Advance(time.Second)
	require.NoError(t, <-done)
	assert.Equal(t, 2, g.calls)
}

func TestResolver_ThrottleStopsOnCancel(t *testing.T) {
	cache := geocache.New(testLogger())
	g := &countingGeocoder{rec: domain.PlaceRecord{City: "Somewhere", Country: "Someland"}}
	fc := clockwork.NewFakeClock()
	r := newResolver(cache, g, fc, time.Second)

	_, err := r.Resolve(context.Background(), domain.Coordinate{Lat: 10, Lon: 10})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, domain.Coordinate{Lat: 20, Lon: 20})
		done <- err
	}()

	fc.BlockUntil(1)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 1, g.calls, "cancelled wait must not reach the geocoder")
}

// End-to-end over a fake Nominatim: two photos taken moments apart resolve
// through a single external call and land in the same cache cell.
func TestResolver_EndToEndProximityDeduplication(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"display_name": "New York, United States",
			"address": {"city": "New York", "state": "New York", "country": "United States"}
		}`))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	client := nominatim.NewClient(srv.URL, "photoscan-test/1.0", 5*time.Second, metrics, testLogger())

	cache := geocache.New(testLogger())
	r := pipeline.NewResolver(cache, client, clockwork.NewRealClock(), 0, testLogger(), metrics)

	first, err := r.Resolve(context.Background(), domain.Coordinate{Lat: 40.7128, Lon: -74.0060})
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), domain.Coordinate{Lat: 40.7129, Lon: -74.0059})
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, "New York", first.City)

	_, ok := cache.Entries()["40.71,-74.01"]
	assert.True(t, ok, "record should be stored under the quantized key")
}
