// Package pipeline orchestrates the scan-extract-resolve loop.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/photo-location-scanner/internal/domain"
	"github.com/couchcryptid/photo-location-scanner/internal/geocache"
	"github.com/couchcryptid/photo-location-scanner/internal/observability"
)

// Resolver turns coordinates into place records, consulting the proximity
// cache before the external geocoder and throttling external calls to the
// configured minimum interval. It is the single owner of the cache for the
// duration of a run; processing is strictly sequential.
type Resolver struct {
	cache    *geocache.Cache
	geocoder domain.Geocoder
	clock    clockwork.Clock
	interval time.Duration
	lastCall time.Time

	// failed remembers grid cells whose lookup produced nothing this run, so
	// one bad key triggers at most one request per run. Failures are never
	// persisted: the next run retries them.
	failed map[string]struct{}

	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewResolver creates a Resolver around the given cache and geocoder.
func NewResolver(cache *geocache.Cache, geocoder domain.Geocoder, clock clockwork.Clock, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		cache:    cache,
		geocoder: geocoder,
		clock:    clock,
		interval: interval,
		failed:   make(map[string]struct{}),
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolve returns the place for a coordinate. Cache hits return immediately
// with no delay and no network call. On a miss it waits out the inter-request
// interval, calls the geocoder once, and caches a usable result. A failed or
// empty lookup yields a zero PlaceRecord and a nil error; only context
// cancellation is surfaced as an error.
func (r *Resolver) Resolve(ctx context.Context, coord domain.Coordinate) (domain.PlaceRecord, error) {
	if rec, ok := r.cache.Lookup(coord); ok {
		r.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return rec, nil
	}
	r.metrics.CacheLookups.WithLabelValues("miss").Inc()

	key := geocache.Key(coord)
	if _, ok := r.failed[key]; ok {
		return domain.PlaceRecord{}, nil
	}

	if err := r.throttle(ctx); err != nil {
		return domain.PlaceRecord{}, err
	}

	rec, err := r.geocoder.ReverseGeocode(ctx, coord)
	r.lastCall = r.clock.Now()
	if err != nil {
		if ctx.Err() != nil {
			return domain.PlaceRecord{}, ctx.Err()
		}
		r.logger.Warn("reverse geocoding failed", "coord", coord, "key", key, "error", err)
		r.failed[key] = struct{}{}
		return domain.PlaceRecord{}, nil
	}
	if rec.IsZero() {
		r.logger.Warn("no place found", "coord", coord, "key", key)
		r.failed[key] = struct{}{}
		return domain.PlaceRecord{}, nil
	}

	r.cache.Store(coord, rec)
	r.metrics.CacheEntries.Set(float64(r.cache.Len()))
	return rec, nil
}

// throttle blocks until the minimum interval since the previous external
// call has elapsed. The first call of a run never waits.
func (r *Resolver) throttle(ctx context.Context) error {
	if r.lastCall.IsZero() || r.interval <= 0 {
		return nil
	}
	wait := r.interval - r.clock.Since(r.lastCall)
	if wait <= 0 {
		return nil
	}

	select {
	case <-r.clock.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
