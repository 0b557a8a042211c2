package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the scan
// pipeline. With a 1 s delay per external lookup, large archives take a long
// time to scan; the optional metrics endpoint lets the operator watch
// progress mid-run.
type Metrics struct {
	PhotosScanned prometheus.Counter
	PhotosWithGPS prometheus.Counter

	// Cache and lookup metrics.
	CacheLookups   *prometheus.CounterVec // labels: result={hit,miss}
	LookupRequests *prometheus.CounterVec // labels: outcome={success,empty,error}
	LookupDuration prometheus.Histogram
	CacheEntries   prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PhotosScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "photoscan",
			Name:      "photos_scanned_total",
			Help:      "Total photo files inspected for GPS metadata.",
		}),
		PhotosWithGPS: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "photoscan",
			Name:      "photos_with_gps_total",
			Help:      "Total photos that carried a usable GPS position.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "photoscan",
			Name:      "cache_lookups_total",
			Help:      "Proximity cache lookups by result.",
		}, []string{"result"}),
		LookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "photoscan",
			Name:      "lookup_requests_total",
			Help:      "Reverse geocoding requests by outcome.",
		}, []string{"outcome"}),
		LookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "photoscan",
			Name:      "lookup_duration_seconds",
			Help:      "Reverse geocoding request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "photoscan",
			Name:      "cache_entries",
			Help:      "Grid cells currently held in the proximity cache.",
		}),
	}

	prometheus.MustRegister(
		m.PhotosScanned,
		m.PhotosWithGPS,
		m.CacheLookups,
		m.LookupRequests,
		m.LookupDuration,
		m.CacheEntries,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PhotosScanned:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "photoscan", Name: "photos_scanned_total"}),
		PhotosWithGPS:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "photoscan", Name: "photos_with_gps_total"}),
		CacheLookups:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "photoscan", Name: "cache_lookups_total"}, []string{"result"}),
		LookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "photoscan", Name: "lookup_requests_total"}, []string{"outcome"}),
		LookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "photoscan", Name: "lookup_duration_seconds"}),
		CacheEntries:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "photoscan", Name: "cache_entries"}),
	}
}
