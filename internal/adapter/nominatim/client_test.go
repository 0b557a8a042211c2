package nominatim

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/photo-location-scanner/internal/domain"
	"github.com/couchcryptid/photo-location-scanner/internal/observability"
)

const testUserAgent = "photoscan-test/1.0"

func testClient(baseURL string, timeout time.Duration) *Client {
	return NewClient(baseURL, testUserAgent, timeout,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestClient_ReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "40.712800", r.URL.Query().Get("lat"))
		assert.Equal(t, "-74.006000", r.URL.Query().Get("lon"))
		assert.Equal(t, "10", r.URL.Query().Get("zoom"))
		assert.Equal(t, "1", r.URL.Query().Get("addressdetails"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"display_name": "New York, United States",
			"address": {
				"city": "New York",
				"state": "New York",
				"country": "United States"
			}
		}`))
	}))
	defer srv.Close()

	rec, err := testClient(srv.URL, 5*time.Second).ReverseGeocode(
		context.Background(), domain.Coordinate{Lat: 40.7128, Lon: -74.0060})
	require.NoError(t, err)

	assert.Equal(t, "New York", rec.City)
	assert.Equal(t, "New York", rec.State)
	assert.Equal(t, "United States", rec.Country)
	assert.Equal(t, "New York, United States", rec.DisplayName)
}

func TestClient_ReverseGeocode_TownFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"display_name": "Gruyères, Fribourg, Switzerland",
			"address": {
				"town": "Gruyères",
				"county": "Gruyère",
				"country": "Switzerland"
			}
		}`))
	}))
	defer srv.Close()

	rec, err := testClient(srv.URL, 5*time.Second).ReverseGeocode(
		context.Background(), domain.Coordinate{Lat: 46.5833, Lon: 7.0823})
	require.NoError(t, err)

	assert.Equal(t, "Gruyères", rec.City, "town should stand in for a missing city")
	assert.Equal(t, "Gruyère", rec.State, "county should stand in for a missing state")
	assert.Equal(t, "Switzerland", rec.Country)
}

func TestClient_ReverseGeocode_MissingFieldsStayEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"display_name": "Southern Ocean", "address": {}}`))
	}))
	defer srv.Close()

	rec, err := testClient(srv.URL, 5*time.Second).ReverseGeocode(
		context.Background(), domain.Coordinate{Lat: -60, Lon: 0})
	require.NoError(t, err)

	assert.Empty(t, rec.City)
	assert.Empty(t, rec.State)
	assert.Empty(t, rec.Country)
	assert.Equal(t, "Southern Ocean", rec.DisplayName)
}

func TestClient_ReverseGeocode_UnableToGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error": "Unable to geocode"}`))
	}))
	defer srv.Close()

	rec, err := testClient(srv.URL, 5*time.Second).ReverseGeocode(
		context.Background(), domain.Coordinate{Lat: 0, Lon: 0})
	require.NoError(t, err)
	assert.True(t, rec.IsZero())
}

func TestClient_ReverseGeocode_InvalidCoordinateMakesNoRequest(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).ReverseGeocode(
		context.Background(), domain.Coordinate{Lat: 91, Lon: 0})
	require.ErrorIs(t, err, domain.ErrInvalidCoordinate)
	assert.Equal(t, int64(0), calls.Load())
}

func TestClient_ReverseGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).ReverseGeocode(
		context.Background(), domain.Coordinate{Lat: 40, Lon: -74})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_ReverseGeocode_UnparsableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).ReverseGeocode(
		context.Background(), domain.Coordinate{Lat: 40, Lon: -74})
	require.Error(t, err)
}

func TestClient_ReverseGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 50*time.Millisecond).ReverseGeocode(
		context.Background(), domain.Coordinate{Lat: 40, Lon: -74})
	require.Error(t, err)
}
