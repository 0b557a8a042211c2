// Package nominatim implements domain.Geocoder against the OSM Nominatim
// reverse geocoding API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/photo-location-scanner/internal/domain"
	"github.com/couchcryptid/photo-location-scanner/internal/observability"
)

// Client implements domain.Geocoder using the Nominatim API.
type Client struct {
	userAgent  string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim reverse geocoding client. The user agent is
// mandatory: Nominatim's usage policy refuses anonymous clients.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// ReverseGeocode converts a coordinate to place details. An out-of-range
// coordinate fails with domain.ErrInvalidCoordinate before any request is
// made. An empty PlaceRecord with a nil error means the service had nothing
// for this position.
func (c *Client) ReverseGeocode(ctx context.Context, coord domain.Coordinate) (domain.PlaceRecord, error) {
	if err := coord.Validate(); err != nil {
		return domain.PlaceRecord{}, err
	}

	params := url.Values{
		"format":         {"json"},
		"lat":            {fmt.Sprintf("%.6f", coord.Lat)},
		"lon":            {fmt.Sprintf("%.6f", coord.Lon)},
		"zoom":           {"10"}, // city-level detail
		"addressdetails": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return domain.PlaceRecord{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.LookupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.LookupRequests.WithLabelValues("error").Inc()
		return domain.PlaceRecord{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.metrics.LookupRequests.WithLabelValues("error").Inc()
		return domain.PlaceRecord{}, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var nomResp response
	if err := json.NewDecoder(resp.Body).Decode(&nomResp); err != nil {
		c.metrics.LookupRequests.WithLabelValues("error").Inc()
		return domain.PlaceRecord{}, fmt.Errorf("decode response: %w", err)
	}

	// Nominatim reports "nothing here" as a 200 with an error field.
	if nomResp.Error != "" {
		c.logger.Debug("nominatim returned no result", "coord", coord, "reason", nomResp.Error)
		c.metrics.LookupRequests.WithLabelValues("empty").Inc()
		return domain.PlaceRecord{}, nil
	}

	c.metrics.LookupRequests.WithLabelValues("success").Inc()
	return nomResp.toPlaceRecord(), nil
}

// Nominatim API response types.

type response struct {
	DisplayName string  `json:"display_name"`
	Address     address `json:"address"`
	Error       string  `json:"error"`
}

type address struct {
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Hamlet       string `json:"hamlet"`
	Municipality string `json:"municipality"`
	State        string `json:"state"`
	Region       string `json:"region"`
	Province     string `json:"province"`
	County       string `json:"county"`
	Country      string `json:"country"`
}

// toPlaceRecord maps the address breakdown to a PlaceRecord. The city and
// state fields fall back through progressively smaller or larger admin units,
// since Nominatim names the settlement differently by population and region.
func (r response) toPlaceRecord() domain.PlaceRecord {
	return domain.PlaceRecord{
		City:        firstNonEmpty(r.Address.City, r.Address.Town, r.Address.Village, r.Address.Hamlet, r.Address.Municipality),
		State:       firstNonEmpty(r.Address.State, r.Address.Region, r.Address.Province, r.Address.County),
		Country:     r.Address.Country,
		DisplayName: r.DisplayName,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
