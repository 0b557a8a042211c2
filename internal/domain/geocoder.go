package domain

import "context"

// Geocoder resolves a coordinate to a place name via an external service.
type Geocoder interface {
	// ReverseGeocode converts a coordinate to place details. It performs
	// exactly one network request per call; deduplication and rate limiting
	// are the caller's job.
	ReverseGeocode(ctx context.Context, coord Coordinate) (PlaceRecord, error)
}
