package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidCoordinate marks latitude/longitude values outside the valid
// WGS-84 ranges. Callers must check coordinates before any network request.
var ErrInvalidCoordinate = errors.New("coordinate out of range")

// Coordinate is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate returns ErrInvalidCoordinate unless the coordinate lies within
// [-90,90] latitude and [-180,180] longitude.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %f", ErrInvalidCoordinate, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %f", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

// String renders the coordinate at full stored precision, for logs.
func (c Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lon)
}
