// Package domain models photo geolocation data.
//
// # GPS EXIF Conventions
//
// Cameras store GPS position in the EXIF GPSInfo IFD as three unsigned
// rationals per axis (degrees, minutes, seconds) plus a hemisphere reference
// tag ("N"/"S" for latitude, "E"/"W" for longitude). The decimal form is
//
//	decimal = degrees + minutes/60 + seconds/3600
//
// negated for southern and western hemispheres. Malformed GPS blocks are
// common in the wild (zero denominators, missing reference tags, truncated
// rational triplets) and are treated as "no GPS data", never as an error:
// a photo without a usable position still flows through the pipeline and
// appears in the report with empty location columns.
//
// # Proximity Bucketing
//
// Reverse-geocoding the exact capture position of every photo would hammer
// the lookup service with near-duplicate requests: a burst of photos taken
// on one street corner differs only in the 4th decimal. Coordinates are
// therefore quantized to a 0.01° grid (~1.1 km at the equator) before being
// used as cache keys, so photos taken within roughly a kilometer of each
// other resolve to one cached place. The grid is intentionally coarse; it
// only needs to be deterministic, not geodetically exact. See the geocache
// package for key construction.
package domain
