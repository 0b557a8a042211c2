// Package report renders scan results as CSV tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/couchcryptid/photo-location-scanner/internal/domain"
)

// WritePhotos writes one CSV row per scanned photo. Photos without GPS data
// or without a resolved place get empty cells, keeping the row count equal
// to the photo count.
func WritePhotos(w io.Writer, records []domain.PhotoRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"file_path", "latitude", "longitude", "city", "state", "country", "display_name"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, rec := range records {
		row := []string{rec.Path, "", "", "", "", "", ""}
		if rec.Coord != nil {
			row[1] = strconv.FormatFloat(rec.Coord.Lat, 'f', 6, 64)
			row[2] = strconv.FormatFloat(rec.Coord.Lon, 'f', 6, 64)
		}
		if rec.Place != nil {
			row[3] = rec.Place.City
			row[4] = rec.Place.State
			row[5] = rec.Place.Country
			row[6] = rec.Place.DisplayName
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", rec.Path, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// location is a (city, state, country) triple.
type location struct {
	city, state, country string
}

// WriteUniqueLocations writes the deduplicated (city, state, country)
// triples, dropping rows without a city and sorting by country, state, city.
func WriteUniqueLocations(w io.Writer, records []domain.PhotoRecord) error {
	seen := make(map[location]struct{})
	var locations []location

	for _, rec := range records {
		if rec.Place == nil || rec.Place.City == "" {
			continue
		}
		loc := location{city: rec.Place.City, state: rec.Place.State, country: rec.Place.Country}
		if _, ok := seen[loc]; ok {
			continue
		}
		seen[loc] = struct{}{}
		locations = append(locations, loc)
	}

	sort.Slice(locations, func(i, j int) bool {
		a, b := locations[i], locations[j]
		if a.country != b.country {
			return a.country < b.country
		}
		if a.state != b.state {
			return a.state < b.state
		}
		return a.city < b.city
	})

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"city", "state", "country"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, loc := range locations {
		if err := cw.Write([]string{loc.city, loc.state, loc.country}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// CityCount pairs a city name with how many photos resolved to it.
type CityCount struct {
	City  string
	Count int
}

// CityCounts tallies resolved photos per city, most photographed first.
// Ties break alphabetically so the output is deterministic.
func CityCounts(records []domain.PhotoRecord) []CityCount {
	counts := make(map[string]int)
	for _, rec := range records {
		if rec.Place != nil && rec.Place.City != "" {
			counts[rec.Place.City]++
		}
	}

	out := make([]CityCount, 0, len(counts))
	for city, n := range counts {
		out = append(out, CityCount{City: city, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].City < out[j].City
	})
	return out
}
