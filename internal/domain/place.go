package domain

// PlaceRecord is a resolved place name. An empty field means the provider's
// address breakdown omitted it, which is routine for rural coordinates.
// Immutable once created.
type PlaceRecord struct {
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// IsZero reports whether the record carries no place information at all,
// i.e. the lookup produced nothing usable.
func (p PlaceRecord) IsZero() bool {
	return p == PlaceRecord{}
}

// PhotoRecord is one scanned file. Coord is nil when the photo has no usable
// GPS metadata; Place is nil when no lookup happened or the lookup failed.
// Keeping these as pointers separates "never resolved" from "resolved but the
// provider omitted fields".
type PhotoRecord struct {
	Path  string
	Coord *Coordinate
	Place *PlaceRecord
}
