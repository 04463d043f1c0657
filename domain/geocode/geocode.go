// Package geocode defines forward and reverse geocoding types and the
// provider port the geocoding tools depend on.
package geocode

import (
	"context"
	"errors"
)

// Query limits and defaults.
const (
	DefaultLimit = 1
	MaxLimit     = 10
	DefaultZoom  = 18
	MinZoom      = 3
	MaxZoom      = 18
)

var (
	// ErrNoResult is returned when the provider has no place for a reverse lookup.
	ErrNoResult = errors.New("no result")

	// ErrProvider wraps failures reported by the geocoding provider.
	ErrProvider = errors.New("geocoding provider error")
)

// Address is the structured breakdown of a place.
type Address struct {
	HouseNumber string `json:"house_number,omitempty"`
	Road        string `json:"road,omitempty"`
	Suburb      string `json:"suburb,omitempty"`
	City        string `json:"city,omitempty"`
	County      string `json:"county,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
}

// Place is a single geocoding result. Coordinates are kept as the decimal
// strings the provider returns so no precision is lost.
type Place struct {
	PlaceID     string    `json:"place_id,omitempty"`
	DisplayName string    `json:"display_name"`
	Lat         string    `json:"lat"`
	Lon         string    `json:"lon"`
	BoundingBox [4]string `json:"boundingbox"`
	Category    string    `json:"category,omitempty"`
	Type        string    `json:"type,omitempty"`
	Importance  float64   `json:"importance,omitempty"`
	Address     Address   `json:"address"`
}

// SearchQuery is a forward geocoding request.
type SearchQuery struct {
	Address     string
	Limit       int
	CountryCode string
}

// ReverseQuery is a reverse geocoding request.
type ReverseQuery struct {
	Latitude  float64
	Longitude float64
	Zoom      int
}

// Provider resolves addresses to places and coordinates to addresses.
type Provider interface {
	Geocode(ctx context.Context, q SearchQuery) ([]Place, error)
	ReverseGeocode(ctx context.Context, q ReverseQuery) (Place, error)
}
