// Package geocoding provides forward and reverse geocoding tools.
package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/geo-mcp/domain/geocode"
	"github.com/felixgeelhaar/geo-mcp/domain/pack"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
)

// Tool names.
const (
	GeocodeTool        = "geocode"
	ReverseGeocodeTool = "reverse_geocode"
)

// New creates the geocoding pack backed by the given provider.
func New(provider geocode.Provider) (*pack.Pack, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: geocoding provider is required", pack.ErrInvalidPack)
	}

	return pack.NewBuilder("geocoding").
		WithDescription("Address search and reverse geocoding").
		WithVersion("1.0.0").
		AddTools(
			geocodeTool(provider),
			reverseGeocodeTool(provider),
		).
		Build(), nil
}

type geocodeInput struct {
	Address      string `json:"address"`
	Limit        int    `json:"limit"`
	CountryCodes string `json:"countrycodes"`
}

func geocodeSchema() tool.Schema {
	return tool.ObjectSchema(map[string]json.RawMessage{
		"address": tool.StringProp("Free-text address or place name to search for", `"minLength":1`),
		"limit": tool.IntegerProp("Maximum number of results (default 1)",
			1, geocode.MaxLimit, fmt.Sprintf(`"default":%d`, geocode.DefaultLimit)),
		"countrycodes": tool.StringProp("ISO 3166-1 alpha-2 country code to restrict results",
			`"pattern":"^[A-Za-z]{2}$"`),
	}, "address")
}

func geocodeTool(provider geocode.Provider) tool.Entry {
	return tool.NewBuilder(GeocodeTool).
		WithDescription("Convert an address or place name into geographic coordinates").
		WithInputSchema(geocodeSchema()).
		WithAnnotations(tool.LookupAnnotations()).
		WithTags("geocoding").
		WithHandler(tool.Typed(func(ctx context.Context, in geocodeInput) tool.Outcome {
			return runGeocode(ctx, provider, in)
		})).
		MustBuild()
}

func runGeocode(ctx context.Context, provider geocode.Provider, in geocodeInput) tool.Outcome {
	limit := in.Limit
	if limit <= 0 {
		limit = geocode.DefaultLimit
	}

	places, err := provider.Geocode(ctx, geocode.SearchQuery{
		Address:     in.Address,
		Limit:       limit,
		CountryCode: strings.ToLower(in.CountryCodes),
	})
	if err != nil {
		return tool.Failure("Geocoding failed: " + err.Error())
	}
	if len(places) == 0 {
		return tool.Failure("No results found for address: " + in.Address)
	}

	return tool.Success(map[string]any{
		"results": places,
		"count":   len(places),
	})
}

type reverseInput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      int     `json:"zoom"`
}

func reverseSchema() tool.Schema {
	return tool.ObjectSchema(map[string]json.RawMessage{
		"latitude":  tool.NumberProp("Latitude in decimal degrees", -90, 90),
		"longitude": tool.NumberProp("Longitude in decimal degrees", -180, 180),
		"zoom": tool.IntegerProp("Level of detail from 3 (country) to 18 (building), default 18",
			geocode.MinZoom, geocode.MaxZoom),
	}, "latitude", "longitude")
}

func reverseGeocodeTool(provider geocode.Provider) tool.Entry {
	return tool.NewBuilder(ReverseGeocodeTool).
		WithDescription("Convert geographic coordinates into a human-readable address").
		WithInputSchema(reverseSchema()).
		WithAnnotations(tool.LookupAnnotations()).
		WithTags("geocoding").
		WithHandler(tool.Typed(func(ctx context.Context, in reverseInput) tool.Outcome {
			return runReverse(ctx, provider, in)
		})).
		MustBuild()
}

func runReverse(ctx context.Context, provider geocode.Provider, in reverseInput) tool.Outcome {
	zoom := in.Zoom
	if zoom == 0 {
		zoom = geocode.DefaultZoom
	}

	place, err := provider.ReverseGeocode(ctx, geocode.ReverseQuery{
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Zoom:      zoom,
	})
	switch {
	case errors.Is(err, geocode.ErrNoResult):
		return tool.Failure(fmt.Sprintf("No address found for coordinates: %g, %g", in.Latitude, in.Longitude))
	case err != nil:
		return tool.Failure("Reverse geocoding failed: " + err.Error())
	}

	return tool.Success(map[string]any{"result": place})
}
