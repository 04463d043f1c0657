package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/geo-mcp/domain/geocode"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
)

type fakeProvider struct {
	places     []geocode.Place
	err        error
	lastSearch geocode.SearchQuery
	lastRev    geocode.ReverseQuery
}

func (f *fakeProvider) Geocode(_ context.Context, q geocode.SearchQuery) ([]geocode.Place, error) {
	f.lastSearch = q
	return f.places, f.err
}

func (f *fakeProvider) ReverseGeocode(_ context.Context, q geocode.ReverseQuery) (geocode.Place, error) {
	f.lastRev = q
	if f.err != nil {
		return geocode.Place{}, f.err
	}
	if len(f.places) == 0 {
		return geocode.Place{}, geocode.ErrNoResult
	}
	return f.places[0], nil
}

var berlin = geocode.Place{
	DisplayName: "Berlin, Deutschland",
	Lat:         "52.5170365",
	Lon:         "13.3888599",
	BoundingBox: [4]string{"52.3382448", "52.6755087", "13.0883450", "13.7611609"},
	Address:     geocode.Address{City: "Berlin", Country: "Deutschland", CountryCode: "de"},
}

func decode(t *testing.T, resp tool.Response) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(resp.Text()), &out); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, resp.Text())
	}
	return out
}

func entryFor(t *testing.T, provider geocode.Provider, name string) tool.Entry {
	t.Helper()
	p, err := New(provider)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, e := range p.Entries {
		if e.Name() == name {
			return e
		}
	}
	t.Fatalf("tool %s not in pack", name)
	return tool.Entry{}
}

func TestNew(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Fatal("New(nil) should fail")
	}

	p, err := New(&fakeProvider{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	names := p.ToolNames()
	if len(names) != 2 || names[0] != GeocodeTool || names[1] != ReverseGeocodeTool {
		t.Errorf("ToolNames() = %v", names)
	}
	for _, e := range p.Entries {
		if !e.Definition().Annotations().CanCache() {
			t.Errorf("%s should be cacheable", e.Name())
		}
	}
}

func TestGeocode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		provider    *fakeProvider
		input       string
		wantSuccess bool
		wantError   string
		wantLimit   int
		wantCountry string
	}{
		{
			name:        "returns results",
			provider:    &fakeProvider{places: []geocode.Place{berlin}},
			input:       `{"address":"Berlin","countrycodes":"DE"}`,
			wantSuccess: true,
			wantLimit:   1,
			wantCountry: "de",
		},
		{
			name:        "passes explicit limit",
			provider:    &fakeProvider{places: []geocode.Place{berlin, berlin}},
			input:       `{"address":"Berlin","limit":5}`,
			wantSuccess: true,
			wantLimit:   5,
		},
		{
			name:        "integral float limit decodes as integer",
			provider:    &fakeProvider{places: []geocode.Place{berlin, berlin}},
			input:       `{"address":"Berlin","limit":2.0}`,
			wantSuccess: true,
			wantLimit:   2,
		},
		{
			name:      "zero results is a failure naming the address",
			provider:  &fakeProvider{},
			input:     `{"address":"Nowhere Street 0"}`,
			wantError: "No results found for address: Nowhere Street 0",
			wantLimit: 1,
		},
		{
			name:      "provider error is swallowed",
			provider:  &fakeProvider{err: errors.New("connection refused")},
			input:     `{"address":"Berlin"}`,
			wantError: "Geocoding failed: connection refused",
			wantLimit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entry := entryFor(t, tt.provider, GeocodeTool)
			resp, err := entry.Invoke(context.Background(), json.RawMessage(tt.input))
			if err != nil {
				t.Fatalf("Invoke() error = %v", err)
			}

			out := decode(t, resp)
			if out["success"] != tt.wantSuccess {
				t.Fatalf("success = %v, want %v", out["success"], tt.wantSuccess)
			}
			if tt.wantError != "" && out["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", out["error"], tt.wantError)
			}
			if tt.wantSuccess {
				results, _ := out["results"].([]any)
				if len(results) != len(tt.provider.places) {
					t.Errorf("results = %v", out["results"])
				}
			}
			if tt.provider.lastSearch.Limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", tt.provider.lastSearch.Limit, tt.wantLimit)
			}
			if tt.provider.lastSearch.CountryCode != tt.wantCountry {
				t.Errorf("country = %q, want %q", tt.provider.lastSearch.CountryCode, tt.wantCountry)
			}
		})
	}
}

func TestReverseGeocode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		provider    *fakeProvider
		input       string
		wantSuccess bool
		wantZoom    int
		wantError   string
	}{
		{
			name:        "applies default zoom",
			provider:    &fakeProvider{places: []geocode.Place{berlin}},
			input:       `{"latitude":52.517,"longitude":13.3889}`,
			wantSuccess: true,
			wantZoom:    geocode.DefaultZoom,
		},
		{
			name:        "keeps explicit zoom",
			provider:    &fakeProvider{places: []geocode.Place{berlin}},
			input:       `{"latitude":52.517,"longitude":13.3889,"zoom":10}`,
			wantSuccess: true,
			wantZoom:    10,
		},
		{
			name:      "no result",
			provider:  &fakeProvider{},
			input:     `{"latitude":0,"longitude":-140}`,
			wantZoom:  geocode.DefaultZoom,
			wantError: "No address found for coordinates",
		},
		{
			name:      "provider error is swallowed",
			provider:  &fakeProvider{err: errors.New("timeout")},
			input:     `{"latitude":1,"longitude":1}`,
			wantZoom:  geocode.DefaultZoom,
			wantError: "Reverse geocoding failed: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entry := entryFor(t, tt.provider, ReverseGeocodeTool)
			resp, err := entry.Invoke(context.Background(), json.RawMessage(tt.input))
			if err != nil {
				t.Fatalf("Invoke() error = %v", err)
			}

			out := decode(t, resp)
			if out["success"] != tt.wantSuccess {
				t.Fatalf("success = %v, want %v", out["success"], tt.wantSuccess)
			}
			if tt.wantError != "" {
				msg, _ := out["error"].(string)
				if !strings.Contains(msg, tt.wantError) {
					t.Errorf("error = %q, want it to contain %q", msg, tt.wantError)
				}
			}
			if tt.wantSuccess {
				result, _ := out["result"].(map[string]any)
				if result["display_name"] != berlin.DisplayName {
					t.Errorf("result = %v", out["result"])
				}
			}
			if tt.provider.lastRev.Zoom != tt.wantZoom {
				t.Errorf("zoom = %d, want %d", tt.provider.lastRev.Zoom, tt.wantZoom)
			}
		})
	}
}
