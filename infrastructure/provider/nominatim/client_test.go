package nominatim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/geo-mcp/domain/geocode"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/resilience"
)

const searchBody = `[{
	"place_id": 133585733,
	"lat": "52.5170365",
	"lon": "13.3888599",
	"category": "boundary",
	"type": "administrative",
	"importance": 0.8875,
	"display_name": "Berlin, Deutschland",
	"boundingbox": ["52.3382448", "52.6755087", "13.0883450", "13.7611609"],
	"address": {"city": "Berlin", "state": "Berlin", "country": "Deutschland", "country_code": "de"}
}]`

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL:   srv.URL + "/",
		UserAgent: "geo-mcp-test/1.0",
		Email:     "ops@example.com",
		Resilience: resilience.ExecutorConfig{
			MaxConcurrent:           4,
			CircuitBreakerThreshold: 100,
			CircuitBreakerTimeout:   time.Second,
			RetryMaxAttempts:        2,
			RetryInitialDelay:       time.Millisecond,
			RetryBackoffMultiplier:  1,
			Timeout:                 2 * time.Second,
		},
	}, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_RequiresUserAgent(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Error("New() without user agent should fail")
	}
}

func TestGeocode(t *testing.T) {
	t.Parallel()

	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("User-Agent") != "geo-mcp-test/1.0" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		gotQuery.Store(r.URL.Query())
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	places, err := testClient(t, srv).Geocode(context.Background(), geocode.SearchQuery{
		Address:     "Unter den Linden, Berlin",
		Limit:       3,
		CountryCode: "DE",
	})
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if len(places) != 1 {
		t.Fatalf("len(places) = %d, want 1", len(places))
	}

	p := places[0]
	if p.PlaceID != "133585733" || p.Lat != "52.5170365" || p.BoundingBox[3] != "13.7611609" {
		t.Errorf("place = %+v", p)
	}
	if p.Address.City != "Berlin" || p.Address.CountryCode != "de" {
		t.Errorf("address = %+v", p.Address)
	}

	q := gotQuery.Load().(url.Values)
	want := map[string]string{
		"q":              "Unter den Linden, Berlin",
		"format":         "jsonv2",
		"limit":          "3",
		"countrycodes":   "de",
		"addressdetails": "1",
		"email":          "ops@example.com",
	}
	for k, v := range want {
		if got := q[k]; len(got) != 1 || got[0] != v {
			t.Errorf("query %s = %v, want %q", k, got, v)
		}
	}
}

func TestGeocode_Empty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	places, err := testClient(t, srv).Geocode(context.Background(), geocode.SearchQuery{Address: "nowhere"})
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if len(places) != 0 {
		t.Errorf("places = %v, want none", places)
	}
}

func TestReverseGeocode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		status  int
		wantErr error
		wantZ   string
	}{
		{
			name:  "found",
			body:  `{"place_id":1,"lat":"52.5","lon":"13.4","display_name":"Mitte, Berlin","boundingbox":["1","2","3","4"],"address":{"town":"Mitte"}}`,
			wantZ: "18",
		},
		{
			name:    "nothing nearby",
			body:    `{"error":"Unable to geocode"}`,
			wantErr: geocode.ErrNoResult,
			wantZ:   "18",
		},
		{
			name:    "client error is not retried",
			status:  http.StatusBadRequest,
			wantErr: geocode.ErrProvider,
			wantZ:   "18",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				if r.URL.Query().Get("zoom") != tt.wantZ {
					t.Errorf("zoom = %q, want %q", r.URL.Query().Get("zoom"), tt.wantZ)
				}
				if tt.status != 0 {
					w.WriteHeader(tt.status)
					return
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			place, err := testClient(t, srv).ReverseGeocode(context.Background(), geocode.ReverseQuery{
				Latitude:  52.5,
				Longitude: 13.4,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReverseGeocode() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && place.Address.City != "Mitte" {
				t.Errorf("place = %+v", place)
			}
			if tt.status != 0 && calls.Load() != 1 {
				t.Errorf("calls = %d, want 1", calls.Load())
			}
		})
	}
}

func TestGeocode_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	places, err := testClient(t, srv).Geocode(context.Background(), geocode.SearchQuery{Address: "Berlin"})
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if len(places) != 1 || calls.Load() != 2 {
		t.Errorf("places = %d, calls = %d", len(places), calls.Load())
	}
}
