// Package nominatim implements geocode.Provider against the OpenStreetMap
// Nominatim HTTP API.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/yosida95/uritemplate/v3"

	"github.com/felixgeelhaar/geo-mcp/domain/geocode"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/logging"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/resilience"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

const maxBodySize = 4 << 20

var (
	searchTemplate  = uritemplate.MustNew("{+base}/search{?q,format,limit,countrycodes,addressdetails,email}")
	reverseTemplate = uritemplate.MustNew("{+base}/reverse{?lat,lon,zoom,format,addressdetails,email}")
)

// Config configures the client.
type Config struct {
	BaseURL        string
	UserAgent      string
	Email          string
	AcceptLanguage string
	Timeout        time.Duration
	Resilience     resilience.ExecutorConfig
}

// Client queries a Nominatim server.
type Client struct {
	config   Config
	http     *http.Client
	executor *resilience.Executor[[]byte]
}

var _ geocode.Provider = (*Client)(nil)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// New creates a Nominatim client. A User-Agent is mandatory under the
// Nominatim usage policy.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		return nil, errors.New("nominatim: user agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Resilience.Timeout <= 0 {
		cfg.Resilience = resilience.DefaultExecutorConfig()
		cfg.Resilience.Timeout = cfg.Timeout
	}

	c := &Client{
		config:   cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		executor: resilience.NewExecutor[[]byte](cfg.Resilience),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Geocode searches for places matching a free-text address.
func (c *Client) Geocode(ctx context.Context, q geocode.SearchQuery) ([]geocode.Place, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = geocode.DefaultLimit
	}

	values := c.baseValues()
	values.Set("q", uritemplate.String(q.Address))
	values.Set("limit", uritemplate.String(cast.ToString(limit)))
	if q.CountryCode != "" {
		values.Set("countrycodes", uritemplate.String(strings.ToLower(q.CountryCode)))
	}

	body, err := c.get(ctx, "search", searchTemplate, values)
	if err != nil {
		return nil, err
	}

	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", geocode.ErrProvider, err)
	}

	places := make([]geocode.Place, 0, len(raw))
	for _, r := range raw {
		places = append(places, toPlace(r))
	}
	return places, nil
}

// ReverseGeocode resolves coordinates to the nearest addressable place.
func (c *Client) ReverseGeocode(ctx context.Context, q geocode.ReverseQuery) (geocode.Place, error) {
	zoom := q.Zoom
	if zoom == 0 {
		zoom = geocode.DefaultZoom
	}

	values := c.baseValues()
	values.Set("lat", uritemplate.String(cast.ToString(q.Latitude)))
	values.Set("lon", uritemplate.String(cast.ToString(q.Longitude)))
	values.Set("zoom", uritemplate.String(cast.ToString(zoom)))

	body, err := c.get(ctx, "reverse", reverseTemplate, values)
	if err != nil {
		return geocode.Place{}, err
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return geocode.Place{}, fmt.Errorf("%w: decode reverse response: %v", geocode.ErrProvider, err)
	}
	// Nominatim answers 200 with an error member when nothing is nearby.
	if msg, ok := raw["error"]; ok {
		return geocode.Place{}, fmt.Errorf("%w: %s", geocode.ErrNoResult, cast.ToString(msg))
	}
	return toPlace(raw), nil
}

func (c *Client) baseValues() uritemplate.Values {
	values := uritemplate.Values{}
	values.Set("base", uritemplate.String(c.config.BaseURL))
	values.Set("format", uritemplate.String("jsonv2"))
	values.Set("addressdetails", uritemplate.String("1"))
	if c.config.Email != "" {
		values.Set("email", uritemplate.String(c.config.Email))
	}
	return values
}

func (c *Client) get(ctx context.Context, op string, tmpl *uritemplate.Template, values uritemplate.Values) ([]byte, error) {
	endpoint, err := tmpl.Expand(values)
	if err != nil {
		return nil, fmt.Errorf("nominatim: expand url: %w", err)
	}

	start := time.Now()
	body, err := c.executor.Execute(ctx, true, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")
		if c.config.AcceptLanguage != "" {
			req.Header.Set("Accept-Language", c.config.AcceptLanguage)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: status %d", geocode.ErrProvider, resp.StatusCode)
		case resp.StatusCode >= 400:
			return nil, resilience.Permanent(fmt.Errorf("%w: status %d", geocode.ErrProvider, resp.StatusCode))
		}
		return data, nil
	})

	logging.Debug().
		Add(logging.Provider("nominatim"), logging.Str("op", op), logging.Duration(time.Since(start))).
		Msg("provider request")

	if err != nil {
		if errors.Is(err, geocode.ErrProvider) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", geocode.ErrProvider, err)
	}
	return body, nil
}

// toPlace normalizes a jsonv2 result. Field types vary between Nominatim
// versions so every value is coerced.
func toPlace(raw map[string]any) geocode.Place {
	p := geocode.Place{
		PlaceID:     cast.ToString(raw["place_id"]),
		DisplayName: cast.ToString(raw["display_name"]),
		Lat:         cast.ToString(raw["lat"]),
		Lon:         cast.ToString(raw["lon"]),
		Category:    cast.ToString(raw["category"]),
		Type:        cast.ToString(raw["type"]),
		Importance:  cast.ToFloat64(raw["importance"]),
	}
	if p.Category == "" {
		p.Category = cast.ToString(raw["class"])
	}

	bbox := cast.ToStringSlice(raw["boundingbox"])
	for i := 0; i < len(bbox) && i < len(p.BoundingBox); i++ {
		p.BoundingBox[i] = bbox[i]
	}

	addr := cast.ToStringMapString(raw["address"])
	p.Address = geocode.Address{
		HouseNumber: addr["house_number"],
		Road:        addr["road"],
		Suburb:      addr["suburb"],
		City:        firstNonEmpty(addr["city"], addr["town"], addr["village"]),
		County:      addr["county"],
		State:       addr["state"],
		Country:     addr["country"],
		CountryCode: addr["country_code"],
		Postcode:    addr["postcode"],
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
