// Package imagery implements imagery.Provider against a satellite imagery
// ordering REST API.
package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"github.com/yosida95/uritemplate/v3"

	domain "github.com/felixgeelhaar/geo-mcp/domain/imagery"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/logging"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/resilience"
)

// DefaultAPIKeyHeader carries the API key unless configured otherwise.
const DefaultAPIKeyHeader = "X-API-Key"

const maxBodySize = 8 << 20

var (
	orderTemplate  = uritemplate.MustNew("{+base}/orders/{id}")
	ordersTemplate = uritemplate.MustNew("{+base}/orders{?pageNumber,pageSize}")
)

// Config configures the client.
type Config struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	Timeout      time.Duration
	Resilience   resilience.ExecutorConfig
}

// Client talks to the imagery ordering API.
type Client struct {
	config   Config
	http     *http.Client
	executor *resilience.Executor[[]byte]
}

var _ domain.Provider = (*Client)(nil)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// New creates an imagery client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("imagery: base url is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = DefaultAPIKeyHeader
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
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

// HasCredentials reports whether an API key is configured.
func (c *Client) HasCredentials() bool {
	return c.config.APIKey != ""
}

type searchBody struct {
	AOI              string   `json:"aoi"`
	FromDate         string   `json:"fromDate,omitempty"`
	ToDate           string   `json:"toDate,omitempty"`
	MaxCloudCoverage *float64 `json:"maxCloudCoveragePercent,omitempty"`
	PageSize         int      `json:"pageSize,omitempty"`
}

// SearchArchives finds archive scenes intersecting the AOI.
func (c *Client) SearchArchives(ctx context.Context, req domain.SearchRequest) ([]domain.Archive, error) {
	body := searchBody{AOI: req.AOI, PageSize: req.Limit}
	if !req.From.IsZero() {
		body.FromDate = req.From.UTC().Format(time.RFC3339)
	}
	if !req.To.IsZero() {
		body.ToDate = req.To.UTC().Format(time.RFC3339)
	}
	if req.MaxCloudCoverage > 0 {
		cc := req.MaxCloudCoverage
		body.MaxCloudCoverage = &cc
	}

	data, err := c.do(ctx, "search_archives", http.MethodPost, c.config.BaseURL+"/archives", body, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Archives []map[string]any `json:"archives"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode archives: %v", domain.ErrProvider, err)
	}

	archives := make([]domain.Archive, 0, len(resp.Archives))
	for _, raw := range resp.Archives {
		archives = append(archives, toArchive(raw))
	}
	if req.Limit > 0 && len(archives) > req.Limit {
		archives = archives[:req.Limit]
	}
	return archives, nil
}

type orderBody struct {
	ArchiveID      string          `json:"archiveId"`
	AOI            string          `json:"aoi"`
	Label          string          `json:"label,omitempty"`
	DeliveryDriver string          `json:"deliveryDriver,omitempty"`
	DeliveryParams *deliveryParams `json:"deliveryParams,omitempty"`
}

type deliveryParams struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix,omitempty"`
}

// PlaceOrder orders an archive. The idempotency key makes retries safe.
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	body := orderBody{ArchiveID: req.ArchiveID, AOI: req.AOI, Label: req.Label}
	if req.Delivery != nil {
		body.DeliveryDriver = string(req.Delivery.Driver)
		body.DeliveryParams = &deliveryParams{Bucket: req.Delivery.Bucket, Prefix: req.Delivery.Prefix}
	}

	data, err := c.do(ctx, "place_order", http.MethodPost, c.config.BaseURL+"/order-archive", body,
		http.Header{"Idempotency-Key": []string{key}})
	if err != nil {
		return domain.Order{}, err
	}

	order, err := decodeOrder(data)
	if err != nil {
		return domain.Order{}, err
	}
	if order.ArchiveID == "" {
		order.ArchiveID = req.ArchiveID
	}
	if order.Delivery == nil {
		order.Delivery = req.Delivery
	}
	return order, nil
}

// GetOrder fetches a single order.
func (c *Client) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	endpoint, err := orderTemplate.Expand(uritemplate.Values{
		"base": uritemplate.String(c.config.BaseURL),
		"id":   uritemplate.String(id),
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("imagery: expand url: %w", err)
	}

	data, err := c.do(ctx, "get_order", http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(data)
}

// ListOrders returns one page of orders. Pages are zero based.
func (c *Client) ListOrders(ctx context.Context, page, pageSize int) (domain.OrderPage, error) {
	endpoint, err := ordersTemplate.Expand(uritemplate.Values{
		"base":       uritemplate.String(c.config.BaseURL),
		"pageNumber": uritemplate.String(cast.ToString(page)),
		"pageSize":   uritemplate.String(cast.ToString(pageSize)),
	})
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("imagery: expand url: %w", err)
	}

	data, err := c.do(ctx, "list_orders", http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return domain.OrderPage{}, err
	}

	var resp map[string]any
	if err := json.Unmarshal(data, &resp); err != nil {
		return domain.OrderPage{}, fmt.Errorf("%w: decode orders: %v", domain.ErrProvider, err)
	}

	out := domain.OrderPage{Page: page, PageSize: pageSize}
	for _, raw := range cast.ToSlice(resp["orders"]) {
		out.Orders = append(out.Orders, toOrder(cast.ToStringMap(raw)))
	}
	out.TotalCount = cast.ToInt(resp["total"])
	if out.TotalCount == 0 {
		out.TotalCount = len(out.Orders)
	}
	if out.Orders == nil {
		out.Orders = []domain.Order{}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, payload any, header http.Header) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("imagery: encode request: %w", err)
		}
	}

	start := time.Now()
	data, err := c.executor.Execute(ctx, true, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		for k, v := range header {
			req.Header[k] = v
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.config.APIKey != "" {
			req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
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
		return data, classify(resp.StatusCode, data)
	})

	logging.Debug().
		Add(logging.Provider("imagery"), logging.Str("op", op), logging.Duration(time.Since(start))).
		Msg("provider request")

	if err != nil {
		if errors.Is(err, domain.ErrProvider) || errors.Is(err, domain.ErrUnauthorized) ||
			errors.Is(err, domain.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	return data, nil
}

// classify maps a status code to an error. 4xx responses are permanent.
func classify(status int, body []byte) error {
	switch {
	case status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return resilience.Permanent(domain.ErrUnauthorized)
	case status == http.StatusNotFound:
		return resilience.Permanent(domain.ErrOrderNotFound)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: status %d", domain.ErrProvider, status)
	}
	return resilience.Permanent(fmt.Errorf("%w: status %d: %s", domain.ErrProvider, status, errorMessage(body)))
}

func errorMessage(body []byte) string {
	var raw map[string]any
	if json.Unmarshal(body, &raw) == nil {
		for _, k := range []string{"message", "error", "detail"} {
			if msg := cast.ToString(raw[k]); msg != "" {
				return msg
			}
		}
	}
	return strings.TrimSpace(string(body))
}

func decodeOrder(data []byte) (domain.Order, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Order{}, fmt.Errorf("%w: decode order: %v", domain.ErrProvider, err)
	}
	order := toOrder(raw)
	if order.ID == "" {
		return domain.Order{}, fmt.Errorf("%w: order response without id", domain.ErrProvider)
	}
	return order, nil
}

func toOrder(raw map[string]any) domain.Order {
	o := domain.Order{
		ID:        firstString(raw, "orderId", "id"),
		ArchiveID: cast.ToString(raw["archiveId"]),
		Label:     cast.ToString(raw["label"]),
		Status:    domain.ParseStatus(firstString(raw, "status", "orderStatus")),
		AreaKm2:   cast.ToFloat64(raw["area"]),
		Cost:      cast.ToFloat64(raw["orderCost"]),
		CreatedAt: cast.ToTime(raw["createdAt"]),
		UpdatedAt: cast.ToTime(raw["updatedAt"]),
	}
	if o.Cost == 0 {
		o.Cost = cast.ToFloat64(raw["cost"])
	}
	if d := cast.ToString(raw["deliveryDriver"]); d != "" {
		if driver, err := domain.ParseDriver(d); err == nil {
			params := cast.ToStringMapString(raw["deliveryParams"])
			o.Delivery = &domain.Delivery{Driver: driver, Bucket: params["bucket"], Prefix: params["prefix"]}
		}
	}
	return o
}

func toArchive(raw map[string]any) domain.Archive {
	return domain.Archive{
		ArchiveID:       cast.ToString(raw["archiveId"]),
		Provider:        cast.ToString(raw["provider"]),
		CaptureTime:     cast.ToTime(raw["captureTimestamp"]),
		CloudCoverage:   cast.ToFloat64(raw["cloudCoveragePercent"]),
		Resolution:      cast.ToFloat64(raw["resolution"]),
		OffNadir:        cast.ToFloat64(raw["offNadirAngle"]),
		Footprint:       cast.ToString(raw["footprint"]),
		Overlap:         cast.ToFloat64(raw["overlapRatio"]),
		ThumbnailURL:    cast.ToString(raw["thumbnailUrl"]),
		DeliveryFormats: cast.ToStringSlice(raw["deliveryFormats"]),
	}
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v := cast.ToString(raw[k]); v != "" {
			return v
		}
	}
	return ""
}
