// Package imagery provides satellite archive search and ordering tools.
package imagery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/felixgeelhaar/geo-mcp/domain/imagery"
	"github.com/felixgeelhaar/geo-mcp/domain/pack"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/delivery"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/statemachine"
)

// Tool names.
const (
	SearchArchiveTool  = "imagery_search_archive"
	OrderTool          = "imagery_order"
	OrderStatusTool    = "imagery_order_status"
	ListOrdersTool     = "imagery_list_orders"
	ListDeliveriesTool = "imagery_list_deliveries"
)

// Listing defaults.
const (
	DefaultSearchLimit = 20
	DefaultPageSize    = 25
)

// Config wires the pack to its collaborators.
type Config struct {
	// Provider is the imagery ordering API. Required.
	Provider domain.Provider

	// Tracker follows order lifecycles. Required.
	Tracker *statemachine.Tracker

	// Deliveries lists delivered objects. The list tool is only added when
	// at least one lister is configured.
	Deliveries *delivery.Listers

	// NewIdempotencyKey generates order idempotency keys. Defaults to uuid.
	NewIdempotencyKey func() string
}

// New creates the imagery pack.
func New(cfg Config) (*pack.Pack, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("%w: imagery provider is required", pack.ErrInvalidPack)
	}
	if cfg.Tracker == nil {
		return nil, fmt.Errorf("%w: order tracker is required", pack.ErrInvalidPack)
	}
	if cfg.NewIdempotencyKey == nil {
		cfg.NewIdempotencyKey = uuid.NewString
	}

	b := pack.NewBuilder("imagery").
		WithDescription("Satellite imagery archive search, ordering and delivery").
		WithVersion("1.0.0").
		AddTools(
			searchArchiveTool(cfg),
			orderTool(cfg),
			orderStatusTool(cfg),
			listOrdersTool(cfg),
		)
	if cfg.Deliveries != nil && cfg.Deliveries.Len() > 0 {
		b.AddTools(listDeliveriesTool(cfg))
	}
	return b.Build(), nil
}

var bboxProp = json.RawMessage(`{"type":"array","description":"Bounding box [minLon, minLat, maxLon, maxLat]","items":{"type":"number"},"minItems":4,"maxItems":4}`)

var aoiProp = tool.StringProp("Area of interest as a WKT polygon", `"minLength":1`)

type aoiInput struct {
	AOI  string    `json:"aoi"`
	BBox []float64 `json:"bbox"`
}

// resolve returns the WKT area of interest. A bbox is converted into a
// closed polygon ring.
func (in aoiInput) resolve() (string, error) {
	if strings.TrimSpace(in.AOI) != "" {
		return in.AOI, nil
	}
	if len(in.BBox) != 4 {
		return "", errors.New("either aoi or bbox is required")
	}
	minLon, minLat, maxLon, maxLat := in.BBox[0], in.BBox[1], in.BBox[2], in.BBox[3]
	if minLon >= maxLon || minLat >= maxLat {
		return "", errors.New("bbox minimum must be less than maximum")
	}
	if minLon < -180 || maxLon > 180 || minLat < -90 || maxLat > 90 {
		return "", errors.New("bbox is outside valid coordinate ranges")
	}
	return fmt.Sprintf("POLYGON((%g %g, %g %g, %g %g, %g %g, %g %g))",
		minLon, minLat, maxLon, minLat, maxLon, maxLat, minLon, maxLat, minLon, minLat), nil
}

type searchInput struct {
	aoiInput
	FromDate         string  `json:"fromDate"`
	ToDate           string  `json:"toDate"`
	MaxCloudCoverage float64 `json:"maxCloudCoverage"`
	Limit            int     `json:"limit"`
}

func searchArchiveTool(cfg Config) tool.Entry {
	schema := tool.ObjectSchema(map[string]json.RawMessage{
		"aoi":              aoiProp,
		"bbox":             bboxProp,
		"fromDate":         tool.StringProp("Earliest capture time (RFC3339)", `"format":"date-time"`),
		"toDate":           tool.StringProp("Latest capture time (RFC3339)", `"format":"date-time"`),
		"maxCloudCoverage": tool.NumberProp("Maximum cloud coverage in percent", 0, 100),
		"limit": tool.IntegerProp("Maximum number of archives (default 20)", 1, 100,
			fmt.Sprintf(`"default":%d`, DefaultSearchLimit)),
	})

	return tool.NewBuilder(SearchArchiveTool).
		WithDescription("Search the satellite imagery archive for scenes covering an area of interest").
		WithInputSchema(schema).
		WithAnnotations(tool.LookupAnnotations()).
		RequiresCredentials().
		WithTags("imagery").
		WithHandler(tool.Typed(func(ctx context.Context, in searchInput) tool.Outcome {
			aoi, err := in.resolve()
			if err != nil {
				return tool.Failure(err.Error())
			}
			req := domain.SearchRequest{AOI: aoi, MaxCloudCoverage: in.MaxCloudCoverage, Limit: in.Limit}
			if req.Limit <= 0 {
				req.Limit = DefaultSearchLimit
			}
			if req.From, err = parseTime("fromDate", in.FromDate); err != nil {
				return tool.Failure(err.Error())
			}
			if req.To, err = parseTime("toDate", in.ToDate); err != nil {
				return tool.Failure(err.Error())
			}
			if !req.From.IsZero() && !req.To.IsZero() && req.From.After(req.To) {
				return tool.Failure("fromDate must not be after toDate")
			}

			archives, err := cfg.Provider.SearchArchives(ctx, req)
			if err != nil {
				return tool.Failure("Archive search failed: " + err.Error())
			}
			if len(archives) == 0 {
				return tool.Failure("No archives found for the requested area")
			}
			return tool.Success(map[string]any{"archives": archives, "count": len(archives)})
		})).
		MustBuild()
}

func parseTime(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be an RFC3339 timestamp", field)
	}
	return t, nil
}

type deliveryInput struct {
	Driver string `json:"driver"`
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

type orderInput struct {
	aoiInput
	ArchiveID string         `json:"archiveId"`
	Label     string         `json:"label"`
	Delivery  *deliveryInput `json:"delivery"`
}

var driverProp = tool.StringProp("Delivery bucket provider", `"enum":["S3","GS","AZURE"]`)

func orderTool(cfg Config) tool.Entry {
	deliveryProp, _ := json.Marshal(map[string]any{
		"type":        "object",
		"description": "Bucket the imagery is delivered to",
		"properties": map[string]json.RawMessage{
			"driver": driverProp,
			"bucket": tool.StringProp("Bucket or container name", `"minLength":1`),
			"prefix": tool.StringProp("Object key prefix"),
		},
		"required":             []string{"driver", "bucket"},
		"additionalProperties": false,
	})

	schema := tool.ObjectSchema(map[string]json.RawMessage{
		"archiveId": tool.StringProp("Archive to order", `"minLength":1`),
		"aoi":       aoiProp,
		"bbox":      bboxProp,
		"label":     tool.StringProp("Free-text label for the order", `"maxLength":128`),
		"delivery":  deliveryProp,
	}, "archiveId")

	return tool.NewBuilder(OrderTool).
		WithDescription("Order an archive scene clipped to an area of interest").
		WithInputSchema(schema).
		RequiresCredentials().
		WithTags("imagery", "order").
		WithHandler(tool.Typed(func(ctx context.Context, in orderInput) tool.Outcome {
			aoi, err := in.resolve()
			if err != nil {
				return tool.Failure(err.Error())
			}

			req := domain.OrderRequest{
				ArchiveID:      in.ArchiveID,
				AOI:            aoi,
				Label:          in.Label,
				IdempotencyKey: cfg.NewIdempotencyKey(),
			}
			if in.Delivery != nil {
				driver, err := domain.ParseDriver(in.Delivery.Driver)
				if err != nil {
					return tool.Failure(fmt.Sprintf("Unsupported delivery driver: %s", in.Delivery.Driver))
				}
				req.Delivery = &domain.Delivery{Driver: driver, Bucket: in.Delivery.Bucket, Prefix: in.Delivery.Prefix}
			}

			order, err := cfg.Provider.PlaceOrder(ctx, req)
			if err != nil {
				return tool.Failure("Order failed: " + err.Error())
			}

			snap, err := cfg.Tracker.Observe(order.ID, order.Status)
			fields := map[string]any{
				"order":          order,
				"idempotencyKey": req.IdempotencyKey,
				"lifecycle":      snap.Status,
			}
			if err != nil {
				fields["warning"] = err.Error()
			}
			return tool.Success(fields)
		})).
		MustBuild()
}

type orderStatusInput struct {
	OrderID string `json:"orderId"`
}

func orderStatusTool(cfg Config) tool.Entry {
	schema := tool.ObjectSchema(map[string]json.RawMessage{
		"orderId": tool.StringProp("Order identifier", `"minLength":1`),
	}, "orderId")

	return tool.NewBuilder(OrderStatusTool).
		WithDescription("Get the status of an imagery order and advance its lifecycle").
		WithInputSchema(schema).
		ReadOnly().
		RequiresCredentials().
		WithTags("imagery", "order").
		WithHandler(tool.Typed(func(ctx context.Context, in orderStatusInput) tool.Outcome {
			order, err := cfg.Provider.GetOrder(ctx, in.OrderID)
			switch {
			case errors.Is(err, domain.ErrOrderNotFound):
				return tool.Failure("Order not found: " + in.OrderID)
			case err != nil:
				return tool.Failure("Order status lookup failed: " + err.Error())
			}

			snap, err := cfg.Tracker.Observe(order.ID, order.Status)
			fields := map[string]any{
				"order":     order,
				"status":    order.Status,
				"lifecycle": snap.Status,
				"terminal":  snap.Terminal,
				"history":   snap.History,
			}
			if err != nil {
				fields["warning"] = err.Error()
			}
			return tool.Success(fields)
		})).
		MustBuild()
}

type listOrdersInput struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func listOrdersTool(cfg Config) tool.Entry {
	schema := tool.ObjectSchema(map[string]json.RawMessage{
		"page": tool.IntegerProp("Zero-based page number", 0, 100000),
		"pageSize": tool.IntegerProp("Orders per page (default 25)", 1, 100,
			fmt.Sprintf(`"default":%d`, DefaultPageSize)),
	})

	return tool.NewBuilder(ListOrdersTool).
		WithDescription("List imagery orders").
		WithInputSchema(schema).
		ReadOnly().
		RequiresCredentials().
		WithTags("imagery", "order").
		WithHandler(tool.Typed(func(ctx context.Context, in listOrdersInput) tool.Outcome {
			if in.PageSize <= 0 {
				in.PageSize = DefaultPageSize
			}
			page, err := cfg.Provider.ListOrders(ctx, in.Page, in.PageSize)
			if err != nil {
				return tool.Failure("Listing orders failed: " + err.Error())
			}
			for _, o := range page.Orders {
				_, _ = cfg.Tracker.Observe(o.ID, o.Status)
			}
			return tool.Success(map[string]any{
				"orders":     page.Orders,
				"page":       page.Page,
				"pageSize":   page.PageSize,
				"totalCount": page.TotalCount,
			})
		})).
		MustBuild()
}

type listDeliveriesInput struct {
	Driver  string `json:"driver"`
	Bucket  string `json:"bucket"`
	Prefix  string `json:"prefix"`
	MaxKeys int    `json:"maxKeys"`
}

func listDeliveriesTool(cfg Config) tool.Entry {
	schema := tool.ObjectSchema(map[string]json.RawMessage{
		"driver": driverProp,
		"bucket": tool.StringProp("Bucket or container name", `"minLength":1`),
		"prefix": tool.StringProp("Object key prefix, usually the order id"),
		"maxKeys": tool.IntegerProp("Maximum number of objects (default 100)", 1, 1000,
			fmt.Sprintf(`"default":%d`, delivery.DefaultMaxKeys)),
	}, "driver", "bucket")

	return tool.NewBuilder(ListDeliveriesTool).
		WithDescription("List imagery files delivered to a cloud storage bucket").
		WithInputSchema(schema).
		ReadOnly().
		WithTags("imagery", "delivery").
		WithHandler(tool.Typed(func(ctx context.Context, in listDeliveriesInput) tool.Outcome {
			driver, err := domain.ParseDriver(in.Driver)
			if err != nil {
				return tool.Failure(fmt.Sprintf("Unsupported delivery driver: %s", in.Driver))
			}
			lister, err := cfg.Deliveries.Get(driver)
			if err != nil {
				return tool.Failure(fmt.Sprintf("No delivery lister configured for %s", driver))
			}

			objects, err := lister.List(ctx, domain.ListRequest{Bucket: in.Bucket, Prefix: in.Prefix, MaxKeys: in.MaxKeys})
			if err != nil {
				return tool.Failure("Listing deliveries failed: " + err.Error())
			}
			return tool.Success(map[string]any{
				"driver":  driver,
				"bucket":  in.Bucket,
				"objects": objects,
				"count":   len(objects),
			})
		})).
		MustBuild()
}
