// Package imagery defines satellite archive search, ordering and delivery
// types together with the ports the imagery tools depend on.
package imagery

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrOrderNotFound is returned when the provider does not know an order.
	ErrOrderNotFound = errors.New("order not found")

	// ErrUnauthorized is returned when the provider rejects the API key.
	ErrUnauthorized = errors.New("imagery provider rejected credentials")

	// ErrProvider wraps other provider failures.
	ErrProvider = errors.New("imagery provider error")

	// ErrUnsupportedDriver is returned for a delivery driver with no lister.
	ErrUnsupportedDriver = errors.New("unsupported delivery driver")

	// ErrInvalidTransition is returned when an order cannot move to a status.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Archive is a captured scene available for purchase.
type Archive struct {
	ArchiveID       string    `json:"archiveId"`
	Provider        string    `json:"provider,omitempty"`
	CaptureTime     time.Time `json:"captureTimestamp"`
	CloudCoverage   float64   `json:"cloudCoveragePercent"`
	Resolution      float64   `json:"resolutionMeters,omitempty"`
	OffNadir        float64   `json:"offNadirAngle,omitempty"`
	Footprint       string    `json:"footprint,omitempty"`
	Overlap         float64   `json:"overlapPercent,omitempty"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty"`
	DeliveryFormats []string  `json:"deliveryFormats,omitempty"`
}

// SearchRequest selects archives intersecting an area of interest.
type SearchRequest struct {
	AOI              string
	From             time.Time
	To               time.Time
	MaxCloudCoverage float64
	Limit            int
}

// Driver identifies a delivery bucket provider.
type Driver string

// Supported delivery drivers.
const (
	DriverS3    Driver = "S3"
	DriverGCS   Driver = "GS"
	DriverAzure Driver = "AZURE"
)

// ParseDriver normalizes a driver name.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "S3", "AWS":
		return DriverS3, nil
	case "GS", "GCS", "GOOGLE":
		return DriverGCS, nil
	case "AZURE", "AZ":
		return DriverAzure, nil
	}
	return "", ErrUnsupportedDriver
}

// Delivery names where ordered imagery is written.
type Delivery struct {
	Driver Driver `json:"driver"`
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix,omitempty"`
}

// OrderRequest purchases an archive clipped to an area of interest.
type OrderRequest struct {
	ArchiveID      string
	AOI            string
	Label          string
	Delivery       *Delivery
	IdempotencyKey string
}

// Order is a placed imagery order.
type Order struct {
	ID        string    `json:"orderId"`
	ArchiveID string    `json:"archiveId,omitempty"`
	Label     string    `json:"label,omitempty"`
	Status    Status    `json:"status"`
	AreaKm2   float64   `json:"areaKm2,omitempty"`
	Cost      float64   `json:"cost,omitempty"`
	Delivery  *Delivery `json:"delivery,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// OrderPage is one page of the order listing.
type OrderPage struct {
	Orders     []Order `json:"orders"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalCount int     `json:"totalCount"`
}

// Provider is the imagery ordering API.
type Provider interface {
	SearchArchives(ctx context.Context, req SearchRequest) ([]Archive, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (Order, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrders(ctx context.Context, page, pageSize int) (OrderPage, error)
}

// DeliveredObject is a file written to a delivery bucket.
type DeliveredObject struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ETag         string    `json:"etag,omitempty"`
}

// ListRequest selects delivered objects.
type ListRequest struct {
	Bucket  string
	Prefix  string
	MaxKeys int
}

// DeliveryLister lists delivered objects in a bucket.
type DeliveryLister interface {
	Driver() Driver
	List(ctx context.Context, req ListRequest) ([]DeliveredObject, error)
}
