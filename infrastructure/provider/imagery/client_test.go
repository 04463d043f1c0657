package imagery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	domain "github.com/felixgeelhaar/geo-mcp/domain/imagery"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/resilience"
)

func testClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL: srv.URL,
		APIKey:  "secret",
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

func requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(DefaultAPIKeyHeader) != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Error("New() without base url should fail")
	}
	c, err := New(Config{BaseURL: "https://api.example.com/"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.HasCredentials() {
		t.Error("HasCredentials() = true without key")
	}
}

func TestSearchArchives(t *testing.T) {
	t.Parallel()

	c := testClient(t, requireKey(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/archives" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["aoi"] != "POLYGON((0 0,1 0,1 1,0 1,0 0))" || body["maxCloudCoveragePercent"] != float64(20) {
			t.Errorf("request body = %v", body)
		}
		_, _ = w.Write([]byte(`{"archives":[
			{"archiveId":"a-1","provider":"SIWEI","captureTimestamp":"2024-05-01T10:00:00Z","cloudCoveragePercent":"12.5"},
			{"archiveId":"a-2","captureTimestamp":"2024-05-02T10:00:00Z","cloudCoveragePercent":3}
		]}`))
	}))

	archives, err := c.SearchArchives(context.Background(), domain.SearchRequest{
		AOI:              "POLYGON((0 0,1 0,1 1,0 1,0 0))",
		MaxCloudCoverage: 20,
		Limit:            1,
	})
	if err != nil {
		t.Fatalf("SearchArchives() error = %v", err)
	}
	if len(archives) != 1 {
		t.Fatalf("len(archives) = %d, want 1 after limit", len(archives))
	}
	if archives[0].ArchiveID != "a-1" || archives[0].CloudCoverage != 12.5 {
		t.Errorf("archive = %+v", archives[0])
	}
	if archives[0].CaptureTime.Year() != 2024 {
		t.Errorf("capture time = %v", archives[0].CaptureTime)
	}
}

func TestPlaceOrder(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		keys []string
	)
	c := testClient(t, requireKey(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		n := len(keys)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"o-42","status":"CREATED","orderCost":"125.50","deliveryDriver":"S3","deliveryParams":{"bucket":"scenes"}}`))
	}))

	order, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		ArchiveID:      "a-1",
		AOI:            "POLYGON((0 0,1 0,1 1,0 1,0 0))",
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	if order.ID != "o-42" || order.Status != domain.StatusCreated || order.Cost != 125.5 {
		t.Errorf("order = %+v", order)
	}
	if order.ArchiveID != "a-1" {
		t.Errorf("ArchiveID = %q, want request archive", order.ArchiveID)
	}
	if order.Delivery == nil || order.Delivery.Driver != domain.DriverS3 || order.Delivery.Bucket != "scenes" {
		t.Errorf("delivery = %+v", order.Delivery)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(keys) != 2 || keys[0] != "key-1" || keys[1] != "key-1" {
		t.Errorf("idempotency keys = %v, want the same key on retry", keys)
	}
}

func TestGetOrder_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "not found", status: http.StatusNotFound, wantErr: domain.ErrOrderNotFound},
		{name: "forbidden", status: http.StatusForbidden, wantErr: domain.ErrUnauthorized},
		{name: "bad request", status: http.StatusUnprocessableEntity, wantErr: domain.ErrProvider},
		{name: "server error", status: http.StatusInternalServerError, wantErr: domain.ErrProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.EscapedPath() != "/orders/o%2F1" {
					t.Errorf("path = %q", r.URL.EscapedPath())
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"nope"}`))
			}))

			_, err := c.GetOrder(context.Background(), "o/1")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("GetOrder() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestListOrders(t *testing.T) {
	t.Parallel()

	c := testClient(t, requireKey(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("pageNumber") != "2" || q.Get("pageSize") != "10" {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(`{"orders":[{"orderId":"o-1","status":"processing"},{"orderId":"o-2","status":"COMPLETED"}],"total":"12"}`))
	}))

	page, err := c.ListOrders(context.Background(), 2, 10)
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if page.TotalCount != 12 || len(page.Orders) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Orders[0].Status != domain.StatusProcessing || page.Orders[1].Status != domain.StatusDelivered {
		t.Errorf("statuses = %s, %s", page.Orders[0].Status, page.Orders[1].Status)
	}
}
