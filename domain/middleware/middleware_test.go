package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/geo-mcp/domain/middleware"
	"github.com/felixgeelhaar/geo-mcp/domain/tool"
)

func record(order *[]string, name string) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, ec *middleware.ExecutionContext) (tool.Response, error) {
			*order = append(*order, "before-"+name)
			resp, err := next(ctx, ec)
			*order = append(*order, "after-"+name)
			return resp, err
		}
	}
}

func final(order *[]string) middleware.Handler {
	return func(context.Context, *middleware.ExecutionContext) (tool.Response, error) {
		*order = append(*order, "handler")
		return tool.TextResponse("ok"), nil
	}
}

func TestChain(t *testing.T) {
	t.Parallel()

	var order []string
	h := middleware.Chain(record(&order, "1"), record(&order, "2"), record(&order, "3"))(final(&order))

	resp, err := h(context.Background(), &middleware.ExecutionContext{})
	if err != nil || resp.Text() != "ok" {
		t.Fatalf("handler = %q, %v", resp.Text(), err)
	}

	want := []string{"before-1", "before-2", "before-3", "handler", "after-3", "after-2", "after-1"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestChain_ShortCircuit(t *testing.T) {
	t.Parallel()

	errBlocked := errors.New("blocked")
	block := func(middleware.Handler) middleware.Handler {
		return func(context.Context, *middleware.ExecutionContext) (tool.Response, error) {
			return tool.Response{}, errBlocked
		}
	}

	var order []string
	h := middleware.Chain(block)(final(&order))
	if _, err := h(context.Background(), &middleware.ExecutionContext{}); !errors.Is(err, errBlocked) {
		t.Errorf("error = %v, want errBlocked", err)
	}
	if len(order) != 0 {
		t.Errorf("handler should not run, order = %v", order)
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := middleware.NewRegistry()
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}

	var order []string
	h := r.Chain()(final(&order))
	if _, err := h(context.Background(), &middleware.ExecutionContext{}); err != nil {
		t.Fatalf("noop chain error = %v", err)
	}

	r.Use(record(&order, "a"), nil, record(&order, "b"))
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (nil skipped)", r.Len())
	}

	order = nil
	h = r.Chain()(final(&order))
	if _, err := h(context.Background(), &middleware.ExecutionContext{}); err != nil {
		t.Fatalf("chain error = %v", err)
	}
	if len(order) != 5 || order[0] != "before-a" || order[1] != "before-b" {
		t.Errorf("order = %v", order)
	}
}
