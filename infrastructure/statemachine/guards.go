package statemachine

import "github.com/felixgeelhaar/statekit"

// guardHasOrder rejects transitions on a context with no order attached.
func guardHasOrder(ctx *Context, _ statekit.Event) bool {
	return ctx != nil && ctx.OrderID != ""
}
