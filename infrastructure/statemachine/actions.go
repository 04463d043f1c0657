package statemachine

import (
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/geo-mcp/domain/imagery"
)

// TransitionPayload carries the statuses of a transition event.
type TransitionPayload struct {
	From imagery.Status
	To   imagery.Status
}

// recordTransition appends the transition to the order history.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	payload, ok := event.Payload.(TransitionPayload)
	if !ok {
		return
	}
	c := *ctx
	c.History = append(c.History, Transition{From: payload.From, To: payload.To, At: time.Now().UTC()})
}
