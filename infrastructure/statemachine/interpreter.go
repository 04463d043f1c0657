package statemachine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/geo-mcp/domain/imagery"
)

// Lifecycle is a running statechart for one order.
type Lifecycle struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewLifecycle starts an interpreter in the created state.
func NewLifecycle(machine *statekit.MachineConfig[*Context], orderID string) *Lifecycle {
	ctx := &Context{OrderID: orderID}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	interp.Start()
	return &Lifecycle{interp: interp, ctx: ctx}
}

// Status returns the current lifecycle status.
func (l *Lifecycle) Status() imagery.Status {
	return imagery.Status(l.interp.State().Value)
}

// Terminal reports whether the order reached a final state.
func (l *Lifecycle) Terminal() bool {
	return l.interp.Done()
}

// History returns a copy of the recorded transitions.
func (l *Lifecycle) History() []Transition {
	return append([]Transition(nil), l.ctx.History...)
}

// Advance moves the lifecycle to status. Reaching the current status again
// and unknown or created statuses are no-ops; moves the chart does not allow
// return ErrInvalidTransition.
func (l *Lifecycle) Advance(status imagery.Status) error {
	from := l.Status()
	if status == from {
		return nil
	}
	event, ok := EventFor(status)
	if !ok {
		return nil
	}

	l.interp.Send(statekit.Event{
		Type:    event,
		Payload: TransitionPayload{From: from, To: status},
	})

	if !l.interp.Matches(statekit.StateID(status)) {
		return fmt.Errorf("%w: %s -> %s", imagery.ErrInvalidTransition, from, status)
	}
	return nil
}

// Stop stops the interpreter.
func (l *Lifecycle) Stop() {
	l.interp.Stop()
}
