// Package statemachine tracks the imagery order lifecycle with a statekit
// statechart.
package statemachine

import (
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/geo-mcp/domain/imagery"
)

// Transition is one recorded lifecycle step.
type Transition struct {
	From imagery.Status `json:"from"`
	To   imagery.Status `json:"to"`
	At   time.Time      `json:"at"`
}

// Context carries one order through the machine.
type Context struct {
	OrderID string
	History []Transition
}

// Event types.
const (
	EventProcess statekit.EventType = "PROCESS"
	EventDeliver statekit.EventType = "DELIVER"
	EventFail    statekit.EventType = "FAIL"
	EventCancel  statekit.EventType = "CANCEL"
)

const (
	stateCreated    = statekit.StateID(imagery.StatusCreated)
	stateProcessing = statekit.StateID(imagery.StatusProcessing)
	stateDelivered  = statekit.StateID(imagery.StatusDelivered)
	stateFailed     = statekit.StateID(imagery.StatusFailed)
	stateCancelled  = statekit.StateID(imagery.StatusCancelled)
)

// NewOrderMachine creates the order lifecycle statechart:
//
//	created -> processing -> delivered
//	created|processing -> failed | cancelled
//	created -> delivered
func NewOrderMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("order").
		WithInitial(stateCreated).
		WithContext(&Context{}).
		WithAction("recordTransition", recordTransition).
		WithGuard("hasOrder", guardHasOrder).
		State(stateCreated).
			On(EventProcess).Target(stateProcessing).Guard("hasOrder").Do("recordTransition").
			On(EventDeliver).Target(stateDelivered).Guard("hasOrder").Do("recordTransition").
			On(EventFail).Target(stateFailed).Guard("hasOrder").Do("recordTransition").
			On(EventCancel).Target(stateCancelled).Guard("hasOrder").Do("recordTransition").
			Done().
		State(stateProcessing).
			On(EventDeliver).Target(stateDelivered).Guard("hasOrder").Do("recordTransition").
			On(EventFail).Target(stateFailed).Guard("hasOrder").Do("recordTransition").
			On(EventCancel).Target(stateCancelled).Guard("hasOrder").Do("recordTransition").
			Done().
		State(stateDelivered).
			Final().
			Done().
		State(stateFailed).
			Final().
			Done().
		State(stateCancelled).
			Final().
			Done().
		Build()
}

// EventFor returns the event moving an order into status.
func EventFor(status imagery.Status) (statekit.EventType, bool) {
	switch status {
	case imagery.StatusProcessing:
		return EventProcess, true
	case imagery.StatusDelivered:
		return EventDeliver, true
	case imagery.StatusFailed:
		return EventFail, true
	case imagery.StatusCancelled:
		return EventCancel, true
	}
	return "", false
}
