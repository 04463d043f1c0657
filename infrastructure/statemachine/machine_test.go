package statemachine

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/geo-mcp/domain/imagery"
)

func TestNewOrderMachine(t *testing.T) {
	t.Parallel()

	machine, err := NewOrderMachine()
	if err != nil {
		t.Fatalf("NewOrderMachine() error = %v", err)
	}
	if machine == nil {
		t.Fatal("NewOrderMachine() returned nil machine")
	}
}

func TestEventFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status imagery.Status
		want   string
		ok     bool
	}{
		{imagery.StatusProcessing, "PROCESS", true},
		{imagery.StatusDelivered, "DELIVER", true},
		{imagery.StatusFailed, "FAIL", true},
		{imagery.StatusCancelled, "CANCEL", true},
		{imagery.StatusCreated, "", false},
		{imagery.StatusUnknown, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()

			got, ok := EventFor(tt.status)
			if string(got) != tt.want || ok != tt.ok {
				t.Errorf("EventFor(%s) = %s, %v, want %s, %v", tt.status, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLifecycle_Advance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		steps        []imagery.Status
		wantStatus   imagery.Status
		wantTerminal bool
		wantHistory  int
		wantErr      error
	}{
		{
			name:        "starts created",
			wantStatus:  imagery.StatusCreated,
			wantHistory: 0,
		},
		{
			name:         "created to processing to delivered",
			steps:        []imagery.Status{imagery.StatusProcessing, imagery.StatusDelivered},
			wantStatus:   imagery.StatusDelivered,
			wantTerminal: true,
			wantHistory:  2,
		},
		{
			name:        "repeated status is a no-op",
			steps:       []imagery.Status{imagery.StatusProcessing, imagery.StatusProcessing},
			wantStatus:  imagery.StatusProcessing,
			wantHistory: 1,
		},
		{
			name:        "unknown status keeps state",
			steps:       []imagery.Status{imagery.StatusProcessing, imagery.StatusUnknown},
			wantStatus:  imagery.StatusProcessing,
			wantHistory: 1,
		},
		{
			name:         "final states reject further moves",
			steps:        []imagery.Status{imagery.StatusFailed, imagery.StatusDelivered},
			wantStatus:   imagery.StatusFailed,
			wantTerminal: true,
			wantHistory:  1,
			wantErr:      imagery.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			machine, err := NewOrderMachine()
			if err != nil {
				t.Fatalf("NewOrderMachine() error = %v", err)
			}
			l := NewLifecycle(machine, "o-1")
			defer l.Stop()

			var lastErr error
			for _, s := range tt.steps {
				lastErr = l.Advance(s)
			}
			if !errors.Is(lastErr, tt.wantErr) {
				t.Errorf("Advance() error = %v, want %v", lastErr, tt.wantErr)
			}
			if l.Status() != tt.wantStatus {
				t.Errorf("Status() = %s, want %s", l.Status(), tt.wantStatus)
			}
			if l.Terminal() != tt.wantTerminal {
				t.Errorf("Terminal() = %v, want %v", l.Terminal(), tt.wantTerminal)
			}
			if len(l.History()) != tt.wantHistory {
				t.Errorf("History() = %v, want %d entries", l.History(), tt.wantHistory)
			}
		})
	}
}

func TestTracker(t *testing.T) {
	t.Parallel()

	tr, err := NewTracker()
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}

	if _, err := tr.Observe("o-2", imagery.StatusCreated); err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	snap, err := tr.Observe("o-1", imagery.StatusProcessing)
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	if snap.Status != imagery.StatusProcessing || snap.Terminal {
		t.Errorf("snapshot = %+v", snap)
	}

	snap, err = tr.Observe("o-1", imagery.StatusDelivered)
	if err != nil || !snap.Terminal || len(snap.History) != 2 {
		t.Errorf("snapshot = %+v, err = %v", snap, err)
	}

	if got, ok := tr.Get("o-1"); !ok || got.Status != imagery.StatusDelivered {
		t.Errorf("Get(o-1) = %+v, %v", got, ok)
	}
	if _, ok := tr.Get("missing"); ok {
		t.Error("Get(missing) should report absent")
	}

	list := tr.List()
	if tr.Len() != 2 || len(list) != 2 || list[0].OrderID != "o-1" {
		t.Errorf("List() = %+v", list)
	}
}
