package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/lendora/servicing-api/internal/models"
)

// EventFSM wraps a ledger event with its approval state machine. The only
// transition is draft → approved: approved events are immutable, so there
// is deliberately no path back.
type EventFSM struct {
	event *models.LoanEvent
	fsm   *fsm.FSM
}

// NewEventFSM creates a new event state machine
func NewEventFSM(event *models.LoanEvent) *EventFSM {
	efsm := &EventFSM{
		event: event,
	}

	efsm.fsm = fsm.NewFSM(
		string(event.Status),
		fsm.Events{
			{Name: "approve", Src: []string{string(models.EventStatusDraft)}, Dst: string(models.EventStatusApproved)},
		},
		fsm.Callbacks{},
	)

	return efsm
}

// Approve transitions the event into the ledger
func (e *EventFSM) Approve(ctx context.Context) error {
	if !e.event.MayApprove() {
		return fmt.Errorf("event cannot be approved in current state: %s", e.event.Status)
	}

	if err := e.fsm.Event(ctx, "approve"); err != nil {
		return fmt.Errorf("failed to approve event: %w", err)
	}

	e.event.Status = models.EventStatus(e.fsm.Current())
	return nil
}

// Current returns the current state
func (e *EventFSM) Current() string {
	return e.fsm.Current()
}

// Can checks if a transition is possible
func (e *EventFSM) Can(event string) bool {
	return e.fsm.Can(event)
}
