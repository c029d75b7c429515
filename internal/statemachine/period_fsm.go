package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/lendora/servicing-api/internal/models"
)

// PeriodFSM wraps a billing period with its lifecycle state machine.
type PeriodFSM struct {
	period *models.Period
	fsm    *fsm.FSM
}

// NewPeriodFSM creates a new period state machine
func NewPeriodFSM(period *models.Period) *PeriodFSM {
	pfsm := &PeriodFSM{
		period: period,
	}

	pfsm.fsm = fsm.NewFSM(
		string(period.Status),
		fsm.Events{
			// open → submitted
			{Name: "submit", Src: []string{string(models.PeriodStatusOpen)}, Dst: string(models.PeriodStatusSubmitted)},

			// submitted → approved
			{Name: "approve", Src: []string{string(models.PeriodStatusSubmitted)}, Dst: string(models.PeriodStatusApproved)},

			// approved → sent
			{Name: "send", Src: []string{string(models.PeriodStatusApproved)}, Dst: string(models.PeriodStatusSent)},

			// submitted → open (corrections before approval)
			{Name: "reopen", Src: []string{string(models.PeriodStatusSubmitted)}, Dst: string(models.PeriodStatusOpen)},
		},
		fsm.Callbacks{},
	)

	return pfsm
}

// Submit transitions the period to submitted
func (p *PeriodFSM) Submit(ctx context.Context) error {
	if !p.period.MaySubmit() {
		return fmt.Errorf("period cannot be submitted in current state: %s", p.period.Status)
	}

	if err := p.fsm.Event(ctx, "submit"); err != nil {
		return fmt.Errorf("failed to submit period: %w", err)
	}

	p.period.Status = models.PeriodStatus(p.fsm.Current())
	return nil
}

// Approve transitions the period to approved
func (p *PeriodFSM) Approve(ctx context.Context) error {
	if !p.period.MayApprove() {
		return fmt.Errorf("period cannot be approved in current state: %s", p.period.Status)
	}

	if err := p.fsm.Event(ctx, "approve"); err != nil {
		return fmt.Errorf("failed to approve period: %w", err)
	}

	p.period.Status = models.PeriodStatus(p.fsm.Current())
	return nil
}

// Send transitions the period to sent
func (p *PeriodFSM) Send(ctx context.Context) error {
	if !p.period.MaySend() {
		return fmt.Errorf("period cannot be sent in current state: %s", p.period.Status)
	}

	if err := p.fsm.Event(ctx, "send"); err != nil {
		return fmt.Errorf("failed to send period: %w", err)
	}

	p.period.Status = models.PeriodStatus(p.fsm.Current())
	return nil
}

// Reopen transitions a submitted period back to open
func (p *PeriodFSM) Reopen(ctx context.Context) error {
	if !p.period.MayReopen() {
		return fmt.Errorf("period cannot be reopened in current state: %s", p.period.Status)
	}

	if err := p.fsm.Event(ctx, "reopen"); err != nil {
		return fmt.Errorf("failed to reopen period: %w", err)
	}

	p.period.Status = models.PeriodStatus(p.fsm.Current())
	return nil
}

// Current returns the current state
func (p *PeriodFSM) Current() string {
	return p.fsm.Current()
}

// Can checks if a transition is possible
func (p *PeriodFSM) Can(event string) bool {
	return p.fsm.Can(event)
}
