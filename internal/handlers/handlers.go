package handlers

import (
	"github.com/lendora/servicing-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health  *HealthHandler
	Loan    *LoanHandler
	Event   *EventHandler
	Period  *PeriodHandler
	Accrual *AccrualHandler
	Audit   *AuditHandler
	Job     *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(),
		Loan:    NewLoanHandler(svcs.Loan),
		Event:   NewEventHandler(svcs.Event),
		Period:  NewPeriodHandler(svcs.Period, svcs.Export),
		Accrual: NewAccrualHandler(svcs.Accrual, svcs.Export),
		Audit:   NewAuditHandler(svcs.Audit),
		Job:     NewJobHandler(svcs.Job),
	}
}
