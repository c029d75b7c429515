package services

import (
	"gorm.io/gorm"

	"github.com/lendora/servicing-api/internal/config"
	"github.com/lendora/servicing-api/internal/jobs"
	"github.com/lendora/servicing-api/internal/models"
	"github.com/lendora/servicing-api/internal/repository"
)

// Services holds all service instances
type Services struct {
	Loan    *LoanService
	Event   *EventService
	Period  *PeriodService
	Accrual *AccrualService
	Export  *ExportService
	Audit   *AuditService
	Job     *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, cfg *config.Config, db *gorm.DB) *Services {
	auditSvc := NewAuditService(db)

	loanSvc := NewLoanService(repos.Loan, repos.Event, auditSvc, models.DayCount(cfg.DayCountDefault))
	periodSvc := NewPeriodService(repos.Period, repos.Loan, repos.Event, auditSvc)
	accrualSvc := NewAccrualService(repos.Loan, repos.Event, repos.Accrual,
		cfg.AccrualConcurrency, cfg.AccrualChunkSize, cfg.AccrualErrorCap)

	return &Services{
		Loan:    loanSvc,
		Event:   NewEventService(repos.Event, repos.Loan, auditSvc),
		Period:  periodSvc,
		Accrual: accrualSvc,
		Export:  NewExportService(periodSvc, accrualSvc, loanSvc),
		Audit:   auditSvc,
		Job:     NewJobService(worker, accrualSvc),
	}
}
