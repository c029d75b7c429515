package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendora/servicing-api/internal/engine"
	"github.com/lendora/servicing-api/internal/models"
	"github.com/lendora/servicing-api/internal/repository"
	"github.com/lendora/servicing-api/internal/statemachine"
)

type PeriodService struct {
	repo      repository.PeriodRepository
	loanRepo  repository.LoanRepository
	eventRepo repository.EventRepository
	auditSvc  *AuditService
}

func NewPeriodService(repo repository.PeriodRepository, loanRepo repository.LoanRepository, eventRepo repository.EventRepository, auditSvc *AuditService) *PeriodService {
	return &PeriodService{
		repo:      repo,
		loanRepo:  loanRepo,
		eventRepo: eventRepo,
		auditSvc:  auditSvc,
	}
}

// GenerateMonthly creates billing periods ahead of time, month by month,
// from the loan start (or the day after the last existing period) through
// the given date. Already-covered months are left alone.
func (s *PeriodService) GenerateMonthly(ctx context.Context, loanID uuid.UUID, through time.Time, actor, ip string) ([]models.Period, error) {
	loan, err := s.findLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	cursor := engine.DateOnly(loan.StartDate)
	latest, err := s.repo.LatestEnd(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing periods: %w", err)
	}
	if latest != nil {
		cursor = engine.DateOnly(*latest).AddDate(0, 0, 1)
	}

	through = engine.DateOnly(through)
	var periods []models.Period
	for !cursor.After(through) {
		end := endOfMonth(cursor)
		periods = append(periods, models.Period{
			ID:          uuid.New(),
			LoanID:      loanID,
			PeriodStart: cursor,
			PeriodEnd:   end,
			Status:      models.PeriodStatusOpen,
		})
		cursor = end.AddDate(0, 0, 1)
	}

	if len(periods) == 0 {
		return nil, nil
	}
	if err := s.repo.CreateBatch(ctx, periods); err != nil {
		return nil, fmt.Errorf("failed to create periods: %w", err)
	}

	s.auditSvc.Log(ctx, actor, "CREATE", "Period", loanID,
		fmt.Sprintf("%d monthly period(s) generated through %s", len(periods), through.Format("2006-01-02")), ip)

	return periods, nil
}

func endOfMonth(d time.Time) time.Time {
	firstOfNext := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

func (s *PeriodService) FindByLoan(ctx context.Context, loanID uuid.UUID) ([]models.Period, error) {
	return s.repo.FindByLoan(ctx, loanID)
}

// Accrual computes the full accrual report for one period.
func (s *PeriodService) Accrual(ctx context.Context, periodID uuid.UUID) (*engine.PeriodAccrual, error) {
	period, err := s.findPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	loan, err := s.findLoan(ctx, period.LoanID)
	if err != nil {
		return nil, err
	}

	events, err := s.eventRepo.FindApprovedByLoan(ctx, loan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	acc := engine.ComputePeriodAccrual(engine.PeriodInputs{
		Start:             period.PeriodStart,
		End:               period.PeriodEnd,
		Events:            events,
		FeeRate:           loan.CommitmentFeeRate,
		InitialCommitment: loan.TotalCommitment,
		InterestType:      loan.InterestType,
		DayCount:          loan.DayCount,
	})
	return &acc, nil
}

// Summary aggregates every period of a loan into the portfolio view.
func (s *PeriodService) Summary(ctx context.Context, loanID uuid.UUID) (*engine.PortfolioSummary, error) {
	loan, err := s.findLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	periods, err := s.repo.FindByLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load periods: %w", err)
	}
	events, err := s.eventRepo.FindApprovedByLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	accruals := make([]engine.PeriodAccrual, 0, len(periods))
	for _, p := range periods {
		accruals = append(accruals, engine.ComputePeriodAccrual(engine.PeriodInputs{
			Start:             p.PeriodStart,
			End:               p.PeriodEnd,
			Events:            events,
			FeeRate:           loan.CommitmentFeeRate,
			InitialCommitment: loan.TotalCommitment,
			InterestType:      loan.InterestType,
			DayCount:          loan.DayCount,
		}))
	}

	summary := engine.Summarize(accruals)
	return &summary, nil
}

// Submit advances a period from open to submitted
func (s *PeriodService) Submit(ctx context.Context, id uuid.UUID, actor, ip string) (*models.Period, error) {
	return s.transition(ctx, id, actor, ip, "SUBMIT", func(ctx context.Context, fsm *statemachine.PeriodFSM) error {
		return fsm.Submit(ctx)
	})
}

// Approve advances a period from submitted to approved
func (s *PeriodService) Approve(ctx context.Context, id uuid.UUID, actor, ip string) (*models.Period, error) {
	return s.transition(ctx, id, actor, ip, "APPROVE", func(ctx context.Context, fsm *statemachine.PeriodFSM) error {
		return fsm.Approve(ctx)
	})
}

// Send advances a period from approved to sent
func (s *PeriodService) Send(ctx context.Context, id uuid.UUID, actor, ip string) (*models.Period, error) {
	return s.transition(ctx, id, actor, ip, "SEND", func(ctx context.Context, fsm *statemachine.PeriodFSM) error {
		return fsm.Send(ctx)
	})
}

// Reopen takes a submitted period back to open
func (s *PeriodService) Reopen(ctx context.Context, id uuid.UUID, actor, ip string) (*models.Period, error) {
	return s.transition(ctx, id, actor, ip, "REOPEN", func(ctx context.Context, fsm *statemachine.PeriodFSM) error {
		return fsm.Reopen(ctx)
	})
}

func (s *PeriodService) transition(ctx context.Context, id uuid.UUID, actor, ip, action string, apply func(context.Context, *statemachine.PeriodFSM) error) (*models.Period, error) {
	period, err := s.findPeriod(ctx, id)
	if err != nil {
		return nil, err
	}

	pfsm := statemachine.NewPeriodFSM(period)
	if err := apply(ctx, pfsm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if err := s.repo.Update(ctx, period); err != nil {
		return nil, fmt.Errorf("failed to update period: %w", err)
	}

	s.auditSvc.Log(ctx, actor, action, "Period", period.ID,
		fmt.Sprintf("Period %s..%s now %s",
			period.PeriodStart.Format("2006-01-02"), period.PeriodEnd.Format("2006-01-02"), period.Status), ip)

	return period, nil
}

func (s *PeriodService) findPeriod(ctx context.Context, id uuid.UUID) (*models.Period, error) {
	period, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return period, err
}

func (s *PeriodService) findLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	loan, err := s.loanRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return loan, err
}
