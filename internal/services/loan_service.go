package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lendora/servicing-api/internal/engine"
	"github.com/lendora/servicing-api/internal/models"
	"github.com/lendora/servicing-api/internal/repository"
)

// CreateLoanInput carries everything needed to onboard a facility with
// its founding events.
type CreateLoanInput struct {
	Name              string
	BorrowerRef       string
	StartDate         time.Time
	TotalCommitment   decimal.Decimal
	CommitmentFeeRate decimal.Decimal
	InterestRate      decimal.Decimal
	InterestType      models.InterestType
	DayCount          models.DayCount
	InitialDraw       decimal.Decimal
}

type LoanService struct {
	repo      repository.LoanRepository
	eventRepo repository.EventRepository
	auditSvc  *AuditService
	dayCount  models.DayCount // default convention for loans that don't set one
}

func NewLoanService(repo repository.LoanRepository, eventRepo repository.EventRepository, auditSvc *AuditService, defaultDayCount models.DayCount) *LoanService {
	return &LoanService{
		repo:      repo,
		eventRepo: eventRepo,
		auditSvc:  auditSvc,
		dayCount:  defaultDayCount,
	}
}

// Create onboards a loan and records its founding events (commitment,
// rate, PIK flag, optional initial draw) as approved ledger facts.
func (s *LoanService) Create(ctx context.Context, in CreateLoanInput, actor, ip string) (*models.Loan, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.TotalCommitment.IsNegative() {
		return nil, fmt.Errorf("%w: total commitment cannot be negative", ErrInvalidInput)
	}

	if in.InterestType == "" {
		in.InterestType = models.InterestTypeCashPay
	}
	if !in.DayCount.Valid() {
		in.DayCount = s.dayCount
	}

	loan := &models.Loan{
		ID:                uuid.New(),
		Name:              in.Name,
		BorrowerRef:       in.BorrowerRef,
		StartDate:         engine.DateOnly(in.StartDate),
		TotalCommitment:   in.TotalCommitment,
		CommitmentFeeRate: in.CommitmentFeeRate,
		InterestType:      in.InterestType,
		DayCount:          in.DayCount,
		Active:            true,
	}
	if err := s.repo.Create(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}

	for _, event := range s.foundingEvents(loan, in) {
		if err := s.eventRepo.Create(ctx, &event); err != nil {
			return nil, fmt.Errorf("failed to record founding event %s: %w", event.EventType, err)
		}
	}

	s.auditSvc.Log(ctx, actor, "CREATE", "Loan", loan.ID,
		fmt.Sprintf("Loan %q onboarded with commitment %s", loan.Name, loan.TotalCommitment.StringFixed(2)), ip)

	return loan, nil
}

// foundingEvents builds the initial ledger for a new facility. They are
// recorded pre-approved: onboarding is the approval.
func (s *LoanService) foundingEvents(loan *models.Loan, in CreateLoanInput) []models.LoanEvent {
	startDate := loan.StartDate
	events := []models.LoanEvent{
		{
			ID:            uuid.New(),
			LoanID:        loan.ID,
			EventType:     models.EventCommitmentSet,
			EffectiveDate: startDate,
			Amount:        decimal.NewNullDecimal(in.TotalCommitment),
			Status:        models.EventStatusApproved,
		},
		{
			ID:            uuid.New(),
			LoanID:        loan.ID,
			EventType:     models.EventInterestRateSet,
			EffectiveDate: startDate,
			Rate:          decimal.NewNullDecimal(in.InterestRate),
			Status:        models.EventStatusApproved,
		},
	}

	if in.InterestType == models.InterestTypePIK {
		events = append(events, models.LoanEvent{
			ID:            uuid.New(),
			LoanID:        loan.ID,
			EventType:     models.EventPIKFlagSet,
			EffectiveDate: startDate,
			Metadata:      models.EventMetadata{InterestType: models.InterestTypePIK},
			Status:        models.EventStatusApproved,
		})
	}

	if in.InitialDraw.IsPositive() {
		events = append(events, models.LoanEvent{
			ID:            uuid.New(),
			LoanID:        loan.ID,
			EventType:     models.EventPrincipalDraw,
			EffectiveDate: startDate,
			Amount:        decimal.NewNullDecimal(in.InitialDraw),
			Status:        models.EventStatusApproved,
		})
	}

	return events
}

func (s *LoanService) FindByID(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	loan, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return loan, err
}

func (s *LoanService) List(ctx context.Context, limit, offset int) ([]models.Loan, int64, error) {
	return s.repo.List(ctx, limit, offset)
}

// StateAt replays the loan's approved ledger into its state as of a date.
func (s *LoanService) StateAt(ctx context.Context, loanID uuid.UUID, asOf time.Time) (*engine.LoanState, error) {
	loan, err := s.FindByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	events, err := s.eventRepo.FindApprovedByLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	state := engine.StateAt(events, asOf, engine.ReplayOptions{
		InitialCommitment:   loan.TotalCommitment,
		DefaultInterestType: loan.InterestType,
	})
	return &state, nil
}

// Deactivate removes a loan from daily batch processing without touching
// its ledger.
func (s *LoanService) Deactivate(ctx context.Context, id uuid.UUID, actor, ip string) error {
	loan, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	loan.Active = false
	if err := s.repo.Update(ctx, loan); err != nil {
		return fmt.Errorf("failed to deactivate loan: %w", err)
	}

	s.auditSvc.Log(ctx, actor, "DEACTIVATE", "Loan", loan.ID, "Loan removed from daily accrual processing", ip)
	return nil
}
