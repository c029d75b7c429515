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
	"github.com/lendora/servicing-api/internal/statemachine"
)

// RecordEventInput is the payload for recording a draft ledger event.
type RecordEventInput struct {
	EventType     models.EventType
	EffectiveDate time.Time
	Amount        *decimal.Decimal
	Rate          *decimal.Decimal
	Metadata      models.EventMetadata
}

type EventService struct {
	repo     repository.EventRepository
	loanRepo repository.LoanRepository
	auditSvc *AuditService
}

func NewEventService(repo repository.EventRepository, loanRepo repository.LoanRepository, auditSvc *AuditService) *EventService {
	return &EventService{
		repo:     repo,
		loanRepo: loanRepo,
		auditSvc: auditSvc,
	}
}

// Record writes a draft event to the ledger. Drafts never affect derived
// balances until approved.
func (s *EventService) Record(ctx context.Context, loanID uuid.UUID, in RecordEventInput, actor, ip string) (*models.LoanEvent, error) {
	if _, err := s.loanRepo.FindByID(ctx, loanID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	event := &models.LoanEvent{
		ID:            uuid.New(),
		LoanID:        loanID,
		EventType:     in.EventType,
		EffectiveDate: engine.DateOnly(in.EffectiveDate),
		Metadata:      in.Metadata,
		Status:        models.EventStatusDraft,
	}
	if in.Amount != nil {
		event.Amount = decimal.NewNullDecimal(*in.Amount)
	}
	if in.Rate != nil {
		event.Rate = decimal.NewNullDecimal(*in.Rate)
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record event: %w", err)
	}

	s.auditSvc.Log(ctx, actor, "CREATE", "LoanEvent", event.ID,
		fmt.Sprintf("Draft %s recorded effective %s", event.EventType, event.EffectiveDate.Format("2006-01-02")), ip)

	return event, nil
}

// Approve moves a draft event into the replayable ledger via its state
// machine. From here on the event is immutable.
func (s *EventService) Approve(ctx context.Context, id uuid.UUID, actor, ip string) (*models.LoanEvent, error) {
	event, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	efsm := statemachine.NewEventFSM(event)
	if err := efsm.Approve(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to approve event: %w", err)
	}

	s.auditSvc.Log(ctx, actor, "APPROVE", "LoanEvent", event.ID,
		fmt.Sprintf("%s approved effective %s", event.EventType, event.EffectiveDate.Format("2006-01-02")), ip)

	return event, nil
}

// Reverse records an approved offsetting event for an approved original.
// The ledger is append-only: the original stays untouched and the
// correction is a new fact carrying the negated amount.
func (s *EventService) Reverse(ctx context.Context, id uuid.UUID, effectiveDate time.Time, actor, ip string) (*models.LoanEvent, error) {
	original, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !original.IsApproved() {
		return nil, fmt.Errorf("%w: only approved events can be reversed", ErrInvalidState)
	}

	reversal := &models.LoanEvent{
		ID:              uuid.New(),
		LoanID:          original.LoanID,
		EventType:       original.EventType,
		EffectiveDate:   engine.DateOnly(effectiveDate),
		Metadata:        original.Metadata,
		Status:          models.EventStatusApproved,
		ReversesEventID: &original.ID,
	}
	reversal.Metadata.Note = fmt.Sprintf("reversal of event %s", original.ID)
	if original.Amount.Valid {
		reversal.Amount = decimal.NewNullDecimal(original.Amount.Decimal.Neg())
	}
	if original.Rate.Valid {
		reversal.Rate = original.Rate
	}

	if err := s.repo.Create(ctx, reversal); err != nil {
		return nil, fmt.Errorf("failed to record reversal: %w", err)
	}

	s.auditSvc.Log(ctx, actor, "REVERSE", "LoanEvent", original.ID,
		fmt.Sprintf("%s reversed by event %s", original.EventType, reversal.ID), ip)

	return reversal, nil
}

func (s *EventService) FindByLoan(ctx context.Context, loanID uuid.UUID) ([]models.LoanEvent, error) {
	return s.repo.FindByLoan(ctx, loanID)
}

func (s *EventService) findByID(ctx context.Context, id uuid.UUID) (*models.LoanEvent, error) {
	event, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return event, err
}
