package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendora/servicing-api/internal/models"
)

// EventRepository defines the interface for the append-only event ledger.
// Approved events are never deleted; corrections happen through offsetting
// events, so there is no Delete here at all.
type EventRepository interface {
	Create(ctx context.Context, event *models.LoanEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LoanEvent, error)
	FindByLoan(ctx context.Context, loanID uuid.UUID) ([]models.LoanEvent, error)
	FindApprovedByLoan(ctx context.Context, loanID uuid.UUID) ([]models.LoanEvent, error)
	EarliestApprovedDate(ctx context.Context, loanID uuid.UUID) (*time.Time, error)
	Update(ctx context.Context, event *models.LoanEvent) error
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *models.LoanEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.LoanEvent, error) {
	var event models.LoanEvent
	err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) FindByLoan(ctx context.Context, loanID uuid.UUID) ([]models.LoanEvent, error) {
	var events []models.LoanEvent
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("effective_date ASC, created_at ASC").
		Find(&events).Error
	return events, err
}

// FindApprovedByLoan returns the replayable ledger for a loan in ledger
// order: effective date first, recording order breaking ties.
func (r *eventRepository) FindApprovedByLoan(ctx context.Context, loanID uuid.UUID) ([]models.LoanEvent, error) {
	var events []models.LoanEvent
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND status = ?", loanID, models.EventStatusApproved).
		Order("effective_date ASC, created_at ASC").
		Find(&events).Error
	return events, err
}

func (r *eventRepository) EarliestApprovedDate(ctx context.Context, loanID uuid.UUID) (*time.Time, error) {
	var event models.LoanEvent
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND status = ?", loanID, models.EventStatusApproved).
		Order("effective_date ASC").
		First(&event).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event.EffectiveDate, nil
}

func (r *eventRepository) Update(ctx context.Context, event *models.LoanEvent) error {
	return r.db.WithContext(ctx).Save(event).Error
}
