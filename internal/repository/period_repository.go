package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendora/servicing-api/internal/models"
)

// PeriodRepository defines the interface for billing period access
type PeriodRepository interface {
	CreateBatch(ctx context.Context, periods []models.Period) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Period, error)
	FindByLoan(ctx context.Context, loanID uuid.UUID) ([]models.Period, error)
	FindContaining(ctx context.Context, loanID uuid.UUID, date time.Time) (*models.Period, error)
	LatestEnd(ctx context.Context, loanID uuid.UUID) (*time.Time, error)
	Update(ctx context.Context, period *models.Period) error
}

type periodRepository struct {
	db *gorm.DB
}

// NewPeriodRepository creates a new period repository
func NewPeriodRepository(db *gorm.DB) PeriodRepository {
	return &periodRepository{db: db}
}

func (r *periodRepository) CreateBatch(ctx context.Context, periods []models.Period) error {
	if len(periods) == 0 {
		return nil
	}
	for i := range periods {
		if periods[i].ID == uuid.Nil {
			periods[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&periods).Error
}

func (r *periodRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Period, error) {
	var period models.Period
	err := r.db.WithContext(ctx).First(&period, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *periodRepository) FindByLoan(ctx context.Context, loanID uuid.UUID) ([]models.Period, error) {
	var periods []models.Period
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("period_start ASC").
		Find(&periods).Error
	return periods, err
}

// FindContaining returns the period covering the given date, or nil when
// no period matches. An unmatched date is not an error for callers.
func (r *periodRepository) FindContaining(ctx context.Context, loanID uuid.UUID, date time.Time) (*models.Period, error) {
	var period models.Period
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND period_start <= ? AND period_end >= ?", loanID, date, date).
		First(&period).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *periodRepository) LatestEnd(ctx context.Context, loanID uuid.UUID) (*time.Time, error) {
	var period models.Period
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("period_end DESC").
		First(&period).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &period.PeriodEnd, nil
}

func (r *periodRepository) Update(ctx context.Context, period *models.Period) error {
	return r.db.WithContext(ctx).Save(period).Error
}
