package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendora/servicing-api/internal/models"
)

// ErrRecordNotFound is returned when a lookup matches nothing.
var ErrRecordNotFound = gorm.ErrRecordNotFound

// LoanRepository defines the interface for loan metadata access
type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	FindActive(ctx context.Context) ([]models.Loan, error)
	List(ctx context.Context, limit, offset int) ([]models.Loan, int64, error)
	Update(ctx context.Context, loan *models.Loan) error
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(loan).Error
}

func (r *loanRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).First(&loan, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindActive(ctx context.Context) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&loans).Error
	return loans, err
}

func (r *loanRepository) List(ctx context.Context, limit, offset int) ([]models.Loan, int64, error) {
	var loans []models.Loan
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Loan{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&loans).Error
	return loans, total, err
}

func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	result := r.db.WithContext(ctx).Save(loan)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("loan not updated")
	}
	return nil
}
