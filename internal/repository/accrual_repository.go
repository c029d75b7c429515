package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lendora/servicing-api/internal/models"
)

// DateKeyLayout formats entry dates for the idempotency set.
const DateKeyLayout = "2006-01-02"

// AccrualRepository defines the interface for accrual entries and batch
// job runs. Entries are insert-only: the (loan, date) unique index plus
// the ExistingDates pre-check keep reruns from ever overwriting a day.
type AccrualRepository interface {
	ExistingDates(ctx context.Context, loanID uuid.UUID) (map[string]struct{}, error)
	InsertBatch(ctx context.Context, entries []models.AccrualEntry, chunkSize int) error
	ListByLoan(ctx context.Context, loanID uuid.UUID, from, to time.Time) ([]models.AccrualEntry, error)

	CreateRun(ctx context.Context, run *models.AccrualJobRun) error
	UpdateRun(ctx context.Context, run *models.AccrualJobRun) error
	FindRunByID(ctx context.Context, id uuid.UUID) (*models.AccrualJobRun, error)
	ListRuns(ctx context.Context, limit int) ([]models.AccrualJobRun, error)
}

type accrualRepository struct {
	db *gorm.DB
}

// NewAccrualRepository creates a new accrual repository
func NewAccrualRepository(db *gorm.DB) AccrualRepository {
	return &accrualRepository{db: db}
}

func (r *accrualRepository) ExistingDates(ctx context.Context, loanID uuid.UUID) (map[string]struct{}, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.AccrualEntry{}).
		Where("loan_id = ?", loanID).
		Pluck("entry_date", &dates).Error
	if err != nil {
		return nil, err
	}

	existing := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		existing[d.UTC().Format(DateKeyLayout)] = struct{}{}
	}
	return existing, nil
}

// InsertBatch writes entries in bounded chunks to respect insert-size
// limits. A chunk failure aborts the whole call.
func (r *accrualRepository) InsertBatch(ctx context.Context, entries []models.AccrualEntry, chunkSize int) error {
	if len(entries) == 0 {
		return nil
	}
	if chunkSize < 1 {
		chunkSize = 1
	}
	return r.db.WithContext(ctx).CreateInBatches(&entries, chunkSize).Error
}

func (r *accrualRepository) ListByLoan(ctx context.Context, loanID uuid.UUID, from, to time.Time) ([]models.AccrualEntry, error) {
	var entries []models.AccrualEntry
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND entry_date >= ? AND entry_date <= ?", loanID, from, to).
		Order("entry_date ASC").
		Find(&entries).Error
	return entries, err
}

func (r *accrualRepository) CreateRun(ctx context.Context, run *models.AccrualJobRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *accrualRepository) UpdateRun(ctx context.Context, run *models.AccrualJobRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *accrualRepository) FindRunByID(ctx context.Context, id uuid.UUID) (*models.AccrualJobRun, error) {
	var run models.AccrualJobRun
	err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *accrualRepository) ListRuns(ctx context.Context, limit int) ([]models.AccrualJobRun, error) {
	var runs []models.AccrualJobRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
