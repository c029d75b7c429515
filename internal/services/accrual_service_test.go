package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendora/servicing-api/internal/models"
	"github.com/lendora/servicing-api/internal/repository"
)

// Mock LoanRepository
type mockLoanRepository struct {
	repository.LoanRepository
	mockFindActive func(ctx context.Context) ([]models.Loan, error)
	mockFindByID   func(ctx context.Context, id uuid.UUID) (*models.Loan, error)
}

func (m *mockLoanRepository) FindActive(ctx context.Context) ([]models.Loan, error) {
	if m.mockFindActive != nil {
		return m.mockFindActive(ctx)
	}
	return nil, nil
}

func (m *mockLoanRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, nil
}

// Mock EventRepository
type mockEventRepository struct {
	repository.EventRepository
	mockFindApprovedByLoan   func(ctx context.Context, loanID uuid.UUID) ([]models.LoanEvent, error)
	mockEarliestApprovedDate func(ctx context.Context, loanID uuid.UUID) (*time.Time, error)
}

func (m *mockEventRepository) FindApprovedByLoan(ctx context.Context, loanID uuid.UUID) ([]models.LoanEvent, error) {
	if m.mockFindApprovedByLoan != nil {
		return m.mockFindApprovedByLoan(ctx, loanID)
	}
	return nil, nil
}

func (m *mockEventRepository) EarliestApprovedDate(ctx context.Context, loanID uuid.UUID) (*time.Time, error) {
	if m.mockEarliestApprovedDate != nil {
		return m.mockEarliestApprovedDate(ctx, loanID)
	}
	return nil, nil
}

// Mock AccrualRepository backed by in-memory maps. Loan workers run
// concurrently, so every method takes the mutex.
type mockAccrualRepository struct {
	repository.AccrualRepository

	mu       sync.Mutex
	existing map[uuid.UUID]map[string]struct{}
	inserted []models.AccrualEntry
	lastRun  *models.AccrualJobRun
}

func newMockAccrualRepository() *mockAccrualRepository {
	return &mockAccrualRepository{existing: make(map[uuid.UUID]map[string]struct{})}
}

func (m *mockAccrualRepository) ExistingDates(ctx context.Context, loanID uuid.UUID) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]struct{}, len(m.existing[loanID]))
	for k := range m.existing[loanID] {
		out[k] = struct{}{}
	}
	return out, nil
}

func (m *mockAccrualRepository) InsertBatch(ctx context.Context, entries []models.AccrualEntry, chunkSize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		key := e.EntryDate.UTC().Format(repository.DateKeyLayout)
		if m.existing[e.LoanID] == nil {
			m.existing[e.LoanID] = make(map[string]struct{})
		}
		m.existing[e.LoanID][key] = struct{}{}
	}
	m.inserted = append(m.inserted, entries...)
	return nil
}

func (m *mockAccrualRepository) CreateRun(ctx context.Context, run *models.AccrualJobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRun = run
	return nil
}

func (m *mockAccrualRepository) UpdateRun(ctx context.Context, run *models.AccrualJobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRun = run
	return nil
}

func (m *mockAccrualRepository) insertedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inserted)
}

var accrualTestBase = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func accrualDay(n int) time.Time { return accrualTestBase.AddDate(0, 0, n) }

func revolverLoan() models.Loan {
	return models.Loan{
		ID:                uuid.New(),
		Name:              "Facility A",
		StartDate:         accrualDay(0),
		TotalCommitment:   decimal.NewFromInt(1_000_000),
		CommitmentFeeRate: decimal.NewFromFloat(0.012),
		InterestType:      models.InterestTypeCashPay,
		DayCount:          models.DayCountACT360,
		Active:            true,
	}
}

func revolverLoanEvents(loanID uuid.UUID) []models.LoanEvent {
	return []models.LoanEvent{
		{
			ID: uuid.New(), LoanID: loanID,
			EventType:     models.EventCommitmentSet,
			EffectiveDate: accrualDay(0),
			Amount:        decimal.NewNullDecimal(decimal.NewFromInt(1_000_000)),
			Status:        models.EventStatusApproved,
		},
		{
			ID: uuid.New(), LoanID: loanID,
			EventType:     models.EventInterestRateSet,
			EffectiveDate: accrualDay(0),
			Rate:          decimal.NewNullDecimal(decimal.NewFromFloat(0.09)),
			Status:        models.EventStatusApproved,
		},
		{
			ID: uuid.New(), LoanID: loanID,
			EventType:     models.EventPrincipalDraw,
			EffectiveDate: accrualDay(0),
			Amount:        decimal.NewNullDecimal(decimal.NewFromInt(400_000)),
			Status:        models.EventStatusApproved,
		},
	}
}

func newTestAccrualService(loans []models.Loan, events map[uuid.UUID][]models.LoanEvent, accrualRepo *mockAccrualRepository, errorCap int) *AccrualService {
	loanRepo := &mockLoanRepository{
		mockFindActive: func(ctx context.Context) ([]models.Loan, error) { return loans, nil },
	}
	eventRepo := &mockEventRepository{
		mockFindApprovedByLoan: func(ctx context.Context, loanID uuid.UUID) ([]models.LoanEvent, error) {
			return events[loanID], nil
		},
		mockEarliestApprovedDate: func(ctx context.Context, loanID uuid.UUID) (*time.Time, error) {
			evs := events[loanID]
			if len(evs) == 0 {
				return nil, nil
			}
			earliest := evs[0].EffectiveDate
			for _, e := range evs[1:] {
				if e.EffectiveDate.Before(earliest) {
					earliest = e.EffectiveDate
				}
			}
			return &earliest, nil
		},
	}
	return NewAccrualService(loanRepo, eventRepo, accrualRepo, 4, 100, errorCap)
}

func TestRunForDateWritesOneEntryPerLoan(t *testing.T) {
	loan := revolverLoan()
	accrualRepo := newMockAccrualRepository()
	svc := newTestAccrualService(
		[]models.Loan{loan},
		map[uuid.UUID][]models.LoanEvent{loan.ID: revolverLoanEvents(loan.ID)},
		accrualRepo, 20)

	run, err := svc.RunForDate(context.Background(), accrualDay(10))
	require.NoError(t, err)

	assert.Equal(t, models.JobRunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.ProcessedCount)
	assert.Equal(t, 0, run.SkippedCount)
	assert.Equal(t, 0, run.ErrorCount)
	require.NotNil(t, run.FinishedAt)

	require.Len(t, accrualRepo.inserted, 1)
	entry := accrualRepo.inserted[0]
	assert.Equal(t, loan.ID, entry.LoanID)
	assert.True(t, entry.EntryDate.Equal(accrualDay(10)))
	assert.Equal(t, "400000", entry.Principal.String())
	assert.Equal(t, "600000", entry.Undrawn.String())
	// 400000 * 0.09 / 360
	assert.Equal(t, "100", entry.DailyInterest.String())
	// 600000 * 0.012 / 360
	assert.Equal(t, "20", entry.DailyFee.String())
}

func TestRunForDateSecondRunSkips(t *testing.T) {
	loan := revolverLoan()
	accrualRepo := newMockAccrualRepository()
	svc := newTestAccrualService(
		[]models.Loan{loan},
		map[uuid.UUID][]models.LoanEvent{loan.ID: revolverLoanEvents(loan.ID)},
		accrualRepo, 20)

	first, err := svc.RunForDate(context.Background(), accrualDay(5))
	require.NoError(t, err)
	assert.Equal(t, 1, first.ProcessedCount)

	second, err := svc.RunForDate(context.Background(), accrualDay(5))
	require.NoError(t, err)
	assert.Equal(t, 0, second.ProcessedCount)
	assert.Equal(t, 1, second.SkippedCount)
	assert.Equal(t, 1, accrualRepo.insertedCount())
}

func TestRunForRangeCoversInclusiveDays(t *testing.T) {
	loan := revolverLoan()
	accrualRepo := newMockAccrualRepository()
	svc := newTestAccrualService(
		[]models.Loan{loan},
		map[uuid.UUID][]models.LoanEvent{loan.ID: revolverLoanEvents(loan.ID)},
		accrualRepo, 20)

	run, err := svc.RunForRange(context.Background(), accrualDay(0), accrualDay(4))
	require.NoError(t, err)
	assert.Equal(t, 5, run.ProcessedCount)
	assert.Equal(t, 5, accrualRepo.insertedCount())
}

func TestRunForRangeRejectsInvertedRange(t *testing.T) {
	svc := newTestAccrualService(nil, nil, newMockAccrualRepository(), 20)

	_, err := svc.RunForRange(context.Background(), accrualDay(4), accrualDay(0))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRunForDateLoanFailureIsIsolated(t *testing.T) {
	healthy := revolverLoan()
	broken := revolverLoan()
	broken.Name = "Facility B"

	accrualRepo := newMockAccrualRepository()
	loanRepo := &mockLoanRepository{
		mockFindActive: func(ctx context.Context) ([]models.Loan, error) {
			return []models.Loan{healthy, broken}, nil
		},
	}
	eventRepo := &mockEventRepository{
		mockFindApprovedByLoan: func(ctx context.Context, loanID uuid.UUID) ([]models.LoanEvent, error) {
			if loanID == broken.ID {
				return nil, errors.New("connection reset")
			}
			return revolverLoanEvents(healthy.ID), nil
		},
	}
	svc := NewAccrualService(loanRepo, eventRepo, accrualRepo, 4, 100, 20)

	run, err := svc.RunForDate(context.Background(), accrualDay(3))
	require.NoError(t, err)

	// The broken loan is reported without disturbing the healthy one.
	assert.Equal(t, models.JobRunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.ProcessedCount)
	assert.Equal(t, 1, run.ErrorCount)
	require.Len(t, run.ErrorDetails, 1)
	assert.Equal(t, broken.ID, run.ErrorDetails[0].LoanID)
	assert.Contains(t, run.ErrorDetails[0].Message, "connection reset")
}

func TestRunErrorDetailsAreCapped(t *testing.T) {
	first := revolverLoan()
	second := revolverLoan()

	accrualRepo := newMockAccrualRepository()
	loanRepo := &mockLoanRepository{
		mockFindActive: func(ctx context.Context) ([]models.Loan, error) {
			return []models.Loan{first, second}, nil
		},
	}
	eventRepo := &mockEventRepository{
		mockFindApprovedByLoan: func(ctx context.Context, loanID uuid.UUID) ([]models.LoanEvent, error) {
			return nil, errors.New("boom")
		},
	}
	svc := NewAccrualService(loanRepo, eventRepo, accrualRepo, 4, 100, 1)

	run, err := svc.RunForDate(context.Background(), accrualDay(0))
	require.NoError(t, err)

	assert.Equal(t, 2, run.ErrorCount)
	assert.Len(t, run.ErrorDetails, 1)
}

func TestBackfillStartsAtEarliestApprovedEvent(t *testing.T) {
	loan := revolverLoan()
	// Events predate the recorded start date.
	loan.StartDate = accrualDay(10)

	accrualRepo := newMockAccrualRepository()
	svc := newTestAccrualService(
		[]models.Loan{loan},
		map[uuid.UUID][]models.LoanEvent{loan.ID: revolverLoanEvents(loan.ID)},
		accrualRepo, 20)

	run, err := svc.Backfill(context.Background(), accrualDay(12))
	require.NoError(t, err)

	assert.Equal(t, models.JobRunModeBackfill, run.Mode)
	assert.Nil(t, run.FromDate)
	require.NotNil(t, run.ToDate)
	// Day 0 through day 12, inclusive.
	assert.Equal(t, 13, run.ProcessedCount)
}

func TestRunForDateMarksFailedWhenLoansUnavailable(t *testing.T) {
	accrualRepo := newMockAccrualRepository()
	loanRepo := &mockLoanRepository{
		mockFindActive: func(ctx context.Context) ([]models.Loan, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewAccrualService(loanRepo, &mockEventRepository{}, accrualRepo, 4, 100, 20)

	run, err := svc.RunForDate(context.Background(), accrualDay(0))
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.JobRunStatusFailed, run.Status)
	require.NotNil(t, run.ErrorMessage)
	assert.Contains(t, *run.ErrorMessage, "db down")
}
