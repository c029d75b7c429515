package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendora/servicing-api/internal/models"
	"github.com/lendora/servicing-api/internal/repository"
)

// Mock PeriodRepository
type mockPeriodRepository struct {
	repository.PeriodRepository
	mockLatestEnd func(ctx context.Context, loanID uuid.UUID) (*time.Time, error)
	mockFindByID  func(ctx context.Context, id uuid.UUID) (*models.Period, error)

	created []models.Period
	updated []*models.Period
}

func (m *mockPeriodRepository) CreateBatch(ctx context.Context, periods []models.Period) error {
	m.created = append(m.created, periods...)
	return nil
}

func (m *mockPeriodRepository) LatestEnd(ctx context.Context, loanID uuid.UUID) (*time.Time, error) {
	if m.mockLatestEnd != nil {
		return m.mockLatestEnd(ctx, loanID)
	}
	return nil, nil
}

func (m *mockPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Period, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, nil
}

func (m *mockPeriodRepository) Update(ctx context.Context, period *models.Period) error {
	m.updated = append(m.updated, period)
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestPeriodService(loan *models.Loan, periodRepo *mockPeriodRepository) *PeriodService {
	loanRepo := &mockLoanRepository{
		mockFindByID: func(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
			return loan, nil
		},
	}
	return NewPeriodService(periodRepo, loanRepo, &mockEventRepository{}, NewAuditService(nil))
}

func TestGenerateMonthlyFromLoanStart(t *testing.T) {
	loan := revolverLoan()
	loan.StartDate = date(2025, time.January, 15)
	periodRepo := &mockPeriodRepository{}
	svc := newTestPeriodService(&loan, periodRepo)

	periods, err := svc.GenerateMonthly(context.Background(), loan.ID, date(2025, time.March, 10), "tester", "")
	require.NoError(t, err)
	require.Len(t, periods, 3)

	// First period is the partial month from the loan start.
	assert.True(t, periods[0].PeriodStart.Equal(date(2025, time.January, 15)))
	assert.True(t, periods[0].PeriodEnd.Equal(date(2025, time.January, 31)))
	assert.True(t, periods[1].PeriodStart.Equal(date(2025, time.February, 1)))
	assert.True(t, periods[1].PeriodEnd.Equal(date(2025, time.February, 28)))
	assert.True(t, periods[2].PeriodEnd.Equal(date(2025, time.March, 31)))

	for _, p := range periods {
		assert.Equal(t, models.PeriodStatusOpen, p.Status)
	}
	assert.Len(t, periodRepo.created, 3)
}

func TestGenerateMonthlyResumesAfterLatestPeriod(t *testing.T) {
	loan := revolverLoan()
	loan.StartDate = date(2025, time.January, 1)
	latest := date(2025, time.January, 31)
	periodRepo := &mockPeriodRepository{
		mockLatestEnd: func(ctx context.Context, loanID uuid.UUID) (*time.Time, error) {
			return &latest, nil
		},
	}
	svc := newTestPeriodService(&loan, periodRepo)

	periods, err := svc.GenerateMonthly(context.Background(), loan.ID, date(2025, time.February, 15), "tester", "")
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.True(t, periods[0].PeriodStart.Equal(date(2025, time.February, 1)))
	assert.True(t, periods[0].PeriodEnd.Equal(date(2025, time.February, 28)))
}

func TestGenerateMonthlyNoopWhenAlreadyCovered(t *testing.T) {
	loan := revolverLoan()
	latest := date(2025, time.March, 31)
	periodRepo := &mockPeriodRepository{
		mockLatestEnd: func(ctx context.Context, loanID uuid.UUID) (*time.Time, error) {
			return &latest, nil
		},
	}
	svc := newTestPeriodService(&loan, periodRepo)

	periods, err := svc.GenerateMonthly(context.Background(), loan.ID, date(2025, time.March, 10), "tester", "")
	require.NoError(t, err)
	assert.Empty(t, periods)
	assert.Empty(t, periodRepo.created)
}

func TestPeriodTransitions(t *testing.T) {
	loan := revolverLoan()
	period := &models.Period{
		ID:          uuid.New(),
		LoanID:      loan.ID,
		PeriodStart: date(2025, time.January, 1),
		PeriodEnd:   date(2025, time.January, 31),
		Status:      models.PeriodStatusOpen,
	}
	periodRepo := &mockPeriodRepository{
		mockFindByID: func(ctx context.Context, id uuid.UUID) (*models.Period, error) {
			return period, nil
		},
	}
	svc := newTestPeriodService(&loan, periodRepo)

	got, err := svc.Submit(context.Background(), period.ID, "tester", "")
	require.NoError(t, err)
	assert.Equal(t, models.PeriodStatusSubmitted, got.Status)

	got, err = svc.Approve(context.Background(), period.ID, "tester", "")
	require.NoError(t, err)
	assert.Equal(t, models.PeriodStatusApproved, got.Status)

	// Approved periods cannot be reopened.
	_, err = svc.Reopen(context.Background(), period.ID, "tester", "")
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err = svc.Send(context.Background(), period.ID, "tester", "")
	require.NoError(t, err)
	assert.Equal(t, models.PeriodStatusSent, got.Status)

	assert.Len(t, periodRepo.updated, 3)
}
