package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lendora/servicing-api/internal/engine"
	"github.com/lendora/servicing-api/internal/models"
	"github.com/lendora/servicing-api/internal/repository"
	"github.com/lendora/servicing-api/pkg/logger"
)

// AccrualService is the batch orchestrator: it runs the replay/day-count
// pipeline once per active loan per target date and persists one
// AccrualEntry per (loan, date). Loans are processed concurrently under a
// bounded pool; all counters are owned by the single aggregating loop, so
// no shared mutable state crosses loan workers.
type AccrualService struct {
	loanRepo    repository.LoanRepository
	eventRepo   repository.EventRepository
	accrualRepo repository.AccrualRepository

	concurrency int
	chunkSize   int
	errorCap    int
}

func NewAccrualService(loanRepo repository.LoanRepository, eventRepo repository.EventRepository, accrualRepo repository.AccrualRepository, concurrency, chunkSize, errorCap int) *AccrualService {
	if concurrency < 1 {
		concurrency = 1
	}
	if chunkSize < 1 {
		chunkSize = 1
	}
	if errorCap < 1 {
		errorCap = 1
	}
	return &AccrualService{
		loanRepo:    loanRepo,
		eventRepo:   eventRepo,
		accrualRepo: accrualRepo,
		concurrency: concurrency,
		chunkSize:   chunkSize,
		errorCap:    errorCap,
	}
}

// loanRunResult is one loan's outcome inside a batch run.
type loanRunResult struct {
	loanID    uuid.UUID
	processed int
	skipped   int
	err       error
}

// RunForDate computes accrual entries for every active loan for a single
// date.
func (s *AccrualService) RunForDate(ctx context.Context, date time.Time) (*models.AccrualJobRun, error) {
	date = engine.DateOnly(date)
	return s.run(ctx, models.JobRunModeSingle, date, date, false)
}

// RunForRange computes accrual entries for every active loan across an
// inclusive date range.
func (s *AccrualService) RunForRange(ctx context.Context, from, to time.Time) (*models.AccrualJobRun, error) {
	from, to = engine.DateOnly(from), engine.DateOnly(to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end precedes start", ErrInvalidInput)
	}
	return s.run(ctx, models.JobRunModeRange, from, to, false)
}

// Backfill computes historical entries per loan, from the earlier of the
// loan start date and its earliest approved event through the given end.
func (s *AccrualService) Backfill(ctx context.Context, through time.Time) (*models.AccrualJobRun, error) {
	through = engine.DateOnly(through)
	return s.run(ctx, models.JobRunModeBackfill, time.Time{}, through, true)
}

func (s *AccrualService) run(ctx context.Context, mode string, from, to time.Time, backfill bool) (*models.AccrualJobRun, error) {
	now := time.Now().UTC()
	run := &models.AccrualJobRun{
		ID:        uuid.New(),
		Mode:      mode,
		ToDate:    &to,
		Status:    models.JobRunStatusRunning,
		StartedAt: now,
	}
	if !backfill {
		run.FromDate = &from
	}

	// Failing to create the job record fails the entire run.
	if err := s.accrualRepo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create job run: %w", err)
	}

	loans, err := s.loanRepo.FindActive(ctx)
	if err != nil {
		s.markFailed(ctx, run, fmt.Errorf("failed to load active loans: %w", err))
		return run, err
	}

	results := make(chan loanRunResult, len(loans))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for i := range loans {
		loan := loans[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- s.processLoan(ctx, loan, from, to, backfill)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Counters live here and only here.
	for res := range results {
		run.ProcessedCount += res.processed
		run.SkippedCount += res.skipped
		if res.err != nil {
			run.ErrorCount++
			if len(run.ErrorDetails) < s.errorCap {
				run.ErrorDetails = append(run.ErrorDetails, models.JobRunError{
					LoanID:  res.loanID,
					Message: res.err.Error(),
				})
			}
			logger.Error("[Accrual] Loan processing failed", "loan_id", res.loanID, "error", res.err)
		}
	}

	finished := time.Now().UTC()
	run.Status = models.JobRunStatusCompleted
	run.FinishedAt = &finished
	if err := s.accrualRepo.UpdateRun(ctx, run); err != nil {
		logger.Error("[Accrual] Failed to finalize job run", "run_id", run.ID, "error", err)
		return run, fmt.Errorf("failed to finalize job run: %w", err)
	}

	logger.Info("[Accrual] Run completed",
		"run_id", run.ID,
		"mode", mode,
		"processed", run.ProcessedCount,
		"skipped", run.SkippedCount,
		"errors", run.ErrorCount)
	return run, nil
}

// processLoan computes and inserts one loan's entries. Failures of any
// kind are recorded in this loan's result and never disturb its
// siblings.
func (s *AccrualService) processLoan(ctx context.Context, loan models.Loan, from, to time.Time, backfill bool) (res loanRunResult) {
	res.loanID = loan.ID
	defer func() {
		if r := recover(); r != nil {
			res = loanRunResult{loanID: loan.ID, err: fmt.Errorf("panic: %v", r)}
		}
	}()

	events, err := s.eventRepo.FindApprovedByLoan(ctx, loan.ID)
	if err != nil {
		res.err = fmt.Errorf("fetch events: %w", err)
		return res
	}

	existing, err := s.accrualRepo.ExistingDates(ctx, loan.ID)
	if err != nil {
		res.err = fmt.Errorf("fetch existing dates: %w", err)
		return res
	}

	start := engine.DateOnly(from)
	if backfill {
		start = engine.DateOnly(loan.StartDate)
		// Pre-dated events pull the backfill start back so no approved
		// fact is left un-accrued.
		earliest, err := s.eventRepo.EarliestApprovedDate(ctx, loan.ID)
		if err != nil {
			res.err = fmt.Errorf("fetch earliest event date: %w", err)
			return res
		}
		if earliest != nil {
			if d := engine.DateOnly(*earliest); d.Before(start) {
				start = d
			}
		}
	}
	end := engine.DateOnly(to)

	opts := engine.ReplayOptions{
		InitialCommitment:   loan.TotalCommitment,
		DefaultInterestType: loan.InterestType,
	}

	var entries []models.AccrualEntry
	canceled := false
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			canceled = true
		default:
		}
		if canceled {
			break
		}

		if _, ok := existing[d.Format(repository.DateKeyLayout)]; ok {
			res.skipped++
			continue
		}

		state := engine.StateAt(events, d, opts)
		entries = append(entries, models.AccrualEntry{
			LoanID:          loan.ID,
			EntryDate:       d,
			Principal:       state.OutstandingPrincipal,
			Rate:            state.CurrentRate,
			TotalCommitment: state.TotalCommitment,
			Undrawn:         state.UndrawnCommitment,
			DailyInterest:   engine.DailyInterest(state.OutstandingPrincipal, state.CurrentRate, loan.DayCount),
			DailyFee:        engine.DailyFee(state.UndrawnCommitment, loan.CommitmentFeeRate, loan.DayCount),
			InterestType:    state.InterestType,
		})
	}

	// Completed days are kept even on cancellation: inserts are
	// at-most-once per date, so a partial run stays consistent.
	if err := s.accrualRepo.InsertBatch(ctx, entries, s.chunkSize); err != nil {
		return loanRunResult{loanID: loan.ID, skipped: res.skipped, err: fmt.Errorf("insert entries: %w", err)}
	}
	res.processed = len(entries)

	if canceled {
		res.err = ctx.Err()
	}
	return res
}

// Entries lists the persisted daily accrual rows for a loan.
func (s *AccrualService) Entries(ctx context.Context, loanID uuid.UUID, from, to time.Time) ([]models.AccrualEntry, error) {
	return s.accrualRepo.ListByLoan(ctx, loanID, engine.DateOnly(from), engine.DateOnly(to))
}

// RunByID fetches a single job run record.
func (s *AccrualService) RunByID(ctx context.Context, id uuid.UUID) (*models.AccrualJobRun, error) {
	return s.accrualRepo.FindRunByID(ctx, id)
}

// RecentRuns lists the latest job runs, newest first.
func (s *AccrualService) RecentRuns(ctx context.Context, limit int) ([]models.AccrualJobRun, error) {
	if limit < 1 {
		limit = 20
	}
	return s.accrualRepo.ListRuns(ctx, limit)
}

func (s *AccrualService) markFailed(ctx context.Context, run *models.AccrualJobRun, cause error) {
	finished := time.Now().UTC()
	msg := cause.Error()
	run.Status = models.JobRunStatusFailed
	run.ErrorMessage = &msg
	run.FinishedAt = &finished
	if err := s.accrualRepo.UpdateRun(ctx, run); err != nil {
		logger.Error("[Accrual] Failed to mark job run failed", "run_id", run.ID, "error", err)
	}
}
