package services

import (
	"context"

	"github.com/lendora/servicing-api/internal/jobs"
	"github.com/lendora/servicing-api/internal/models"
)

type JobService struct {
	worker     *jobs.Worker
	accrualSvc *AccrualService
}

func NewJobService(worker *jobs.Worker, accrualSvc *AccrualService) *JobService {
	return &JobService{
		worker:     worker,
		accrualSvc: accrualSvc,
	}
}

func (s *JobService) GetStatus() map[string]interface{} {
	stats := s.worker.GetStats()
	return map[string]interface{}{
		"active_jobs":    stats.ActiveJobs,
		"completed_jobs": stats.CompletedJobs,
		"failed_jobs":    stats.FailedJobs,
		"queue_length":   stats.QueueLength,
		"max_concurrent": stats.MaxConcurrent,
	}
}

// RecentRuns lists the latest batch accrual runs.
func (s *JobService) RecentRuns(ctx context.Context, limit int) ([]models.AccrualJobRun, error) {
	return s.accrualSvc.RecentRuns(ctx, limit)
}
