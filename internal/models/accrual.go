package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccrualEntry is the durable artifact of the daily batch: one row per
// loan per calendar day. Once written for a (loan, date) pair it is never
// overwritten; recomputation is idempotent by skip.
type AccrualEntry struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	LoanID          uuid.UUID       `json:"loan_id" gorm:"type:uuid;not null;uniqueIndex:idx_accrual_loan_date"`
	EntryDate       time.Time       `json:"entry_date" gorm:"not null;uniqueIndex:idx_accrual_loan_date"`
	Principal       decimal.Decimal `json:"principal" gorm:"type:numeric(20,6);not null"`
	Rate            decimal.Decimal `json:"rate" gorm:"type:numeric(12,8);not null"`
	TotalCommitment decimal.Decimal `json:"total_commitment" gorm:"type:numeric(20,6);not null"`
	Undrawn         decimal.Decimal `json:"undrawn" gorm:"type:numeric(20,6);not null"`
	DailyInterest   decimal.Decimal `json:"daily_interest" gorm:"type:numeric(20,6);not null"`
	DailyFee        decimal.Decimal `json:"daily_fee" gorm:"type:numeric(20,6);not null"`
	InterestType    InterestType    `json:"interest_type" gorm:"size:20;not null"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName specifies the table name for GORM
func (AccrualEntry) TableName() string {
	return "accrual_entries"
}

// Job run status constants
const (
	JobRunStatusRunning   = "running"
	JobRunStatusCompleted = "completed"
	JobRunStatusFailed    = "failed"
)

// Job run mode constants
const (
	JobRunModeSingle   = "single"
	JobRunModeRange    = "range"
	JobRunModeBackfill = "backfill"
)

// JobRunError records one loan's failure inside an otherwise successful
// batch run.
type JobRunError struct {
	LoanID  uuid.UUID `json:"loan_id"`
	Message string    `json:"message"`
}

// JobRunErrors is a jsonb-stored list of per-loan failures, capped by the
// orchestrator before persisting.
type JobRunErrors []JobRunError

// Value implements driver.Valuer for jsonb storage
func (e JobRunErrors) Value() (driver.Value, error) {
	if e == nil {
		return json.Marshal([]JobRunError{})
	}
	return json.Marshal(e)
}

// Scan implements sql.Scanner for jsonb storage
func (e *JobRunErrors) Scan(value interface{}) error {
	if value == nil {
		*e = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, e)
	case string:
		return json.Unmarshal([]byte(v), e)
	default:
		return fmt.Errorf("unsupported error list type %T", value)
	}
}

// AccrualJobRun records one execution of the batch accrual orchestrator.
type AccrualJobRun struct {
	ID             uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	Mode           string       `json:"mode" gorm:"size:20;not null"`
	FromDate       *time.Time   `json:"from_date,omitempty"`
	ToDate         *time.Time   `json:"to_date,omitempty"`
	Status         string       `json:"status" gorm:"size:20;not null;index"`
	ProcessedCount int          `json:"processed_count" gorm:"not null;default:0"`
	SkippedCount   int          `json:"skipped_count" gorm:"not null;default:0"`
	ErrorCount     int          `json:"error_count" gorm:"not null;default:0"`
	ErrorDetails   JobRunErrors `json:"error_details" gorm:"type:jsonb"`
	ErrorMessage   *string      `json:"error_message,omitempty"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     *time.Time   `json:"finished_at,omitempty"`
}

// TableName specifies the table name for GORM
func (AccrualJobRun) TableName() string {
	return "accrual_job_runs"
}
