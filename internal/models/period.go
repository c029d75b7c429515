package models

import (
	"time"

	"github.com/google/uuid"
)

// PeriodStatus is the lifecycle state of a billing period.
type PeriodStatus string

const (
	PeriodStatusOpen      PeriodStatus = "open"
	PeriodStatusSubmitted PeriodStatus = "submitted"
	PeriodStatusApproved  PeriodStatus = "approved"
	PeriodStatusSent      PeriodStatus = "sent"
)

// Period is a calendar sub-range of a loan's life, created ahead of time
// (monthly) and used as the billing/reporting granularity. Both bounds
// are inclusive.
type Period struct {
	ID          uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	LoanID      uuid.UUID    `json:"loan_id" gorm:"type:uuid;not null;index"`
	PeriodStart time.Time    `json:"period_start" gorm:"not null;index"`
	PeriodEnd   time.Time    `json:"period_end" gorm:"not null"`
	Status      PeriodStatus `json:"status" gorm:"size:20;not null;default:open"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Period) TableName() string {
	return "loan_periods"
}

// Contains reports whether the date falls inside the period (inclusive).
func (p *Period) Contains(date time.Time) bool {
	return !date.Before(p.PeriodStart) && !date.After(p.PeriodEnd)
}

func (p *Period) MaySubmit() bool {
	return p.Status == PeriodStatusOpen
}

func (p *Period) MayApprove() bool {
	return p.Status == PeriodStatusSubmitted
}

func (p *Period) MaySend() bool {
	return p.Status == PeriodStatusApproved
}

func (p *Period) MayReopen() bool {
	return p.Status == PeriodStatusSubmitted
}
