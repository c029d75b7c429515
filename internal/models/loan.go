package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InterestType describes how a loan's interest is settled.
type InterestType string

const (
	InterestTypeCashPay InterestType = "cash_pay" // billed and paid in cash
	InterestTypePIK     InterestType = "pik"      // capitalized into principal
)

// DayCount is the day-count convention used when turning an annual rate
// into a daily amount. The divisor is the only thing the two conventions
// disagree on; both count calendar days.
type DayCount string

const (
	DayCountACT360 DayCount = "ACT/360"
	DayCountACT365 DayCount = "ACT/365"
)

// Divisor returns the annual divisor for the convention. Unknown values
// fall back to 365 so arithmetic stays total.
func (d DayCount) Divisor() decimal.Decimal {
	if d == DayCountACT360 {
		return decimal.NewFromInt(360)
	}
	return decimal.NewFromInt(365)
}

// Valid reports whether the convention is one of the supported values.
func (d DayCount) Valid() bool {
	return d == DayCountACT360 || d == DayCountACT365
}

// Loan holds the servicing metadata for a credit facility. Balances and
// rates are never stored here; they are derived by replaying the loan's
// event ledger.
type Loan struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Name              string          `json:"name" gorm:"not null"`
	BorrowerRef       string          `json:"borrower_ref" gorm:"index"`
	StartDate         time.Time       `json:"start_date" gorm:"not null"`
	TotalCommitment   decimal.Decimal `json:"total_commitment" gorm:"type:numeric(20,6);not null"`
	CommitmentFeeRate decimal.Decimal `json:"commitment_fee_rate" gorm:"type:numeric(12,8);not null"`
	InterestType      InterestType    `json:"interest_type" gorm:"size:20;not null;default:cash_pay"`
	DayCount          DayCount        `json:"day_count" gorm:"size:10;not null;default:ACT/365"`
	Active            bool            `json:"active" gorm:"not null;default:true;index"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Loan) TableName() string {
	return "loans"
}
