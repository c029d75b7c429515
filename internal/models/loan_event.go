package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType identifies what a ledger event does to loan state.
type EventType string

const (
	EventPrincipalDraw       EventType = "principal_draw"
	EventPrincipalRepayment  EventType = "principal_repayment"
	EventInterestRateSet     EventType = "interest_rate_set"
	EventInterestRateChange  EventType = "interest_rate_change"
	EventPIKFlagSet          EventType = "pik_flag_set"
	EventCommitmentSet       EventType = "commitment_set"
	EventCommitmentChange    EventType = "commitment_change"
	EventCommitmentCancel    EventType = "commitment_cancel"
	EventCashReceived        EventType = "cash_received"
	EventFeeInvoice          EventType = "fee_invoice"
	EventPIKCapitalization   EventType = "pik_capitalization_posted"
)

// EventStatus is the approval state of a ledger event. Only approved
// events ever participate in state derivation.
type EventStatus string

const (
	EventStatusDraft    EventStatus = "draft"
	EventStatusApproved EventStatus = "approved"
)

// PaymentKind sub-types a fee_invoice event. PIK fee invoices capitalize
// into principal instead of billing.
type PaymentKind string

const (
	PaymentKindCash PaymentKind = "cash"
	PaymentKindPIK  PaymentKind = "pik"
)

// EventMetadata carries the typed sub-classification of an event. It is
// stored as jsonb so the recording system can round-trip it, but the
// fields the engine branches on are enums, not free-form strings.
type EventMetadata struct {
	PaymentType  PaymentKind  `json:"payment_type,omitempty"`
	InterestType InterestType `json:"interest_type,omitempty"`
	Note         string       `json:"note,omitempty"`
}

// Value implements driver.Valuer for jsonb storage
func (m EventMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for jsonb storage
func (m *EventMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = EventMetadata{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata type %T", value)
	}
}

// LoanEvent is one immutable fact in a loan's append-only ledger. Events
// are never mutated or deleted once approved; corrections are recorded as
// new offsetting events that point back at the original.
type LoanEvent struct {
	ID              uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	LoanID          uuid.UUID           `json:"loan_id" gorm:"type:uuid;not null;index"`
	EventType       EventType           `json:"event_type" gorm:"size:40;not null;index"`
	EffectiveDate   time.Time           `json:"effective_date" gorm:"not null;index"`
	Amount          decimal.NullDecimal `json:"amount" gorm:"type:numeric(20,6)"`
	Rate            decimal.NullDecimal `json:"rate" gorm:"type:numeric(12,8)"` // fraction, e.g. 0.085 for 8.5%
	Metadata        EventMetadata       `json:"metadata" gorm:"type:jsonb"`
	Status          EventStatus         `json:"status" gorm:"size:20;not null;default:draft;index"`
	ReversesEventID *uuid.UUID          `json:"reverses_event_id,omitempty" gorm:"type:uuid"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (LoanEvent) TableName() string {
	return "loan_events"
}

// AmountOrZero returns the event amount, or zero when absent.
func (e *LoanEvent) AmountOrZero() decimal.Decimal {
	if e.Amount.Valid {
		return e.Amount.Decimal
	}
	return decimal.Zero
}

// RateOrZero returns the event rate, or zero when absent.
func (e *LoanEvent) RateOrZero() decimal.Decimal {
	if e.Rate.Valid {
		return e.Rate.Decimal
	}
	return decimal.Zero
}

// IsApproved reports whether the event participates in state derivation.
func (e *LoanEvent) IsApproved() bool {
	return e.Status == EventStatusApproved
}

// MayApprove reports whether the event can transition to approved.
func (e *LoanEvent) MayApprove() bool {
	return e.Status == EventStatusDraft
}
