package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records who did what to which record. The engine itself never
// writes these; only the mutating service operations do (event approval,
// reversal, period transitions).
type AuditLog struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Actor     string     `gorm:"size:100;not null" json:"actor"`
	Action    string     `gorm:"size:50;not null" json:"action"` // CREATE, APPROVE, REVERSE, SUBMIT, SEND
	Entity    string     `gorm:"size:50;not null" json:"entity"` // Loan, LoanEvent, Period
	EntityID  *uuid.UUID `gorm:"type:uuid" json:"entity_id,omitempty"`
	Details   string     `gorm:"type:text" json:"details"`
	IPAddress string     `gorm:"size:45" json:"ip_address"`
	CreatedAt time.Time  `json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
