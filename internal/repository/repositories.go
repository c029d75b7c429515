package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Loan    LoanRepository
	Event   EventRepository
	Period  PeriodRepository
	Accrual AccrualRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Loan:    NewLoanRepository(db),
		Event:   NewEventRepository(db),
		Period:  NewPeriodRepository(db),
		Accrual: NewAccrualRepository(db),
	}
}
