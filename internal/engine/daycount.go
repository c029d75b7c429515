package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lendora/servicing-api/internal/models"
)

// DailyInterest returns the interest earned on an outstanding principal
// for one calendar day at an annual rate under the given convention.
func DailyInterest(principal, annualRate decimal.Decimal, dc models.DayCount) decimal.Decimal {
	return principal.Mul(annualRate).Div(dc.Divisor())
}

// DailyFee returns the commitment fee earned on an undrawn amount for one
// calendar day at an annual fee rate under the given convention.
func DailyFee(undrawn, annualFeeRate decimal.Decimal, dc models.DayCount) decimal.Decimal {
	return undrawn.Mul(annualFeeRate).Div(dc.Divisor())
}

// DateOnly truncates a timestamp to midnight UTC. All engine date
// arithmetic runs on these normalized values.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInclusive counts calendar days in [from, to], both ends included.
// Returns 0 when to precedes from.
func DaysInclusive(from, to time.Time) int {
	from, to = DateOnly(from), DateOnly(to)
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}
