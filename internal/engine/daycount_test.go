package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lendora/servicing-api/internal/models"
)

func TestDailyInterestByConvention(t *testing.T) {
	principal := dec("360000")
	rate := dec("0.08")

	// 360000 * 0.08 = 28800 annual
	assertDec(t, "80", DailyInterest(principal, rate, models.DayCountACT360))
	assertDec(t, "78.9041095890410959", DailyInterest(dec("360000"), dec("0.08"), models.DayCountACT365))
}

func TestDailyFeeByConvention(t *testing.T) {
	undrawn := dec("730000")
	feeRate := dec("0.01")

	// 730000 * 0.01 = 7300 annual
	assertDec(t, "20", DailyFee(undrawn, feeRate, models.DayCountACT365))
}

func TestUnknownConventionFallsBackTo365(t *testing.T) {
	assertDec(t, "365", models.DayCount("30E/360").Divisor())
	assert.False(t, models.DayCount("30E/360").Valid())
	assert.True(t, models.DayCountACT360.Valid())
}

func TestDaysInclusive(t *testing.T) {
	assert.Equal(t, 1, DaysInclusive(day(0), day(0)))
	assert.Equal(t, 41, DaysInclusive(day(0), day(40)))
	assert.Equal(t, 0, DaysInclusive(day(5), day(4)))
}

func TestDateOnlyNormalizesToUTCMidnight(t *testing.T) {
	ts := time.Date(2025, 3, 14, 17, 45, 12, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), DateOnly(ts))
}
