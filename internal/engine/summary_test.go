package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/lendora/servicing-api/internal/models"
)

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	assert.Equal(t, 0, summary.Periods)
	assertDec(t, "0", summary.AverageRate)
	assertDec(t, "0", summary.TotalDue)
}

func TestSummarizeTotalsAndCurrentValues(t *testing.T) {
	first := ComputePeriodAccrual(PeriodInputs{
		Start:        day(0),
		End:          day(30),
		Events:       revolverEvents(),
		FeeRate:      dec("0.01"),
		InterestType: models.InterestTypeCashPay,
		DayCount:     models.DayCountACT360,
	})
	second := ComputePeriodAccrual(PeriodInputs{
		Start:        day(31),
		End:          day(58),
		Events:       revolverEvents(),
		FeeRate:      dec("0.01"),
		InterestType: models.InterestTypeCashPay,
		DayCount:     models.DayCountACT360,
	})

	// Pass periods out of order: current values must come from the
	// chronologically last one.
	summary := Summarize([]PeriodAccrual{second, first})

	assert.Equal(t, 2, summary.Periods)
	assert.True(t, summary.InterestAccrued.Equal(first.InterestAccrued.Add(second.InterestAccrued)))
	assert.True(t, summary.CommitmentFeeAccrued.Equal(first.CommitmentFeeAccrued.Add(second.CommitmentFeeAccrued)))
	assert.True(t, summary.TotalDue.Equal(first.TotalDue.Add(second.TotalDue)))

	assertDec(t, "400000", summary.CurrentPrincipal)
	assertDec(t, "0.08", summary.CurrentRate)
	assertDec(t, "600000", summary.CurrentUndrawn)
	assertDec(t, "1000000", summary.TotalCommitment)
}

func TestSummarizeWeightedAverageRate(t *testing.T) {
	// Hand-built periods: 10 days at 100 principal 5%, 10 days at 300
	// principal 10%. Weighted average:
	// (0.05*100*10 + 0.10*300*10) / (100*10 + 300*10) = 350/4000 = 0.0875
	mk := func(principal, rate string, days int) PeriodAccrual {
		seg := InterestSegment{
			Principal: dec(principal),
			Rate:      dec(rate),
			Days:      days,
		}
		return PeriodAccrual{
			PeriodEnd: day(days),
			Segments:  []InterestSegment{seg},
		}
	}

	summary := Summarize([]PeriodAccrual{
		mk("100", "0.05", 10),
		mk("300", "0.10", 10),
	})

	assert.True(t, dec("0.0875").Equal(summary.AverageRate), "got %s", summary.AverageRate)
}

func TestSummarizeZeroPrincipalDays(t *testing.T) {
	acc := PeriodAccrual{
		PeriodEnd: day(10),
		Segments: []InterestSegment{{
			Principal: decimal.Zero,
			Rate:      dec("0.08"),
			Days:      10,
		}},
	}
	summary := Summarize([]PeriodAccrual{acc})
	assertDec(t, "0", summary.AverageRate)
}
