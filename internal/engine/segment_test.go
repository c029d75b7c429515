package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendora/servicing-api/internal/models"
)

func revolverEvents() []models.LoanEvent {
	return []models.LoanEvent{
		amountEvent(models.EventCommitmentSet, day(0), "1000000"),
		rateEvent(models.EventInterestRateSet, day(0), "0.08"),
		amountEvent(models.EventPrincipalDraw, day(10), "400000"),
	}
}

func segOpts() SegmentOptions {
	return SegmentOptions{
		FeeRate:  dec("0.01"),
		DayCount: models.DayCountACT360,
	}
}

func TestInterestSegmentsSplitAtDraw(t *testing.T) {
	segments := InterestSegments(revolverEvents(), day(0), day(40), segOpts())
	require.Len(t, segments, 2)

	first := segments[0]
	assert.Equal(t, day(0), first.Start)
	assert.Equal(t, day(9), first.End)
	assert.Equal(t, 10, first.Days)
	assertDec(t, "0", first.Principal)
	assertDec(t, "0.08", first.Rate)
	assertDec(t, "0", first.Interest)

	second := segments[1]
	assert.Equal(t, day(10), second.Start)
	assert.Equal(t, day(40), second.End)
	assert.Equal(t, 31, second.Days)
	assertDec(t, "400000", second.Principal)

	wantInterest := DailyInterest(dec("400000"), dec("0.08"), models.DayCountACT360).
		Mul(decimal.NewFromInt(31))
	assert.True(t, wantInterest.Equal(second.Interest))
}

func TestInterestSegmentsPartitionTheRange(t *testing.T) {
	events := []models.LoanEvent{
		amountEvent(models.EventCommitmentSet, day(0), "1000000"),
		rateEvent(models.EventInterestRateSet, day(0), "0.05"),
		amountEvent(models.EventPrincipalDraw, day(3), "100000"),
		rateEvent(models.EventInterestRateChange, day(12), "0.06"),
		amountEvent(models.EventPrincipalRepayment, day(19), "40000"),
		amountEvent(models.EventPIKCapitalization, day(27), "1234.56"),
	}

	segments := InterestSegments(events, day(1), day(31), segOpts())
	require.NotEmpty(t, segments)

	// No gaps, no overlaps, day counts summing to the full range.
	totalDays := 0
	for i, seg := range segments {
		assert.False(t, seg.End.Before(seg.Start))
		totalDays += seg.Days
		if i > 0 {
			assert.Equal(t, segments[i-1].End.AddDate(0, 0, 1), seg.Start, "segment %d", i)
		}
	}
	assert.Equal(t, day(1), segments[0].Start)
	assert.Equal(t, day(31), segments[len(segments)-1].End)
	assert.Equal(t, DaysInclusive(day(1), day(31)), totalDays)
}

func TestInterestSegmentsSameDateEventsProduceOneBoundary(t *testing.T) {
	events := []models.LoanEvent{
		rateEvent(models.EventInterestRateSet, day(0), "0.05"),
		amountEvent(models.EventPrincipalDraw, day(10), "100000"),
		rateEvent(models.EventInterestRateChange, day(10), "0.07"),
	}

	segments := InterestSegments(events, day(0), day(20), segOpts())
	require.Len(t, segments, 2)
	// Both day-10 events land in the second segment's state.
	assertDec(t, "100000", segments[1].Principal)
	assertDec(t, "0.07", segments[1].Rate)
}

func TestInterestSegmentsEventOnStartDateFoldsIntoBaseState(t *testing.T) {
	events := []models.LoanEvent{
		rateEvent(models.EventInterestRateSet, day(0), "0.08"),
		amountEvent(models.EventPrincipalDraw, day(5), "200000"),
	}

	// The draw sits on the range start: it belongs to the opening state,
	// not to a mid-range boundary.
	segments := InterestSegments(events, day(5), day(15), segOpts())
	require.Len(t, segments, 1)
	assertDec(t, "200000", segments[0].Principal)
	assert.Equal(t, 11, segments[0].Days)
}

func TestFeeSegmentsTrackUndrawn(t *testing.T) {
	segments := FeeSegments(revolverEvents(), day(0), day(40), segOpts())
	require.Len(t, segments, 2)

	assertDec(t, "1000000", segments[0].Undrawn)
	assertDec(t, "600000", segments[1].Undrawn)

	wantFee := DailyFee(dec("1000000"), dec("0.01"), models.DayCountACT360).
		Mul(decimal.NewFromInt(10))
	assert.True(t, wantFee.Equal(segments[0].Fee))
}

func TestFeeSegmentsIgnoreRateEvents(t *testing.T) {
	events := []models.LoanEvent{
		amountEvent(models.EventCommitmentSet, day(0), "500000"),
		rateEvent(models.EventInterestRateChange, day(7), "0.09"),
	}

	segments := FeeSegments(events, day(0), day(14), segOpts())
	require.Len(t, segments, 1)
	assertDec(t, "500000", segments[0].Undrawn)
}

func TestSegmentsEmptyForInvertedRange(t *testing.T) {
	assert.Nil(t, InterestSegments(revolverEvents(), day(10), day(5), segOpts()))
	assert.Nil(t, FeeSegments(revolverEvents(), day(10), day(5), segOpts()))
}
