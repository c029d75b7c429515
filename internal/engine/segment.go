package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lendora/servicing-api/internal/models"
)

// InterestSegment is a sub-range of [start, end] during which principal
// and rate are constant. Both bounds are inclusive.
type InterestSegment struct {
	Start        time.Time           `json:"start"`
	End          time.Time           `json:"end"`
	Days         int                 `json:"days"`
	Principal    decimal.Decimal     `json:"principal"`
	Rate         decimal.Decimal     `json:"rate"`
	InterestType models.InterestType `json:"interest_type"`
	Interest     decimal.Decimal     `json:"interest"`
}

// FeeSegment is a sub-range during which the undrawn commitment is
// constant.
type FeeSegment struct {
	Start   time.Time       `json:"start"`
	End     time.Time       `json:"end"`
	Days    int             `json:"days"`
	Undrawn decimal.Decimal `json:"undrawn"`
	FeeRate decimal.Decimal `json:"fee_rate"`
	Fee     decimal.Decimal `json:"fee"`
}

// SegmentOptions carries the loan-level inputs segmentation needs.
type SegmentOptions struct {
	InitialCommitment   decimal.Decimal
	DefaultInterestType models.InterestType
	FeeRate             decimal.Decimal
	DayCount            models.DayCount
}

// Event subsets that force a segment boundary. Interest accrual only
// cares about principal and rate moves; fee accrual about principal and
// commitment moves.
var interestSegmentEvents = map[models.EventType]bool{
	models.EventPrincipalDraw:      true,
	models.EventPrincipalRepayment: true,
	models.EventInterestRateSet:    true,
	models.EventInterestRateChange: true,
	models.EventPIKCapitalization:  true,
}

var feeSegmentEvents = map[models.EventType]bool{
	models.EventPrincipalDraw:      true,
	models.EventPrincipalRepayment: true,
	models.EventCommitmentSet:      true,
	models.EventCommitmentChange:   true,
	models.EventCommitmentCancel:   true,
}

// InterestSegments splits [start, end] into contiguous sub-ranges at
// every principal- or rate-changing event and prices each one. The
// segments partition the range: no gaps, no overlaps, day counts summing
// to DaysInclusive(start, end).
func InterestSegments(events []models.LoanEvent, start, end time.Time, opts SegmentOptions) []InterestSegment {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return nil
	}

	state := StateAt(events, start, ReplayOptions{
		InitialCommitment:   opts.InitialCommitment,
		DefaultInterestType: opts.DefaultInterestType,
	})

	var segments []InterestSegment
	segStart := start
	for _, e := range eventsBetween(events, start, end, interestSegmentEvents) {
		eventDate := DateOnly(e.EffectiveDate)
		segEnd := eventDate.AddDate(0, 0, -1)
		if !segEnd.Before(segStart) {
			segments = append(segments, priceInterestSegment(segStart, segEnd, state, opts.DayCount))
		}
		state = applyEvent(state, e)
		segStart = eventDate
	}
	if !end.Before(segStart) {
		segments = append(segments, priceInterestSegment(segStart, end, state, opts.DayCount))
	}
	return segments
}

// FeeSegments does the same split for the undrawn commitment, driven by
// the commitment-affecting event subset.
func FeeSegments(events []models.LoanEvent, start, end time.Time, opts SegmentOptions) []FeeSegment {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return nil
	}

	state := StateAt(events, start, ReplayOptions{
		InitialCommitment:   opts.InitialCommitment,
		DefaultInterestType: opts.DefaultInterestType,
	})

	var segments []FeeSegment
	segStart := start
	for _, e := range eventsBetween(events, start, end, feeSegmentEvents) {
		eventDate := DateOnly(e.EffectiveDate)
		segEnd := eventDate.AddDate(0, 0, -1)
		if !segEnd.Before(segStart) {
			segments = append(segments, priceFeeSegment(segStart, segEnd, state, opts))
		}
		state = applyEvent(state, e)
		segStart = eventDate
	}
	if !end.Before(segStart) {
		segments = append(segments, priceFeeSegment(segStart, end, state, opts))
	}
	return segments
}

// eventsBetween returns the approved events of the given types with
// effective dates strictly inside (start, end], in replay order.
func eventsBetween(events []models.LoanEvent, start, end time.Time, types map[models.EventType]bool) []models.LoanEvent {
	ordered := Replayable(events, end)
	out := make([]models.LoanEvent, 0, len(ordered))
	for _, e := range ordered {
		if !types[e.EventType] {
			continue
		}
		if !DateOnly(e.EffectiveDate).After(start) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func priceInterestSegment(start, end time.Time, state LoanState, dc models.DayCount) InterestSegment {
	days := DaysInclusive(start, end)
	daily := DailyInterest(state.OutstandingPrincipal, state.CurrentRate, dc)
	return InterestSegment{
		Start:        start,
		End:          end,
		Days:         days,
		Principal:    state.OutstandingPrincipal,
		Rate:         state.CurrentRate,
		InterestType: state.InterestType,
		Interest:     daily.Mul(decimal.NewFromInt(int64(days))),
	}
}

func priceFeeSegment(start, end time.Time, state LoanState, opts SegmentOptions) FeeSegment {
	days := DaysInclusive(start, end)
	daily := DailyFee(state.UndrawnCommitment, opts.FeeRate, opts.DayCount)
	return FeeSegment{
		Start:   start,
		End:     end,
		Days:    days,
		Undrawn: state.UndrawnCommitment,
		FeeRate: opts.FeeRate,
		Fee:     daily.Mul(decimal.NewFromInt(int64(days))),
	}
}
