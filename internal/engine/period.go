package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lendora/servicing-api/internal/models"
)

// DailyEntry is one day of the period's drill-down audit trail.
type DailyEntry struct {
	Date         time.Time           `json:"date"`
	Principal    decimal.Decimal     `json:"principal"`
	Rate         decimal.Decimal     `json:"rate"`
	Undrawn      decimal.Decimal     `json:"undrawn"`
	Interest     decimal.Decimal     `json:"interest"`
	Fee          decimal.Decimal     `json:"fee"`
	InterestType models.InterestType `json:"interest_type"`
}

// PeriodAccrual is the full accrual report for one billing period.
//
// ClosingPrincipal is the figure downstream reporting shows. For a PIK
// loan whose capitalization event has not yet posted inside the period it
// is a projection of the capitalization to come, not the literal ledger
// state; ClosingProjected says which one you are looking at, and
// LedgerClosing always carries the literal replay state.
type PeriodAccrual struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	Opening       LoanState `json:"opening"`
	LedgerClosing LoanState `json:"ledger_closing"`

	ClosingPrincipal decimal.Decimal `json:"closing_principal"`
	ClosingProjected bool            `json:"closing_projected"`

	Drawn          decimal.Decimal `json:"drawn"`
	Repaid         decimal.Decimal `json:"repaid"`
	PIKCapitalized decimal.Decimal `json:"pik_capitalized"`
	FeesInvoiced   decimal.Decimal `json:"fees_invoiced"`

	InterestAccrued      decimal.Decimal `json:"interest_accrued"`
	CashInterestAccrued  decimal.Decimal `json:"cash_interest_accrued"`
	PIKInterestAccrued   decimal.Decimal `json:"pik_interest_accrued"`
	CommitmentFeeAccrued decimal.Decimal `json:"commitment_fee_accrued"`
	TotalDue             decimal.Decimal `json:"total_due"`

	Segments    []InterestSegment `json:"segments"`
	FeeSegments []FeeSegment      `json:"fee_segments"`
	Daily       []DailyEntry      `json:"daily"`
}

// PeriodInputs bundles everything a period accrual needs. Events may be
// the loan's full ledger; the engine filters internally.
type PeriodInputs struct {
	Start             time.Time
	End               time.Time
	Events            []models.LoanEvent
	FeeRate           decimal.Decimal
	InitialCommitment decimal.Decimal
	InterestType      models.InterestType // loan-level interest type
	DayCount          models.DayCount
}

// ComputePeriodAccrual derives the complete accrual report for one
// period: opening/closing states, movement totals, segment-exact interest,
// day-granular commitment fees, and the PIK closing projection.
func ComputePeriodAccrual(in PeriodInputs) PeriodAccrual {
	start, end := DateOnly(in.Start), DateOnly(in.End)
	replayOpts := ReplayOptions{
		InitialCommitment:   in.InitialCommitment,
		DefaultInterestType: in.InterestType,
	}
	segOpts := SegmentOptions{
		InitialCommitment:   in.InitialCommitment,
		DefaultInterestType: in.InterestType,
		FeeRate:             in.FeeRate,
		DayCount:            in.DayCount,
	}

	acc := PeriodAccrual{
		PeriodStart:   start,
		PeriodEnd:     end,
		Opening:       StateAt(in.Events, start.AddDate(0, 0, -1), replayOpts),
		LedgerClosing: StateAt(in.Events, end, replayOpts),
		Segments:      InterestSegments(in.Events, start, end, segOpts),
		FeeSegments:   FeeSegments(in.Events, start, end, segOpts),
	}
	zeroTotals(&acc)

	feesInvoicedCash := decimal.Zero
	for _, e := range Replayable(in.Events, end) {
		if DateOnly(e.EffectiveDate).Before(start) {
			continue
		}
		switch e.EventType {
		case models.EventPrincipalDraw:
			acc.Drawn = acc.Drawn.Add(e.AmountOrZero())
		case models.EventPrincipalRepayment:
			acc.Repaid = acc.Repaid.Add(e.AmountOrZero())
		case models.EventPIKCapitalization:
			acc.PIKCapitalized = acc.PIKCapitalized.Add(e.AmountOrZero())
		case models.EventFeeInvoice:
			acc.FeesInvoiced = acc.FeesInvoiced.Add(e.AmountOrZero())
			if e.Metadata.PaymentType != models.PaymentKindPIK {
				feesInvoicedCash = feesInvoicedCash.Add(e.AmountOrZero())
			}
		}
	}

	for _, seg := range acc.Segments {
		acc.InterestAccrued = acc.InterestAccrued.Add(seg.Interest)
		if seg.InterestType == models.InterestTypePIK {
			acc.PIKInterestAccrued = acc.PIKInterestAccrued.Add(seg.Interest)
		} else {
			acc.CashInterestAccrued = acc.CashInterestAccrued.Add(seg.Interest)
		}
	}

	// Fee accrual is summed at daily granularity to back the drill-down.
	acc.Daily = dailyEntries(acc.Segments, acc.FeeSegments, in.DayCount)
	for _, d := range acc.Daily {
		acc.CommitmentFeeAccrued = acc.CommitmentFeeAccrued.Add(d.Fee)
	}

	// PIK interest capitalizes rather than bills, so only cash-pay
	// interest and cash fee invoices are ever due in cash.
	acc.TotalDue = acc.CashInterestAccrued.
		Add(acc.CommitmentFeeAccrued).
		Add(feesInvoicedCash)

	// A PIK loan whose capitalization has not posted yet gets a projected
	// closing principal anticipating the event that will land at period
	// close. Once capitalization posts, the ledger state is authoritative.
	if in.InterestType == models.InterestTypePIK && acc.PIKCapitalized.IsZero() {
		acc.ClosingProjected = true
		acc.ClosingPrincipal = acc.Opening.OutstandingPrincipal.
			Add(acc.Drawn).
			Sub(acc.Repaid).
			Add(acc.FeesInvoiced).
			Add(acc.InterestAccrued).
			Add(acc.CommitmentFeeAccrued)
	} else {
		acc.ClosingPrincipal = acc.LedgerClosing.OutstandingPrincipal
	}

	return acc
}

// dailyEntries expands the two segment partitions into one row per day.
// Both partitions cover the same range, so a single cursor per list is
// enough.
func dailyEntries(segments []InterestSegment, feeSegments []FeeSegment, dc models.DayCount) []DailyEntry {
	if len(segments) == 0 {
		return nil
	}

	start := segments[0].Start
	end := segments[len(segments)-1].End

	entries := make([]DailyEntry, 0, DaysInclusive(start, end))
	si, fi := 0, 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		for si < len(segments)-1 && d.After(segments[si].End) {
			si++
		}
		for fi < len(feeSegments)-1 && d.After(feeSegments[fi].End) {
			fi++
		}
		seg := segments[si]
		entry := DailyEntry{
			Date:         d,
			Principal:    seg.Principal,
			Rate:         seg.Rate,
			InterestType: seg.InterestType,
			Interest:     DailyInterest(seg.Principal, seg.Rate, dc),
			Undrawn:      decimal.Zero,
			Fee:          decimal.Zero,
		}
		if fi < len(feeSegments) {
			fseg := feeSegments[fi]
			entry.Undrawn = fseg.Undrawn
			entry.Fee = DailyFee(fseg.Undrawn, fseg.FeeRate, dc)
		}
		entries = append(entries, entry)
	}
	return entries
}

func zeroTotals(acc *PeriodAccrual) {
	acc.ClosingPrincipal = decimal.Zero
	acc.Drawn = decimal.Zero
	acc.Repaid = decimal.Zero
	acc.PIKCapitalized = decimal.Zero
	acc.FeesInvoiced = decimal.Zero
	acc.InterestAccrued = decimal.Zero
	acc.CashInterestAccrued = decimal.Zero
	acc.PIKInterestAccrued = decimal.Zero
	acc.CommitmentFeeAccrued = decimal.Zero
	acc.TotalDue = decimal.Zero
}
