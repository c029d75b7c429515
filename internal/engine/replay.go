package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lendora/servicing-api/internal/models"
)

// LoanState is the point-in-time balance sheet of a loan, derived by
// folding its approved events. It is never persisted as a source of
// truth.
type LoanState struct {
	Date                 time.Time           `json:"date"`
	OutstandingPrincipal decimal.Decimal     `json:"outstanding_principal"`
	CurrentRate          decimal.Decimal     `json:"current_rate"`
	InterestType         models.InterestType `json:"interest_type"`
	TotalCommitment      decimal.Decimal     `json:"total_commitment"`
	UndrawnCommitment    decimal.Decimal     `json:"undrawn_commitment"`
}

// ReplayOptions seeds the fold before the first event applies.
type ReplayOptions struct {
	InitialCommitment   decimal.Decimal
	DefaultInterestType models.InterestType
}

// StateAt folds a loan's event ledger into its state as of the end of
// asOf. Events dated exactly on asOf are included; later events are not.
// Draft events never participate. The input slice is not modified.
func StateAt(events []models.LoanEvent, asOf time.Time, opts ReplayOptions) LoanState {
	state := initialState(asOf, opts)
	for _, e := range Replayable(events, asOf) {
		state = applyEvent(state, e)
	}
	return state
}

// Replayable returns the approved events effective on or before asOf,
// sorted by effective date ascending. The sort is stable: same-date
// events keep their original ledger order, which matters financially.
func Replayable(events []models.LoanEvent, asOf time.Time) []models.LoanEvent {
	cutoff := DateOnly(asOf)
	out := make([]models.LoanEvent, 0, len(events))
	for _, e := range events {
		if !e.IsApproved() {
			continue
		}
		if DateOnly(e.EffectiveDate).After(cutoff) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return DateOnly(out[i].EffectiveDate).Before(DateOnly(out[j].EffectiveDate))
	})
	return out
}

func initialState(asOf time.Time, opts ReplayOptions) LoanState {
	interestType := opts.DefaultInterestType
	if interestType == "" {
		interestType = models.InterestTypeCashPay
	}
	state := LoanState{
		Date:                 DateOnly(asOf),
		OutstandingPrincipal: decimal.Zero,
		CurrentRate:          decimal.Zero,
		InterestType:         interestType,
		TotalCommitment:      maxZero(opts.InitialCommitment),
	}
	state.UndrawnCommitment = maxZero(state.TotalCommitment.Sub(state.OutstandingPrincipal))
	return state
}

// applyEvent is the pure transition function of the replay fold. It never
// rejects an event: validation belongs to the recording system, and all
// arithmetic here is total (principal and commitment clamp at zero).
func applyEvent(state LoanState, e models.LoanEvent) LoanState {
	switch e.EventType {
	case models.EventPrincipalDraw:
		state.OutstandingPrincipal = state.OutstandingPrincipal.Add(e.AmountOrZero())

	case models.EventPrincipalRepayment:
		state.OutstandingPrincipal = maxZero(state.OutstandingPrincipal.Sub(e.AmountOrZero()))

	case models.EventInterestRateSet, models.EventInterestRateChange:
		state.CurrentRate = e.RateOrZero()

	case models.EventPIKFlagSet:
		if e.Metadata.InterestType != "" {
			state.InterestType = e.Metadata.InterestType
		} else {
			state.InterestType = models.InterestTypeCashPay
		}

	case models.EventCommitmentSet:
		state.TotalCommitment = maxZero(e.AmountOrZero())

	case models.EventCommitmentChange:
		state.TotalCommitment = maxZero(state.TotalCommitment.Add(e.AmountOrZero()))

	case models.EventCommitmentCancel:
		state.TotalCommitment = maxZero(state.TotalCommitment.Sub(e.AmountOrZero()))

	case models.EventPIKCapitalization:
		state.OutstandingPrincipal = state.OutstandingPrincipal.Add(e.AmountOrZero())

	case models.EventFeeInvoice:
		// PIK fee invoices capitalize; cash ones only bill.
		if e.Metadata.PaymentType == models.PaymentKindPIK {
			state.OutstandingPrincipal = state.OutstandingPrincipal.Add(e.AmountOrZero())
		}

	case models.EventCashReceived:
		// Cash-flow record only, no state effect.
	}

	state.UndrawnCommitment = maxZero(state.TotalCommitment.Sub(state.OutstandingPrincipal))
	return state
}

func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
