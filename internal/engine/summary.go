package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PortfolioSummary aggregates every period of a loan into one view.
type PortfolioSummary struct {
	Periods int `json:"periods"`

	InterestAccrued      decimal.Decimal `json:"interest_accrued"`
	CashInterestAccrued  decimal.Decimal `json:"cash_interest_accrued"`
	PIKInterestAccrued   decimal.Decimal `json:"pik_interest_accrued"`
	CommitmentFeeAccrued decimal.Decimal `json:"commitment_fee_accrued"`
	FeesInvoiced         decimal.Decimal `json:"fees_invoiced"`
	TotalDue             decimal.Decimal `json:"total_due"`

	CurrentPrincipal decimal.Decimal `json:"current_principal"`
	CurrentRate      decimal.Decimal `json:"current_rate"`
	CurrentUndrawn   decimal.Decimal `json:"current_undrawn"`
	TotalCommitment  decimal.Decimal `json:"total_commitment"`

	// AverageRate is weighted by principal-days across every interest
	// segment of every period. Zero when no principal-days exist.
	AverageRate decimal.Decimal `json:"average_rate"`
}

// Summarize folds a loan's period accruals into portfolio totals. The
// "current" figures come from the chronologically last period's closing
// values.
func Summarize(accruals []PeriodAccrual) PortfolioSummary {
	summary := PortfolioSummary{
		Periods:              len(accruals),
		InterestAccrued:      decimal.Zero,
		CashInterestAccrued:  decimal.Zero,
		PIKInterestAccrued:   decimal.Zero,
		CommitmentFeeAccrued: decimal.Zero,
		FeesInvoiced:         decimal.Zero,
		TotalDue:             decimal.Zero,
		CurrentPrincipal:     decimal.Zero,
		CurrentRate:          decimal.Zero,
		CurrentUndrawn:       decimal.Zero,
		TotalCommitment:      decimal.Zero,
		AverageRate:          decimal.Zero,
	}
	if len(accruals) == 0 {
		return summary
	}

	ordered := make([]PeriodAccrual, len(accruals))
	copy(ordered, accruals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PeriodEnd.Before(ordered[j].PeriodEnd)
	})

	weightedRate := decimal.Zero
	principalDays := decimal.Zero
	for _, acc := range ordered {
		summary.InterestAccrued = summary.InterestAccrued.Add(acc.InterestAccrued)
		summary.CashInterestAccrued = summary.CashInterestAccrued.Add(acc.CashInterestAccrued)
		summary.PIKInterestAccrued = summary.PIKInterestAccrued.Add(acc.PIKInterestAccrued)
		summary.CommitmentFeeAccrued = summary.CommitmentFeeAccrued.Add(acc.CommitmentFeeAccrued)
		summary.FeesInvoiced = summary.FeesInvoiced.Add(acc.FeesInvoiced)
		summary.TotalDue = summary.TotalDue.Add(acc.TotalDue)

		for _, seg := range acc.Segments {
			weight := seg.Principal.Mul(decimal.NewFromInt(int64(seg.Days)))
			weightedRate = weightedRate.Add(seg.Rate.Mul(weight))
			principalDays = principalDays.Add(weight)
		}
	}

	last := ordered[len(ordered)-1]
	summary.CurrentPrincipal = last.ClosingPrincipal
	summary.CurrentRate = last.LedgerClosing.CurrentRate
	summary.CurrentUndrawn = last.LedgerClosing.UndrawnCommitment
	summary.TotalCommitment = last.LedgerClosing.TotalCommitment

	if principalDays.IsPositive() {
		summary.AverageRate = weightedRate.Div(principalDays)
	}
	return summary
}
