package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendora/servicing-api/internal/models"
)

var testBase = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return testBase.AddDate(0, 0, n)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func amountEvent(typ models.EventType, on time.Time, amount string) models.LoanEvent {
	return models.LoanEvent{
		ID:            uuid.New(),
		EventType:     typ,
		EffectiveDate: on,
		Amount:        decimal.NewNullDecimal(dec(amount)),
		Status:        models.EventStatusApproved,
	}
}

func rateEvent(typ models.EventType, on time.Time, rate string) models.LoanEvent {
	return models.LoanEvent{
		ID:            uuid.New(),
		EventType:     typ,
		EffectiveDate: on,
		Rate:          decimal.NewNullDecimal(dec(rate)),
		Status:        models.EventStatusApproved,
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestStateAtAppliesTransitions(t *testing.T) {
	events := []models.LoanEvent{
		amountEvent(models.EventCommitmentSet, day(0), "1000000"),
		rateEvent(models.EventInterestRateSet, day(0), "0.08"),
		amountEvent(models.EventPrincipalDraw, day(10), "400000"),
		amountEvent(models.EventPrincipalRepayment, day(20), "100000"),
		amountEvent(models.EventCommitmentChange, day(25), "250000"),
		amountEvent(models.EventCommitmentCancel, day(30), "50000"),
		rateEvent(models.EventInterestRateChange, day(35), "0.09"),
	}

	state := StateAt(events, day(40), ReplayOptions{})

	assertDec(t, "300000", state.OutstandingPrincipal)
	assertDec(t, "0.09", state.CurrentRate)
	assertDec(t, "1200000", state.TotalCommitment)
	assertDec(t, "900000", state.UndrawnCommitment)
	assert.Equal(t, models.InterestTypeCashPay, state.InterestType)
}

func TestStateAtClosedIntervalSemantics(t *testing.T) {
	events := []models.LoanEvent{
		amountEvent(models.EventPrincipalDraw, day(10), "500"),
		amountEvent(models.EventPrincipalDraw, day(11), "500"),
	}

	// State "at" a date includes that date's events, excludes later ones.
	state := StateAt(events, day(10), ReplayOptions{})
	assertDec(t, "500", state.OutstandingPrincipal)

	state = StateAt(events, day(9), ReplayOptions{})
	assertDec(t, "0", state.OutstandingPrincipal)
}

func TestStateAtIgnoresDraftEvents(t *testing.T) {
	draft := amountEvent(models.EventPrincipalDraw, day(5), "999999")
	draft.Status = models.EventStatusDraft

	approvedOnly := []models.LoanEvent{
		amountEvent(models.EventPrincipalDraw, day(3), "1000"),
	}
	withDraft := append([]models.LoanEvent{draft}, approvedOnly...)

	assert.Equal(t,
		StateAt(approvedOnly, day(10), ReplayOptions{}),
		StateAt(withDraft, day(10), ReplayOptions{}))
}

func TestStateAtClampsAtZero(t *testing.T) {
	events := []models.LoanEvent{
		amountEvent(models.EventPrincipalDraw, day(1), "100"),
		amountEvent(models.EventPrincipalRepayment, day(2), "500"),
		amountEvent(models.EventCommitmentSet, day(3), "200"),
		amountEvent(models.EventCommitmentCancel, day(4), "1000"),
	}

	state := StateAt(events, day(10), ReplayOptions{})
	assertDec(t, "0", state.OutstandingPrincipal)
	assertDec(t, "0", state.TotalCommitment)
	assertDec(t, "0", state.UndrawnCommitment)
}

func TestStateAtPreservesLedgerOrderForSameDateEvents(t *testing.T) {
	// Two rate events on the same date: the one recorded later in the
	// ledger wins, and the order must survive the sort.
	events := []models.LoanEvent{
		rateEvent(models.EventInterestRateSet, day(5), "0.05"),
		amountEvent(models.EventPrincipalDraw, day(3), "100"),
		rateEvent(models.EventInterestRateChange, day(5), "0.07"),
	}

	state := StateAt(events, day(10), ReplayOptions{})
	assertDec(t, "0.07", state.CurrentRate)
}

func TestStateAtPIKFlagAndFeeInvoice(t *testing.T) {
	pikFlag := models.LoanEvent{
		ID:            uuid.New(),
		EventType:     models.EventPIKFlagSet,
		EffectiveDate: day(0),
		Metadata:      models.EventMetadata{InterestType: models.InterestTypePIK},
		Status:        models.EventStatusApproved,
	}
	pikFee := amountEvent(models.EventFeeInvoice, day(5), "10000")
	pikFee.Metadata = models.EventMetadata{PaymentType: models.PaymentKindPIK}
	cashFee := amountEvent(models.EventFeeInvoice, day(6), "7000")
	cashFee.Metadata = models.EventMetadata{PaymentType: models.PaymentKindCash}

	events := []models.LoanEvent{pikFlag, pikFee, cashFee}
	state := StateAt(events, day(10), ReplayOptions{})

	assert.Equal(t, models.InterestTypePIK, state.InterestType)
	// Only the PIK fee invoice capitalizes into principal.
	assertDec(t, "10000", state.OutstandingPrincipal)
}

func TestStateAtCashReceivedHasNoStateEffect(t *testing.T) {
	events := []models.LoanEvent{
		amountEvent(models.EventPrincipalDraw, day(1), "1000"),
		amountEvent(models.EventCashReceived, day(2), "400"),
	}

	state := StateAt(events, day(10), ReplayOptions{})
	assertDec(t, "1000", state.OutstandingPrincipal)
}

func TestStateAtIsIdempotentAndPure(t *testing.T) {
	events := []models.LoanEvent{
		amountEvent(models.EventCommitmentSet, day(0), "1000000"),
		amountEvent(models.EventPrincipalDraw, day(10), "400000"),
		rateEvent(models.EventInterestRateSet, day(0), "0.08"),
	}
	snapshot := make([]models.LoanEvent, len(events))
	copy(snapshot, events)

	first := StateAt(events, day(40), ReplayOptions{})
	second := StateAt(events, day(40), ReplayOptions{})

	assert.Equal(t, first, second)
	// Replay must not reorder or mutate the caller's slice.
	require.Equal(t, snapshot, events)
}

func TestStateAtUndrawnInvariant(t *testing.T) {
	events := []models.LoanEvent{
		amountEvent(models.EventCommitmentSet, day(0), "1000000"),
		amountEvent(models.EventPrincipalDraw, day(10), "400000"),
		amountEvent(models.EventPrincipalDraw, day(20), "800000"), // over-draw past commitment
		amountEvent(models.EventCommitmentCancel, day(30), "2000000"),
	}

	for n := 0; n <= 40; n++ {
		state := StateAt(events, day(n), ReplayOptions{})
		expected := state.TotalCommitment.Sub(state.OutstandingPrincipal)
		if expected.IsNegative() {
			expected = decimal.Zero
		}
		assert.True(t, state.UndrawnCommitment.Equal(expected), "day %d", n)
		assert.False(t, state.OutstandingPrincipal.IsNegative(), "day %d", n)
		assert.False(t, state.TotalCommitment.IsNegative(), "day %d", n)
	}
}

func TestStateAtUsesInitialCommitment(t *testing.T) {
	state := StateAt(nil, day(0), ReplayOptions{InitialCommitment: dec("500000")})
	assertDec(t, "500000", state.TotalCommitment)
	assertDec(t, "500000", state.UndrawnCommitment)

	// commitment_set overrides the initial commitment rather than adding.
	events := []models.LoanEvent{amountEvent(models.EventCommitmentSet, day(1), "750000")}
	state = StateAt(events, day(2), ReplayOptions{InitialCommitment: dec("500000")})
	assertDec(t, "750000", state.TotalCommitment)
}
