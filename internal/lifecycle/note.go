package lifecycle

import (
	"time"

	"StructLedger/internal/ledger"
	"StructLedger/internal/payoff"
	"StructLedger/internal/product"

	"github.com/shopspring/decimal"
)

// ComputeNoteMaturity settles a structured note at final fixing:
// payout per unit = notional * (1 + payoff rate), where the rate is
// participation (capped) on the upside and protection-floored on the
// downside.
func ComputeNoteMaturity(
	view ledger.View,
	symbol string,
	date time.Time,
	finalSpot decimal.Decimal,
) (ledger.Result, error) {
	st, ok := view.UnitState(symbol)
	if !ok {
		return ledger.Empty(), nil
	}
	note, ok := st.(*product.StructuredNote)
	if !ok || note.Terminal() {
		return ledger.Empty(), nil
	}

	perf, err := payoff.StrikePerformance(finalSpot, note.Terms.Strike)
	if err != nil {
		return ledger.Empty(), err
	}

	rate := payoff.NotePayoffRate(
		perf,
		note.Terms.ParticipationRate,
		note.Terms.CapRate,
		note.Terms.ProtectionLevel,
	)
	perUnit := note.Terms.Notional.Mul(decimal.NewFromInt(1).Add(rate))

	d := date
	next := note.Clone()
	next.Settled = true
	next.SettledAt = &d
	next.FinalSpot = finalSpot
	next.FinalPerformance = perf
	next.PayoffRate = rate
	next.FinalPayout = perUnit

	res := ledger.Result{}.WithState(symbol, next)
	if perUnit.IsPositive() {
		res.Moves = holderMoves(view, KindMaturity, symbol,
			note.Terms.IssuerWallet, note.Terms.Currency, date, perUnit,
			product.QuantityEpsilon)
	}
	return res, nil
}
