package lifecycle

import (
	"StructLedger/internal/ledger"
	"StructLedger/internal/product"
)

// Transact is the single dispatch point from a named event to the right
// processor. The router is a tolerant boundary: an unknown event, an
// unknown symbol, a product/event mismatch or a missing required
// parameter degrades to an empty result so a misconfigured scheduler
// idles instead of halting the simulation. Validation failures inside a
// processor still propagate.
func Transact(view ledger.View, symbol string, evt Event) (ledger.Result, error) {
	if evt == nil || evt.Date().IsZero() {
		return ledger.Empty(), nil
	}
	st, ok := view.UnitState(symbol)
	if !ok {
		return ledger.Empty(), nil
	}
	if st.Terminal() {
		return ledger.Empty(), nil
	}

	switch e := evt.(type) {
	case Observation:
		if e.Spot.IsZero() {
			return ledger.Empty(), nil
		}
		return ComputeObservation(view, symbol, e.On, e.Spot)

	case Maturity:
		if e.FinalSpot.IsZero() {
			return ledger.Empty(), nil
		}
		switch st.(type) {
		case *product.Autocallable:
			return ComputeAutocallableMaturity(view, symbol, e.On, e.FinalSpot)
		case *product.StructuredNote:
			return ComputeNoteMaturity(view, symbol, e.On, e.FinalSpot)
		default:
			return ledger.Empty(), nil
		}

	case Reset:
		if len(e.Prices) == 0 {
			return ledger.Empty(), nil
		}
		return ComputeReset(view, symbol, e.On, e.Prices, e.Days)

	case Termination:
		if len(e.Prices) == 0 {
			return ledger.Empty(), nil
		}
		return ComputeSwapTermination(view, symbol, e.On, e.Prices, e.Days)

	case InterestAccrual:
		if e.Days == 0 {
			return ledger.Empty(), nil
		}
		return ComputeInterestAccrual(view, symbol, e.On, e.Days)

	case MarginCheck:
		if len(e.Prices) == 0 {
			return ledger.Empty(), nil
		}
		return ComputeMarginCheck(view, symbol, e.On, e.Prices)

	case MarginCure:
		if len(e.Prices) == 0 {
			return ledger.Empty(), nil
		}
		return ComputeMarginCure(view, symbol, e.On, e.Prices)

	case Liquidation:
		if len(e.Prices) == 0 {
			return ledger.Empty(), nil
		}
		return ComputeLiquidation(view, symbol, e.On, e.Prices)

	case Repayment:
		return ComputeRepayment(view, symbol, e.On)

	default:
		return ledger.Empty(), nil
	}
}
