package lifecycle

import (
	"time"

	"StructLedger/internal/ledger"
	"StructLedger/internal/product"

	"github.com/shopspring/decimal"
)

// ContractFunc is the polymorphic entry point registered per product
// against the scheduler: given a ledger view, a symbol, the current tick
// timestamp and a price map, decide which (if any) lifecycle event is due
// and run it. At most one event fires per call.
type ContractFunc func(view ledger.View, symbol string, ts time.Time, prices map[string]decimal.Decimal) (ledger.Result, error)

// CatchUpPolicy controls what happens to scheduled dates the scheduler
// skipped over (e.g. after a gap).
type CatchUpPolicy int32

const (
	// CatchUpProcessAll fires the earliest unprocessed due date, one per
	// tick, until the schedule has caught up.
	CatchUpProcessAll CatchUpPolicy = iota

	// CatchUpSkipStale fires only the most recent due date; earlier
	// missed dates are dropped.
	CatchUpSkipStale
)

// Contract returns the auto-detecting adapter: it dispatches on the
// product type stored under the symbol. Unknown symbols, terminal
// products and price-feed gaps all return an empty result — the
// scheduler polls again next tick.
func Contract(policy CatchUpPolicy) ContractFunc {
	return func(view ledger.View, symbol string, ts time.Time, prices map[string]decimal.Decimal) (ledger.Result, error) {
		st, ok := view.UnitState(symbol)
		if !ok || st.Terminal() {
			return ledger.Empty(), nil
		}
		switch st.(type) {
		case *product.Autocallable:
			return autocallableContract(view, symbol, ts, prices, policy)
		case *product.StructuredNote:
			return noteContract(view, symbol, ts, prices)
		case *product.PortfolioSwap:
			return swapContract(view, symbol, ts, prices, policy)
		case *product.MarginLoan:
			return loanContract(view, symbol, ts, prices)
		default:
			return ledger.Empty(), nil
		}
	}
}

// AutocallableContract is the adapter with the default catch-up policy.
func AutocallableContract(view ledger.View, symbol string, ts time.Time, prices map[string]decimal.Decimal) (ledger.Result, error) {
	return autocallableContract(view, symbol, ts, prices, CatchUpProcessAll)
}

// NoteContract is the structured-note adapter.
func NoteContract(view ledger.View, symbol string, ts time.Time, prices map[string]decimal.Decimal) (ledger.Result, error) {
	return noteContract(view, symbol, ts, prices)
}

// SwapContract is the portfolio-swap adapter with the default policy.
func SwapContract(view ledger.View, symbol string, ts time.Time, prices map[string]decimal.Decimal) (ledger.Result, error) {
	return swapContract(view, symbol, ts, prices, CatchUpProcessAll)
}

// LoanContract is the margin-loan adapter.
func LoanContract(view ledger.View, symbol string, ts time.Time, prices map[string]decimal.Decimal) (ledger.Result, error) {
	return loanContract(view, symbol, ts, prices)
}

func autocallableContract(
	view ledger.View,
	symbol string,
	ts time.Time,
	prices map[string]decimal.Decimal,
	policy CatchUpPolicy,
) (ledger.Result, error) {
	ac, ok := autocallableState(view, symbol)
	if !ok || ac.Terminal() {
		return ledger.Empty(), nil
	}

	spot, ok := prices[ac.Terms.Underlying]
	if !ok {
		// Price feed gap — tolerated, retried next tick.
		return ledger.Empty(), nil
	}

	if due, found := nextDueDate(ac.Terms.ObservationDates, ts, ac.ObservedOn, lastDate(ac), policy); found {
		return ComputeObservation(view, symbol, due, spot)
	}

	if !ts.Before(ac.Terms.MaturityDate) {
		return ComputeAutocallableMaturity(view, symbol, ac.Terms.MaturityDate, spot)
	}

	return ledger.Empty(), nil
}

func noteContract(view ledger.View, symbol string, ts time.Time, prices map[string]decimal.Decimal) (ledger.Result, error) {
	st, ok := view.UnitState(symbol)
	if !ok {
		return ledger.Empty(), nil
	}
	note, ok := st.(*product.StructuredNote)
	if !ok || note.Terminal() {
		return ledger.Empty(), nil
	}

	spot, ok := prices[note.Terms.Underlying]
	if !ok {
		return ledger.Empty(), nil
	}

	if !ts.Before(note.Terms.MaturityDate) {
		return ComputeNoteMaturity(view, symbol, note.Terms.MaturityDate, spot)
	}
	return ledger.Empty(), nil
}

func swapContract(
	view ledger.View,
	symbol string,
	ts time.Time,
	prices map[string]decimal.Decimal,
	policy CatchUpPolicy,
) (ledger.Result, error) {
	sw, ok := swapState(view, symbol)
	if !ok || sw.Terminal() {
		return ledger.Empty(), nil
	}

	for asset := range sw.Terms.Weights {
		if _, ok := prices[asset]; !ok {
			return ledger.Empty(), nil
		}
	}

	baseline := sw.Terms.EffectiveDate
	if sw.LastResetDate != nil {
		baseline = *sw.LastResetDate
	}

	if due, found := nextDueDate(sw.Terms.ResetDates, ts, sw.ResetOn, sw.LastResetDate, policy); found {
		return ComputeReset(view, symbol, due, prices, daysBetween(baseline, due))
	}

	if !ts.Before(sw.Terms.MaturityDate) {
		return ComputeSwapTermination(view, symbol, sw.Terms.MaturityDate, prices,
			daysBetween(baseline, sw.Terms.MaturityDate))
	}

	return ledger.Empty(), nil
}

// loanContract priority: liquidate an uncured or escalated breach, then
// settle at maturity, then accrue daily interest, then revalue margin.
// One event
// per tick; with intraday ticks both accrual and the margin check run on
// the same day.
func loanContract(view ledger.View, symbol string, ts time.Time, prices map[string]decimal.Decimal) (ledger.Result, error) {
	loan, ok := loanState(view, symbol)
	if !ok || loan.Terminal() {
		return ledger.Empty(), nil
	}

	if loanDueLiquidation(loan, ts) {
		if !collateralPriced(view, loan, prices) {
			return ledger.Empty(), nil
		}
		return ComputeLiquidation(view, symbol, ts, prices)
	}

	if !ts.Before(loan.Terms.MaturityDate) {
		return ComputeRepayment(view, symbol, loan.Terms.MaturityDate)
	}

	day := ts.UTC().Truncate(24 * time.Hour)
	if day.After(loan.Terms.IssueDate) && !loan.AccruedOn(day) {
		prev := loan.Terms.IssueDate
		if n := len(loan.Accruals); n > 0 {
			prev = loan.Accruals[n-1].Date
		}
		if days := daysBetween(prev, day); days > 0 {
			return ComputeInterestAccrual(view, symbol, day, days)
		}
	}

	if !loan.CheckedOn(ts) && collateralPriced(view, loan, prices) {
		return ComputeMarginCheck(view, symbol, ts, prices)
	}

	return ledger.Empty(), nil
}

// TerminateEarly closes a portfolio swap before its maturity date,
// settling the final period against the supplied prices. Other product
// types and terminal swaps return an empty result.
func TerminateEarly(view ledger.View, symbol string, ts time.Time, prices map[string]decimal.Decimal) (ledger.Result, error) {
	sw, ok := swapState(view, symbol)
	if !ok || sw.Terminal() {
		return ledger.Empty(), nil
	}

	for asset := range sw.Terms.Weights {
		if _, ok := prices[asset]; !ok {
			return ledger.Empty(), nil
		}
	}

	baseline := sw.Terms.EffectiveDate
	if sw.LastResetDate != nil {
		baseline = *sw.LastResetDate
	}
	return ComputeSwapTermination(view, symbol, ts, prices, daysBetween(baseline, ts))
}

// nextDueDate scans a sorted schedule for the date to fire at timestamp
// ts. ProcessAll returns the earliest unprocessed due date; SkipStale
// returns the latest due date after the last processed one.
func nextDueDate(
	schedule []time.Time,
	ts time.Time,
	processed func(time.Time) bool,
	last *time.Time,
	policy CatchUpPolicy,
) (time.Time, bool) {
	var due time.Time
	found := false

	for _, date := range schedule {
		if date.After(ts) {
			break
		}
		if policy == CatchUpSkipStale {
			if last != nil && !date.After(*last) {
				continue
			}
			// Keep scanning: the latest due date wins.
			due = date
			found = true
			continue
		}
		if !processed(date) {
			return date, true
		}
	}

	if found && processed(due) {
		return time.Time{}, false
	}
	return due, found
}

// loanDueLiquidation reports whether the loan must be liquidated: either
// a margin check already escalated the status, or a recorded breach has
// outlived the cure window since the last check.
func loanDueLiquidation(loan *product.MarginLoan, ts time.Time) bool {
	if loan.Status == product.MarginLiquidation {
		return true
	}
	return loan.Status == product.MarginBreach && loan.BreachedAt != nil &&
		ts.Sub(*loan.BreachedAt) > loan.Terms.CureDeadline
}

func collateralPriced(view ledger.View, loan *product.MarginLoan, prices map[string]decimal.Decimal) bool {
	for asset := range loan.Terms.Haircuts {
		qty := view.Positions(asset)[loan.Terms.BorrowerWallet]
		if !qty.IsPositive() {
			continue
		}
		if _, ok := prices[asset]; !ok {
			return false
		}
	}
	return true
}

func daysBetween(from, to time.Time) int64 {
	return int64(to.Sub(from) / (24 * time.Hour))
}

// lastDate returns the most recent observation date, or nil when the log
// is empty. Used by the skip-stale policy.
func lastDate(ac *product.Autocallable) *time.Time {
	if n := len(ac.Observations); n > 0 {
		d := ac.Observations[n-1].Date
		return &d
	}
	return nil
}
