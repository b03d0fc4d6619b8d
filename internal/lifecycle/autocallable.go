package lifecycle

import (
	"time"

	"StructLedger/internal/ledger"
	"StructLedger/internal/payoff"
	"StructLedger/internal/product"

	"github.com/shopspring/decimal"
)

// ComputeObservation processes one scheduled barrier observation for an
// autocallable. The cascade is evaluated in strict order, first match
// wins: autocall (notional + coupon + outstanding memory), else coupon
// (+ memory), else coupon missed (accrues into memory when the feature is
// on). Knock-in is evaluated independently against the same spot when the
// product does not autocall.
func ComputeObservation(
	view ledger.View,
	symbol string,
	date time.Time,
	spot decimal.Decimal,
) (ledger.Result, error) {
	ac, ok := autocallableState(view, symbol)
	if !ok {
		return ledger.Empty(), nil
	}
	if ac.Terminal() || ac.ObservedOn(date) {
		// Duplicate scheduler invocation — deliberate silent no-op.
		return ledger.Empty(), nil
	}

	perf, err := payoff.Performance(spot, ac.Terms.InitialSpot)
	if err != nil {
		return ledger.Empty(), err
	}

	outcome := payoff.EvaluateBarriers(
		perf,
		ac.Terms.AutocallBarrier,
		ac.Terms.CouponBarrier,
		ac.Terms.PutBarrier,
		ac.PutKnockedIn,
	)

	next := ac.Clone()
	rec := product.ObservationRecord{
		Date:        date,
		Spot:        spot,
		Performance: perf,
		CouponPaid:  decimal.Zero,
		MemoryPaid:  decimal.Zero,
	}

	coupon := ac.PeriodCoupon()
	perUnit := decimal.Zero

	switch {
	case outcome.Autocall:
		// Redemption: notional + current coupon + outstanding memory.
		rec.Autocalled = true
		rec.CouponPaid = coupon
		rec.MemoryPaid = next.AccruedMemory
		perUnit = ac.Terms.Notional.Add(coupon).Add(next.AccruedMemory)

		d := date
		next.Autocalled = true
		next.Settled = true
		next.AutocallDate = &d
		next.SettledAt = &d
		next.AccruedMemory = decimal.Zero
		next.FinalSpot = spot
		next.FinalPerformance = perf
		next.FinalPayout = perUnit

	case outcome.PayCoupon:
		rec.CouponPaid = coupon
		rec.MemoryPaid = next.AccruedMemory
		perUnit = coupon.Add(next.AccruedMemory)
		next.AccruedMemory = decimal.Zero

	default:
		// Coupon missed. With the memory feature the obligation carries
		// forward; without it the coupon is simply lost.
		if ac.Terms.MemoryFeature {
			next.AccruedMemory = next.AccruedMemory.Add(coupon)
		}
	}

	if outcome.KnockIn {
		rec.KnockedIn = true
		next.PutKnockedIn = true
	}

	next.Observations = append(next.Observations, rec)

	res := ledger.Result{}.WithState(symbol, next)
	if perUnit.IsPositive() {
		res.Moves = holderMoves(view, KindObservation, symbol,
			ac.Terms.IssuerWallet, ac.Terms.Currency, date, perUnit,
			product.QuantityEpsilon)
	}
	return res, nil
}

// ComputeAutocallableMaturity settles the product at final fixing. The
// final observation still drives the coupon leg (coupon barrier plus
// memory); the principal leg repays notional in full unless the put has
// knocked in and the underlying finished below its initial level, in
// which case principal scales with performance.
func ComputeAutocallableMaturity(
	view ledger.View,
	symbol string,
	date time.Time,
	finalSpot decimal.Decimal,
) (ledger.Result, error) {
	ac, ok := autocallableState(view, symbol)
	if !ok {
		return ledger.Empty(), nil
	}
	// Settlement flips the terminal flag, so Terminal alone dedups a
	// replay; the maturity date may legitimately coincide with the final
	// scheduled observation.
	if ac.Terminal() {
		return ledger.Empty(), nil
	}

	perf, err := payoff.Performance(finalSpot, ac.Terms.InitialSpot)
	if err != nil {
		return ledger.Empty(), err
	}

	next := ac.Clone()
	rec := product.ObservationRecord{
		Date:        date,
		Spot:        finalSpot,
		Performance: perf,
		CouponPaid:  decimal.Zero,
		MemoryPaid:  decimal.Zero,
	}

	// Final knock-in check against the same fixing.
	if !next.PutKnockedIn && perf.LessThanOrEqual(ac.Terms.PutBarrier) {
		rec.KnockedIn = true
		next.PutKnockedIn = true
	}

	one := decimal.NewFromInt(1)
	principal := ac.Terms.Notional
	if next.PutKnockedIn && perf.LessThan(one) {
		principal = ac.Terms.Notional.Mul(perf)
	}

	perUnit := principal
	if perf.GreaterThanOrEqual(ac.Terms.CouponBarrier) {
		coupon := ac.PeriodCoupon()
		rec.CouponPaid = coupon
		rec.MemoryPaid = next.AccruedMemory
		perUnit = perUnit.Add(coupon).Add(next.AccruedMemory)
	}

	d := date
	next.Settled = true
	next.SettledAt = &d
	next.AccruedMemory = decimal.Zero
	next.FinalSpot = finalSpot
	next.FinalPerformance = perf
	next.FinalPayout = perUnit
	next.Observations = append(next.Observations, rec)

	res := ledger.Result{}.WithState(symbol, next)
	if perUnit.IsPositive() {
		res.Moves = holderMoves(view, KindMaturity, symbol,
			ac.Terms.IssuerWallet, ac.Terms.Currency, date, perUnit,
			product.QuantityEpsilon)
	}
	return res, nil
}

func autocallableState(view ledger.View, symbol string) (*product.Autocallable, bool) {
	st, ok := view.UnitState(symbol)
	if !ok {
		return nil, false
	}
	ac, ok := st.(*product.Autocallable)
	return ac, ok
}
