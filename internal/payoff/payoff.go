// Package payoff holds the pure calculators: performance, barrier
// cascades, margin ratios, basket NAV, funding legs and swap netting.
// Nothing here reads the ledger or touches state — calculators take
// values in and return values out, so every formula is testable in
// isolation and the event processors stay thin.
package payoff

import (
	"StructLedger/internal/product"
	"fmt"

	"github.com/shopspring/decimal"
)

// MissingPriceError reports a basket asset without a supplied price.
type MissingPriceError struct {
	Asset string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("missing price for asset %s", e.Asset)
}

var (
	one         = decimal.NewFromInt(1)
	hundred     = decimal.NewFromInt(100)
	daysPerYear = decimal.NewFromInt(365)
)

// Performance computes observed / reference.
func Performance(observed, reference decimal.Decimal) (decimal.Decimal, error) {
	if !observed.IsPositive() {
		return decimal.Zero, product.Errorf("observed", observed.String(), "must be positive")
	}
	if !reference.IsPositive() {
		return decimal.Zero, product.Errorf("reference", reference.String(), "must be positive")
	}
	return observed.Div(reference), nil
}

// StrikePerformance computes (final - strike) / strike for notes.
func StrikePerformance(final, strike decimal.Decimal) (decimal.Decimal, error) {
	if !final.IsPositive() {
		return decimal.Zero, product.Errorf("final", final.String(), "must be positive")
	}
	if !strike.IsPositive() {
		return decimal.Zero, product.Errorf("strike", strike.String(), "must be positive")
	}
	return final.Sub(strike).Div(strike), nil
}

// BarrierOutcome is the decision for one autocallable observation.
// The cascade is evaluated in strict order and the first match wins:
// autocall, else coupon, else missed. KnockIn is evaluated independently
// against the same spot, and only when the product does not autocall.
type BarrierOutcome struct {
	Autocall  bool
	PayCoupon bool // true on autocall too: the current-period coupon is paid
	KnockIn   bool
}

// EvaluateBarriers runs the autocallable barrier cascade for a single
// observation. Autocall uses >=, knock-in uses <=, both against the same
// performance. alreadyKnockedIn suppresses a repeat knock-in flip.
func EvaluateBarriers(
	performance, autocallBarrier, couponBarrier, putBarrier decimal.Decimal,
	alreadyKnockedIn bool,
) BarrierOutcome {
	if performance.GreaterThanOrEqual(autocallBarrier) {
		return BarrierOutcome{Autocall: true, PayCoupon: true}
	}

	out := BarrierOutcome{
		PayCoupon: performance.GreaterThanOrEqual(couponBarrier),
	}
	if !alreadyKnockedIn && performance.LessThanOrEqual(putBarrier) {
		out.KnockIn = true
	}
	return out
}

// NotePayoffRate computes the structured-note payoff rate from strike
// performance. Positive performance participates up to the optional cap;
// non-positive performance is floored at protectionLevel - 1.
func NotePayoffRate(
	performance, participationRate decimal.Decimal,
	capRate *decimal.Decimal,
	protectionLevel decimal.Decimal,
) decimal.Decimal {
	if performance.IsPositive() {
		rate := participationRate.Mul(performance)
		if capRate != nil && rate.GreaterThan(*capRate) {
			rate = *capRate
		}
		return rate
	}

	floor := protectionLevel.Sub(one)
	if performance.LessThan(floor) {
		return floor
	}
	return performance
}

// CollateralValue computes sum(qty_i * price_i * haircut_i) over the
// eligible collateral assets. Assets with no haircut entry are ignored;
// an eligible asset held without a price fails with MissingPriceError.
func CollateralValue(
	holdings map[string]decimal.Decimal,
	prices map[string]decimal.Decimal,
	haircuts map[string]decimal.Decimal,
) (decimal.Decimal, error) {
	value := decimal.Zero
	for asset, haircut := range haircuts {
		qty, held := holdings[asset]
		if !held || !qty.IsPositive() {
			continue
		}
		price, ok := prices[asset]
		if !ok {
			return decimal.Zero, &MissingPriceError{Asset: asset}
		}
		if !price.IsPositive() {
			return decimal.Zero, product.Errorf("price."+asset, price.String(), "must be positive")
		}
		value = value.Add(qty.Mul(price).Mul(haircut))
	}
	return value, nil
}

// MarginRatio computes collateralValue / (loanAmount + accruedInterest).
func MarginRatio(collateralValue, totalDebt decimal.Decimal) (decimal.Decimal, error) {
	if !totalDebt.IsPositive() {
		return decimal.Zero, product.Errorf("total_debt", totalDebt.String(), "must be positive")
	}
	return collateralValue.Div(totalDebt), nil
}

// MarginStatusFor maps a ratio into the margin bands. Escalation from
// Breach to Liquidation is time-based and handled by the event processor.
func MarginStatusFor(ratio, initialMargin, maintenanceMargin decimal.Decimal) product.MarginStatus {
	switch {
	case ratio.GreaterThanOrEqual(initialMargin):
		return product.MarginHealthy
	case ratio.GreaterThanOrEqual(maintenanceMargin):
		return product.MarginWarning
	default:
		return product.MarginBreach
	}
}

// MarginShortfall computes maintenanceMargin * totalDebt - collateralValue,
// floored at zero for healthy ratios.
func MarginShortfall(maintenanceMargin, totalDebt, collateralValue decimal.Decimal) decimal.Decimal {
	shortfall := maintenanceMargin.Mul(totalDebt).Sub(collateralValue)
	if shortfall.IsNegative() {
		return decimal.Zero
	}
	return shortfall
}

// BasketNAV computes (sum weight_i * price_i) * notional / 100, requiring
// a price for every basket asset.
func BasketNAV(
	weights map[string]decimal.Decimal,
	prices map[string]decimal.Decimal,
	notional decimal.Decimal,
) (decimal.Decimal, error) {
	weighted := decimal.Zero
	for asset, w := range weights {
		price, ok := prices[asset]
		if !ok {
			return decimal.Zero, &MissingPriceError{Asset: asset}
		}
		if !price.IsPositive() {
			return decimal.Zero, product.Errorf("price."+asset, price.String(), "must be positive")
		}
		weighted = weighted.Add(w.Mul(price))
	}
	return weighted.Mul(notional).Div(hundred), nil
}

// FundingAmount computes the ACT/365 funding leg:
// notional * spread * days / 365.
func FundingAmount(notional, spread decimal.Decimal, days int64) (decimal.Decimal, error) {
	if days < 0 {
		return decimal.Zero, product.Errorf("days", fmt.Sprintf("%d", days), "must be non-negative")
	}
	return notional.Mul(spread).Mul(decimal.NewFromInt(days)).Div(daysPerYear), nil
}

// InterestAccrued computes ACT/365 simple interest on a loan principal.
func InterestAccrued(principal, annualRate decimal.Decimal, days int64) (decimal.Decimal, error) {
	return FundingAmount(principal, annualRate, days)
}

// SwapNet computes the return leg and net settlement for a swap reset.
// lastNAV must be positive — the first reset (no baseline) is handled by
// the caller with returnAmount = 0. The sign of net determines direction:
// positive pays payer -> receiver, negative pays receiver -> payer.
func SwapNet(notional, currentNAV, lastNAV, fundingAmount decimal.Decimal) (returnAmount, net decimal.Decimal, err error) {
	if !lastNAV.IsPositive() {
		return decimal.Zero, decimal.Zero,
			product.Errorf("last_nav", lastNAV.String(), "must be positive")
	}
	returnAmount = notional.Mul(currentNAV.Sub(lastNAV)).Div(lastNAV)
	net = returnAmount.Sub(fundingAmount)
	return returnAmount, net, nil
}
