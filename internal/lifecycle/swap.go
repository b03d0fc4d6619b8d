package lifecycle

import (
	"time"

	"StructLedger/internal/ledger"
	"StructLedger/internal/payoff"
	"StructLedger/internal/product"

	"github.com/shopspring/decimal"
)

// ComputeReset settles one swap period: basket return leg against the
// ACT/365 funding leg, netted into a single move whose direction follows
// the sign of the net amount. The first reset has no baseline NAV — the
// return leg is zero, only funding settles, and the observed NAV becomes
// the baseline.
func ComputeReset(
	view ledger.View,
	symbol string,
	date time.Time,
	prices map[string]decimal.Decimal,
	days int64,
) (ledger.Result, error) {
	sw, ok := swapState(view, symbol)
	if !ok {
		return ledger.Empty(), nil
	}
	if sw.Terminal() || sw.ResetOn(date) {
		return ledger.Empty(), nil
	}

	next, rec, moves, err := settleSwapPeriod(sw, KindReset, date, prices, days)
	if err != nil {
		return ledger.Empty(), err
	}

	next.Resets = append(next.Resets, rec)
	return ledger.Result{Moves: moves}.WithState(symbol, next), nil
}

// ComputeSwapTermination runs a final reset and closes the swap.
func ComputeSwapTermination(
	view ledger.View,
	symbol string,
	date time.Time,
	prices map[string]decimal.Decimal,
	days int64,
) (ledger.Result, error) {
	sw, ok := swapState(view, symbol)
	if !ok {
		return ledger.Empty(), nil
	}
	if sw.Terminal() {
		return ledger.Empty(), nil
	}
	if sw.ResetOn(date) {
		// Period already settled by a scheduled reset on the same date;
		// just close the contract.
		d := date
		next := sw.Clone()
		next.Terminated = true
		next.TerminatedAt = &d
		return ledger.Result{}.WithState(symbol, next), nil
	}

	next, rec, moves, err := settleSwapPeriod(sw, KindTermination, date, prices, days)
	if err != nil {
		return ledger.Empty(), err
	}

	d := date
	next.Resets = append(next.Resets, rec)
	next.Terminated = true
	next.TerminatedAt = &d
	return ledger.Result{Moves: moves}.WithState(symbol, next), nil
}

// settleSwapPeriod computes NAV, return and funding legs and the netted
// move for one period. It validates everything before building the
// replacement state so a failure leaves no partial mutation.
func settleSwapPeriod(
	sw *product.PortfolioSwap,
	kind Kind,
	date time.Time,
	prices map[string]decimal.Decimal,
	days int64,
) (*product.PortfolioSwap, product.ResetRecord, []ledger.Move, error) {
	nav, err := payoff.BasketNAV(sw.Terms.Weights, prices, sw.Terms.Notional)
	if err != nil {
		return nil, product.ResetRecord{}, nil, err
	}

	funding, err := payoff.FundingAmount(sw.Terms.Notional, sw.Terms.FundingSpread, days)
	if err != nil {
		return nil, product.ResetRecord{}, nil, err
	}

	returnAmount := decimal.Zero
	if sw.LastNAV.IsPositive() {
		returnAmount, _, err = payoff.SwapNet(sw.Terms.Notional, nav, sw.LastNAV, funding)
		if err != nil {
			return nil, product.ResetRecord{}, nil, err
		}
	}
	net := returnAmount.Sub(funding)

	next := sw.Clone()
	d := date
	next.LastNAV = nav
	next.LastResetDate = &d
	// Skipped earlier dates are superseded, not still pending.
	for next.NextResetIndex < len(next.Terms.ResetDates) &&
		!date.Before(next.Terms.ResetDates[next.NextResetIndex]) {
		next.NextResetIndex++
	}

	rec := product.ResetRecord{
		Date:          date,
		NAV:           nav,
		ReturnAmount:  returnAmount,
		FundingAmount: funding,
		NetAmount:     net,
		Days:          days,
	}

	var moves []ledger.Move
	if net.Abs().GreaterThan(product.QuantityEpsilon) {
		src, dst := sw.Terms.PayerWallet, sw.Terms.ReceiverWallet
		amount := net
		if net.IsNegative() {
			src, dst = dst, src
			amount = net.Neg()
		}
		moves = []ledger.Move{{
			Source:     src,
			Dest:       dst,
			Unit:       sw.Terms.Currency,
			Quantity:   amount,
			ContractID: contractID(kind, sw.Terms.Symbol, date, dst),
		}}
	}

	return next, rec, moves, nil
}

func swapState(view ledger.View, symbol string) (*product.PortfolioSwap, bool) {
	st, ok := view.UnitState(symbol)
	if !ok {
		return nil, false
	}
	sw, ok := st.(*product.PortfolioSwap)
	return sw, ok
}
