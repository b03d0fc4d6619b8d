package lifecycle

import (
	"sort"
	"time"

	"StructLedger/internal/ledger"
	"StructLedger/internal/payoff"
	"StructLedger/internal/product"

	"github.com/shopspring/decimal"
)

// ComputeInterestAccrual adds ACT/365 interest on the outstanding
// principal to the accrued-interest accumulator. Accrual produces no
// moves — interest is settled at repayment or liquidation.
func ComputeInterestAccrual(
	view ledger.View,
	symbol string,
	date time.Time,
	days int64,
) (ledger.Result, error) {
	loan, ok := loanState(view, symbol)
	if !ok {
		return ledger.Empty(), nil
	}
	if loan.Terminal() || loan.AccruedOn(date) {
		return ledger.Empty(), nil
	}

	interest, err := payoff.InterestAccrued(loan.Terms.LoanAmount, loan.Terms.InterestRate, days)
	if err != nil {
		return ledger.Empty(), err
	}

	next := loan.Clone()
	next.AccruedInterest = next.AccruedInterest.Add(interest)
	next.Accruals = append(next.Accruals, product.AccrualRecord{
		Date:     date,
		Days:     days,
		Interest: interest,
	})

	return ledger.Result{}.WithState(symbol, next), nil
}

// ComputeMarginCheck revalues collateral and moves the loan between the
// margin bands. A drop below maintenance records a margin call with its
// shortfall and starts the cure clock; recovery at or above maintenance
// clears it. No moves are emitted — seizure happens via liquidation.
func ComputeMarginCheck(
	view ledger.View,
	symbol string,
	date time.Time,
	prices map[string]decimal.Decimal,
) (ledger.Result, error) {
	loan, ok := loanState(view, symbol)
	if !ok {
		return ledger.Empty(), nil
	}
	if loan.Terminal() || loan.CheckedOn(date) {
		return ledger.Empty(), nil
	}

	ratio, value, debt, err := loanMarginRatio(view, loan, prices)
	if err != nil {
		return ledger.Empty(), err
	}

	status := payoff.MarginStatusFor(ratio, loan.Terms.InitialMargin, loan.Terms.MaintenanceMargin)
	shortfall := decimal.Zero

	next := loan.Clone()
	switch status {
	case product.MarginBreach:
		shortfall = payoff.MarginShortfall(loan.Terms.MaintenanceMargin, debt, value)
		if next.BreachedAt == nil {
			d := date
			next.BreachedAt = &d
		}
		// An uncured breach escalates once the cure window has lapsed.
		if date.Sub(*next.BreachedAt) > loan.Terms.CureDeadline {
			status = product.MarginLiquidation
		}
	default:
		next.BreachedAt = nil
	}
	next.Status = status
	next.MarginEvents = append(next.MarginEvents, product.MarginCallRecord{
		Date:            date,
		Ratio:           ratio,
		Status:          status,
		Shortfall:       shortfall,
		CollateralValue: value,
		TotalDebt:       debt,
	})

	return ledger.Result{}.WithState(symbol, next), nil
}

// ComputeMarginCure re-checks a breached loan after the borrower added
// collateral. A ratio back at or above maintenance clears the breach;
// anything less leaves the cure clock running.
func ComputeMarginCure(
	view ledger.View,
	symbol string,
	date time.Time,
	prices map[string]decimal.Decimal,
) (ledger.Result, error) {
	loan, ok := loanState(view, symbol)
	if !ok {
		return ledger.Empty(), nil
	}
	if loan.Terminal() || loan.CheckedOn(date) {
		return ledger.Empty(), nil
	}
	if loan.Status != product.MarginBreach && loan.Status != product.MarginLiquidation {
		return ledger.Empty(), nil
	}

	ratio, value, debt, err := loanMarginRatio(view, loan, prices)
	if err != nil {
		return ledger.Empty(), err
	}

	status := payoff.MarginStatusFor(ratio, loan.Terms.InitialMargin, loan.Terms.MaintenanceMargin)
	next := loan.Clone()
	if status != product.MarginBreach {
		next.BreachedAt = nil
	}
	next.Status = status
	next.MarginEvents = append(next.MarginEvents, product.MarginCallRecord{
		Date:            date,
		Ratio:           ratio,
		Status:          status,
		Shortfall:       payoff.MarginShortfall(loan.Terms.MaintenanceMargin, debt, value),
		CollateralValue: value,
		TotalDebt:       debt,
	})

	return ledger.Result{}.WithState(symbol, next), nil
}

// ComputeLiquidation seizes eligible collateral from the borrower up to
// the outstanding debt, valued at haircut prices, and closes the loan.
// Assets are seized in sorted order for determinism.
func ComputeLiquidation(
	view ledger.View,
	symbol string,
	date time.Time,
	prices map[string]decimal.Decimal,
) (ledger.Result, error) {
	loan, ok := loanState(view, symbol)
	if !ok {
		return ledger.Empty(), nil
	}
	if loan.Terminal() {
		return ledger.Empty(), nil
	}

	debt := loan.TotalDebt()
	remaining := debt

	var moves []ledger.Move
	for _, asset := range sortedAssets(loan.Terms.Haircuts) {
		if !remaining.IsPositive() {
			break
		}
		qty := view.Positions(asset)[loan.Terms.BorrowerWallet]
		if !qty.IsPositive() {
			continue
		}
		price, okPrice := prices[asset]
		if !okPrice {
			return ledger.Empty(), &payoff.MissingPriceError{Asset: asset}
		}
		if !price.IsPositive() {
			return ledger.Empty(), product.Errorf("price."+asset, price.String(), "must be positive")
		}

		haircutValue := price.Mul(loan.Terms.Haircuts[asset])
		seizeQty := qty
		if qty.Mul(haircutValue).GreaterThan(remaining) {
			seizeQty = remaining.Div(haircutValue)
		}
		if seizeQty.Abs().LessThanOrEqual(product.QuantityEpsilon) {
			continue
		}

		moves = append(moves, ledger.Move{
			Source:     loan.Terms.BorrowerWallet,
			Dest:       loan.Terms.LenderWallet,
			Unit:       asset,
			Quantity:   seizeQty,
			ContractID: contractID(KindLiquidation, symbol, date, loan.Terms.LenderWallet) + ":" + asset,
		})
		remaining = remaining.Sub(seizeQty.Mul(haircutValue))
	}

	d := date
	next := loan.Clone()
	next.Status = product.MarginLiquidation
	next.Liquidated = true
	next.SettledAt = &d
	next.AccruedInterest = decimal.Zero
	next.MarginEvents = append(next.MarginEvents, product.MarginCallRecord{
		Date:      date,
		Status:    product.MarginLiquidation,
		TotalDebt: debt,
	})

	return ledger.Result{Moves: moves}.WithState(symbol, next), nil
}

// ComputeRepayment settles the loan at maturity: the borrower repays
// principal plus accrued interest in the loan currency.
func ComputeRepayment(
	view ledger.View,
	symbol string,
	date time.Time,
) (ledger.Result, error) {
	loan, ok := loanState(view, symbol)
	if !ok {
		return ledger.Empty(), nil
	}
	if loan.Terminal() {
		return ledger.Empty(), nil
	}

	total := loan.TotalDebt()

	d := date
	next := loan.Clone()
	next.Settled = true
	next.SettledAt = &d
	next.Status = product.MarginHealthy
	next.AccruedInterest = decimal.Zero

	res := ledger.Result{}.WithState(symbol, next)
	if total.GreaterThan(product.QuantityEpsilon) {
		res.Moves = []ledger.Move{{
			Source:     loan.Terms.BorrowerWallet,
			Dest:       loan.Terms.LenderWallet,
			Unit:       loan.Terms.Currency,
			Quantity:   total,
			ContractID: contractID(KindRepayment, symbol, date, loan.Terms.LenderWallet),
		}}
	}
	return res, nil
}

// loanMarginRatio values the borrower's collateral holdings at the
// supplied prices and returns (ratio, collateral value, total debt).
func loanMarginRatio(
	view ledger.View,
	loan *product.MarginLoan,
	prices map[string]decimal.Decimal,
) (ratio, value, debt decimal.Decimal, err error) {
	holdings := make(map[string]decimal.Decimal, len(loan.Terms.Haircuts))
	for asset := range loan.Terms.Haircuts {
		if qty := view.Positions(asset)[loan.Terms.BorrowerWallet]; qty.IsPositive() {
			holdings[asset] = qty
		}
	}

	value, err = payoff.CollateralValue(holdings, prices, loan.Terms.Haircuts)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}

	debt = loan.TotalDebt()
	ratio, err = payoff.MarginRatio(value, debt)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	return ratio, value, debt, nil
}

func sortedAssets(haircuts map[string]decimal.Decimal) []string {
	assets := make([]string, 0, len(haircuts))
	for asset := range haircuts {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

func loanState(view ledger.View, symbol string) (*product.MarginLoan, bool) {
	st, ok := view.UnitState(symbol)
	if !ok {
		return nil, false
	}
	loan, ok := st.(*product.MarginLoan)
	return loan, ok
}
