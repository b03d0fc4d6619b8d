// Package lifecycle contains the event processors that combine a product
// term sheet, its accumulated state and externally supplied market
// observations into ledger moves plus a replacement state snapshot.
//
// All processors follow the same protocol: validate inputs first, return
// an empty result for duplicates and terminal products, and never mutate
// a previously returned state.
package lifecycle

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates lifecycle event payloads.
type Kind string

const (
	KindObservation Kind = "observation"
	KindMaturity    Kind = "maturity"
	KindReset       Kind = "reset"
	KindTermination Kind = "termination"
	KindAccrual     Kind = "interest_accrual"
	KindMarginCheck Kind = "margin_check"
	KindMarginCure  Kind = "margin_cure"
	KindLiquidation Kind = "liquidation"
	KindRepayment   Kind = "repayment"
)

// Event is a typed lifecycle event. Each variant carries exactly the
// fields its processor requires, so a missing parameter is a zero value
// the router can detect instead of a runtime keyword lookup.
type Event interface {
	Kind() Kind
	Date() time.Time
}

// Observation is a scheduled barrier observation for an autocallable.
type Observation struct {
	On   time.Time
	Spot decimal.Decimal
}

func (e Observation) Kind() Kind      { return KindObservation }
func (e Observation) Date() time.Time { return e.On }

// Maturity settles an autocallable or structured note at final fixing.
type Maturity struct {
	On        time.Time
	FinalSpot decimal.Decimal
}

func (e Maturity) Kind() Kind      { return KindMaturity }
func (e Maturity) Date() time.Time { return e.On }

// Reset is a periodic swap settlement: return leg vs funding leg.
type Reset struct {
	On     time.Time
	Prices map[string]decimal.Decimal
	Days   int64 // days elapsed since the previous reset
}

func (e Reset) Kind() Kind      { return KindReset }
func (e Reset) Date() time.Time { return e.On }

// Termination runs a final swap reset and closes the contract.
type Termination struct {
	On     time.Time
	Prices map[string]decimal.Decimal
	Days   int64
}

func (e Termination) Kind() Kind      { return KindTermination }
func (e Termination) Date() time.Time { return e.On }

// InterestAccrual accrues ACT/365 interest on a margin loan.
type InterestAccrual struct {
	On   time.Time
	Days int64
}

func (e InterestAccrual) Kind() Kind      { return KindAccrual }
func (e InterestAccrual) Date() time.Time { return e.On }

// MarginCheck revalues margin-loan collateral against current prices.
type MarginCheck struct {
	On     time.Time
	Prices map[string]decimal.Decimal
}

func (e MarginCheck) Kind() Kind      { return KindMarginCheck }
func (e MarginCheck) Date() time.Time { return e.On }

// MarginCure re-checks a breached loan after the borrower topped up
// collateral.
type MarginCure struct {
	On     time.Time
	Prices map[string]decimal.Decimal
}

func (e MarginCure) Kind() Kind      { return KindMarginCure }
func (e MarginCure) Date() time.Time { return e.On }

// Liquidation seizes eligible collateral on an uncured breach.
type Liquidation struct {
	On     time.Time
	Prices map[string]decimal.Decimal
}

func (e Liquidation) Kind() Kind      { return KindLiquidation }
func (e Liquidation) Date() time.Time { return e.On }

// Repayment settles a margin loan: principal plus accrued interest.
type Repayment struct {
	On time.Time
}

func (e Repayment) Kind() Kind      { return KindRepayment }
func (e Repayment) Date() time.Time { return e.On }
