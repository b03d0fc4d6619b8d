package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarginStatus is the loan's margin health band.
type MarginStatus int32

const (
	MarginHealthy     MarginStatus = iota // ratio >= initial margin
	MarginWarning                         // maintenance <= ratio < initial
	MarginBreach                          // ratio < maintenance
	MarginLiquidation                     // breach uncured past the deadline
)

func (ms MarginStatus) String() string {
	switch ms {
	case MarginHealthy:
		return "Healthy"
	case MarginWarning:
		return "Warning"
	case MarginBreach:
		return "Breach"
	case MarginLiquidation:
		return "Liquidation"
	default:
		return "Unknown"
	}
}

// MarginLoanTerms is the immutable term sheet for a collateralized loan.
// Haircuts map collateral asset symbols to value multipliers in (0, 1];
// an asset not in the map is not eligible collateral.
type MarginLoanTerms struct {
	Symbol            string
	Currency          string
	LoanAmount        decimal.Decimal
	InterestRate      decimal.Decimal // annual, ACT/365
	InitialMargin     decimal.Decimal // e.g. 1.50
	MaintenanceMargin decimal.Decimal // e.g. 1.25, must not exceed InitialMargin
	Haircuts          map[string]decimal.Decimal
	LenderWallet      string
	BorrowerWallet    string
	IssueDate         time.Time
	MaturityDate      time.Time
	CureDeadline      time.Duration // time allowed to cure a breach
}

// MarginCallRecord is one entry in the append-only margin event log.
type MarginCallRecord struct {
	Date            time.Time
	Ratio           decimal.Decimal
	Status          MarginStatus
	Shortfall       decimal.Decimal // zero unless below maintenance
	CollateralValue decimal.Decimal
	TotalDebt       decimal.Decimal
}

// AccrualRecord is one entry in the append-only interest accrual log.
type AccrualRecord struct {
	Date     time.Time
	Days     int64
	Interest decimal.Decimal
}

// MarginLoan is the runtime state snapshot.
type MarginLoan struct {
	Terms MarginLoanTerms

	AccruedInterest decimal.Decimal
	Status          MarginStatus
	BreachedAt      *time.Time // set on first uncured breach
	MarginEvents    []MarginCallRecord
	Accruals        []AccrualRecord
	Liquidated      bool
	Settled         bool
	SettledAt       *time.Time
}

// NewMarginLoan validates the term sheet and returns the initial state.
func NewMarginLoan(terms MarginLoanTerms) (*MarginLoan, error) {
	if terms.Symbol == "" {
		return nil, Errorf("symbol", "", "must not be empty")
	}
	if terms.Currency == "" {
		return nil, Errorf("currency", "", "must not be empty")
	}
	if err := validateWallets(terms.LenderWallet, terms.BorrowerWallet); err != nil {
		return nil, err
	}
	if err := validatePositive("loan_amount", terms.LoanAmount); err != nil {
		return nil, err
	}
	if err := validateNonNegative("interest_rate", terms.InterestRate); err != nil {
		return nil, err
	}
	if err := validatePositive("initial_margin", terms.InitialMargin); err != nil {
		return nil, err
	}
	if err := validatePositive("maintenance_margin", terms.MaintenanceMargin); err != nil {
		return nil, err
	}
	if terms.MaintenanceMargin.GreaterThan(terms.InitialMargin) {
		return nil, Errorf("maintenance_margin", terms.MaintenanceMargin.String(),
			"must not exceed initial margin %s", terms.InitialMargin)
	}
	if len(terms.Haircuts) == 0 {
		return nil, Errorf("haircuts", "{}", "at least one eligible collateral asset required")
	}
	for asset, h := range terms.Haircuts {
		if !h.IsPositive() || h.GreaterThan(decimal.NewFromInt(1)) {
			return nil, Errorf("haircut."+asset, h.String(), "must be in (0, 1]")
		}
	}
	if !terms.MaturityDate.After(terms.IssueDate) {
		return nil, Errorf("maturity_date", terms.MaturityDate.Format(time.RFC3339),
			"must be after issue date")
	}
	if terms.CureDeadline <= 0 {
		return nil, Errorf("cure_deadline", terms.CureDeadline.String(), "must be positive")
	}
	terms.Haircuts = copyDecimalMap(terms.Haircuts)

	return &MarginLoan{
		Terms:           terms,
		AccruedInterest: decimal.Zero,
		Status:          MarginHealthy,
	}, nil
}

func (m *MarginLoan) ProductSymbol() string { return m.Terms.Symbol }

func (m *MarginLoan) Terminal() bool { return m.Settled || m.Liquidated }

// TotalDebt is principal plus accrued interest.
func (m *MarginLoan) TotalDebt() decimal.Decimal {
	return m.Terms.LoanAmount.Add(m.AccruedInterest)
}

// Clone returns a deep copy suitable for building a replacement snapshot.
func (m *MarginLoan) Clone() *MarginLoan {
	next := *m
	next.MarginEvents = make([]MarginCallRecord, len(m.MarginEvents))
	copy(next.MarginEvents, m.MarginEvents)
	next.Accruals = make([]AccrualRecord, len(m.Accruals))
	copy(next.Accruals, m.Accruals)
	if m.BreachedAt != nil {
		d := *m.BreachedAt
		next.BreachedAt = &d
	}
	if m.SettledAt != nil {
		d := *m.SettledAt
		next.SettledAt = &d
	}
	return &next
}

// CheckedOn reports whether a margin event was already recorded for date.
func (m *MarginLoan) CheckedOn(date time.Time) bool {
	for _, rec := range m.MarginEvents {
		if rec.Date.Equal(date) {
			return true
		}
	}
	return false
}

// AccruedOn reports whether interest was already accrued for date.
func (m *MarginLoan) AccruedOn(date time.Time) bool {
	for _, rec := range m.Accruals {
		if rec.Date.Equal(date) {
			return true
		}
	}
	return false
}
