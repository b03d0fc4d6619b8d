package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSwapTerms is the immutable term sheet for a total-return swap
// on a weighted basket. Weights must be non-negative and sum to 1 within
// QuantityEpsilon. The payer wallet pays basket return and receives the
// funding leg; the receiver wallet takes the other side.
type PortfolioSwapTerms struct {
	Symbol         string
	Currency       string
	Notional       decimal.Decimal
	Weights        map[string]decimal.Decimal // asset -> basket weight
	FundingSpread  decimal.Decimal            // annual, ACT/365
	PayerWallet    string
	ReceiverWallet string
	EffectiveDate  time.Time
	MaturityDate   time.Time
	ResetDates     []time.Time // sorted ascending at construction
}

// ResetRecord is one entry in the append-only reset log.
type ResetRecord struct {
	Date          time.Time
	NAV           decimal.Decimal
	ReturnAmount  decimal.Decimal // signed: positive = payer pays
	FundingAmount decimal.Decimal
	NetAmount     decimal.Decimal // ReturnAmount - FundingAmount
	Days          int64
}

// PortfolioSwap is the runtime state snapshot. LastNAV is zero until the
// first reset establishes the baseline.
type PortfolioSwap struct {
	Terms PortfolioSwapTerms

	LastNAV        decimal.Decimal
	LastResetDate  *time.Time
	NextResetIndex int
	Resets         []ResetRecord
	Terminated     bool
	TerminatedAt   *time.Time
}

// NewPortfolioSwap validates the term sheet and returns the initial state.
func NewPortfolioSwap(terms PortfolioSwapTerms) (*PortfolioSwap, error) {
	if terms.Symbol == "" {
		return nil, Errorf("symbol", "", "must not be empty")
	}
	if terms.Currency == "" {
		return nil, Errorf("currency", "", "must not be empty")
	}
	if err := validateWallets(terms.PayerWallet, terms.ReceiverWallet); err != nil {
		return nil, err
	}
	if err := validatePositive("notional", terms.Notional); err != nil {
		return nil, err
	}
	if err := validateNonNegative("funding_spread", terms.FundingSpread); err != nil {
		return nil, err
	}
	if len(terms.Weights) == 0 {
		return nil, Errorf("weights", "{}", "basket must not be empty")
	}
	sum := decimal.Zero
	for asset, w := range terms.Weights {
		if w.IsNegative() {
			return nil, Errorf("weight."+asset, w.String(), "must be non-negative")
		}
		sum = sum.Add(w)
	}
	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(QuantityEpsilon) {
		return nil, Errorf("weights", sum.String(), "must sum to 1 within epsilon")
	}
	if !terms.MaturityDate.After(terms.EffectiveDate) {
		return nil, Errorf("maturity_date", terms.MaturityDate.Format(time.RFC3339),
			"must be after effective date")
	}
	dates, verr := sortedDates("reset_dates", terms.ResetDates)
	if verr != nil {
		return nil, verr
	}
	terms.ResetDates = dates
	terms.Weights = copyDecimalMap(terms.Weights)

	return &PortfolioSwap{
		Terms:   terms,
		LastNAV: decimal.Zero,
	}, nil
}

func (p *PortfolioSwap) ProductSymbol() string { return p.Terms.Symbol }

func (p *PortfolioSwap) Terminal() bool { return p.Terminated }

// Clone returns a deep copy suitable for building a replacement snapshot.
func (p *PortfolioSwap) Clone() *PortfolioSwap {
	next := *p
	next.Resets = make([]ResetRecord, len(p.Resets))
	copy(next.Resets, p.Resets)
	if p.LastResetDate != nil {
		d := *p.LastResetDate
		next.LastResetDate = &d
	}
	if p.TerminatedAt != nil {
		d := *p.TerminatedAt
		next.TerminatedAt = &d
	}
	return &next
}

// ResetOn reports whether a reset was already recorded for date.
func (p *PortfolioSwap) ResetOn(date time.Time) bool {
	for _, rec := range p.Resets {
		if rec.Date.Equal(date) {
			return true
		}
	}
	return false
}
