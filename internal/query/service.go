package query

import (
	"fmt"
	"sort"
	"time"

	"StructLedger/internal/ledger"
	"StructLedger/internal/product"

	"github.com/shopspring/decimal"
)

// Service serves read-only status projections over a ledger view.
// Responses are plain values computed from the current state snapshot —
// no mutation, no caching.
type Service struct {
	view ledger.View
}

func NewService(view ledger.View) *Service {
	return &Service{view: view}
}

// ListProducts projects the status of every registered product, sorted
// by symbol.
func (s *Service) ListProducts() []*ProductStatus {
	symbols := s.view.Symbols()
	sort.Strings(symbols)

	out := make([]*ProductStatus, 0, len(symbols))
	for _, sym := range symbols {
		status, err := s.ProductStatus(sym)
		if err != nil {
			continue
		}
		out = append(out, status)
	}
	return out
}

// ProductStatus projects one product's lifecycle state for reporting.
func (s *Service) ProductStatus(symbol string) (*ProductStatus, error) {
	st, ok := s.view.UnitState(symbol)
	if !ok {
		return nil, fmt.Errorf("unknown product symbol: %s", symbol)
	}

	status := &ProductStatus{
		Symbol:   symbol,
		Terminal: st.Terminal(),
		AsOf:     s.view.CurrentTime(),
	}

	switch p := st.(type) {
	case *product.Autocallable:
		status.ProductType = "autocallable"
		status.Currency = p.Terms.Currency
		status.Autocalled = p.Autocalled
		status.Settled = p.Settled
		status.PutKnockedIn = p.PutKnockedIn
		status.TotalCouponsPaid = totalCoupons(p)
		status.AccruedMemory = p.AccruedMemory
		status.ObservationsProcessed = len(p.Observations)
		if next, ok := nextUnprocessed(p); ok {
			status.NextEventDate = &next
		}

	case *product.StructuredNote:
		status.ProductType = "structured_note"
		status.Currency = p.Terms.Currency
		status.Settled = p.Settled
		if !p.Settled {
			d := p.Terms.MaturityDate
			status.NextEventDate = &d
		} else {
			status.FinalPayout = p.FinalPayout
		}

	case *product.PortfolioSwap:
		status.ProductType = "portfolio_swap"
		status.Currency = p.Terms.Currency
		status.Settled = p.Terminated
		status.LastNAV = p.LastNAV
		status.ResetsProcessed = len(p.Resets)
		if p.NextResetIndex < len(p.Terms.ResetDates) {
			d := p.Terms.ResetDates[p.NextResetIndex]
			status.NextEventDate = &d
		}

	case *product.MarginLoan:
		status.ProductType = "margin_loan"
		status.Currency = p.Terms.Currency
		status.Settled = p.Settled
		status.Liquidated = p.Liquidated
		status.MarginStatus = p.Status.String()
		status.AccruedInterest = p.AccruedInterest
		status.TotalDebt = p.TotalDebt()
		if n := len(p.MarginEvents); n > 0 {
			last := p.MarginEvents[n-1]
			status.MarginRatio = last.Ratio
			status.MarginShortfall = last.Shortfall
		}

	default:
		status.ProductType = "unknown"
	}

	return status, nil
}

func totalCoupons(p *product.Autocallable) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range p.Observations {
		total = total.Add(rec.CouponPaid).Add(rec.MemoryPaid)
	}
	return total
}

func nextUnprocessed(p *product.Autocallable) (time.Time, bool) {
	for _, date := range p.Terms.ObservationDates {
		if !p.ObservedOn(date) {
			return date, true
		}
	}
	if !p.Settled {
		return p.Terms.MaturityDate, true
	}
	return time.Time{}, false
}
