package query_test

import (
	"StructLedger/internal/ledger"
	"StructLedger/internal/lifecycle"
	"StructLedger/internal/product"
	"StructLedger/internal/query"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func seededBook(t *testing.T) *ledger.Book {
	t.Helper()
	ac, err := product.NewAutocallable(product.AutocallableTerms{
		Symbol:           "AC-XYZ",
		Underlying:       "XYZ",
		Currency:         "USD",
		Notional:         dec("100000"),
		InitialSpot:      dec("100"),
		AutocallBarrier:  dec("1.00"),
		CouponBarrier:    dec("0.80"),
		PutBarrier:       dec("0.60"),
		CouponRate:       dec("0.08"),
		MemoryFeature:    true,
		IssuerWallet:     "issuer",
		IssueDate:        day("2026-01-15"),
		MaturityDate:     day("2027-01-15"),
		ObservationDates: []time.Time{day("2026-04-15"), day("2026-07-15")},
	})
	if err != nil {
		t.Fatalf("build autocallable: %v", err)
	}
	sw, err := product.NewPortfolioSwap(product.PortfolioSwapTerms{
		Symbol:         "TRS-1",
		Currency:       "USD",
		Notional:       dec("1000000"),
		Weights:        map[string]decimal.Decimal{"AAA": dec("0.6"), "BBB": dec("0.4")},
		FundingSpread:  dec("0.01"),
		PayerWallet:    "dealer",
		ReceiverWallet: "client",
		EffectiveDate:  day("2026-01-01"),
		MaturityDate:   day("2027-01-01"),
		ResetDates:     []time.Time{day("2026-03-15"), day("2026-06-15")},
	})
	if err != nil {
		t.Fatalf("build swap: %v", err)
	}
	loan, err := product.NewMarginLoan(product.MarginLoanTerms{
		Symbol:            "ML-1",
		Currency:          "USD",
		LoanAmount:        dec("500000"),
		InterestRate:      dec("0.073"),
		InitialMargin:     dec("1.50"),
		MaintenanceMargin: dec("1.25"),
		Haircuts:          map[string]decimal.Decimal{"AAA": dec("0.8")},
		LenderWallet:      "lender",
		BorrowerWallet:    "borrower",
		IssueDate:         day("2026-01-01"),
		MaturityDate:      day("2026-07-01"),
		CureDeadline:      48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("build loan: %v", err)
	}

	book := ledger.NewBook()
	book.SetTime(day("2026-02-01"))
	book.PutState(ac)
	book.PutState(sw)
	book.PutState(loan)
	book.Credit("alice", "AC-XYZ", dec("1"))
	book.Credit("borrower", "AAA", dec("10000"))
	return book
}

// ============================================================================
// Test: ProductStatus projections
// ============================================================================

func TestProductStatus_Autocallable(t *testing.T) {
	book := seededBook(t)
	svc := query.NewService(book)

	res, err := lifecycle.ComputeObservation(book, "AC-XYZ", day("2026-04-15"), dec("90"))
	if err != nil {
		t.Fatalf("observation: %v", err)
	}
	if err := book.Apply(res); err != nil {
		t.Fatalf("apply: %v", err)
	}

	status, err := svc.ProductStatus("AC-XYZ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.ProductType != "autocallable" || status.Currency != "USD" {
		t.Errorf("header: %+v", status)
	}
	if status.Terminal || status.Autocalled || status.PutKnockedIn {
		t.Errorf("flags: %+v", status)
	}
	if !status.TotalCouponsPaid.Equal(dec("8000")) {
		t.Errorf("total coupons: got %s, want 8000", status.TotalCouponsPaid)
	}
	if status.ObservationsProcessed != 1 {
		t.Errorf("observations: got %d, want 1", status.ObservationsProcessed)
	}
	if status.NextEventDate == nil || !status.NextEventDate.Equal(day("2026-07-15")) {
		t.Errorf("next event: %v, want 2026-07-15", status.NextEventDate)
	}
	if !status.AsOf.Equal(day("2026-02-01")) {
		t.Errorf("as-of: %v", status.AsOf)
	}
}

func TestProductStatus_AutocallableSettledHasNoNextEvent(t *testing.T) {
	book := seededBook(t)
	svc := query.NewService(book)

	for _, d := range []string{"2026-04-15", "2026-07-15"} {
		res, err := lifecycle.ComputeObservation(book, "AC-XYZ", day(d), dec("90"))
		if err != nil {
			t.Fatalf("observation: %v", err)
		}
		if err := book.Apply(res); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	res, err := lifecycle.ComputeAutocallableMaturity(book, "AC-XYZ", day("2027-01-15"), dec("90"))
	if err != nil {
		t.Fatalf("maturity: %v", err)
	}
	if err := book.Apply(res); err != nil {
		t.Fatalf("apply: %v", err)
	}

	status, err := svc.ProductStatus("AC-XYZ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Terminal || !status.Settled {
		t.Errorf("flags: %+v", status)
	}
	if status.NextEventDate != nil {
		t.Errorf("next event on a settled product: %v", status.NextEventDate)
	}
}

func TestProductStatus_Swap(t *testing.T) {
	book := seededBook(t)
	svc := query.NewService(book)

	res, err := lifecycle.ComputeReset(book, "TRS-1", day("2026-03-15"),
		map[string]decimal.Decimal{"AAA": dec("100"), "BBB": dec("50")}, 73)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := book.Apply(res); err != nil {
		t.Fatalf("apply: %v", err)
	}

	status, err := svc.ProductStatus("TRS-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.ProductType != "portfolio_swap" {
		t.Errorf("type: %s", status.ProductType)
	}
	if !status.LastNAV.Equal(dec("800000")) {
		t.Errorf("last NAV: got %s, want 800000", status.LastNAV)
	}
	if status.ResetsProcessed != 1 {
		t.Errorf("resets: got %d, want 1", status.ResetsProcessed)
	}
	if status.NextEventDate == nil || !status.NextEventDate.Equal(day("2026-06-15")) {
		t.Errorf("next reset: %v, want 2026-06-15", status.NextEventDate)
	}
}

func TestProductStatus_Loan(t *testing.T) {
	book := seededBook(t)
	svc := query.NewService(book)

	res, err := lifecycle.ComputeInterestAccrual(book, "ML-1", day("2026-01-11"), 10)
	if err != nil {
		t.Fatalf("accrual: %v", err)
	}
	if err := book.Apply(res); err != nil {
		t.Fatalf("apply: %v", err)
	}
	res, err = lifecycle.ComputeMarginCheck(book, "ML-1", day("2026-02-01"),
		map[string]decimal.Decimal{"AAA": dec("75")})
	if err != nil {
		t.Fatalf("margin check: %v", err)
	}
	if err := book.Apply(res); err != nil {
		t.Fatalf("apply: %v", err)
	}

	status, err := svc.ProductStatus("ML-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.ProductType != "margin_loan" {
		t.Errorf("type: %s", status.ProductType)
	}
	if status.MarginStatus != "Breach" {
		t.Errorf("margin status: %s", status.MarginStatus)
	}
	if !status.AccruedInterest.Equal(dec("1000")) {
		t.Errorf("accrued: got %s, want 1000", status.AccruedInterest)
	}
	if !status.TotalDebt.Equal(dec("501000")) {
		t.Errorf("debt: got %s, want 501000", status.TotalDebt)
	}
	if status.MarginRatio.IsZero() || status.MarginShortfall.IsZero() {
		t.Errorf("margin figures missing: %+v", status)
	}
}

// ============================================================================
// Test: ListProducts
// ============================================================================

func TestListProducts_SortedBySymbol(t *testing.T) {
	book := seededBook(t)
	svc := query.NewService(book)

	statuses := svc.ListProducts()
	if len(statuses) != 3 {
		t.Fatalf("products: got %d, want 3", len(statuses))
	}
	want := []string{"AC-XYZ", "ML-1", "TRS-1"}
	for i, w := range want {
		if statuses[i].Symbol != w {
			t.Errorf("position %d: got %s, want %s", i, statuses[i].Symbol, w)
		}
	}
}

func TestProductStatus_UnknownSymbol(t *testing.T) {
	svc := query.NewService(ledger.NewBook())
	if _, err := svc.ProductStatus("NOPE"); err == nil {
		t.Error("unknown symbol: expected an error")
	}
}
