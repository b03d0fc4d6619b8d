package lifecycle_test

import (
	"StructLedger/internal/ledger"
	"StructLedger/internal/lifecycle"
	"StructLedger/internal/product"
	"testing"
)

// ============================================================================
// Test: Catch-up policies
// ============================================================================

func TestContract_ProcessAllFiresEarliestFirst(t *testing.T) {
	book, _ := newAutocallableBook(t, true)
	contract := lifecycle.Contract(lifecycle.CatchUpProcessAll)
	px := prices("XYZ", "90")

	// The scheduler wakes up after two scheduled observations have passed.
	ts := day("2026-07-20")

	res, err := contract(book, "AC-XYZ", ts, px)
	if err != nil {
		t.Fatalf("first tick: %v", err)
	}
	mustApply(t, book, res)

	ac := acState(t, book, "AC-XYZ")
	if len(ac.Observations) != 1 || !ac.Observations[0].Date.Equal(day("2026-04-15")) {
		t.Fatalf("first catch-up observation: %+v", ac.Observations)
	}

	res, err = contract(book, "AC-XYZ", ts, px)
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	mustApply(t, book, res)

	ac = acState(t, book, "AC-XYZ")
	if len(ac.Observations) != 2 || !ac.Observations[1].Date.Equal(day("2026-07-15")) {
		t.Fatalf("second catch-up observation: %+v", ac.Observations)
	}

	// Schedule caught up: third tick at the same timestamp idles.
	res, err = contract(book, "AC-XYZ", ts, px)
	if err != nil || !res.IsEmpty() {
		t.Errorf("caught-up tick: res=%+v err=%v", res, err)
	}
}

func TestContract_SkipStaleFiresLatestOnly(t *testing.T) {
	book, _ := newAutocallableBook(t, true)
	contract := lifecycle.Contract(lifecycle.CatchUpSkipStale)

	res, err := contract(book, "AC-XYZ", day("2026-07-20"), prices("XYZ", "90"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustApply(t, book, res)

	ac := acState(t, book, "AC-XYZ")
	if len(ac.Observations) != 1 || !ac.Observations[0].Date.Equal(day("2026-07-15")) {
		t.Fatalf("skip-stale should fire only the latest due date: %+v", ac.Observations)
	}

	// The stale 2026-04-15 date is dropped for good.
	res, err = contract(book, "AC-XYZ", day("2026-07-20"), prices("XYZ", "90"))
	if err != nil || !res.IsEmpty() {
		t.Errorf("stale date must not fire later: res=%+v err=%v", res, err)
	}
}

// ============================================================================
// Test: Adapter dispatch
// ============================================================================

func TestContract_PriceGapIdles(t *testing.T) {
	book, _ := newAutocallableBook(t, true)
	contract := lifecycle.Contract(lifecycle.CatchUpProcessAll)

	res, err := contract(book, "AC-XYZ", day("2026-04-15"), prices("OTHER", "90"))
	if err != nil || !res.IsEmpty() {
		t.Errorf("missing underlying price: res=%+v err=%v", res, err)
	}
}

func TestContract_UnknownSymbolIdles(t *testing.T) {
	contract := lifecycle.Contract(lifecycle.CatchUpProcessAll)
	res, err := contract(ledger.NewBook(), "NOPE", day("2026-04-15"), prices("XYZ", "90"))
	if err != nil || !res.IsEmpty() {
		t.Errorf("unknown symbol: res=%+v err=%v", res, err)
	}
}

func TestContract_MaturityFiresOnOrAfterDate(t *testing.T) {
	book, _ := newAutocallableBook(t, true)
	contract := lifecycle.Contract(lifecycle.CatchUpProcessAll)
	px := prices("XYZ", "90")

	// Drain the observation schedule first.
	for i := 0; i < 3; i++ {
		res, err := contract(book, "AC-XYZ", day("2026-12-01"), px)
		if err != nil {
			t.Fatalf("observation catch-up %d: %v", i, err)
		}
		mustApply(t, book, res)
	}

	// Day before maturity: nothing due.
	res, err := contract(book, "AC-XYZ", day("2027-01-14"), px)
	if err != nil || !res.IsEmpty() {
		t.Fatalf("pre-maturity tick: res=%+v err=%v", res, err)
	}

	// A tick past maturity settles at the contractual maturity date.
	res, err = contract(book, "AC-XYZ", day("2027-01-17"), px)
	if err != nil {
		t.Fatalf("maturity tick: %v", err)
	}
	mustApply(t, book, res)

	ac := acState(t, book, "AC-XYZ")
	if !ac.Terminal() {
		t.Error("maturity should settle the product")
	}
	if ac.SettledAt == nil || !ac.SettledAt.Equal(day("2027-01-15")) {
		t.Errorf("settled at: %v, want contractual maturity date", ac.SettledAt)
	}
}

func TestContract_SwapResetDaysFromBaseline(t *testing.T) {
	book := newSwapBook(t)
	contract := lifecycle.Contract(lifecycle.CatchUpProcessAll)
	px := prices("AAA", "100", "BBB", "50")

	// First reset 73 days after the effective date: funding 2000.
	res, err := contract(book, "TRS-1", day("2026-03-15"), px)
	if err != nil {
		t.Fatalf("first reset: %v", err)
	}
	if len(res.Moves) != 1 || !res.Moves[0].Quantity.Equal(dec("2000")) {
		t.Fatalf("first reset funding: %+v", res.Moves)
	}
	mustApply(t, book, res)

	// Second reset 73 days later with unchanged prices: return leg zero,
	// funding another 2000.
	res, err = contract(book, "TRS-1", day("2026-05-27"), px)
	if err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if len(res.Moves) != 1 || !res.Moves[0].Quantity.Equal(dec("2000")) {
		t.Fatalf("second reset funding: %+v", res.Moves)
	}
}

// ============================================================================
// Test: Loan event priority
// ============================================================================

func TestLoanContract_AccrualBeforeMarginCheck(t *testing.T) {
	book := newLoanBook(t)
	px := prices("AAA", "100")

	// First tick of the day accrues; the second runs the margin check.
	ts := day("2026-01-11")
	res, err := lifecycle.LoanContract(book, "ML-1", ts, px)
	if err != nil {
		t.Fatalf("first tick: %v", err)
	}
	mustApply(t, book, res)
	if got := mustLoan(t, book); len(got.Accruals) != 1 {
		t.Fatalf("expected an accrual on the first tick, got %+v", got)
	}

	res, err = lifecycle.LoanContract(book, "ML-1", ts, px)
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	mustApply(t, book, res)
	if got := marginEventCount(t, book); got != 1 {
		t.Fatalf("expected a margin check on the second tick, got %d events", got)
	}
}

func TestLoanContract_RepaymentAtMaturityBeatsAccrual(t *testing.T) {
	book := newLoanBook(t)
	book.Credit("borrower", "USD", dec("600000"))

	res, err := lifecycle.LoanContract(book, "ML-1", day("2026-07-01"), prices("AAA", "100"))
	if err != nil {
		t.Fatalf("maturity tick: %v", err)
	}
	if len(res.Moves) != 1 || !res.Moves[0].Quantity.Equal(dec("500000")) {
		t.Fatalf("repayment moves: %+v", res.Moves)
	}
	mustApply(t, book, res)
	if !mustLoan(t, book).Terminal() {
		t.Error("loan should settle at maturity")
	}
}

func TestLoanContract_UncuredBreachLiquidates(t *testing.T) {
	book := newLoanBook(t)
	px := prices("AAA", "60") // 10000 * 60 * 0.8 = 480000 < debt 500000

	res, err := lifecycle.ComputeMarginCheck(book, "ML-1", day("2026-02-03"), px)
	if err != nil {
		t.Fatalf("breach check: %v", err)
	}
	mustApply(t, book, res)
	if mustLoan(t, book).Status != product.MarginBreach {
		t.Fatal("setup should leave the loan in breach")
	}

	// Past the 48h cure deadline the adapter liquidates before anything
	// else.
	res, err = lifecycle.LoanContract(book, "ML-1", day("2026-02-06"), px)
	if err != nil {
		t.Fatalf("liquidation tick: %v", err)
	}
	if len(res.Moves) == 0 {
		t.Fatal("expected collateral seizure moves")
	}
	mustApply(t, book, res)
	if !mustLoan(t, book).Liquidated {
		t.Error("uncured breach past the deadline should liquidate")
	}
}

func TestLoanContract_LiquidatesFromEscalatedStatus(t *testing.T) {
	book := newLoanBook(t)
	px := prices("AAA", "60")

	// Breach, then a later margin check escalates the stored status past
	// the cure deadline without seizing anything.
	res, err := lifecycle.ComputeMarginCheck(book, "ML-1", day("2026-02-03"), px)
	if err != nil {
		t.Fatalf("breach check: %v", err)
	}
	mustApply(t, book, res)

	res, err = lifecycle.ComputeMarginCheck(book, "ML-1", day("2026-02-06"), px)
	if err != nil {
		t.Fatalf("escalation check: %v", err)
	}
	mustApply(t, book, res)
	if mustLoan(t, book).Status != product.MarginLiquidation {
		t.Fatal("setup should leave the loan in escalated liquidation status")
	}

	// The adapter must seize from the escalated state on the next tick
	// instead of running another margin check.
	res, err = lifecycle.LoanContract(book, "ML-1", day("2026-02-07"), px)
	if err != nil {
		t.Fatalf("liquidation tick: %v", err)
	}
	if len(res.Moves) == 0 {
		t.Fatal("expected collateral seizure moves from the escalated status")
	}
	mustApply(t, book, res)

	loan := mustLoan(t, book)
	if !loan.Liquidated || !loan.Terminal() {
		t.Error("escalated loan should liquidate and close")
	}
}

// ============================================================================
// Test: Early termination
// ============================================================================

func TestTerminateEarly_ClosesSwapMidLife(t *testing.T) {
	book := newSwapBook(t)

	res, err := lifecycle.TerminateEarly(book, "TRS-1", day("2026-02-01"),
		prices("AAA", "100", "BBB", "50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustApply(t, book, res)

	st, _ := book.UnitState("TRS-1")
	sw := st.(*product.PortfolioSwap)
	if !sw.Terminated {
		t.Error("early termination should close the swap")
	}
	// 31 days of funding: 1e6 * 0.01 * 31/365.
	want := dec("1000000").Mul(dec("0.01")).Mul(dec("31")).Div(dec("365"))
	if len(res.Moves) != 1 || !res.Moves[0].Quantity.Equal(want) {
		t.Errorf("final funding: %+v, want %s", res.Moves, want)
	}
}

func TestTerminateEarly_NonSwapIsNoOp(t *testing.T) {
	book, _ := newAutocallableBook(t, true)
	res, err := lifecycle.TerminateEarly(book, "AC-XYZ", day("2026-02-01"), prices("XYZ", "90"))
	if err != nil || !res.IsEmpty() {
		t.Errorf("non-swap: res=%+v err=%v", res, err)
	}
}

func TestTerminateEarly_MissingBasketPriceIdles(t *testing.T) {
	book := newSwapBook(t)
	res, err := lifecycle.TerminateEarly(book, "TRS-1", day("2026-02-01"), prices("AAA", "100"))
	if err != nil || !res.IsEmpty() {
		t.Errorf("missing basket price: res=%+v err=%v", res, err)
	}
}

func marginEventCount(t *testing.T, book *ledger.Book) int {
	t.Helper()
	return len(mustLoan(t, book).MarginEvents)
}
