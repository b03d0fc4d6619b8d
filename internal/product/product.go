package product

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// QuantityEpsilon is the tolerance for equality-style comparisons
// (basket weight sums, move suppression). It is never used for monetary
// accumulation — all amounts are exact decimals.
var QuantityEpsilon = decimal.New(1, -9) // 1e-9

// State is the immutable runtime snapshot of a product. A new snapshot
// replaces the old one atomically; no event processor mutates a
// previously returned state.
type State interface {
	// ProductSymbol returns the unit symbol the product trades under.
	ProductSymbol() string

	// Terminal reports whether a terminal lifecycle flag is set. Once
	// terminal, all further event processing is a guaranteed no-op.
	Terminal() bool
}

func validatePositive(field string, v decimal.Decimal) *ValidationError {
	if !v.IsPositive() {
		return Errorf(field, v.String(), "must be positive")
	}
	return nil
}

func validateNonNegative(field string, v decimal.Decimal) *ValidationError {
	if v.IsNegative() {
		return Errorf(field, v.String(), "must be non-negative")
	}
	return nil
}

func validateWallets(a, b string) *ValidationError {
	if a == "" || b == "" {
		return Errorf("wallet", "", "counterparty wallet must not be empty")
	}
	if a == b {
		return Errorf("wallet", a, "counterparties must differ")
	}
	return nil
}

// sortedDates returns a sorted ascending copy of the schedule, failing on
// an empty schedule. Schedules are pre-sorted at construction so event
// processors can scan them in order.
func sortedDates(field string, dates []time.Time) ([]time.Time, *ValidationError) {
	if len(dates) == 0 {
		return nil, Errorf(field, "[]", "schedule must not be empty")
	}
	out := make([]time.Time, len(dates))
	copy(out, dates)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func copyDecimalMap(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
