package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitState is the opaque product state snapshot stored per symbol.
// Concrete types live in internal/product.
type UnitState interface {
	ProductSymbol() string
	Terminal() bool
}

// View is the read-only ledger snapshot consumed by event processors.
// Processors never mutate the ledger — they return a Result that the
// owner applies atomically.
type View interface {
	// UnitState returns the current state snapshot for a product symbol.
	UnitState(symbol string) (UnitState, bool)

	// Positions returns wallet -> held quantity for a unit symbol.
	Positions(symbol string) map[string]decimal.Decimal

	// Symbols lists every product symbol with a registered state.
	Symbols() []string

	// CurrentTime is the simulation clock, used to timestamp settlement
	// records. Processors never call time.Now().
	CurrentTime() time.Time
}

// Result is the bundle produced by an event processor: zero or more
// moves plus full replacement states per symbol. An empty Result means
// the event was a deliberate no-op (duplicate, terminal, not due).
type Result struct {
	Moves        []Move
	StateUpdates map[string]UnitState
}

// Empty returns the canonical no-op result.
func Empty() Result {
	return Result{}
}

// IsEmpty reports whether the result carries no moves and no state change.
func (r Result) IsEmpty() bool {
	return len(r.Moves) == 0 && len(r.StateUpdates) == 0
}

// WithState returns a result updating a single symbol's state.
func (r Result) WithState(symbol string, st UnitState) Result {
	if r.StateUpdates == nil {
		r.StateUpdates = make(map[string]UnitState, 1)
	}
	r.StateUpdates[symbol] = st
	return r
}
