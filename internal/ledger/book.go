package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Book is the in-memory ledger backing the lifecycle engine and tests.
// It implements View and applies Results atomically: a batch either
// passes validation in full (including duplicate contract-ID detection)
// and is applied, or the book is left untouched.
//
// Not thread-safe — the engine serializes access per simulation, matching
// the single-threaded processing model.
type Book struct {
	now      time.Time
	balances map[string]map[string]decimal.Decimal // wallet -> unit -> qty
	states   map[string]UnitState
	applied  map[string]struct{} // contract IDs already applied
}

func NewBook() *Book {
	return &Book{
		balances: make(map[string]map[string]decimal.Decimal),
		states:   make(map[string]UnitState),
		applied:  make(map[string]struct{}),
	}
}

// SetTime advances the simulation clock.
func (b *Book) SetTime(ts time.Time) { b.now = ts }

func (b *Book) CurrentTime() time.Time { return b.now }

// PutState installs or replaces a product state snapshot. Used to seed
// newly created term sheets; event results go through Apply.
func (b *Book) PutState(st UnitState) {
	b.states[st.ProductSymbol()] = st
}

func (b *Book) UnitState(symbol string) (UnitState, bool) {
	st, ok := b.states[symbol]
	return st, ok
}

// Credit adds quantity to a wallet's unit balance. Used to seed holder
// positions and wallet funding for simulations.
func (b *Book) Credit(wallet, unit string, qty decimal.Decimal) {
	if b.balances[wallet] == nil {
		b.balances[wallet] = make(map[string]decimal.Decimal)
	}
	b.balances[wallet][unit] = b.balances[wallet][unit].Add(qty)
}

// Balance returns a wallet's balance in one unit.
func (b *Book) Balance(wallet, unit string) decimal.Decimal {
	return b.balances[wallet][unit]
}

// Positions returns wallet -> quantity for every wallet holding the unit.
// The returned map is a copy.
func (b *Book) Positions(symbol string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for wallet, units := range b.balances {
		if qty, ok := units[symbol]; ok && !qty.IsZero() {
			out[wallet] = qty
		}
	}
	return out
}

// Symbols returns every symbol with a registered state.
func (b *Book) Symbols() []string {
	out := make([]string, 0, len(b.states))
	for sym := range b.states {
		out = append(out, sym)
	}
	return out
}

// Apply validates and applies a result atomically. Duplicate contract IDs
// (within the batch or against previously applied moves) reject the whole
// batch; state replacement happens only after all moves are applied.
func (b *Book) Apply(res Result) error {
	seen := make(map[string]struct{}, len(res.Moves))
	for _, mv := range res.Moves {
		if err := mv.Validate(); err != nil {
			return err
		}
		if _, dup := b.applied[mv.ContractID]; dup {
			return fmt.Errorf("duplicate move: contract id %s already applied", mv.ContractID)
		}
		if _, dup := seen[mv.ContractID]; dup {
			return fmt.Errorf("duplicate move: contract id %s repeated in batch", mv.ContractID)
		}
		seen[mv.ContractID] = struct{}{}
	}

	for _, mv := range res.Moves {
		b.debit(mv.Source, mv.Unit, mv.Quantity)
		b.Credit(mv.Dest, mv.Unit, mv.Quantity)
		b.applied[mv.ContractID] = struct{}{}
	}

	for symbol, st := range res.StateUpdates {
		b.states[symbol] = st
	}

	return nil
}

func (b *Book) debit(wallet, unit string, qty decimal.Decimal) {
	if b.balances[wallet] == nil {
		b.balances[wallet] = make(map[string]decimal.Decimal)
	}
	b.balances[wallet][unit] = b.balances[wallet][unit].Sub(qty)
}
