// Package engine drives registered product contracts over a sequential
// timestamp loop. Each tick invokes every contract once with the current
// prices and applies the returned result atomically to the book.
package engine

import (
	"fmt"
	"sort"
	"time"

	"StructLedger/internal/ledger"
	"StructLedger/internal/lifecycle"
	"StructLedger/internal/observability"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AppliedEvent is the engine's output for downstream consumers
// (persistence, outbound publishing).
type AppliedEvent struct {
	Symbol    string
	Timestamp time.Time
	Moves     []ledger.Move
}

// LifecycleEngine is the single-threaded scheduler. It owns the book;
// callers must not mutate it concurrently with Tick.
type LifecycleEngine struct {
	book      *ledger.Book
	contracts map[string]lifecycle.ContractFunc
	log       zerolog.Logger
	metrics   *observability.Metrics

	outputChan chan<- AppliedEvent // nil when no downstream consumers
}

func New(book *ledger.Book, log zerolog.Logger, metrics *observability.Metrics) *LifecycleEngine {
	return &LifecycleEngine{
		book:      book,
		contracts: make(map[string]lifecycle.ContractFunc),
		log:       log,
		metrics:   metrics,
	}
}

// SetOutput attaches a downstream channel. Sends are non-blocking: the
// engine drops on a full channel rather than stalling the tick loop, and
// consumers rebuild from the book if they fall behind.
func (e *LifecycleEngine) SetOutput(ch chan<- AppliedEvent) {
	e.outputChan = ch
}

// Register binds a contract adapter to a product symbol.
func (e *LifecycleEngine) Register(symbol string, fn lifecycle.ContractFunc) {
	e.contracts[symbol] = fn
}

// Book exposes the engine's ledger view for queries.
func (e *LifecycleEngine) Book() *ledger.Book { return e.book }

// Tick advances the clock and polls every registered contract once, in
// sorted symbol order for determinism. Adapters may fire at most one
// event each; results are applied atomically. A processor failure aborts
// the tick — by then earlier symbols have already been applied, which is
// safe because application is per-symbol.
func (e *LifecycleEngine) Tick(ts time.Time, prices map[string]decimal.Decimal) ([]ledger.Move, error) {
	start := time.Now()
	e.book.SetTime(ts)

	symbols := make([]string, 0, len(e.contracts))
	for sym := range e.contracts {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var applied []ledger.Move
	for _, symbol := range symbols {
		res, err := e.contracts[symbol](e.book, symbol, ts, prices)
		if err != nil {
			if e.metrics != nil {
				e.metrics.EventErrors.WithLabelValues(symbol).Inc()
			}
			return applied, fmt.Errorf("contract %s at %s: %w", symbol, ts.Format(time.RFC3339), err)
		}

		if res.IsEmpty() {
			if e.metrics != nil {
				e.metrics.EventsEmpty.WithLabelValues(symbol).Inc()
			}
			continue
		}

		if err := e.book.Apply(res); err != nil {
			return applied, fmt.Errorf("apply %s at %s: %w", symbol, ts.Format(time.RFC3339), err)
		}
		applied = append(applied, res.Moves...)

		e.recordApplied(symbol, ts, res)
	}

	if e.metrics != nil {
		e.metrics.TickDuration.Observe(time.Since(start).Seconds())
		e.metrics.TerminalUnits.Set(float64(e.terminalCount()))
	}

	return applied, nil
}

// ApplyCommand applies an externally computed result (operator cures,
// early terminations) for one symbol outside the tick loop.
func (e *LifecycleEngine) ApplyCommand(symbol string, ts time.Time, res ledger.Result) error {
	if res.IsEmpty() {
		return nil
	}
	e.book.SetTime(ts)
	if err := e.book.Apply(res); err != nil {
		return fmt.Errorf("apply command %s at %s: %w", symbol, ts.Format(time.RFC3339), err)
	}
	e.recordApplied(symbol, ts, res)
	return nil
}

func (e *LifecycleEngine) recordApplied(symbol string, ts time.Time, res ledger.Result) {
	kind := eventKindOf(res)
	if e.metrics != nil {
		e.metrics.EventsApplied.WithLabelValues(symbol, kind).Inc()
		for _, mv := range res.Moves {
			e.metrics.MovesEmitted.WithLabelValues(symbol, mv.Unit).Inc()
			v, _ := mv.Quantity.Abs().Float64()
			e.metrics.MoveValue.WithLabelValues(mv.Unit).Add(v)
		}
	}

	e.log.Info().
		Str("symbol", symbol).
		Time("tick", ts).
		Str("event_kind", kind).
		Int("moves", len(res.Moves)).
		Msg("lifecycle event applied")

	if e.outputChan != nil {
		select {
		case e.outputChan <- AppliedEvent{Symbol: symbol, Timestamp: ts, Moves: res.Moves}:
		default:
			if e.metrics != nil {
				e.metrics.PublishDrops.Inc()
			}
		}
	}
}

// eventKindOf recovers the fired event kind from the contract IDs of the
// emitted moves. State-only results (accruals, margin checks) report as
// "state_update".
func eventKindOf(res ledger.Result) string {
	if len(res.Moves) == 0 {
		return "state_update"
	}
	id := res.Moves[0].ContractID
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return id[:i]
		}
	}
	return "unknown"
}

func (e *LifecycleEngine) terminalCount() int {
	n := 0
	for _, sym := range e.book.Symbols() {
		if st, ok := e.book.UnitState(sym); ok && st.Terminal() {
			n++
		}
	}
	return n
}
