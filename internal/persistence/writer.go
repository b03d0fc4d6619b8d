package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// HistoryWriter writes applied lifecycle events and their moves to
// Postgres using multi-row INSERT. Quantities are stored as NUMERIC and
// bound as decimal strings, so no float conversion happens on the write
// path.
type HistoryWriter struct {
	db *sql.DB
}

// EventRow represents a row in event_log.lifecycle_events.
type EventRow struct {
	Symbol    string
	EventKind string
	Payload   []byte // JSON-encoded event detail
	Timestamp time.Time
}

// MoveRow represents a row in event_log.moves.
type MoveRow struct {
	ContractID   string
	Symbol       string
	SourceWallet string
	DestWallet   string
	Unit         string
	Quantity     string // decimal string, bound to NUMERIC
	Timestamp    time.Time
}

func NewHistoryWriter(db *sql.DB) *HistoryWriter {
	return &HistoryWriter{db: db}
}

// WriteEventBatch writes a batch of events inside the given transaction.
func (w *HistoryWriter) WriteEventBatch(ctx context.Context, tx *sql.Tx, events []EventRow) error {
	if len(events) == 0 {
		return nil
	}

	query := `INSERT INTO event_log.lifecycle_events
		(symbol, event_kind, payload, occurred_at)
		VALUES `

	values := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*4)

	for i, e := range events {
		base := i * 4
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4,
		))
		args = append(args, e.Symbol, e.EventKind, e.Payload, e.Timestamp)
	}

	query += strings.Join(values, ", ")

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// WriteMoveBatch writes a batch of moves inside the given transaction.
// Contract IDs are the primary key; replays are absorbed by ON CONFLICT.
func (w *HistoryWriter) WriteMoveBatch(ctx context.Context, tx *sql.Tx, moves []MoveRow) error {
	if len(moves) == 0 {
		return nil
	}

	query := `INSERT INTO event_log.moves
		(contract_id, symbol, source_wallet, dest_wallet, unit, quantity, occurred_at)
		VALUES `

	values := make([]string, 0, len(moves))
	args := make([]interface{}, 0, len(moves)*7)

	for i, m := range moves {
		base := i * 7
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args,
			m.ContractID, m.Symbol, m.SourceWallet, m.DestWallet,
			m.Unit, m.Quantity, m.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (contract_id) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
