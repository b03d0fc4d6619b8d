package persistence_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"StructLedger/internal/persistence"
	"StructLedger/internal/testutil"
)

// Integration tests need a running Postgres; they skip otherwise.
// Run with: INTEGRATION_TEST=1 go test ./internal/persistence/...

func setupWriter(t *testing.T) (*persistence.HistoryWriter, *sql.DB, func()) {
	t.Helper()
	testutil.RequireIntegration(t)

	db, cleanup := testutil.SetupTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := persistence.NewMigrator(db, "../../migrations").Up(ctx); err != nil {
		cleanup()
		t.Fatalf("migrate up: %v", err)
	}

	return persistence.NewHistoryWriter(db), db, cleanup
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		t.Fatalf("tx body: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

// ============================================================================
// Test: Event and move batches
// ============================================================================

func TestWriteEventBatch(t *testing.T) {
	writer, db, cleanup := setupWriter(t)
	defer cleanup()

	ctx := context.Background()
	ts := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	events := []persistence.EventRow{
		{Symbol: "AC-XYZ", EventKind: "observation", Payload: []byte(`{"spot":"90"}`), Timestamp: ts},
		{Symbol: "ML-1", EventKind: "state_update", Payload: []byte(`{}`), Timestamp: ts},
	}

	inTx(t, db, func(tx *sql.Tx) error {
		return writer.WriteEventBatch(ctx, tx, events)
	})

	if n := countRows(t, db, "event_log.lifecycle_events"); n != 2 {
		t.Errorf("lifecycle_events rows: got %d, want 2", n)
	}
}

func TestWriteMoveBatch_ReplayIsIdempotent(t *testing.T) {
	writer, db, cleanup := setupWriter(t)
	defer cleanup()

	ctx := context.Background()
	ts := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	moves := []persistence.MoveRow{{
		ContractID:   "observation:AC-XYZ:2026-04-15:alice",
		Symbol:       "AC-XYZ",
		SourceWallet: "issuer",
		DestWallet:   "alice",
		Unit:         "USD",
		Quantity:     "8000",
		Timestamp:    ts,
	}}

	inTx(t, db, func(tx *sql.Tx) error {
		return writer.WriteMoveBatch(ctx, tx, moves)
	})
	// A redelivered batch with the same contract ID lands on the primary
	// key and is absorbed.
	inTx(t, db, func(tx *sql.Tx) error {
		return writer.WriteMoveBatch(ctx, tx, moves)
	})

	if n := countRows(t, db, "event_log.moves"); n != 1 {
		t.Errorf("moves rows after replay: got %d, want 1", n)
	}

	var qty string
	err := db.QueryRow(
		"SELECT quantity::text FROM event_log.moves WHERE contract_id = $1",
		moves[0].ContractID,
	).Scan(&qty)
	if err != nil {
		t.Fatalf("select quantity: %v", err)
	}
	if qty != "8000" {
		t.Errorf("quantity round trip: got %s, want 8000", qty)
	}
}

func TestWriteBatch_EmptyIsNoOp(t *testing.T) {
	writer, db, cleanup := setupWriter(t)
	defer cleanup()

	ctx := context.Background()
	inTx(t, db, func(tx *sql.Tx) error {
		if err := writer.WriteEventBatch(ctx, tx, nil); err != nil {
			return err
		}
		return writer.WriteMoveBatch(ctx, tx, nil)
	})
}
