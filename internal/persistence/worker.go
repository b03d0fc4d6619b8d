package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"StructLedger/internal/engine"
	"StructLedger/internal/observability"
)

// HistoryWorker drains the applied-event channel and batch-writes the
// settlement history to Postgres. It runs independently from the engine
// loop; the engine's sends are non-blocking and the book remains the
// source of truth, so a slow worker degrades history freshness, never
// correctness.
type HistoryWorker struct {
	writer       *HistoryWriter
	db           *sql.DB
	inputChan    <-chan engine.AppliedEvent
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
}

func NewHistoryWorker(
	db *sql.DB,
	inputChan <-chan engine.AppliedEvent,
	batchSize int,
	flushTimeout time.Duration,
	metrics *observability.Metrics,
) *HistoryWorker {
	return &HistoryWorker{
		writer:       NewHistoryWriter(db),
		db:           db,
		inputChan:    inputChan,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
	}
}

// Run starts the worker loop. It batches incoming events and flushes
// either when the batch is full or the flush timeout expires. Blocks
// until ctx is cancelled.
func (hw *HistoryWorker) Run(ctx context.Context) error {
	eventBatch := make([]EventRow, 0, hw.batchSize)
	moveBatch := make([]MoveRow, 0, hw.batchSize*4)

	timer := time.NewTimer(hw.flushTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(eventBatch) > 0 {
				if err := hw.flush(context.Background(), eventBatch, moveBatch); err != nil {
					log.Printf("ERROR: final flush failed: %v", err)
				}
			}
			return ctx.Err()

		case evt, ok := <-hw.inputChan:
			if !ok {
				if len(eventBatch) > 0 {
					if err := hw.flush(context.Background(), eventBatch, moveBatch); err != nil {
						log.Printf("ERROR: final flush failed: %v", err)
					}
				}
				return nil
			}

			eventBatch = append(eventBatch, toEventRow(evt))
			moveBatch = append(moveBatch, toMoveRows(evt)...)

			if len(eventBatch) >= hw.batchSize {
				if err := hw.flushWithRetry(ctx, eventBatch, moveBatch); err != nil {
					log.Printf("ERROR: batch flush failed: %v", err)
				}
				eventBatch = eventBatch[:0]
				moveBatch = moveBatch[:0]
				timer.Reset(hw.flushTimeout)
			}

		case <-timer.C:
			if len(eventBatch) > 0 {
				if err := hw.flushWithRetry(ctx, eventBatch, moveBatch); err != nil {
					log.Printf("ERROR: timeout flush failed: %v", err)
				}
				eventBatch = eventBatch[:0]
				moveBatch = moveBatch[:0]
			}
			timer.Reset(hw.flushTimeout)
		}
	}
}

// flushWithRetry retries with exponential backoff until the write
// succeeds or the context is cancelled; on cancellation it makes one
// final attempt with a background context so the batch is not lost.
func (hw *HistoryWorker) flushWithRetry(ctx context.Context, events []EventRow, moves []MoveRow) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			log.Printf("WARN: history write retry attempt %d (backoff=%v, events=%d)",
				attempt, backoff, len(events))
			select {
			case <-ctx.Done():
				if finalErr := hw.flush(context.Background(), events, moves); finalErr != nil {
					return fmt.Errorf("final flush on shutdown failed: %w", finalErr)
				}
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		err := hw.flush(ctx, events, moves)
		if err == nil {
			if attempt > 0 {
				log.Printf("INFO: history flush succeeded after %d retries", attempt)
			}
			return nil
		}
	}
}

func (hw *HistoryWorker) flush(ctx context.Context, events []EventRow, moves []MoveRow) error {
	start := time.Now()

	tx, err := hw.db.BeginTx(ctx, nil)
	if err != nil {
		hw.countError("tx")
		return err
	}
	defer tx.Rollback()

	if err := hw.writer.WriteEventBatch(ctx, tx, events); err != nil {
		hw.countError("lifecycle_events")
		return err
	}

	if err := hw.writer.WriteMoveBatch(ctx, tx, moves); err != nil {
		hw.countError("moves")
		return err
	}

	if err := tx.Commit(); err != nil {
		hw.countError("tx")
		return err
	}

	if hw.metrics != nil {
		hw.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		hw.metrics.PersistRows.WithLabelValues("lifecycle_events").Add(float64(len(events)))
		hw.metrics.PersistRows.WithLabelValues("moves").Add(float64(len(moves)))
	}

	return nil
}

func (hw *HistoryWorker) countError(table string) {
	if hw.metrics != nil {
		hw.metrics.PersistErrors.WithLabelValues(table).Inc()
	}
}

func toEventRow(evt engine.AppliedEvent) EventRow {
	payload, err := json.Marshal(map[string]interface{}{
		"symbol": evt.Symbol,
		"moves":  len(evt.Moves),
	})
	if err != nil {
		payload = []byte("{}")
	}
	return EventRow{
		Symbol:    evt.Symbol,
		EventKind: eventKind(evt),
		Payload:   payload,
		Timestamp: evt.Timestamp,
	}
}

func toMoveRows(evt engine.AppliedEvent) []MoveRow {
	rows := make([]MoveRow, 0, len(evt.Moves))
	for _, mv := range evt.Moves {
		rows = append(rows, MoveRow{
			ContractID:   mv.ContractID,
			Symbol:       evt.Symbol,
			SourceWallet: mv.Source,
			DestWallet:   mv.Dest,
			Unit:         mv.Unit,
			Quantity:     mv.Quantity.String(),
			Timestamp:    evt.Timestamp,
		})
	}
	return rows
}

// eventKind recovers the fired event kind from the first move's contract
// ID prefix. State-only events carry no moves and record as state_update.
func eventKind(evt engine.AppliedEvent) string {
	if len(evt.Moves) == 0 {
		return "state_update"
	}
	id := evt.Moves[0].ContractID
	if i := strings.IndexByte(id, ':'); i > 0 {
		return id[:i]
	}
	return "unknown"
}
