package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"StructLedger/internal/engine"

	"github.com/nats-io/nats.go/jetstream"
)

// OutboundPublisher publishes applied lifecycle events to NATS for
// downstream consumers (custody, reporting). Subjects follow the pattern
// sledger.moves.{symbol}.
type OutboundPublisher struct {
	js        jetstream.JetStream
	inputChan <-chan engine.AppliedEvent
}

// moveJSON is the outbound wire form of a single ledger move. Quantities
// travel as decimal strings.
type moveJSON struct {
	Source     string `json:"source"`
	Dest       string `json:"dest"`
	Unit       string `json:"unit"`
	Quantity   string `json:"quantity"`
	ContractID string `json:"contract_id"`
}

type appliedEventJSON struct {
	Symbol    string     `json:"symbol"`
	Timestamp time.Time  `json:"timestamp"`
	Moves     []moveJSON `json:"moves"`
}

func NewOutboundPublisher(js jetstream.JetStream, inputChan <-chan engine.AppliedEvent) *OutboundPublisher {
	return &OutboundPublisher{
		js:        js,
		inputChan: inputChan,
	}
}

// Run starts the outbound publisher loop.
func (op *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case evt, ok := <-op.inputChan:
			if !ok {
				return nil
			}

			if err := op.publish(ctx, evt); err != nil {
				log.Printf("WARN: outbound publish failed symbol=%s: %v", evt.Symbol, err)
				// Non-fatal: downstream consumers can query the settlement history directly
			}
		}
	}
}

func (op *OutboundPublisher) publish(ctx context.Context, evt engine.AppliedEvent) error {
	out := appliedEventJSON{
		Symbol:    evt.Symbol,
		Timestamp: evt.Timestamp,
		Moves:     make([]moveJSON, 0, len(evt.Moves)),
	}
	for _, mv := range evt.Moves {
		out.Moves = append(out.Moves, moveJSON{
			Source:     mv.Source,
			Dest:       mv.Dest,
			Unit:       mv.Unit,
			Quantity:   mv.Quantity.String(),
			ContractID: mv.ContractID,
		})
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := fmt.Sprintf("sledger.moves.%s", evt.Symbol)
	_, err = op.js.Publish(ctx, subject, data)
	return err
}

// EnsureOutboundStream creates the outbound moves stream.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "SLEDGER_MOVES",
		Subjects:  []string{"sledger.moves.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	log.Println("INFO: ensured outbound stream SLEDGER_MOVES")
	return nil
}
