package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceTick is a single asset price observation from the market-data feed.
type PriceTick struct {
	TickID    uuid.UUID
	Asset     string
	Price     decimal.Decimal
	Timestamp time.Time
}

// Command is an operator-issued lifecycle instruction (margin cure
// acknowledgement or early termination request) arriving over NATS.
type Command struct {
	CommandID uuid.UUID
	Type      string // "MarginCure" or "Termination"
	Symbol    string
	Timestamp time.Time
}

// ParsePriceTick converts a raw price message into a PriceTick.
// Prices travel as decimal strings; binary floats never enter the system.
type priceTickJSON struct {
	TickID      string `json:"tick_id"`
	Asset       string `json:"asset"`
	Price       string `json:"price"`
	TimestampUs int64  `json:"timestamp_us"`
}

func ParsePriceTick(data []byte) (PriceTick, error) {
	var j priceTickJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return PriceTick{}, fmt.Errorf("parse PriceTick: %w", err)
	}

	tickID, err := uuid.Parse(j.TickID)
	if err != nil {
		return PriceTick{}, fmt.Errorf("parse tick_id: %w", err)
	}
	if j.Asset == "" {
		return PriceTick{}, fmt.Errorf("parse PriceTick: empty asset")
	}
	price, err := decimal.NewFromString(j.Price)
	if err != nil {
		return PriceTick{}, fmt.Errorf("parse price %q: %w", j.Price, err)
	}
	if price.Sign() <= 0 {
		return PriceTick{}, fmt.Errorf("parse PriceTick: price %s must be positive", price)
	}

	return PriceTick{
		TickID:    tickID,
		Asset:     j.Asset,
		Price:     price,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type commandJSON struct {
	CommandID   string `json:"command_id"`
	Symbol      string `json:"symbol"`
	TimestampUs int64  `json:"timestamp_us"`
}

// ParseCommand converts a raw command message into a Command. The command
// type comes from the subject configuration, not the payload.
func ParseCommand(data []byte, commandType string) (Command, error) {
	switch commandType {
	case "MarginCure", "Termination":
	default:
		return Command{}, fmt.Errorf("unknown command type: %s", commandType)
	}

	var j commandJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return Command{}, fmt.Errorf("parse %s: %w", commandType, err)
	}

	commandID, err := uuid.Parse(j.CommandID)
	if err != nil {
		return Command{}, fmt.Errorf("parse command_id: %w", err)
	}
	if j.Symbol == "" {
		return Command{}, fmt.Errorf("parse %s: empty symbol", commandType)
	}

	return Command{
		CommandID: commandID,
		Type:      commandType,
		Symbol:    j.Symbol,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}
