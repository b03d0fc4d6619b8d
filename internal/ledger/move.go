package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Move is a requested payment between two wallets. ContractID is derived
// deterministically from (event kind, symbol, date, wallet) so the
// consuming ledger can reject duplicate replays of the same event.
type Move struct {
	Source     string
	Dest       string
	Unit       string // currency or asset symbol moved
	Quantity   decimal.Decimal
	ContractID string
}

// Validate rejects malformed moves before they reach the book.
func (m Move) Validate() error {
	if m.Source == "" || m.Dest == "" {
		return fmt.Errorf("move %s: empty wallet", m.ContractID)
	}
	if m.Source == m.Dest {
		return fmt.Errorf("move %s: self-transfer %s", m.ContractID, m.Source)
	}
	if m.Unit == "" {
		return fmt.Errorf("move %s: empty unit", m.ContractID)
	}
	if !m.Quantity.IsPositive() {
		return fmt.Errorf("move %s: non-positive quantity %s", m.ContractID, m.Quantity)
	}
	if m.ContractID == "" {
		return fmt.Errorf("move from %s to %s: empty contract id", m.Source, m.Dest)
	}
	return nil
}
