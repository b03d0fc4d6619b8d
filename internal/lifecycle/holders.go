package lifecycle

import (
	"sort"
	"time"

	"StructLedger/internal/ledger"

	"github.com/shopspring/decimal"
)

// contractID derives the deterministic move identifier from
// (event kind, symbol, date, wallet). Reapplying the same event for the
// same wallet produces the same ID, which the consuming ledger rejects
// as a duplicate.
func contractID(kind Kind, symbol string, date time.Time, wallet string) string {
	return string(kind) + ":" + symbol + ":" + date.UTC().Format("2006-01-02") + ":" + wallet
}

type holder struct {
	Wallet   string
	Quantity decimal.Decimal
}

// eligibleHolders enumerates current position holders for a product
// symbol, sorted by wallet for deterministic move ordering. The issuer
// wallet and zero or short positions are excluded.
func eligibleHolders(view ledger.View, symbol, issuerWallet string) []holder {
	positions := view.Positions(symbol)

	holders := make([]holder, 0, len(positions))
	for wallet, qty := range positions {
		if wallet == issuerWallet || !qty.IsPositive() {
			continue
		}
		holders = append(holders, holder{Wallet: wallet, Quantity: qty})
	}

	sort.Slice(holders, func(i, j int) bool {
		return holders[i].Wallet < holders[j].Wallet
	})

	return holders
}

// holderMoves emits one move per eligible holder, scaled by held
// quantity. Amounts below the epsilon are suppressed.
func holderMoves(
	view ledger.View,
	kind Kind,
	symbol, issuerWallet, currency string,
	date time.Time,
	perUnit decimal.Decimal,
	epsilon decimal.Decimal,
) []ledger.Move {
	holders := eligibleHolders(view, symbol, issuerWallet)

	moves := make([]ledger.Move, 0, len(holders))
	for _, h := range holders {
		amount := perUnit.Mul(h.Quantity)
		if amount.Abs().LessThanOrEqual(epsilon) {
			continue
		}
		moves = append(moves, ledger.Move{
			Source:     issuerWallet,
			Dest:       h.Wallet,
			Unit:       currency,
			Quantity:   amount,
			ContractID: contractID(kind, symbol, date, h.Wallet),
		})
	}
	return moves
}
