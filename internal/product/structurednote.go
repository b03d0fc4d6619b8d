package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// StructuredNoteTerms is the immutable term sheet for a participation note
// with optional cap and downside protection. CapRate nil means uncapped
// upside. ProtectionLevel is the guaranteed fraction of notional at
// maturity (0.9 = at most a 10% loss).
type StructuredNoteTerms struct {
	Symbol            string
	Underlying        string
	Currency          string
	Notional          decimal.Decimal
	Strike            decimal.Decimal
	ParticipationRate decimal.Decimal
	CapRate           *decimal.Decimal
	ProtectionLevel   decimal.Decimal
	IssuerWallet      string
	IssueDate         time.Time
	MaturityDate      time.Time
}

// StructuredNote is the runtime state snapshot. The note has a single
// lifecycle event: settlement at maturity.
type StructuredNote struct {
	Terms StructuredNoteTerms

	Settled          bool
	FinalSpot        decimal.Decimal
	FinalPerformance decimal.Decimal
	PayoffRate       decimal.Decimal
	FinalPayout      decimal.Decimal // per unit
	SettledAt        *time.Time
}

// NewStructuredNote validates the term sheet and returns the initial state.
func NewStructuredNote(terms StructuredNoteTerms) (*StructuredNote, error) {
	if terms.Symbol == "" {
		return nil, Errorf("symbol", "", "must not be empty")
	}
	if terms.Underlying == "" {
		return nil, Errorf("underlying", "", "must not be empty")
	}
	if terms.Currency == "" {
		return nil, Errorf("currency", "", "must not be empty")
	}
	if terms.IssuerWallet == "" {
		return nil, Errorf("issuer_wallet", "", "must not be empty")
	}
	if err := validatePositive("notional", terms.Notional); err != nil {
		return nil, err
	}
	if err := validatePositive("strike", terms.Strike); err != nil {
		return nil, err
	}
	if err := validatePositive("participation_rate", terms.ParticipationRate); err != nil {
		return nil, err
	}
	if terms.CapRate != nil {
		if err := validatePositive("cap_rate", *terms.CapRate); err != nil {
			return nil, err
		}
		cap := *terms.CapRate
		terms.CapRate = &cap
	}
	if err := validateNonNegative("protection_level", terms.ProtectionLevel); err != nil {
		return nil, err
	}
	if terms.ProtectionLevel.GreaterThan(decimal.NewFromInt(1)) {
		return nil, Errorf("protection_level", terms.ProtectionLevel.String(),
			"must not exceed 1")
	}
	if !terms.MaturityDate.After(terms.IssueDate) {
		return nil, Errorf("maturity_date", terms.MaturityDate.Format(time.RFC3339),
			"must be after issue date")
	}

	return &StructuredNote{Terms: terms}, nil
}

func (n *StructuredNote) ProductSymbol() string { return n.Terms.Symbol }

func (n *StructuredNote) Terminal() bool { return n.Settled }

// Clone returns a copy suitable for building a replacement snapshot.
func (n *StructuredNote) Clone() *StructuredNote {
	next := *n
	if n.SettledAt != nil {
		d := *n.SettledAt
		next.SettledAt = &d
	}
	return &next
}
