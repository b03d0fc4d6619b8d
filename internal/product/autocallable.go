package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// AutocallableTerms is the immutable term sheet for an autocallable note.
// Barriers are expressed as performance ratios against InitialSpot
// (autocall 1.0 = at-the-money). CouponRate is the rate per observation
// period, applied to Notional.
type AutocallableTerms struct {
	Symbol           string // product unit symbol held by investors
	Underlying       string // asset whose spot drives observations
	Currency         string
	Notional         decimal.Decimal // payout base per unit held
	InitialSpot      decimal.Decimal
	AutocallBarrier  decimal.Decimal
	CouponBarrier    decimal.Decimal
	PutBarrier       decimal.Decimal
	CouponRate       decimal.Decimal
	MemoryFeature    bool
	IssuerWallet     string // pays all coupons and redemptions
	IssueDate        time.Time
	MaturityDate     time.Time
	ObservationDates []time.Time // sorted ascending at construction
}

// ObservationRecord is one entry in the append-only observation log.
type ObservationRecord struct {
	Date        time.Time
	Spot        decimal.Decimal
	Performance decimal.Decimal
	CouponPaid  decimal.Decimal // per unit, zero when coupon missed
	MemoryPaid  decimal.Decimal // per unit, zero unless memory released
	Autocalled  bool
	KnockedIn   bool // put knock-in flipped by this observation
}

// Autocallable is the runtime state snapshot. Mutation happens only via
// replacement: event processors clone the snapshot, append to the log and
// return the clone.
type Autocallable struct {
	Terms AutocallableTerms

	Observations  []ObservationRecord
	AccruedMemory decimal.Decimal // missed coupons carried forward
	Autocalled    bool
	Settled       bool
	PutKnockedIn  bool
	AutocallDate  *time.Time

	// Final settlement metrics, recorded by maturity or autocall.
	FinalSpot        decimal.Decimal
	FinalPerformance decimal.Decimal
	FinalPayout      decimal.Decimal // per unit
	SettledAt        *time.Time
}

// NewAutocallable validates the term sheet and returns the initial state
// with all accumulators zeroed and the schedule sorted ascending.
func NewAutocallable(terms AutocallableTerms) (*Autocallable, error) {
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
	if err := validatePositive("initial_spot", terms.InitialSpot); err != nil {
		return nil, err
	}
	if err := validatePositive("autocall_barrier", terms.AutocallBarrier); err != nil {
		return nil, err
	}
	if err := validatePositive("coupon_barrier", terms.CouponBarrier); err != nil {
		return nil, err
	}
	if err := validatePositive("put_barrier", terms.PutBarrier); err != nil {
		return nil, err
	}
	if err := validateNonNegative("coupon_rate", terms.CouponRate); err != nil {
		return nil, err
	}
	if !terms.MaturityDate.After(terms.IssueDate) {
		return nil, Errorf("maturity_date", terms.MaturityDate.Format(time.RFC3339),
			"must be after issue date")
	}
	dates, verr := sortedDates("observation_dates", terms.ObservationDates)
	if verr != nil {
		return nil, verr
	}
	terms.ObservationDates = dates

	return &Autocallable{
		Terms:         terms,
		AccruedMemory: decimal.Zero,
	}, nil
}

func (a *Autocallable) ProductSymbol() string { return a.Terms.Symbol }

func (a *Autocallable) Terminal() bool { return a.Settled || a.Autocalled }

// Clone returns a deep copy suitable for building a replacement snapshot.
func (a *Autocallable) Clone() *Autocallable {
	next := *a
	next.Observations = make([]ObservationRecord, len(a.Observations))
	copy(next.Observations, a.Observations)
	if a.AutocallDate != nil {
		d := *a.AutocallDate
		next.AutocallDate = &d
	}
	if a.SettledAt != nil {
		d := *a.SettledAt
		next.SettledAt = &d
	}
	return &next
}

// ObservedOn reports whether the given date already appears in the
// observation log. Used for duplicate-event detection.
func (a *Autocallable) ObservedOn(date time.Time) bool {
	for _, rec := range a.Observations {
		if rec.Date.Equal(date) {
			return true
		}
	}
	return false
}

// PeriodCoupon is the coupon amount per unit for one observation period.
func (a *Autocallable) PeriodCoupon() decimal.Decimal {
	return a.Terms.Notional.Mul(a.Terms.CouponRate)
}
