package query

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus is the read-only projection of one product's lifecycle
// state. Zero-valued fields are omitted from JSON so each product type
// only reports what applies to it.
type ProductStatus struct {
	Symbol      string    `json:"symbol"`
	ProductType string    `json:"product_type"`
	Currency    string    `json:"currency,omitempty"`
	Terminal    bool      `json:"terminal"`
	AsOf        time.Time `json:"as_of"`

	Settled      bool `json:"settled"`
	Autocalled   bool `json:"autocalled,omitempty"`
	PutKnockedIn bool `json:"put_knocked_in,omitempty"`
	Liquidated   bool `json:"liquidated,omitempty"`

	NextEventDate *time.Time `json:"next_event_date,omitempty"`

	TotalCouponsPaid      decimal.Decimal `json:"total_coupons_paid,omitempty"`
	AccruedMemory         decimal.Decimal `json:"accrued_memory,omitempty"`
	ObservationsProcessed int             `json:"observations_processed,omitempty"`
	FinalPayout           decimal.Decimal `json:"final_payout,omitempty"`

	LastNAV         decimal.Decimal `json:"last_nav,omitempty"`
	ResetsProcessed int             `json:"resets_processed,omitempty"`

	MarginStatus    string          `json:"margin_status,omitempty"`
	MarginRatio     decimal.Decimal `json:"margin_ratio,omitempty"`
	MarginShortfall decimal.Decimal `json:"margin_shortfall,omitempty"`
	AccruedInterest decimal.Decimal `json:"accrued_interest,omitempty"`
	TotalDebt       decimal.Decimal `json:"total_debt,omitempty"`
}
