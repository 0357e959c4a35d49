package models

import "time"

// Transaction records a payment made for a checkout. AmountMinor is in the
// currency's smallest unit, matching what was sent to the payment provider.
type Transaction struct {
	ID              string     `db:"id" json:"id"`
	UserID          string     `db:"user_id" json:"user_id"`
	ListingID       string     `db:"listing_id" json:"listing_id"`
	PaymentIntentID string     `db:"payment_intent_id" json:"payment_intent_id"`
	AmountMinor     int64      `db:"amount_minor" json:"amount_minor"`
	Currency        string     `db:"currency" json:"currency"`
	Paid            bool       `db:"paid" json:"paid"`
	PaidAt          *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// TransactionDetail joins the listing title for history and export rows.
type TransactionDetail struct {
	Transaction
	ListingTitle string `db:"listing_title" json:"listing_title"`
}

// TransactionFilter narrows transaction history queries.
type TransactionFilter struct {
	UserID   string
	Paid     *bool
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
