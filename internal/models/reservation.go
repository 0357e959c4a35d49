package models

import "time"

// Reservation is a committed rental interval. StartTime is inclusive,
// EndTime exclusive, so back-to-back reservations never collide.
type Reservation struct {
	ID            string    `db:"id" json:"id"`
	ListingID     string    `db:"listing_id" json:"listing_id"`
	UserID        string    `db:"user_id" json:"user_id"`
	StartTime     time.Time `db:"start_time" json:"start_time"`
	EndTime       time.Time `db:"end_time" json:"end_time"`
	AmountMinor   int64     `db:"amount_minor" json:"amount_minor"`
	Currency      string    `db:"currency" json:"currency"`
	TransactionID *string   `db:"transaction_id" json:"transaction_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ReservationDetail joins a reservation with its listing for history views.
type ReservationDetail struct {
	Reservation
	ListingTitle string `db:"listing_title" json:"listing_title"`
	ListingCity  string `db:"listing_city" json:"listing_city"`
}

// ReservationFilter narrows reservation listings.
type ReservationFilter struct {
	ListingID string
	UserID    string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// ReservationInterval is the minimal projection fed to the calendar grid.
type ReservationInterval struct {
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
}
