package models

import "time"

// CheckoutState enumerates the submission lifecycle of a checkout session.
// A failed session keeps its slot selection so the user can retry.
type CheckoutState string

const (
	CheckoutStatePendingPayment CheckoutState = "pending_payment"
	CheckoutStateSubmitting     CheckoutState = "submitting"
	CheckoutStateSucceeded      CheckoutState = "succeeded"
	CheckoutStateFailed         CheckoutState = "failed"
)

// SlotRef identifies one selectable hour cell. Day is the calendar date in
// 2006-01-02 form; Hour is 0-23.
type SlotRef struct {
	Day  string `json:"day" validate:"required,datetime=2006-01-02"`
	Hour int    `json:"hour" validate:"min=0,max=23"`
}

// CheckoutSession is the server-side record of an in-progress reservation
// purchase, persisted in Redis under a TTL.
type CheckoutSession struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	ListingID       string        `json:"listing_id"`
	Slots           []SlotRef     `json:"slots"`
	AmountMinor     int64         `json:"amount_minor"`
	Currency        string        `json:"currency"`
	PaymentIntentID string        `json:"payment_intent_id"`
	ClientSecret    string        `json:"client_secret,omitempty"`
	State           CheckoutState `json:"state"`
	LastError       *string       `json:"last_error,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// StartCheckoutRequest opens a session for the given listing and slot set.
type StartCheckoutRequest struct {
	ListingID string    `json:"listing_id" validate:"required,uuid"`
	Slots     []SlotRef `json:"slots" validate:"required,min=1,dive"`
}

// CheckoutResult is returned from both Start and Confirm.
type CheckoutResult struct {
	Session      CheckoutSession `json:"session"`
	Reservations []Reservation   `json:"reservations,omitempty"`
}
