package models

import "time"

// Review is a 1-5 rating left for a listing after a completed reservation.
// One review per reservation.
type Review struct {
	ID            string    `db:"id" json:"id"`
	ListingID     string    `db:"listing_id" json:"listing_id"`
	ReservationID string    `db:"reservation_id" json:"reservation_id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Rating        int       `db:"rating" json:"rating"`
	Comment       string    `db:"comment" json:"comment"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ReviewDetail adds the reviewer's display name for listing pages.
type ReviewDetail struct {
	Review
	ReviewerName string `db:"reviewer_name" json:"reviewer_name"`
}

// ReviewFilter narrows review listings.
type ReviewFilter struct {
	ListingID string
	UserID    string
	Page      int
	PageSize  int
}

// CreateReviewRequest is the payload for posting a review.
type CreateReviewRequest struct {
	ReservationID string `json:"reservation_id" validate:"required,uuid"`
	Rating        int    `json:"rating" validate:"required,min=1,max=5"`
	Comment       string `json:"comment" validate:"max=2000"`
}
