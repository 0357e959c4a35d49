package models

import "time"

// ListingView selects which projection of a listing the caller receives.
// Owners see moderation state and exact earnings fields, the public view
// carries only what a renter needs.
type ListingView string

const (
	ListingViewPublic ListingView = "public"
	ListingViewOwner  ListingView = "owner"
)

// Listing represents a parking spot offered for hourly rental.
type Listing struct {
	ID            string    `db:"id" json:"id"`
	OwnerID       string    `db:"owner_id" json:"owner_id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	City          string    `db:"city" json:"city"`
	Address       string    `db:"address" json:"address"`
	PricePerHour  int64     `db:"price_per_hour" json:"price_per_hour"`
	Currency      string    `db:"currency" json:"currency"`
	ImagePath     *string   `db:"image_path" json:"image_path,omitempty"`
	AverageRating float64   `db:"average_rating" json:"average_rating"`
	ReviewCount   int       `db:"review_count" json:"review_count"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ListingFilter encapsulates search parameters for the public catalog.
type ListingFilter struct {
	City      string
	Search    string
	PriceMin  *int64
	PriceMax  *int64
	OwnerID   string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ListingDetail carries a listing together with its owner's display name.
type ListingDetail struct {
	Listing
	OwnerName string `db:"owner_name" json:"owner_name"`
}
