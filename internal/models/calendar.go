package models

// SlotState is the wire form of an hour cell's availability.
type SlotState string

const (
	SlotStateAvailable SlotState = "available"
	SlotStateReserved  SlotState = "reserved"
	SlotStatePast      SlotState = "past"
)

// CalendarDay is one column of the weekly grid: a date plus 24 hour cells.
type CalendarDay struct {
	Date  string      `json:"date"`
	Hours []SlotState `json:"hours"`
}

// CalendarWeek is the Monday-through-Sunday availability grid for a listing.
type CalendarWeek struct {
	ListingID string        `json:"listing_id"`
	WeekStart string        `json:"week_start"`
	WeekEnd   string        `json:"week_end"`
	Days      []CalendarDay `json:"days"`
}
