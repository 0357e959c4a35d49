package calendar

import "time"

// Interval is a half-open [Start, End) time range, typically a committed
// reservation fetched for one listing.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the interval has positive length.
func (iv Interval) Valid() bool {
	return iv.Start.Before(iv.End)
}

// Overlaps reports whether two half-open ranges intersect.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

// OverlapsAny reports whether the interval intersects any of the given ranges.
func (iv Interval) OverlapsAny(others []Interval) bool {
	for _, o := range others {
		if iv.Overlaps(o) {
			return true
		}
	}
	return false
}

// Slot is one selectable hour of a calendar day.
type Slot struct {
	Day  time.Time `json:"day"`
	Hour int       `json:"hour"`
}

// NewSlot normalises the day to local midnight and returns the slot.
func NewSlot(day time.Time, hour int) Slot {
	return Slot{Day: DayOf(day), Hour: hour}
}

// Start returns the inclusive start instant of the slot.
func (s Slot) Start() time.Time {
	return time.Date(s.Day.Year(), s.Day.Month(), s.Day.Day(), s.Hour, 0, 0, 0, s.Day.Location())
}

// End returns the exclusive end instant, one hour after Start.
func (s Slot) End() time.Time {
	return s.Start().Add(time.Hour)
}

// Interval returns the slot as a half-open range.
func (s Slot) Interval() Interval {
	return Interval{Start: s.Start(), End: s.End()}
}

// Reserved reports whether the slot intersects any committed reservation.
func (s Slot) Reserved(reserved []Interval) bool {
	return s.Interval().OverlapsAny(reserved)
}

// Past reports whether the slot starts strictly before now.
func (s Slot) Past(now time.Time) bool {
	return s.Start().Before(now)
}

// Before orders slots chronologically by their start instant.
func (s Slot) Before(o Slot) bool {
	return s.Start().Before(o.Start())
}

// sameDay compares the calendar dates of two slots.
func (s Slot) sameDay(o Slot) bool {
	return s.Day.Equal(o.Day)
}

// nextCalendarDay reports whether o falls exactly one calendar day after s.
func (s Slot) nextCalendarDay(o Slot) bool {
	return s.Day.AddDate(0, 0, 1).Equal(o.Day)
}

// precedes reports whether o is the hour immediately after s: the next hour of
// the same day, or hour 0 of the directly adjacent day after hour 23.
func (s Slot) precedes(o Slot) bool {
	if s.sameDay(o) {
		return o.Hour == s.Hour+1
	}
	return s.Hour == HoursPerDay-1 && o.Hour == 0 && s.nextCalendarDay(o)
}

// Status classifies a grid cell for display.
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusPast      Status = "past"
)

// StatusOf derives the cell state from the reservation catalog and the
// current moment. Reserved wins over past so occupied history renders as such.
func StatusOf(slot Slot, reserved []Interval, now time.Time) Status {
	switch {
	case slot.Reserved(reserved):
		return StatusReserved
	case slot.Past(now):
		return StatusPast
	default:
		return StatusAvailable
	}
}
