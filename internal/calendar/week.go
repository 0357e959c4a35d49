package calendar

import "time"

// HoursPerDay is the number of selectable rows in the grid.
const HoursPerDay = 24

// MondayOf returns local midnight of the Monday in the ISO week containing t.
// Applying it twice yields the same instant.
func MondayOf(t time.Time) time.Time {
	day := DayOf(t)
	offset := int(day.Weekday()-time.Monday+7) % 7
	return day.AddDate(0, 0, -offset)
}

// DayOf truncates t to local midnight.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Week is a Monday-through-Sunday display window anchored at Monday midnight.
type Week struct {
	Start time.Time
}

// WeekOf returns the week containing the given instant.
func WeekOf(t time.Time) Week {
	return Week{Start: MondayOf(t)}
}

// Days lists the seven calendar days of the week in order.
func (w Week) Days() []time.Time {
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = w.Start.AddDate(0, 0, i)
	}
	return days
}

// End returns the exclusive end of the window (the following Monday midnight).
func (w Week) End() time.Time {
	return w.Start.AddDate(0, 0, 7)
}

// Previous shifts the window back by seven days.
func (w Week) Previous() Week {
	return Week{Start: w.Start.AddDate(0, 0, -7)}
}

// Next shifts the window forward by seven days.
func (w Week) Next() Week {
	return Week{Start: w.Start.AddDate(0, 0, 7)}
}

// Contains reports whether t falls inside the display window.
func (w Week) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End())
}
