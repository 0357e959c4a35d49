package calendar

import "time"

// DayColumn is one rendered day of the availability grid.
type DayColumn struct {
	Date  time.Time           `json:"date"`
	Hours [HoursPerDay]Status `json:"hours"`
}

// Grid is the full 7x24 availability projection for one listing and week.
type Grid struct {
	WeekStart time.Time   `json:"week_start"`
	WeekEnd   time.Time   `json:"week_end"`
	Days      []DayColumn `json:"days"`
}

// BuildGrid projects the reservation catalog onto the week window, deriving
// a display status for every hour cell.
func BuildGrid(week Week, reserved []Interval, now time.Time) Grid {
	days := week.Days()
	grid := Grid{
		WeekStart: week.Start,
		WeekEnd:   days[6],
		Days:      make([]DayColumn, len(days)),
	}
	for i, day := range days {
		col := DayColumn{Date: day}
		for hour := 0; hour < HoursPerDay; hour++ {
			col.Hours[hour] = StatusOf(NewSlot(day, hour), reserved, now)
		}
		grid.Days[i] = col
	}
	return grid
}
