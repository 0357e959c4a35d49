package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIntervalOverlaps(t *testing.T) {
	base := Interval{
		Start: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	cases := []struct {
		name    string
		other   Interval
		overlap bool
	}{
		{"identical", base, true},
		{"contained", Interval{time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC), time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)}, true},
		{"spanning", Interval{time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)}, true},
		{"leading edge", Interval{time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)}, true},
		{"touching before", Interval{time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}, false},
		{"touching after", Interval{time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)}, false},
		{"disjoint", Interval{time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlap, base.Overlaps(tc.other))
			assert.Equal(t, tc.overlap, tc.other.Overlaps(base))
		})
	}
}

func TestSlotReserved(t *testing.T) {
	reserved := []Interval{{
		Start: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}}
	d := day(2024, 1, 1)

	assert.False(t, NewSlot(d, 9).Reserved(reserved))
	assert.True(t, NewSlot(d, 10).Reserved(reserved))
	assert.True(t, NewSlot(d, 11).Reserved(reserved))
	assert.False(t, NewSlot(d, 12).Reserved(reserved))
}

func TestSlotPast(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	d := day(2024, 1, 1)

	assert.True(t, NewSlot(d, 9).Past(now))
	assert.True(t, NewSlot(d, 10).Past(now))
	assert.False(t, NewSlot(d, 11).Past(now))
}

func TestSlotBounds(t *testing.T) {
	slot := NewSlot(time.Date(2024, 6, 10, 17, 45, 0, 0, time.UTC), 9)
	assert.True(t, slot.Start().Equal(time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)))
	assert.True(t, slot.End().Equal(time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)))
}

func TestStatusOf(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	reserved := []Interval{{
		Start: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
	}}

	// reserved wins over past
	assert.Equal(t, StatusReserved, StatusOf(NewSlot(day(2024, 1, 1), 10), reserved, now))
	assert.Equal(t, StatusPast, StatusOf(NewSlot(day(2024, 1, 1), 11), reserved, now))
	assert.Equal(t, StatusAvailable, StatusOf(NewSlot(day(2024, 1, 3), 8), reserved, now))
}

func TestBuildGrid(t *testing.T) {
	now := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)
	week := WeekOf(now)
	reserved := []Interval{{
		Start: time.Date(2024, 6, 13, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 13, 12, 0, 0, 0, time.UTC),
	}}

	grid := BuildGrid(week, reserved, now)
	assert.Len(t, grid.Days, 7)
	assert.True(t, grid.WeekStart.Equal(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)))

	// Monday and Tuesday are entirely in the past
	for hour := 0; hour < HoursPerDay; hour++ {
		assert.Equal(t, StatusPast, grid.Days[0].Hours[hour])
	}
	// Thursday carries the reservation
	assert.Equal(t, StatusReserved, grid.Days[3].Hours[10])
	assert.Equal(t, StatusReserved, grid.Days[3].Hours[11])
	assert.Equal(t, StatusAvailable, grid.Days[3].Hours[9])
	assert.Equal(t, StatusAvailable, grid.Days[3].Hours[12])
}
