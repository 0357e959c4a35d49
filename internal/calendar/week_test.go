package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMondayOf(t *testing.T) {
	cases := []struct {
		name   string
		input  time.Time
		expect time.Time
	}{
		{
			name:   "thursday maps to preceding monday",
			input:  time.Date(2024, 6, 13, 15, 30, 0, 0, time.UTC),
			expect: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "monday maps to itself at midnight",
			input:  time.Date(2024, 6, 10, 23, 59, 59, 0, time.UTC),
			expect: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "sunday maps back six days",
			input:  time.Date(2024, 6, 16, 1, 0, 0, 0, time.UTC),
			expect: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "year boundary",
			input:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			expect: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MondayOf(tc.input)
			assert.True(t, tc.expect.Equal(got), "got %v", got)
			assert.Equal(t, time.Monday, got.Weekday())
			assert.Equal(t, 0, got.Hour())
		})
	}
}

func TestMondayOfIdempotent(t *testing.T) {
	for day := 0; day < 14; day++ {
		input := time.Date(2024, 3, 1, 13, 45, 0, 0, time.UTC).AddDate(0, 0, day)
		once := MondayOf(input)
		assert.True(t, once.Equal(MondayOf(once)))
	}
}

func TestWeekDays(t *testing.T) {
	week := WeekOf(time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC))
	days := week.Days()
	require.Len(t, days, 7)
	assert.True(t, days[0].Equal(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, days[6].Equal(time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)))
	for i := 1; i < len(days); i++ {
		assert.True(t, days[i-1].AddDate(0, 0, 1).Equal(days[i]))
	}
}

func TestWeekNavigation(t *testing.T) {
	week := WeekOf(time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC))

	next := week.Next()
	assert.True(t, next.Start.Equal(time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)))
	assert.True(t, next.Days()[6].Equal(time.Date(2024, 6, 23, 0, 0, 0, 0, time.UTC)))

	prev := week.Previous()
	assert.True(t, prev.Start.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)))

	// round trip returns to the original window
	assert.True(t, week.Start.Equal(next.Previous().Start))

	now := time.Date(2024, 8, 2, 9, 0, 0, 0, time.UTC)
	assert.True(t, WeekOf(now).Contains(now))
}

func TestWeekContains(t *testing.T) {
	week := WeekOf(time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC))
	assert.True(t, week.Contains(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, week.Contains(time.Date(2024, 6, 16, 23, 59, 59, 0, time.UTC)))
	assert.False(t, week.Contains(time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)))
	assert.False(t, week.Contains(time.Date(2024, 6, 9, 23, 0, 0, 0, time.UTC)))
}
