package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock keeps every slot in the test week selectable.
func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
}

func TestToggleContinuousRun(t *testing.T) {
	sel := NewSelection(nil, fixedClock)
	d := day(2024, 6, 10)

	require.NoError(t, sel.Toggle(d, 9))
	require.NoError(t, sel.Toggle(d, 10))
	require.NoError(t, sel.Toggle(d, 11))
	assert.Equal(t, 3, sel.Len())
}

func TestToggleRejectsGap(t *testing.T) {
	sel := NewSelection(nil, fixedClock)
	d := day(2024, 6, 10)

	require.NoError(t, sel.Toggle(d, 9))
	err := sel.Toggle(d, 11)
	assert.ErrorIs(t, err, ErrSelectionGap)
	assert.Equal(t, 1, sel.Len())
	assert.True(t, sel.Contains(d, 9))
	assert.False(t, sel.Contains(d, 11))
}

func TestToggleAcrossMidnight(t *testing.T) {
	sel := NewSelection(nil, fixedClock)
	mon := day(2024, 6, 10)
	tue := day(2024, 6, 11)
	wed := day(2024, 6, 12)

	require.NoError(t, sel.Toggle(mon, 23))
	require.NoError(t, sel.Toggle(tue, 0))
	assert.Equal(t, 2, sel.Len())

	// hour 0 of a non-adjacent day is not a continuation
	sel.Clear()
	require.NoError(t, sel.Toggle(mon, 23))
	assert.ErrorIs(t, sel.Toggle(wed, 0), ErrSelectionGap)
}

func TestToggleRemovalValidated(t *testing.T) {
	sel := NewSelection(nil, fixedClock)
	d := day(2024, 6, 10)
	for _, hour := range []int{9, 10, 11} {
		require.NoError(t, sel.Toggle(d, hour))
	}

	// removing the middle would leave {9, 11}
	assert.ErrorIs(t, sel.Toggle(d, 10), ErrSelectionGap)
	assert.Equal(t, 3, sel.Len())

	// removing either end keeps the run intact
	require.NoError(t, sel.Toggle(d, 11))
	require.NoError(t, sel.Toggle(d, 9))
	assert.Equal(t, 1, sel.Len())
	assert.True(t, sel.Contains(d, 10))
}

func TestToggleIgnoresReservedAndPast(t *testing.T) {
	reserved := []Interval{{
		Start: time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 10, 11, 0, 0, 0, time.UTC),
	}}
	now := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)
	sel := NewSelection(reserved, func() time.Time { return now })
	d := day(2024, 6, 10)

	require.NoError(t, sel.Toggle(d, 10)) // reserved: silently ignored
	require.NoError(t, sel.Toggle(d, 8))  // past: silently ignored
	assert.Equal(t, 0, sel.Len())

	require.NoError(t, sel.Toggle(d, 9)) // started at 09:00, past by 09:30
	assert.Equal(t, 0, sel.Len())

	require.NoError(t, sel.Toggle(d, 11))
	assert.Equal(t, 1, sel.Len())
}

func TestToggleAllowsSlotStartingNow(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	sel := NewSelection(nil, func() time.Time { return now })
	d := day(2024, 6, 10)

	// a slot whose hour begins exactly at the clock reading is still bookable
	require.NoError(t, sel.Toggle(d, 9))
	assert.Equal(t, 1, sel.Len())
	assert.True(t, sel.Contains(d, 9))
}

func TestPaintSkipsSilently(t *testing.T) {
	sel := NewSelection(nil, fixedClock)
	d := day(2024, 6, 10)

	sel.Paint(d, 9)
	sel.Paint(d, 10)
	sel.Paint(d, 13) // gap: dropped without error
	sel.Paint(d, 10) // already selected
	sel.Paint(d, 11)

	assert.Equal(t, 3, sel.Len())
	assert.False(t, sel.Contains(d, 13))
}

func TestClear(t *testing.T) {
	sel := NewSelection(nil, fixedClock)
	d := day(2024, 6, 10)
	require.NoError(t, sel.Toggle(d, 9))
	require.NoError(t, sel.Toggle(d, 10))

	sel.Clear()
	assert.Equal(t, 0, sel.Len())
	require.NoError(t, sel.Toggle(d, 15))
	assert.Equal(t, 1, sel.Len())
}

func TestContinuous(t *testing.T) {
	mon := day(2024, 6, 10)
	tue := day(2024, 6, 11)
	wed := day(2024, 6, 12)

	cases := []struct {
		name  string
		slots []Slot
		want  bool
	}{
		{"empty", nil, true},
		{"single", []Slot{NewSlot(mon, 5)}, true},
		{"same day run", []Slot{NewSlot(mon, 9), NewSlot(mon, 10), NewSlot(mon, 11)}, true},
		{"same day gap", []Slot{NewSlot(mon, 9), NewSlot(mon, 11)}, false},
		{"midnight adjacent", []Slot{NewSlot(mon, 23), NewSlot(tue, 0)}, true},
		{"midnight non-adjacent", []Slot{NewSlot(mon, 23), NewSlot(wed, 0)}, false},
		{"unsorted input", []Slot{NewSlot(mon, 11), NewSlot(mon, 9), NewSlot(mon, 10)}, true},
		{"two day run", []Slot{NewSlot(mon, 22), NewSlot(mon, 23), NewSlot(tue, 0), NewSlot(tue, 1)}, true},
		{"wrong hour across days", []Slot{NewSlot(mon, 22), NewSlot(tue, 0)}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Continuous(tc.slots))
		})
	}
}
