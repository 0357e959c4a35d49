package calendar

import (
	"errors"
	"sort"
	"time"
)

// ErrSelectionGap is returned when a mutation would leave the selection with
// a hole in its chronological run. It is expected, recoverable input
// rejection, not a fault.
var ErrSelectionGap = errors.New("selected slots must form one continuous run of hours")

// Selection holds the in-progress set of hour slots a user intends to
// reserve. Every mutation is validated so the set always forms a single
// unbroken chronological run. Not safe for concurrent use; callers are
// expected to drive it from a single event loop or request.
type Selection struct {
	reserved []Interval
	now      func() time.Time
	slots    map[int64]Slot
}

// NewSelection builds an empty selection checked against the given committed
// reservations. A nil clock defaults to time.Now.
func NewSelection(reserved []Interval, now func() time.Time) *Selection {
	if now == nil {
		now = time.Now
	}
	return &Selection{
		reserved: reserved,
		now:      now,
		slots:    make(map[int64]Slot),
	}
}

// Len returns the number of selected slots.
func (s *Selection) Len() int {
	return len(s.slots)
}

// Contains reports whether the given slot is currently selected.
func (s *Selection) Contains(day time.Time, hour int) bool {
	_, ok := s.slots[NewSlot(day, hour).Start().Unix()]
	return ok
}

// Slots returns the selection in chronological order.
func (s *Selection) Slots() []Slot {
	out := make([]Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		out = append(out, slot)
	}
	sortSlots(out)
	return out
}

// Toggle flips the selected state of a slot. Reserved and past slots are
// ignored. Both adding and removing are validated against the continuity
// rule on the resulting set; a rejected mutation leaves the selection
// unchanged and returns ErrSelectionGap.
func (s *Selection) Toggle(day time.Time, hour int) error {
	slot := NewSlot(day, hour)
	if !s.selectable(slot) {
		return nil
	}

	key := slot.Start().Unix()
	candidate := make([]Slot, 0, len(s.slots)+1)
	for k, existing := range s.slots {
		if k != key {
			candidate = append(candidate, existing)
		}
	}
	if _, selected := s.slots[key]; !selected {
		candidate = append(candidate, slot)
	}

	if !Continuous(candidate) {
		return ErrSelectionGap
	}

	if _, selected := s.slots[key]; selected {
		delete(s.slots, key)
	} else {
		s.slots[key] = slot
	}
	return nil
}

// Paint adds a slot during a drag gesture. Slots that are reserved, past,
// already selected, or would break continuity are skipped without error so a
// sweep across the grid never spams rejections.
func (s *Selection) Paint(day time.Time, hour int) {
	slot := NewSlot(day, hour)
	if !s.selectable(slot) {
		return
	}
	key := slot.Start().Unix()
	if _, selected := s.slots[key]; selected {
		return
	}

	candidate := make([]Slot, 0, len(s.slots)+1)
	for _, existing := range s.slots {
		candidate = append(candidate, existing)
	}
	candidate = append(candidate, slot)
	if !Continuous(candidate) {
		return
	}
	s.slots[key] = slot
}

// Clear empties the selection unconditionally.
func (s *Selection) Clear() {
	s.slots = make(map[int64]Slot)
}

// Segments collapses the selection into submission-ready date ranges.
func (s *Selection) Segments() []Segment {
	return Compact(s.Slots())
}

func (s *Selection) selectable(slot Slot) bool {
	return !slot.Reserved(s.reserved) && !slot.Past(s.now())
}

// Continuous reports whether the slots form one unbroken run of consecutive
// hours. Slots are compared by chronological value, never by string form.
// Runs may cross midnight only between directly adjacent calendar days.
// Zero or one slot is trivially continuous.
func Continuous(slots []Slot) bool {
	if len(slots) <= 1 {
		return true
	}
	ordered := make([]Slot, len(slots))
	copy(ordered, slots)
	sortSlots(ordered)

	for i := 0; i < len(ordered)-1; i++ {
		if !ordered[i].precedes(ordered[i+1]) {
			return false
		}
	}
	return true
}

func sortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Before(slots[j])
	})
}
