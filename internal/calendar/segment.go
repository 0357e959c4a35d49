package calendar

import "time"

// Segment is one contiguous date range produced from a selection, submitted
// to the backend as a single reservation row.
type Segment struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Hours returns the whole number of hour slots the segment spans.
func (s Segment) Hours() int {
	return int(s.End.Sub(s.Start) / time.Hour)
}

// Compact collapses slots into the minimal ordered list of contiguous
// segments. A new group starts whenever the next slot is not the immediate
// hour successor of the previous one. Input that already satisfies the
// continuity rule therefore yields exactly one segment; the grouping stays
// general so disjoint sets still compact correctly.
func Compact(slots []Slot) []Segment {
	if len(slots) == 0 {
		return nil
	}
	ordered := make([]Slot, len(slots))
	copy(ordered, slots)
	sortSlots(ordered)

	segments := make([]Segment, 0, 1)
	groupStart := ordered[0]
	prev := ordered[0]
	for _, slot := range ordered[1:] {
		if !prev.precedes(slot) {
			segments = append(segments, Segment{Start: groupStart.Start(), End: prev.End()})
			groupStart = slot
		}
		prev = slot
	}
	segments = append(segments, Segment{Start: groupStart.Start(), End: prev.End()})
	return segments
}

// TotalHours sums the hour count across segments.
func TotalHours(segments []Segment) int {
	total := 0
	for _, seg := range segments {
		total += seg.Hours()
	}
	return total
}
