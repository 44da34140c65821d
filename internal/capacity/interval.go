package capacity

import (
	"time"

	"slotbooking/backend/internal/models"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// SlotInterval returns the interval covered by s.
func SlotInterval(s models.Slot) Interval {
	return Interval{Start: s.StartTime, End: s.EndTime}
}

// Valid reports whether Start is strictly before End.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// UTC returns the interval with both bounds in UTC.
func (i Interval) UTC() Interval {
	return Interval{Start: i.Start.UTC(), End: i.End.UTC()}
}

// Overlaps is true when the two ranges share any instant. Touching
// boundaries do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// FindOverlaps returns the members of existing that overlap candidate.
func FindOverlaps(candidate Interval, existing []Interval) []Interval {
	var out []Interval
	for _, iv := range existing {
		if candidate.Overlaps(iv) {
			out = append(out, iv)
		}
	}
	return out
}
