package availability

import "time"

// Interval is a booked meeting, half-open: [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Blocks reports whether t falls inside the interval.
func (iv Interval) Blocks(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// FilterAvailable drops candidates at or before now and candidates whose start instant falls
// inside a booked interval. Only the start instant is checked; a long meeting starting just
// before a booking is not rejected here. Input order is preserved.
func FilterAvailable(candidates []time.Time, booked []Interval, now time.Time) []time.Time {
	out := make([]time.Time, 0, len(candidates))
	for _, t := range candidates {
		if !t.After(now) {
			continue
		}
		if blockedByAny(t, booked) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// DayUnavailable reports whether nothing on the day survives FilterAvailable.
func DayUnavailable(candidates []time.Time, booked []Interval, now time.Time) bool {
	return len(FilterAvailable(candidates, booked, now)) == 0
}

func blockedByAny(t time.Time, booked []Interval) bool {
	for _, b := range booked {
		if b.Blocks(t) {
			return true
		}
	}
	return false
}
