package availability

import (
	"time"

	"cloud.google.com/go/civil"
)

// ResolveDay lays the gap grid over date and keeps the times of day within
// [w.Start, w.End], both ends inclusive. Each kept time becomes an instant on date in host.
// Wall-clock times skipped by a DST transition in host are dropped. A closed or unusable
// window yields nil.
func ResolveDay(date civil.Date, w Window, gapMinutes int, host *time.Location) []time.Time {
	if !w.Usable() || !date.IsValid() {
		return nil
	}
	if host == nil {
		host = time.UTC
	}
	var out []time.Time
	for _, c := range Grid(gapMinutes) {
		if c < w.Start || c > w.End {
			continue
		}
		t := time.Date(date.Year, date.Month, date.Day, c.Hour(), c.Minute(), 0, 0, host)
		if t.Hour() != c.Hour() || t.Minute() != c.Minute() {
			continue
		}
		out = append(out, t)
	}
	return out
}

// WindowFor picks the weekday window that applies to a date the guest picked. The weekday is
// the one the guest sees: midnight of date in the guest's zone. A Tuesday picked in Tokyo uses
// the host's Tuesday window even when it is still Monday for the host.
func WindowFor(week WeeklyAvailability, date civil.Date, guest *time.Location) (Weekday, Window) {
	if guest == nil {
		guest = time.UTC
	}
	d := WeekdayOf(date.In(guest))
	return d, week.Window(d)
}

// DaySlots returns the candidate instants a guest sees for date, before conflict filtering.
func DaySlots(week WeeklyAvailability, date civil.Date, guest, host *time.Location) []time.Time {
	_, w := WindowFor(week, date, guest)
	return ResolveDay(date, w, week.GapMinutes, host)
}
