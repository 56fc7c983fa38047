package scheduling

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// MaxSummaryDays bounds a DaySummary request.
const MaxSummaryDays = 62

// Snapshot is everything slot computation needs for one event, read once per request.
type Snapshot struct {
	Event        model.Event
	Week         availability.WeeklyAvailability
	HostLocation *time.Location
	Booked       []availability.Interval
}

// SearchRange widens [from, to] so bookings for every instant a guest in any zone can see on
// those dates are included.
func SearchRange(from, to civil.Date) (time.Time, time.Time) {
	const pad = 26 * time.Hour
	return from.In(time.UTC).Add(-pad), to.AddDays(1).In(time.UTC).Add(pad)
}

// OfferedSlots is the guest-facing slot list for date: candidates from the week, minus past and
// booked instants.
func OfferedSlots(snap Snapshot, date civil.Date, guest *time.Location, now time.Time) []time.Time {
	return availability.FilterAvailable(availability.DaySlots(snap.Week, date, guest, snap.HostLocation), snap.Booked, now)
}

// IsOffered reports whether start would be listed for any date a guest could have picked it from.
func IsOffered(snap Snapshot, start time.Time, guest *time.Location, now time.Time) bool {
	if guest == nil {
		guest = time.UTC
	}
	base := civil.DateOf(start.In(guest))
	for _, d := range []civil.Date{base.AddDays(-1), base, base.AddDays(1)} {
		for _, s := range OfferedSlots(snap, d, guest, now) {
			if s.Equal(start) {
				return true
			}
		}
	}
	return false
}

var (
	ErrNotOffered = errors.New("requested time is not offered")
	ErrSlotBooked = errors.New("time slot already booked")
)

// Check is the booking-time validation. A start that is off the host's schedule or already in
// the past yields ErrNotOffered; a start inside a scheduled meeting yields ErrSlotBooked.
func Check(snap Snapshot, start time.Time, guest *time.Location, now time.Time) error {
	open := snap
	open.Booked = nil
	if !IsOffered(open, start, guest, now) {
		return ErrNotOffered
	}
	for _, b := range snap.Booked {
		if b.Blocks(start) {
			return ErrSlotBooked
		}
	}
	return nil
}

type DayStatus struct {
	Date        civil.Date
	Unavailable bool
}

// DaySummary flags each date in [from, to] for a month view. Dates before today in the guest's
// zone are always unavailable.
func DaySummary(snap Snapshot, from, to civil.Date, guest *time.Location, now time.Time) []DayStatus {
	if guest == nil {
		guest = time.UTC
	}
	today := civil.DateOf(now.In(guest))
	var out []DayStatus
	for d := from; !d.After(to); d = d.AddDays(1) {
		st := DayStatus{Date: d}
		if d.Before(today) {
			st.Unavailable = true
		} else {
			candidates := availability.DaySlots(snap.Week, d, guest, snap.HostLocation)
			st.Unavailable = availability.DayUnavailable(candidates, snap.Booked, now)
		}
		out = append(out, st)
	}
	return out
}
