package availability

import (
	"testing"
	"time"
)

func TestFilterAvailable_Basic(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	candidates := []time.Time{
		day.Add(9 * time.Hour),
		day.Add(9*time.Hour + 15*time.Minute),
		day.Add(9*time.Hour + 30*time.Minute),
		day.Add(9*time.Hour + 45*time.Minute),
	}
	busy := []Interval{
		{Start: day.Add(9*time.Hour + 15*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)},
	}

	slots := FilterAvailable(candidates, busy, day)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Format(time.RFC3339))
	}
	if !slots[1].Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected second slot 09:45, got %s", slots[1].Format(time.RFC3339))
	}
}

func TestFilterAvailable_NowIsUnbookable(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	candidates := []time.Time{day.Add(9 * time.Hour), day.Add(9*time.Hour + 30*time.Minute), day.Add(10 * time.Hour)}

	now := day.Add(9*time.Hour + 30*time.Minute)
	slots := FilterAvailable(candidates, nil, now)
	if len(slots) != 1 || !slots[0].Equal(day.Add(10*time.Hour)) {
		t.Fatalf("expected only 10:00 to survive, got %v", slots)
	}
}

func TestFilterAvailable_HalfOpenBooking(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	candidates := []time.Time{day.Add(10 * time.Hour), day.Add(10*time.Hour + 30*time.Minute)}
	busy := []Interval{{Start: day.Add(10 * time.Hour), End: day.Add(10*time.Hour + 30*time.Minute)}}

	slots := FilterAvailable(candidates, busy, day)
	if len(slots) != 1 || !slots[0].Equal(day.Add(10*time.Hour+30*time.Minute)) {
		t.Fatalf("expected 10:00 blocked and 10:30 kept, got %v", slots)
	}
}

// The filter only checks start instants: a 09:30 candidate survives even though a
// 60 minute meeting from there would run into the 10:00 booking.
func TestFilterAvailable_StartInstantOnly(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	candidates := []time.Time{day.Add(9*time.Hour + 30*time.Minute)}
	busy := []Interval{{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)}}

	if slots := FilterAvailable(candidates, busy, day); len(slots) != 1 {
		t.Fatalf("expected start-only check to keep 09:30, got %v", slots)
	}
}

func TestFilterAvailable_MixedZonesAndOrder(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	candidates := []time.Time{
		time.Date(2026, 1, 5, 9, 0, 0, 0, ny),
		time.Date(2026, 1, 5, 9, 30, 0, 0, ny),
		time.Date(2026, 1, 5, 10, 0, 0, 0, ny),
	}
	// Booking stored in UTC blocks the New York 09:30 start.
	busy := []Interval{{Start: time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC), End: time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC)}}

	slots := FilterAvailable(candidates, busy, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if len(slots) != 2 || !slots[0].Equal(candidates[0]) || !slots[1].Equal(candidates[2]) {
		t.Fatalf("unexpected result %v", slots)
	}
}

func TestDayUnavailable(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	candidates := []time.Time{day.Add(9 * time.Hour)}
	busy := []Interval{{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)}}

	if !DayUnavailable(candidates, busy, day) {
		t.Fatal("expected fully booked day to be unavailable")
	}
	if DayUnavailable(candidates, nil, day) {
		t.Fatal("expected open day to be available")
	}
	if !DayUnavailable(nil, nil, day) {
		t.Fatal("expected day without candidates to be unavailable")
	}
}
