package display

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
)

func TestToDisplay(t *testing.T) {
	p := NewProjector(4)
	slot := time.Date(2026, 1, 5, 14, 0, 0, 0, time.UTC)

	cases := []struct {
		tz     string
		format availability.HourFormat
		want   string
	}{
		{"UTC", availability.Hour24, "14:00"},
		{"America/New_York", availability.Hour24, "09:00"},
		{"America/New_York", availability.Hour12, "09:00 AM"},
		{"Asia/Kolkata", availability.Hour12, "07:30 PM"},
	}
	for _, tc := range cases {
		got, err := p.ToDisplay(slot, tc.tz, tc.format)
		if err != nil {
			t.Fatalf("ToDisplay(%s): %v", tc.tz, err)
		}
		if got != tc.want {
			t.Fatalf("ToDisplay(%s, %s) = %q, want %q", tc.tz, tc.format, got, tc.want)
		}
	}
}

func TestToDisplay_InvalidZone(t *testing.T) {
	p := NewProjector(4)
	got, err := p.ToDisplay(time.Now(), "Mars/Olympus", availability.Hour24)
	if !errors.Is(err, ErrInvalidTimezone) {
		t.Fatalf("expected ErrInvalidTimezone, got %v", err)
	}
	if got != Invalid {
		t.Fatalf("expected placeholder, got %q", got)
	}
	if _, err := p.Location("Local"); !errors.Is(err, ErrInvalidTimezone) {
		t.Fatalf("expected server local zone to be rejected, got %v", err)
	}
}

func TestSlotRoundTrip(t *testing.T) {
	p := NewProjector(4)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	orig := time.Date(2026, 3, 9, 23, 45, 0, 0, tokyo)

	encoded := EncodeSlot(orig)
	if encoded != "2026-03-09T14:45:00.000Z" {
		t.Fatalf("unexpected encoding %q", encoded)
	}
	for _, ref := range []string{encoded, url.QueryEscape(encoded), url.PathEscape(encoded)} {
		for _, format := range []availability.HourFormat{availability.Hour12, availability.Hour24} {
			direct, err := p.ToDisplay(orig, "Europe/Paris", format)
			if err != nil {
				t.Fatalf("ToDisplay: %v", err)
			}
			viaRef, err := p.FromSlotReference(ref, "Europe/Paris", format)
			if err != nil {
				t.Fatalf("FromSlotReference(%q): %v", ref, err)
			}
			if direct != viaRef {
				t.Fatalf("display mismatch for %q: %q vs %q", ref, direct, viaRef)
			}
		}
	}
}

func TestDecodeSlot(t *testing.T) {
	got, err := DecodeSlot("2026-01-05T09:00:00+05:30")
	if err != nil {
		t.Fatalf("DecodeSlot: %v", err)
	}
	if want := time.Date(2026, 1, 5, 3, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got.UTC())
	}
	if _, err := DecodeSlot("2026-01-05T09%3A00%3A00.000Z"); err != nil {
		t.Fatalf("expected percent-encoded reference to decode, got %v", err)
	}
	if _, err := DecodeSlot("tomorrow"); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
	if _, err := DecodeSlot("%zz"); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot for bad escape, got %v", err)
	}

	display, err := NewProjector(1).FromSlotReference("nope", "UTC", availability.Hour24)
	if err == nil || display != Invalid {
		t.Fatalf("expected placeholder and error, got %q err=%v", display, err)
	}
}

func TestFormatRange(t *testing.T) {
	p := NewProjector(4)
	slot := time.Date(2026, 1, 5, 14, 0, 0, 0, time.UTC)

	got, err := p.FormatRange(slot, 30, "America/New_York", availability.Hour24)
	if err != nil {
		t.Fatalf("FormatRange: %v", err)
	}
	if want := "Monday, January 5 · 09:00 - 09:30"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	got, err = p.FormatRange(slot, 45, "America/New_York", availability.Hour12)
	if err != nil {
		t.Fatalf("FormatRange: %v", err)
	}
	if want := "Monday, January 5 · 09:00 AM - 09:45 AM"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// A range that crosses midnight keeps the start's day label.
func TestFormatRange_CrossesMidnight(t *testing.T) {
	p := NewProjector(4)
	slot := time.Date(2026, 1, 5, 23, 30, 0, 0, time.UTC)
	got, err := p.FormatRange(slot, 60, "UTC", availability.Hour24)
	if err != nil {
		t.Fatalf("FormatRange: %v", err)
	}
	if want := "Monday, January 5 · 23:30 - 00:30"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLocationCache(t *testing.T) {
	p := NewProjector(1)
	a, err := p.Location("Europe/Berlin")
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	b, err := p.Location("Europe/Berlin")
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if a != b {
		t.Fatal("expected cached location pointer")
	}
	if p.locations.Len() != 1 {
		t.Fatalf("expected one cached entry, got %d", p.locations.Len())
	}
}
