// Package display renders slot instants in a guest's timezone and round-trips the slot
// references the booking flow hands back and forth.
package display

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
)

// Invalid is shown in place of a time that could not be rendered.
const Invalid = "--:--"

var (
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidSlot     = errors.New("invalid slot reference")
)

const (
	layout24h   = "15:04"
	layout12h   = "03:04 PM"
	layoutDay   = "Monday, January 2"
	slotLayout  = "2006-01-02T15:04:05.000Z07:00"
	defaultSize = 256
)

// Projector caches loaded locations; zone lookups hit the tzdata on every miss.
// It is safe for concurrent use.
type Projector struct {
	locations *lru.Cache[string, *time.Location]
}

func NewProjector(cacheSize int) *Projector {
	if cacheSize <= 0 {
		cacheSize = defaultSize
	}
	cache, _ := lru.New[string, *time.Location](cacheSize)
	return &Projector{locations: cache}
}

// Location resolves an IANA zone name. "UTC" is accepted; the server-local zone is not.
func (p *Projector) Location(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" || tz == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	if loc, ok := p.locations.Get(tz); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	p.locations.Add(tz, loc)
	return loc, nil
}

// ToDisplay renders t as a time of day in tz.
func (p *Projector) ToDisplay(t time.Time, tz string, format availability.HourFormat) (string, error) {
	loc, err := p.Location(tz)
	if err != nil {
		return Invalid, err
	}
	return t.In(loc).Format(clockLayout(format)), nil
}

// FromSlotReference renders a previously encoded slot reference. It always agrees with
// ToDisplay for the same instant.
func (p *Projector) FromSlotReference(raw, tz string, format availability.HourFormat) (string, error) {
	t, err := DecodeSlot(raw)
	if err != nil {
		return Invalid, err
	}
	return p.ToDisplay(t, tz, format)
}

// FormatRange renders "Monday, January 5 · 09:00 - 09:30". The day label is the start's;
// a range crossing midnight is not marked.
func (p *Projector) FormatRange(t time.Time, durationMinutes int, tz string, format availability.HourFormat) (string, error) {
	loc, err := p.Location(tz)
	if err != nil {
		return Invalid, err
	}
	start := t.In(loc)
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	layout := clockLayout(format)
	return start.Format(layoutDay) + " · " + start.Format(layout) + " - " + end.Format(layout), nil
}

// EncodeSlot serializes an instant as ISO-8601 UTC with milliseconds.
func EncodeSlot(t time.Time) string {
	return t.UTC().Format(slotLayout)
}

// DecodeSlot reverses EncodeSlot, tolerating a percent-encoded reference. Path unescaping
// keeps a literal "+" in an offset intact.
func DecodeSlot(raw string) (time.Time, error) {
	s, err := url.PathUnescape(strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSlot, err)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSlot, raw)
	}
	return t, nil
}

func clockLayout(format availability.HourFormat) string {
	if format == availability.Hour12 {
		return layout12h
	}
	return layout24h
}
