// Package bookingflow tracks one guest's progress through a public booking page:
// pick a date, pick a slot, fill in details, confirm.
//
// A Selection belongs to a single session and is not safe for concurrent use. Every
// transition is idempotent under duplicate dispatch.
package bookingflow

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
)

type Stage string

const (
	SelectingDate Stage = "SELECTING_DATE"
	SelectingSlot Stage = "SELECTING_SLOT"
	Details       Stage = "DETAILS"
	Confirmed     Stage = "CONFIRMED"
)

var (
	ErrNoSlotSelected    = errors.New("no slot selected")
	ErrNoDateSelected    = errors.New("no date selected")
	ErrInvalidTransition = errors.New("invalid booking transition")
)

// Selection is the transient state of one booking session.
type Selection struct {
	EventID      string                  `json:"event_id"`
	Stage        Stage                   `json:"stage"`
	SelectedDate *civil.Date             `json:"selected_date,omitempty"`
	SelectedSlot *time.Time              `json:"selected_slot,omitempty"`
	Timezone     string                  `json:"timezone"`
	HourFormat   availability.HourFormat `json:"hour_format"`
	MeetingID    string                  `json:"meeting_id,omitempty"`
}

// New starts a session on the date picker. Hour format defaults to 24h.
func New(eventID, timezone string) *Selection {
	return &Selection{
		EventID:    eventID,
		Stage:      SelectingDate,
		Timezone:   timezone,
		HourFormat: availability.Hour24,
	}
}

func invalid(op string, from Stage) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, from)
}

// SelectDate picks a calendar date and drops any slot chosen for the previous date.
func (s *Selection) SelectDate(d civil.Date) error {
	if s.Stage != SelectingDate && s.Stage != SelectingSlot {
		return invalid("select date", s.Stage)
	}
	s.SelectedDate = &d
	s.SelectedSlot = nil
	s.Stage = SelectingSlot
	return nil
}

// SelectSlot picks a start instant for the selected date. nil clears the pick.
func (s *Selection) SelectSlot(slot *time.Time) error {
	if s.Stage != SelectingSlot {
		return invalid("select slot", s.Stage)
	}
	if slot == nil {
		s.SelectedSlot = nil
		return nil
	}
	v := *slot
	s.SelectedSlot = &v
	return nil
}

// Advance moves to the details form. It requires a slot; in Details it is a no-op.
func (s *Selection) Advance() error {
	switch s.Stage {
	case Details:
		return nil
	case SelectingSlot:
		if s.SelectedSlot == nil {
			return ErrNoSlotSelected
		}
		s.Stage = Details
		return nil
	default:
		return invalid("advance", s.Stage)
	}
}

// Back returns from the details form keeping date and slot. On the slot picker it is a no-op.
func (s *Selection) Back() error {
	switch s.Stage {
	case Details:
		s.Stage = SelectingSlot
		return nil
	case SelectingSlot:
		return nil
	default:
		return invalid("back", s.Stage)
	}
}

// Confirm records the outcome of the booking submission. A failed submission stays on
// the details form. A repeated successful confirm is a no-op.
func (s *Selection) Confirm(success bool, meetingID string) error {
	switch s.Stage {
	case Confirmed:
		return nil
	case Details:
		if success {
			s.Stage = Confirmed
			s.MeetingID = meetingID
		}
		return nil
	default:
		return invalid("confirm", s.Stage)
	}
}

// Reject handles a slot taken by someone else between display and submission:
// the slot is dropped and the guest picks again on the same date.
func (s *Selection) Reject() error {
	if s.Stage != Details && s.Stage != SelectingSlot {
		return invalid("reject", s.Stage)
	}
	s.SelectedSlot = nil
	s.Stage = SelectingSlot
	return nil
}

// Reset starts a new booking from any stage. Display preferences survive.
func (s *Selection) Reset() {
	s.Stage = SelectingDate
	s.SelectedDate = nil
	s.SelectedSlot = nil
	s.MeetingID = ""
}

func (s *Selection) SetTimezone(tz string) {
	s.Timezone = tz
}

func (s *Selection) SetHourFormat(f availability.HourFormat) {
	s.HourFormat = f
}

// Guest is the contact form.
type Guest struct {
	Name           string `json:"guest_name" validate:"required,max=200"`
	Email          string `json:"guest_email" validate:"required,email,max=320"`
	AdditionalInfo string `json:"additional_info,omitempty" validate:"max=2000"`
}

// Request is what gets handed to the scheduler for persistence.
type Request struct {
	EventID        string    `json:"event_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	GuestName      string    `json:"guest_name"`
	GuestEmail     string    `json:"guest_email"`
	AdditionalInfo string    `json:"additional_info,omitempty"`
	Timezone       string    `json:"timezone,omitempty"`
}

// Request builds the booking request for the selected slot. The end is start plus duration.
func (s *Selection) Request(g Guest, durationMinutes int) (Request, error) {
	if s.Stage != Details {
		return Request{}, invalid("submit", s.Stage)
	}
	if s.SelectedSlot == nil {
		return Request{}, ErrNoSlotSelected
	}
	if durationMinutes <= 0 {
		return Request{}, fmt.Errorf("invalid duration %d minutes", durationMinutes)
	}
	start := s.SelectedSlot.UTC()
	return Request{
		EventID:        s.EventID,
		StartTime:      start,
		EndTime:        start.Add(time.Duration(durationMinutes) * time.Minute),
		GuestName:      g.Name,
		GuestEmail:     g.Email,
		AdditionalInfo: g.AdditionalInfo,
		Timezone:       s.Timezone,
	}, nil
}
