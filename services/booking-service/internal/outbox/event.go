package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	TypeMeetingScheduled = "meeting.scheduled.v1"
	TypeMeetingCancelled = "meeting.cancelled.v1"
)

// MeetingPayload is the body of both meeting events. The conferencing integration reads
// location_type to decide which link to mint.
type MeetingPayload struct {
	MeetingID      string `json:"meeting_id"`
	EventID        string `json:"event_id"`
	HostID         string `json:"host_id"`
	HostEmail      string `json:"host_email,omitempty"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	GuestName      string `json:"guest_name"`
	GuestEmail     string `json:"guest_email"`
	AdditionalInfo string `json:"additional_info,omitempty"`
	LocationType   string `json:"location_type"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	CancelledAt    string `json:"cancelled_at,omitempty"`
}

func newMeetingPayload(m model.Meeting, evt model.Event) MeetingPayload {
	return MeetingPayload{
		MeetingID:      m.ID,
		EventID:        m.EventID,
		HostID:         m.UserID,
		HostEmail:      evt.HostEmail,
		Title:          evt.Title,
		Summary:        m.Summary(),
		GuestName:      m.GuestName,
		GuestEmail:     m.GuestEmail,
		AdditionalInfo: m.AdditionalInfo,
		LocationType:   m.CalendarAppType,
		StartTime:      m.StartTime.UTC().Format(time.RFC3339),
		EndTime:        m.EndTime.UTC().Format(time.RFC3339),
	}
}

func MeetingScheduled(m model.Meeting, evt model.Event) (Event, error) {
	return meetingEvent(TypeMeetingScheduled, newMeetingPayload(m, evt))
}

func MeetingCancelled(m model.Meeting, evt model.Event, cancelledAt time.Time) (Event, error) {
	p := newMeetingPayload(m, evt)
	p.CancelledAt = cancelledAt.UTC().Format(time.RFC3339)
	return meetingEvent(TypeMeetingCancelled, p)
}

func meetingEvent(eventType string, p MeetingPayload) (Event, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "meeting",
		AggregateID:   p.MeetingID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}
