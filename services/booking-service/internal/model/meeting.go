package model

import "time"

const (
	MeetingScheduled = "SCHEDULED"
	MeetingCancelled = "CANCELLED"
)

// Location types decide which conferencing integration mints the meeting link.
const (
	LocationGoogleMeet = "GOOGLE_MEET_AND_CALENDAR"
	LocationZoom       = "ZOOM_MEETING"
)

type Event struct {
	ID              string
	UserID          string
	Username        string
	HostName        string
	HostEmail       string
	Title           string
	Slug            string
	Description     string
	DurationMinutes int
	LocationType    string
	IsPrivate       bool
}

type Meeting struct {
	ID              string
	EventID         string
	UserID          string
	GuestName       string
	GuestEmail      string
	AdditionalInfo  string
	StartTime       time.Time
	EndTime         time.Time
	MeetLink        string
	CalendarEventID string
	CalendarAppType string
	Status          string
	CancelledAt     *time.Time
	CreatedAt       time.Time
}

// Summary is the calendar title for the meeting.
func (m Meeting) Summary() string {
	return "Meeting with " + m.GuestName
}
