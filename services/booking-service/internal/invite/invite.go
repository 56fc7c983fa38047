package invite

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

const (
	ContentType = "text/calendar; charset=utf-8"
	productID   = "-//slotbook//booking-service//EN"
)

// Build renders the meeting as a single-event iCalendar invite. Cancelled meetings produce a
// CANCEL so calendar clients remove the entry.
func Build(m model.Meeting, evt model.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	if m.Status == model.MeetingCancelled {
		cal.SetMethod(ical.MethodCancel)
	} else {
		cal.SetMethod(ical.MethodRequest)
	}

	ve := cal.AddEvent(m.ID + "@slotbook")
	ve.SetDtStampTime(now.UTC())
	ve.SetCreatedTime(m.CreatedAt.UTC())
	ve.SetStartAt(m.StartTime.UTC())
	ve.SetEndAt(m.EndTime.UTC())
	ve.SetSummary(m.Summary())
	ve.SetDescription(description(m, evt))
	if m.MeetLink != "" {
		ve.SetLocation(m.MeetLink)
		ve.SetURL(m.MeetLink)
	}
	if m.Status == model.MeetingCancelled {
		ve.SetStatus(ical.ObjectStatusCancelled)
	} else {
		ve.SetStatus(ical.ObjectStatusConfirmed)
	}

	if evt.HostEmail != "" {
		ve.SetOrganizer("mailto:"+evt.HostEmail, ical.WithCN(hostName(evt)))
	}
	ve.AddAttendee(m.GuestEmail,
		ical.WithCN(m.GuestName),
		ical.WithRSVP(true),
		ical.ParticipationStatusNeedsAction,
	)
	return cal.Serialize()
}

func hostName(evt model.Event) string {
	if evt.HostName != "" {
		return evt.HostName
	}
	return evt.Username
}

func description(m model.Meeting, evt model.Event) string {
	var b strings.Builder
	b.WriteString(evt.Title)
	if m.AdditionalInfo != "" {
		b.WriteString("\n\n")
		b.WriteString(m.AdditionalInfo)
	}
	return b.String()
}
