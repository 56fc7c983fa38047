package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

const TopicConferenceLinkCreated = "conferencing.link.created.v1"

type LinkStore interface {
	AttachConferenceLink(ctx context.Context, meetingID, meetLink, calendarEventID string) error
}

type linkPayload struct {
	MeetingID       string `json:"meeting_id"`
	MeetLink        string `json:"meet_link"`
	CalendarEventID string `json:"calendar_event_id"`
}

// ConferenceLinks stores links minted for scheduled meetings. Malformed payloads and unknown
// meetings are logged and skipped; storage failures are returned.
func ConferenceLinks(store LinkStore, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var p linkPayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		p.MeetingID = strings.TrimSpace(p.MeetingID)
		p.MeetLink = strings.TrimSpace(p.MeetLink)
		if p.MeetingID == "" || p.MeetLink == "" {
			logger.Error("missing required event fields", "topic", msg.Topic)
			return nil
		}

		err := store.AttachConferenceLink(ctx, p.MeetingID, p.MeetLink, strings.TrimSpace(p.CalendarEventID))
		if errors.Is(err, storage.ErrNotFound) {
			logger.Warn("conference link for unknown meeting", "meeting_id", p.MeetingID)
			return nil
		}
		return err
	}
}
