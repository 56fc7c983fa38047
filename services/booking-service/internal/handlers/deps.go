package handlers

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// MeetingStore is the meeting side of *storage.Repository.
type MeetingStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	LockIdempotencyKey(ctx context.Context, tx pgx.Tx, eventID, key string) (storage.IdempotencyRecord, bool, error)
	FinalizeIdempotency(ctx context.Context, tx pgx.Tx, eventID, key, meetingID string, statusCode int, response []byte) error
	CreateMeeting(ctx context.Context, tx pgx.Tx, m *model.Meeting) (string, error)
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
	GetMeeting(ctx context.Context, meetingID string) (model.Meeting, error)
	GetMeetingForUpdate(ctx context.Context, tx pgx.Tx, userID, meetingID string) (model.Meeting, error)
	CancelMeeting(ctx context.Context, tx pgx.Tx, userID, meetingID string) (time.Time, error)
	ListMeetingsByHost(ctx context.Context, userID string, filter storage.MeetingFilter, now time.Time, limit int) ([]model.Meeting, error)
}

// EventStore backs the public booking page entry points and the host's event list.
type EventStore interface {
	GetPublicEventBySlug(ctx context.Context, username, slug string) (model.Event, error)
	ListPublicEventsByUsername(ctx context.Context, username string) ([]model.Event, error)
	ListEventsByHost(ctx context.Context, userID string) ([]model.Event, error)
}

type AvailabilityStore interface {
	GetAvailability(ctx context.Context, userID string) (storage.HostAvailability, error)
	PutAvailability(ctx context.Context, userID string, in storage.HostAvailability) error
}

type OutboxWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}
