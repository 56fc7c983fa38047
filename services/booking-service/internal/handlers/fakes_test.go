package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/display"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/scheduling"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/sessions"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeTx struct {
	pgx.Tx
	committed bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error { return nil }

// fakeStore stands in for *storage.Repository. Writes apply immediately.
type fakeStore struct {
	mu       sync.Mutex
	events   map[string]model.Event
	meetings map[string]model.Meeting
	idem     map[string]storage.IdempotencyRecord
	host     storage.HostAvailability
	seq      int
	now      time.Time
}

func newFakeStore(now time.Time) *fakeStore {
	week := availability.ClosedWeek()
	week.Days[availability.Monday] = availability.Window{Available: true, Start: 9 * 60, End: 10 * 60}
	return &fakeStore{
		events: map[string]model.Event{
			"evt-1": {
				ID: "evt-1", UserID: "host-1", Username: "grace", HostName: "Grace", HostEmail: "grace@example.com",
				Title: "Intro call", Slug: "intro", DurationMinutes: 30, LocationType: model.LocationGoogleMeet,
			},
			"evt-private": {ID: "evt-private", UserID: "host-1", Username: "grace", Slug: "vip", DurationMinutes: 30, IsPrivate: true},
		},
		meetings: map[string]model.Meeting{},
		idem:     map[string]storage.IdempotencyRecord{},
		host:     storage.HostAvailability{Week: week, Timezone: "America/New_York"},
		now:      now,
	}
}

func (s *fakeStore) Begin(context.Context) (pgx.Tx, error) { return &fakeTx{}, nil }

func (s *fakeStore) LockIdempotencyKey(_ context.Context, _ pgx.Tx, eventID, key string) (storage.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := eventID + "|" + key
	if rec, ok := s.idem[k]; ok {
		return rec, true, nil
	}
	rec := storage.IdempotencyRecord{EventID: eventID, IdempotencyKey: key}
	s.idem[k] = rec
	return rec, false, nil
}

func (s *fakeStore) FinalizeIdempotency(_ context.Context, _ pgx.Tx, eventID, key, meetingID string, statusCode int, response []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := eventID + "|" + key
	rec := s.idem[k]
	rec.MeetingID = meetingID
	rec.StatusCode = statusCode
	rec.ResponsePayload = response
	s.idem[k] = rec
	return nil
}

func (s *fakeStore) CreateMeeting(_ context.Context, _ pgx.Tx, m *model.Meeting) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.meetings {
		if other.UserID == m.UserID && other.Status == model.MeetingScheduled &&
			m.StartTime.Before(other.EndTime) && m.EndTime.After(other.StartTime) {
			return "", fmt.Errorf("%w: overlaps %s", storage.ErrSlotTaken, other.ID)
		}
	}
	s.seq++
	id := fmt.Sprintf("m-%d", s.seq)
	stored := *m
	stored.ID = id
	stored.Status = model.MeetingScheduled
	stored.CreatedAt = s.now
	s.meetings[id] = stored
	return id, nil
}

func (s *fakeStore) GetEvent(_ context.Context, eventID string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	evt, ok := s.events[eventID]
	if !ok {
		return model.Event{}, storage.ErrNotFound
	}
	return evt, nil
}

func (s *fakeStore) GetPublicEvent(ctx context.Context, eventID string) (model.Event, error) {
	evt, err := s.GetEvent(ctx, eventID)
	if err == nil && evt.IsPrivate {
		return model.Event{}, storage.ErrNotFound
	}
	return evt, err
}

func (s *fakeStore) GetPublicEventBySlug(_ context.Context, username, slug string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range s.events {
		if evt.Username == username && evt.Slug == slug && !evt.IsPrivate {
			return evt, nil
		}
	}
	return model.Event{}, storage.ErrNotFound
}

func (s *fakeStore) ListPublicEventsByUsername(_ context.Context, username string) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	known := false
	out := []model.Event{}
	for _, evt := range s.events {
		if evt.Username != username {
			continue
		}
		known = true
		if !evt.IsPrivate {
			out = append(out, evt)
		}
	}
	if !known {
		return nil, storage.ErrNotFound
	}
	return out, nil
}

func (s *fakeStore) ListEventsByHost(_ context.Context, userID string) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Event
	for _, evt := range s.events {
		if evt.UserID == userID {
			out = append(out, evt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) GetMeeting(_ context.Context, meetingID string) (model.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return model.Meeting{}, storage.ErrNotFound
	}
	return m, nil
}

func (s *fakeStore) GetMeetingForUpdate(ctx context.Context, _ pgx.Tx, userID, meetingID string) (model.Meeting, error) {
	m, err := s.GetMeeting(ctx, meetingID)
	if err == nil && m.UserID != userID {
		return model.Meeting{}, storage.ErrNotFound
	}
	return m, err
}

func (s *fakeStore) CancelMeeting(_ context.Context, _ pgx.Tx, _, meetingID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.meetings[meetingID]
	at := s.now
	m.Status = model.MeetingCancelled
	m.CancelledAt = &at
	s.meetings[meetingID] = m
	return at, nil
}

func (s *fakeStore) ListMeetingsByHost(_ context.Context, userID string, _ storage.MeetingFilter, _ time.Time, _ int) ([]model.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Meeting
	for _, m := range s.meetings {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *fakeStore) GetAvailability(context.Context, string) (storage.HostAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host, nil
}

func (s *fakeStore) PutAvailability(_ context.Context, _ string, in storage.HostAvailability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.host = in
	return nil
}

func (s *fakeStore) ListBookedIntervals(_ context.Context, userID string, from, to time.Time) ([]availability.Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []availability.Interval
	for _, m := range s.meetings {
		if m.UserID == userID && m.Status == model.MeetingScheduled && m.StartTime.Before(to) && m.EndTime.After(from) {
			out = append(out, availability.Interval{Start: m.StartTime, End: m.EndTime})
		}
	}
	return out, nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []outbox.Event
}

func (f *fakeOutbox) Insert(_ context.Context, _ pgx.Tx, evt outbox.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeOutbox) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	store    *fakeStore
	outbox   *fakeOutbox
	reg      *prometheus.Registry
	booking  *BookingHandler
	sessions *SessionHandler
	host     *HostHandler
}

// fixtureNow sits before the Monday 2026-01-05 the fake host is open on.
var fixtureNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return fixtureNow }
	store := newFakeStore(fixtureNow)
	ob := &fakeOutbox{}
	reg := prometheus.NewRegistry()
	projector := display.NewProjector(16)

	deps := Deps{
		Meetings:   store,
		Events:     store,
		Outbox:     ob,
		Scheduling: scheduling.NewProvider(store, projector, logger),
		Projector:  projector,
		Metrics:    NewMetrics(reg),
		Logger:     logger,
		Now:        now,
	}
	booking := NewBookingHandler(deps)
	return &fixture{
		store:    store,
		outbox:   ob,
		reg:      reg,
		booking:  booking,
		sessions: NewSessionHandler(sessions.NewMemoryStore(time.Hour, now), booking),
		host:     NewHostHandler(store, deps),
	}
}
