package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/display"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

// HostHandler serves the authenticated host's availability editor and meeting list.
// Routes must sit behind auth.RequireSession.
type HostHandler struct {
	availability AvailabilityStore
	events       EventStore
	meetings     MeetingStore
	outbox       OutboxWriter
	projector    *display.Projector
	metrics      *Metrics
	logger       *slog.Logger
	now          func() time.Time
}

func NewHostHandler(avail AvailabilityStore, d Deps) *HostHandler {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Projector == nil {
		d.Projector = display.NewProjector(0)
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &HostHandler{
		availability: avail,
		events:       d.Events,
		meetings:     d.Meetings,
		outbox:       d.Outbox,
		projector:    d.Projector,
		metrics:      d.Metrics,
		logger:       d.Logger,
		now:          d.Now,
	}
}

type availabilityBody struct {
	availability.Snapshot
	Timezone string `json:"timezone"`
}

type meetingItem struct {
	MeetingID      string `json:"meeting_id"`
	EventID        string `json:"event_id"`
	GuestName      string `json:"guest_name"`
	GuestEmail     string `json:"guest_email"`
	AdditionalInfo string `json:"additional_info,omitempty"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	MeetLink       string `json:"meet_link,omitempty"`
	Status         string `json:"status"`
	CancelledAt    string `json:"cancelled_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type cancelRequest struct {
	MeetingID string `json:"meeting_id"`
}

type cancelResponse struct {
	MeetingID   string `json:"meeting_id"`
	Status      string `json:"status"`
	CancelledAt string `json:"cancelled_at"`
}

func hostSession(w http.ResponseWriter, r *http.Request) (auth.Session, bool) {
	s, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return s, ok
}

// Availability reads the week on GET and replaces it on PUT.
func (h *HostHandler) Availability(w http.ResponseWriter, r *http.Request) {
	s, ok := hostSession(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		got, err := h.availability.GetAvailability(r.Context(), s.UserID)
		if err != nil && !errors.Is(err, availability.ErrInvalidClock) {
			http.Error(w, "failed to load availability", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, availabilityBody{Snapshot: got.Week.Snapshot(), Timezone: got.Timezone})
	case http.MethodPut:
		h.putAvailability(w, r, s)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HostHandler) putAvailability(w http.ResponseWriter, r *http.Request, s auth.Session) {
	var body availabilityBody
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	week, err := body.Week()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := week.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tz := zoneOrUTC(body.Timezone)
	if _, err := h.projector.Location(tz); err != nil {
		http.Error(w, "invalid timezone", http.StatusBadRequest)
		return
	}

	if err := h.availability.PutAvailability(r.Context(), s.UserID, storage.HostAvailability{Week: week, Timezone: tz}); err != nil {
		h.logger.Error("save availability failed", "err", err, "host_id", s.UserID)
		http.Error(w, "failed to save availability", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, availabilityBody{Snapshot: week.Snapshot(), Timezone: tz})
}

// Events lists the host's own events, private ones included.
func (h *HostHandler) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s, ok := hostSession(w, r)
	if !ok {
		return
	}
	events, err := h.events.ListEventsByHost(r.Context(), s.UserID)
	if err != nil {
		h.logger.Error("list host events failed", "err", err, "host_id", s.UserID)
		http.Error(w, "failed to list events", http.StatusInternalServerError)
		return
	}
	items := make([]eventItem, 0, len(events))
	for _, evt := range events {
		items = append(items, toEventItem(evt))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HostHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s, ok := hostSession(w, r)
	if !ok {
		return
	}

	filter, err := storage.ParseMeetingFilter(strings.TrimSpace(r.URL.Query().Get("filter")))
	if err != nil {
		http.Error(w, "invalid filter", http.StatusBadRequest)
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	meetings, err := h.meetings.ListMeetingsByHost(r.Context(), s.UserID, filter, h.now(), limit)
	if err != nil {
		http.Error(w, "failed to list meetings", http.StatusInternalServerError)
		return
	}
	items := make([]meetingItem, 0, len(meetings))
	for _, m := range meetings {
		item := meetingItem{
			MeetingID:      m.ID,
			EventID:        m.EventID,
			GuestName:      m.GuestName,
			GuestEmail:     m.GuestEmail,
			AdditionalInfo: m.AdditionalInfo,
			StartTime:      m.StartTime.UTC().Format(time.RFC3339),
			EndTime:        m.EndTime.UTC().Format(time.RFC3339),
			MeetLink:       m.MeetLink,
			Status:         m.Status,
			CreatedAt:      m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if m.CancelledAt != nil {
			item.CancelledAt = m.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

// Cancel frees the meeting's slot. Cancelling twice returns the first cancellation.
func (h *HostHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s, ok := hostSession(w, r)
	if !ok {
		return
	}

	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.MeetingID = strings.TrimSpace(req.MeetingID)
	if req.MeetingID == "" {
		http.Error(w, "meeting_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.meetings.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	m, err := h.meetings.GetMeetingForUpdate(ctx, tx, s.UserID, req.MeetingID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "meeting not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load meeting", http.StatusInternalServerError)
		return
	}
	if m.Status == model.MeetingCancelled && m.CancelledAt != nil {
		writeJSON(w, http.StatusOK, cancelResponse{MeetingID: m.ID, Status: m.Status, CancelledAt: m.CancelledAt.UTC().Format(time.RFC3339)})
		return
	}
	if m.Status != model.MeetingScheduled {
		http.Error(w, "meeting cannot be cancelled", http.StatusConflict)
		return
	}

	cancelledAt, err := h.meetings.CancelMeeting(ctx, tx, s.UserID, m.ID)
	if err != nil {
		http.Error(w, "failed to cancel meeting", http.StatusInternalServerError)
		return
	}
	evt, err := h.meetings.GetEvent(ctx, m.EventID)
	if err != nil {
		http.Error(w, "failed to load event", http.StatusInternalServerError)
		return
	}
	m.Status = model.MeetingCancelled
	outEvt, err := outbox.MeetingCancelled(m, evt, cancelledAt)
	if err != nil {
		http.Error(w, "failed to build cancellation event", http.StatusInternalServerError)
		return
	}
	if err := h.outbox.Insert(ctx, tx, outEvt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	h.metrics.cancellation.Inc()
	h.logger.Info("meeting cancelled", "meeting_id", m.ID, "host_id", s.UserID)
	writeJSON(w, http.StatusOK, cancelResponse{MeetingID: m.ID, Status: model.MeetingCancelled, CancelledAt: cancelledAt.UTC().Format(time.RFC3339)})
}
