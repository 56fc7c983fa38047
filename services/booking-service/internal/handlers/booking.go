package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/bookingflow"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/display"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/invite"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/scheduling"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

// bookingWindow is how far around a requested start the booked intervals are loaded.
const bookingWindow = 48 * time.Hour

type Deps struct {
	Meetings   MeetingStore
	Events     EventStore
	Outbox     OutboxWriter
	Scheduling scheduling.Provider
	Projector  *display.Projector
	Validate   *validator.Validate
	Metrics    *Metrics
	Logger     *slog.Logger
	Now        func() time.Time
}

// BookingHandler serves the guest-facing booking page.
type BookingHandler struct {
	meetings   MeetingStore
	events     EventStore
	outbox     OutboxWriter
	scheduling scheduling.Provider
	projector  *display.Projector
	validate   *validator.Validate
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time
}

func NewBookingHandler(d Deps) *BookingHandler {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Validate == nil {
		d.Validate = NewValidator()
	}
	if d.Projector == nil {
		d.Projector = display.NewProjector(0)
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &BookingHandler{
		meetings:   d.Meetings,
		events:     d.Events,
		outbox:     d.Outbox,
		scheduling: d.Scheduling,
		projector:  d.Projector,
		validate:   d.Validate,
		metrics:    d.Metrics,
		logger:     d.Logger,
		now:        d.Now,
	}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Label     string `json:"label"`
}

type eventItem struct {
	EventID         string `json:"event_id"`
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	LocationType    string `json:"location_type"`
	Username        string `json:"username"`
	HostName        string `json:"host_name"`
	IsPrivate       bool   `json:"is_private,omitempty"`
}

func toEventItem(evt model.Event) eventItem {
	return eventItem{
		EventID:         evt.ID,
		Title:           evt.Title,
		Slug:            evt.Slug,
		Description:     evt.Description,
		DurationMinutes: evt.DurationMinutes,
		LocationType:    evt.LocationType,
		Username:        evt.Username,
		HostName:        evt.HostName,
		IsPrivate:       evt.IsPrivate,
	}
}

type dayItem struct {
	Date        string `json:"date"`
	Unavailable bool   `json:"unavailable"`
}

type bookRequest struct {
	EventID   string `json:"event_id" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Timezone  string `json:"timezone"`
	bookingflow.Guest
}

type bookResponse struct {
	MeetingID string `json:"meeting_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func zoneOrUTC(tz string) string {
	if tz = strings.TrimSpace(tz); tz == "" {
		return "UTC"
	}
	return tz
}

// guestLocation resolves the guest's zone; an empty zone means UTC.
func (h *BookingHandler) guestLocation(tz string) (*time.Location, error) {
	return h.projector.Location(zoneOrUTC(tz))
}

func hourFormatParam(r *http.Request) (availability.HourFormat, error) {
	return availability.ParseHourFormat(strings.TrimSpace(r.URL.Query().Get("hour_format")))
}

// Events is the entry to a host's booking page: every public event for ?username, or the
// single event named by ?username&slug.
func (h *BookingHandler) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	username := strings.TrimSpace(q.Get("username"))
	if username == "" {
		http.Error(w, "username required", http.StatusBadRequest)
		return
	}

	if slug := strings.TrimSpace(q.Get("slug")); slug != "" {
		evt, err := h.events.GetPublicEventBySlug(r.Context(), username, slug)
		if err != nil {
			h.eventError(w, err, username)
			return
		}
		writeJSON(w, http.StatusOK, toEventItem(evt))
		return
	}

	events, err := h.events.ListPublicEventsByUsername(r.Context(), username)
	if err != nil {
		h.eventError(w, err, username)
		return
	}
	items := make([]eventItem, 0, len(events))
	for _, evt := range events {
		items = append(items, toEventItem(evt))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) eventError(w http.ResponseWriter, err error, username string) {
	if storage.IsNotFound(err) {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}
	h.logger.Error("load public events failed", "err", err, "username", username)
	http.Error(w, "failed to load events", http.StatusInternalServerError)
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	eventID := strings.TrimSpace(q.Get("event_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	if eventID == "" || dateStr == "" {
		http.Error(w, "event_id and date are required", http.StatusBadRequest)
		return
	}
	date, err := civil.ParseDate(dateStr)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	tz := zoneOrUTC(q.Get("timezone"))
	guest, err := h.projector.Location(tz)
	if err != nil {
		http.Error(w, "invalid timezone", http.StatusBadRequest)
		return
	}
	format, err := hourFormatParam(r)
	if err != nil {
		http.Error(w, "invalid hour_format", http.StatusBadRequest)
		return
	}

	from, to := scheduling.SearchRange(date, date)
	snap, ok := h.snapshot(r.Context(), w, eventID, from, to)
	if !ok {
		return
	}

	slots := scheduling.OfferedSlots(snap, date, guest, h.now())
	h.metrics.offered.Observe(float64(len(slots)))

	duration := time.Duration(snap.Event.DurationMinutes) * time.Minute
	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		label, _ := h.projector.ToDisplay(s, tz, format)
		items = append(items, slotItem{
			StartTime: display.EncodeSlot(s),
			EndTime:   display.EncodeSlot(s.Add(duration)),
			Label:     label,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) Days(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	eventID := strings.TrimSpace(q.Get("event_id"))
	if eventID == "" {
		http.Error(w, "event_id, from, and to are required", http.StatusBadRequest)
		return
	}
	from, err := civil.ParseDate(strings.TrimSpace(q.Get("from")))
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := civil.ParseDate(strings.TrimSpace(q.Get("to")))
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}
	if to.Before(from) || to.DaysSince(from) >= scheduling.MaxSummaryDays {
		http.Error(w, "date range too large", http.StatusBadRequest)
		return
	}
	guest, err := h.guestLocation(q.Get("timezone"))
	if err != nil {
		http.Error(w, "invalid timezone", http.StatusBadRequest)
		return
	}

	start, end := scheduling.SearchRange(from, to)
	snap, ok := h.snapshot(r.Context(), w, eventID, start, end)
	if !ok {
		return
	}

	summary := scheduling.DaySummary(snap, from, to, guest, h.now())
	items := make([]dayItem, 0, len(summary))
	for _, d := range summary {
		items = append(items, dayItem{Date: d.Date.String(), Unavailable: d.Unavailable})
	}
	writeJSON(w, http.StatusOK, items)
}

// snapshot loads slot inputs, answering the request itself on failure.
func (h *BookingHandler) snapshot(ctx context.Context, w http.ResponseWriter, eventID string, from, to time.Time) (scheduling.Snapshot, bool) {
	snap, err := h.scheduling.Snapshot(ctx, eventID, from, to)
	if err == nil {
		return snap, true
	}
	if storage.IsNotFound(err) {
		http.Error(w, "event not found", http.StatusNotFound)
		return scheduling.Snapshot{}, false
	}
	h.logger.Error("availability snapshot failed", "err", err, "event_id", eventID)
	http.Error(w, "availability service unavailable", http.StatusServiceUnavailable)
	return scheduling.Snapshot{}, false
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.EventID = strings.TrimSpace(req.EventID)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		h.metrics.booking(outcomeRejected)
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	startTime, err := display.DecodeSlot(req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}
	endTime, err := display.DecodeSlot(req.EndTime)
	if err != nil {
		http.Error(w, "invalid end_time", http.StatusBadRequest)
		return
	}
	if !endTime.After(startTime) {
		http.Error(w, "end_time must be after start_time", http.StatusBadRequest)
		return
	}

	out := h.book(r.Context(), bookingflow.Request{
		EventID:        req.EventID,
		StartTime:      startTime.UTC(),
		EndTime:        endTime.UTC(),
		GuestName:      req.Name,
		GuestEmail:     req.Email,
		AdditionalInfo: strings.TrimSpace(req.AdditionalInfo),
		Timezone:       strings.TrimSpace(req.Timezone),
	}, strings.TrimSpace(r.Header.Get("Idempotency-Key")))
	out.write(w)
}

// bookOutcome is the response to a booking submission. body holds a JSON response, either
// fresh or replayed from an idempotency key; otherwise msg is sent as a plain error.
type bookOutcome struct {
	status    int
	meetingID string
	body      []byte
	msg       string
}

func failed(status int, msg string) bookOutcome {
	return bookOutcome{status: status, msg: msg}
}

func (o bookOutcome) write(w http.ResponseWriter) {
	if len(o.body) > 0 {
		writeBody(w, o.status, o.body)
		return
	}
	http.Error(w, o.msg, o.status)
}

// book validates req against the live schedule and persists it with its outbox event in one tx.
func (h *BookingHandler) book(ctx context.Context, req bookingflow.Request, key string) bookOutcome {
	guest, err := h.guestLocation(req.Timezone)
	if err != nil {
		return failed(http.StatusBadRequest, "invalid timezone")
	}

	snap, err := h.scheduling.Snapshot(ctx, req.EventID, req.StartTime.Add(-bookingWindow), req.StartTime.Add(bookingWindow))
	if err != nil {
		if storage.IsNotFound(err) {
			return failed(http.StatusNotFound, "event not found")
		}
		// Do not finalize idempotency on dependency errors; the client may retry with the same key.
		h.logger.Error("availability snapshot failed", "err", err, "event_id", req.EventID)
		h.metrics.booking(outcomeError)
		return failed(http.StatusServiceUnavailable, "availability service unavailable")
	}
	duration := time.Duration(snap.Event.DurationMinutes) * time.Minute
	if !req.EndTime.Equal(req.StartTime.Add(duration)) {
		return failed(http.StatusBadRequest, "end_time must match the event duration")
	}

	tx, err := h.meetings.Begin(ctx)
	if err != nil {
		h.metrics.booking(outcomeError)
		return failed(http.StatusInternalServerError, "db error")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if key != "" {
		rec, exists, err := h.meetings.LockIdempotencyKey(ctx, tx, req.EventID, key)
		if err != nil {
			h.metrics.booking(outcomeError)
			return failed(http.StatusInternalServerError, "failed to lock idempotency key")
		}
		if exists && rec.Done() {
			h.metrics.booking(outcomeReplayed)
			out := bookOutcome{status: rec.StatusCode, meetingID: rec.MeetingID, body: rec.ResponsePayload}
			if len(out.body) == 0 {
				out.body, _ = json.Marshal(bookResponse{MeetingID: rec.MeetingID})
			}
			return out
		}
	}

	switch err := scheduling.Check(snap, req.StartTime, guest, h.now()); {
	case errors.Is(err, scheduling.ErrSlotBooked):
		h.metrics.booking(outcomeConflict)
		return failed(http.StatusConflict, "time slot already booked")
	case err != nil:
		h.metrics.booking(outcomeNotOffered)
		msg := "requested time is not offered"
		if key != "" && h.finalizeIdempotencyError(ctx, tx, req.EventID, key, http.StatusUnprocessableEntity, msg) {
			if err := tx.Commit(ctx); err != nil {
				h.logger.Error("failed to commit idempotency error", "err", err)
			}
		}
		return failed(http.StatusUnprocessableEntity, msg)
	}

	m := model.Meeting{
		EventID:         snap.Event.ID,
		UserID:          snap.Event.UserID,
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		AdditionalInfo:  req.AdditionalInfo,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		CalendarAppType: snap.Event.LocationType,
		Status:          model.MeetingScheduled,
	}
	id, err := h.meetings.CreateMeeting(ctx, tx, &m)
	if err != nil {
		if storage.IsConflict(err) {
			h.metrics.booking(outcomeConflict)
			return failed(http.StatusConflict, "time slot already booked")
		}
		h.logger.Error("create meeting failed", "err", err, "event_id", req.EventID)
		h.metrics.booking(outcomeError)
		return failed(http.StatusInternalServerError, "failed to create meeting")
	}
	m.ID = id

	evt, err := outbox.MeetingScheduled(m, snap.Event)
	if err != nil {
		return failed(http.StatusInternalServerError, "failed to build event payload")
	}
	if err := h.outbox.Insert(ctx, tx, evt); err != nil {
		h.metrics.booking(outcomeError)
		return failed(http.StatusInternalServerError, "failed to write outbox event")
	}

	body, err := json.Marshal(bookResponse{
		MeetingID: id,
		StartTime: display.EncodeSlot(m.StartTime),
		EndTime:   display.EncodeSlot(m.EndTime),
	})
	if err != nil {
		return failed(http.StatusInternalServerError, "failed to build response")
	}
	if key != "" {
		if err := h.meetings.FinalizeIdempotency(ctx, tx, req.EventID, key, id, http.StatusCreated, body); err != nil {
			return failed(http.StatusInternalServerError, "failed to finalize idempotency key")
		}
	}
	if err := tx.Commit(ctx); err != nil {
		h.metrics.booking(outcomeError)
		return failed(http.StatusInternalServerError, "failed to commit")
	}

	h.metrics.booking(outcomeCreated)
	h.logger.Info("meeting scheduled", "meeting_id", id, "event_id", m.EventID, "start_time", m.StartTime)
	return bookOutcome{status: http.StatusCreated, meetingID: id, body: body}
}

func (h *BookingHandler) finalizeIdempotencyError(ctx context.Context, tx pgx.Tx, eventID, key string, statusCode int, msg string) bool {
	body, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return false
	}
	if err := h.meetings.FinalizeIdempotency(ctx, tx, eventID, key, "", statusCode, body); err != nil {
		h.logger.Error("failed to finalize idempotency (error)", "err", err)
		return false
	}
	return true
}

// Invite serves the meeting as an iCalendar file for the guest's calendar.
func (h *BookingHandler) Invite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	meetingID := strings.TrimSpace(r.URL.Query().Get("meeting_id"))
	if meetingID == "" {
		http.Error(w, "meeting_id required", http.StatusBadRequest)
		return
	}

	m, err := h.meetings.GetMeeting(r.Context(), meetingID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "meeting not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load meeting", http.StatusInternalServerError)
		return
	}
	evt, err := h.meetings.GetEvent(r.Context(), m.EventID)
	if err != nil {
		http.Error(w, "failed to load event", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", invite.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="meeting.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(invite.Build(m, evt, h.now())))
}
