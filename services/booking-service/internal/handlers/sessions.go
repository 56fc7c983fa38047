package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/bookingflow"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/display"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/scheduling"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/sessions"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// SessionHandler drives a guest's booking page server side. Every mutation loads the
// selection, applies one transition and saves it back.
type SessionHandler struct {
	store   sessions.Store
	booking *BookingHandler
}

func NewSessionHandler(store sessions.Store, booking *BookingHandler) *SessionHandler {
	return &SessionHandler{store: store, booking: booking}
}

type sessionRequest struct {
	SessionID  string  `json:"session_id"`
	EventID    string  `json:"event_id"`
	Date       string  `json:"date"`
	Slot       *string `json:"slot"`
	Timezone   *string `json:"timezone"`
	HourFormat *string `json:"hour_format"`
	bookingflow.Guest
}

type sessionView struct {
	SessionID    string                  `json:"session_id"`
	EventID      string                  `json:"event_id"`
	Stage        bookingflow.Stage       `json:"stage"`
	SelectedDate string                  `json:"selected_date,omitempty"`
	SelectedSlot string                  `json:"selected_slot,omitempty"`
	SlotLabel    string                  `json:"slot_label,omitempty"`
	Summary      string                  `json:"summary,omitempty"`
	Timezone     string                  `json:"timezone"`
	HourFormat   availability.HourFormat `json:"hour_format"`
	MeetingID    string                  `json:"meeting_id,omitempty"`
}

// Sessions creates a session on POST and reads one on GET.
func (h *SessionHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		id := strings.TrimSpace(r.URL.Query().Get("session_id"))
		if id == "" {
			http.Error(w, "session_id required", http.StatusBadRequest)
			return
		}
		sel, err := h.store.Get(r.Context(), id)
		if err != nil {
			h.storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.view(r.Context(), id, sel))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.EventID = strings.TrimSpace(req.EventID)
	if req.EventID == "" {
		http.Error(w, "event_id required", http.StatusBadRequest)
		return
	}

	evt, err := h.booking.meetings.GetEvent(r.Context(), req.EventID)
	if err != nil || evt.IsPrivate {
		if err == nil || storage.IsNotFound(err) {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load event", http.StatusInternalServerError)
		return
	}

	tz := "UTC"
	if req.Timezone != nil {
		tz = zoneOrUTC(*req.Timezone)
	}
	if _, err := h.booking.projector.Location(tz); err != nil {
		http.Error(w, "invalid timezone", http.StatusBadRequest)
		return
	}
	sel := bookingflow.New(evt.ID, tz)
	if req.HourFormat != nil {
		f, err := availability.ParseHourFormat(*req.HourFormat)
		if err != nil {
			http.Error(w, "invalid hour_format", http.StatusBadRequest)
			return
		}
		sel.SetHourFormat(f)
	}

	id, err := h.store.Create(r.Context(), sel)
	if err != nil {
		h.booking.logger.Error("create booking session failed", "err", err)
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, h.view(r.Context(), id, sel))
}

// Date selects a calendar date.
func (h *SessionHandler) Date(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, req sessionRequest, sel *bookingflow.Selection) (int, string) {
		d, err := civil.ParseDate(strings.TrimSpace(req.Date))
		if err != nil {
			return http.StatusBadRequest, "invalid date"
		}
		return transitionFailure(sel.SelectDate(d))
	})
}

// Slot selects a start instant offered for the selected date; a null slot clears the pick.
func (h *SessionHandler) Slot(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, req sessionRequest, sel *bookingflow.Selection) (int, string) {
		if req.Slot == nil {
			return transitionFailure(sel.SelectSlot(nil))
		}
		slot, err := display.DecodeSlot(*req.Slot)
		if err != nil {
			return http.StatusBadRequest, "invalid slot"
		}
		if sel.Stage == bookingflow.SelectingSlot && sel.SelectedDate != nil {
			if status, msg := h.checkOffered(ctx, sel, slot); status != 0 {
				return status, msg
			}
		}
		return transitionFailure(sel.SelectSlot(&slot))
	})
}

func (h *SessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(_ context.Context, _ sessionRequest, sel *bookingflow.Selection) (int, string) {
		return transitionFailure(sel.Advance())
	})
}

func (h *SessionHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(_ context.Context, _ sessionRequest, sel *bookingflow.Selection) (int, string) {
		return transitionFailure(sel.Back())
	})
}

func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(_ context.Context, _ sessionRequest, sel *bookingflow.Selection) (int, string) {
		sel.Reset()
		return 0, ""
	})
}

// Preferences changes the display zone or hour format at any stage.
func (h *SessionHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(_ context.Context, req sessionRequest, sel *bookingflow.Selection) (int, string) {
		if req.Timezone != nil {
			tz := zoneOrUTC(*req.Timezone)
			if _, err := h.booking.projector.Location(tz); err != nil {
				return http.StatusBadRequest, "invalid timezone"
			}
			sel.SetTimezone(tz)
		}
		if req.HourFormat != nil {
			f, err := availability.ParseHourFormat(*req.HourFormat)
			if err != nil {
				return http.StatusBadRequest, "invalid hour_format"
			}
			sel.SetHourFormat(f)
		}
		return 0, ""
	})
}

// Submit books the selected slot. A slot lost to another guest sends the session back to the
// slot picker; other failures keep the details form.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, req sessionRequest, sel *bookingflow.Selection) (int, string) {
		if sel.Stage == bookingflow.Confirmed {
			return 0, ""
		}
		guest := bookingflow.Guest{
			Name:           strings.TrimSpace(req.Name),
			Email:          strings.TrimSpace(req.Email),
			AdditionalInfo: strings.TrimSpace(req.AdditionalInfo),
		}
		if err := h.booking.validate.Struct(guest); err != nil {
			return http.StatusBadRequest, validationMessage(err)
		}
		evt, err := h.booking.meetings.GetEvent(ctx, sel.EventID)
		if err != nil {
			return http.StatusServiceUnavailable, "failed to load event"
		}
		bookReq, err := sel.Request(guest, evt.DurationMinutes)
		if err != nil {
			return transitionFailure(err)
		}

		key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if key == "" {
			key = "session:" + req.SessionID + ":" + display.EncodeSlot(bookReq.StartTime)
		}
		out := h.booking.book(ctx, bookReq, key)
		switch {
		case out.status < 300:
			_ = sel.Confirm(true, out.meetingID)
			return 0, ""
		case out.status == http.StatusConflict || out.status == http.StatusUnprocessableEntity:
			_ = sel.Reject()
		default:
			_ = sel.Confirm(false, "")
		}
		if out.msg == "" {
			out.msg = http.StatusText(out.status)
		}
		return out.status, out.msg
	})
}

// checkOffered answers 0 when slot is listed for the selected date.
func (h *SessionHandler) checkOffered(ctx context.Context, sel *bookingflow.Selection, slot time.Time) (int, string) {
	b := h.booking
	guest, err := b.guestLocation(sel.Timezone)
	if err != nil {
		return http.StatusBadRequest, "invalid timezone"
	}
	from, to := scheduling.SearchRange(*sel.SelectedDate, *sel.SelectedDate)
	snap, err := b.scheduling.Snapshot(ctx, sel.EventID, from, to)
	if err != nil {
		if storage.IsNotFound(err) {
			return http.StatusNotFound, "event not found"
		}
		b.logger.Error("availability snapshot failed", "err", err, "event_id", sel.EventID)
		return http.StatusServiceUnavailable, "availability service unavailable"
	}
	offered := scheduling.OfferedSlots(snap, *sel.SelectedDate, guest, b.now())
	if !slices.ContainsFunc(offered, slot.Equal) {
		return http.StatusUnprocessableEntity, "slot is not offered on the selected date"
	}
	return 0, ""
}

type mutation func(ctx context.Context, req sessionRequest, sel *bookingflow.Selection) (status int, msg string)

// mutate saves the selection even when fn reports a failure, so a rejected submission's
// return to the slot picker sticks.
func (h *SessionHandler) mutate(w http.ResponseWriter, r *http.Request, fn mutation) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		http.Error(w, "session_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sel, err := h.store.Get(ctx, req.SessionID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	status, msg := fn(ctx, req, sel)
	if err := h.store.Save(ctx, req.SessionID, sel); err != nil {
		h.storeError(w, err)
		return
	}
	if status != 0 {
		http.Error(w, msg, status)
		return
	}
	writeJSON(w, http.StatusOK, h.view(ctx, req.SessionID, sel))
}

func (h *SessionHandler) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, sessions.ErrNotFound) {
		http.Error(w, "booking session not found", http.StatusNotFound)
		return
	}
	h.booking.logger.Error("booking session store failed", "err", err)
	http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
}

func transitionFailure(err error) (int, string) {
	switch {
	case err == nil:
		return 0, ""
	case errors.Is(err, bookingflow.ErrNoSlotSelected):
		return http.StatusConflict, "no slot selected"
	case errors.Is(err, bookingflow.ErrNoDateSelected):
		return http.StatusConflict, "no date selected"
	case errors.Is(err, bookingflow.ErrInvalidTransition):
		return http.StatusConflict, "invalid booking transition"
	default:
		return http.StatusBadRequest, err.Error()
	}
}

func (h *SessionHandler) view(ctx context.Context, id string, sel *bookingflow.Selection) sessionView {
	v := sessionView{
		SessionID:  id,
		EventID:    sel.EventID,
		Stage:      sel.Stage,
		Timezone:   sel.Timezone,
		HourFormat: sel.HourFormat,
		MeetingID:  sel.MeetingID,
	}
	if sel.SelectedDate != nil {
		v.SelectedDate = sel.SelectedDate.String()
	}
	if sel.SelectedSlot == nil {
		return v
	}

	p := h.booking.projector
	ref := display.EncodeSlot(*sel.SelectedSlot)
	v.SelectedSlot = ref
	v.SlotLabel, _ = p.FromSlotReference(ref, sel.Timezone, sel.HourFormat)
	if evt, err := h.booking.meetings.GetEvent(ctx, sel.EventID); err == nil {
		v.Summary, _ = p.FormatRange(*sel.SelectedSlot, evt.DurationMinutes, sel.Timezone, sel.HourFormat)
	}
	return v
}
