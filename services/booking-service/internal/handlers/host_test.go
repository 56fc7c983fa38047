package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func hostRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(auth.WithSession(req.Context(), auth.Session{UserID: "host-1", Email: "grace@example.com"}))
}

func TestHostAvailability(t *testing.T) {
	f := newFixture(t)

	rr := httptest.NewRecorder()
	f.host.Availability(rr, httptest.NewRequest(http.MethodGet, "/api/v1/availability", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	f.host.Availability(rr, hostRequest(http.MethodGet, "/api/v1/availability", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body availabilityBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Timezone != "America/New_York" || body.SlotGapMinutes != 30 || len(body.Days) != 7 {
		t.Fatalf("unexpected availability %+v", body)
	}

	body.SlotGapMinutes = 25
	bad, _ := json.Marshal(body)
	rr = httptest.NewRecorder()
	f.host.Availability(rr, hostRequest(http.MethodPut, "/api/v1/availability", string(bad)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("gap 25: expected 400, got %d", rr.Code)
	}

	body.SlotGapMinutes = 60
	body.Timezone = "Europe/Berlin"
	good, _ := json.Marshal(body)
	rr = httptest.NewRecorder()
	f.host.Availability(rr, hostRequest(http.MethodPut, "/api/v1/availability", string(good)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if f.store.host.Week.GapMinutes != 60 || f.store.host.Timezone != "Europe/Berlin" {
		t.Fatalf("availability not stored: %+v", f.store.host)
	}

	body.Days = body.Days[:6]
	short, _ := json.Marshal(body)
	rr = httptest.NewRecorder()
	f.host.Availability(rr, hostRequest(http.MethodPut, "/api/v1/availability", string(short)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("six days: expected 400, got %d", rr.Code)
	}
}

func TestHostCancel(t *testing.T) {
	f := newFixture(t)
	rr := postBook(f, bookBody(slot0900, slot0930, "ada@example.com"), "")
	var booked bookResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &booked)

	rr = httptest.NewRecorder()
	f.host.List(rr, hostRequest(http.MethodGet, "/api/v1/meetings?filter=upcoming", ""))
	var items []meetingItem
	_ = json.Unmarshal(rr.Body.Bytes(), &items)
	if rr.Code != http.StatusOK || len(items) != 1 || items[0].Status != model.MeetingScheduled {
		t.Fatalf("list: %d %+v", rr.Code, items)
	}

	cancel := `{"meeting_id":"` + booked.MeetingID + `"}`
	rr = httptest.NewRecorder()
	f.host.Cancel(rr, hostRequest(http.MethodPost, "/api/v1/meetings/cancel", cancel))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	first := rr.Body.String()

	rr = httptest.NewRecorder()
	f.host.Cancel(rr, hostRequest(http.MethodPost, "/api/v1/meetings/cancel", cancel))
	if rr.Code != http.StatusOK || rr.Body.String() != first {
		t.Fatalf("repeat cancel: %d %s", rr.Code, rr.Body.String())
	}

	want := []string{outbox.TypeMeetingScheduled, outbox.TypeMeetingCancelled}
	if got := f.outbox.types(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := testutil.ToFloat64(f.host.metrics.cancellation); got != 1 {
		t.Fatalf("expected one cancellation, got %v", got)
	}

	// The freed slot can be booked again.
	if rr := postBook(f, bookBody(slot0900, slot0930, "bob@example.com"), ""); rr.Code != http.StatusCreated {
		t.Fatalf("rebook: expected 201, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	f.host.Cancel(rr, hostRequest(http.MethodPost, "/api/v1/meetings/cancel", `{"meeting_id":"nope"}`))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown meeting: expected 404, got %d", rr.Code)
	}
}

func TestHostEvents(t *testing.T) {
	f := newFixture(t)

	rr := httptest.NewRecorder()
	f.host.Events(rr, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	f.host.Events(rr, hostRequest(http.MethodGet, "/api/v1/events", ""))
	var items []eventItem
	if err := json.Unmarshal(rr.Body.Bytes(), &items); err != nil || rr.Code != http.StatusOK {
		t.Fatalf("list: %d err=%v", rr.Code, err)
	}
	if len(items) != 2 || items[0].EventID != "evt-1" || items[1].EventID != "evt-private" || !items[1].IsPrivate {
		t.Fatalf("expected both events with the private flag, got %+v", items)
	}
}
