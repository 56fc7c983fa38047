package sessions

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/bookingflow"
	"github.com/redis/go-redis/v9"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	sel := bookingflow.New("evt-1", "UTC")
	id, err := store.Create(ctx, sel)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.EventID != "evt-1" || got.Stage != bookingflow.SelectingDate {
		t.Fatalf("unexpected selection %+v", got)
	}

	if err := got.SelectDate(civil.Date{Year: 2026, Month: time.January, Day: 5}); err != nil {
		t.Fatalf("SelectDate: %v", err)
	}
	if err := store.Save(ctx, id, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Stage != bookingflow.SelectingSlot || again.SelectedDate == nil {
		t.Fatalf("expected saved stage, got %+v", again)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Save(ctx, id, again); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound saving a deleted session, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Minute, nil))
}

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore(10*time.Minute, func() time.Time { return now })
	ctx := context.Background()

	id, err := store.Create(ctx, bookingflow.New("evt-1", "UTC"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	now = now.Add(9 * time.Minute)
	if _, err := store.Get(ctx, id); err != nil {
		t.Fatalf("expected live session, got %v", err)
	}
	// Get slid the TTL forward.
	now = now.Add(9 * time.Minute)
	if _, err := store.Get(ctx, id); err != nil {
		t.Fatalf("expected TTL to slide, got %v", err)
	}
	now = now.Add(11 * time.Minute)
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	store := NewMemoryStore(time.Minute, nil)
	ctx := context.Background()
	sel := bookingflow.New("evt-1", "UTC")
	id, _ := store.Create(ctx, sel)

	sel.EventID = "mutated"
	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.EventID != "evt-1" {
		t.Fatalf("expected stored copy, got %q", got.EventID)
	}
}

// Runs against a real Redis when SLOTBOOK_TEST_REDIS_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SLOTBOOK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SLOTBOOK_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	exerciseStore(t, NewRedisStore(rdb, time.Minute))
}
