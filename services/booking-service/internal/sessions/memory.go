package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/bookingflow"
)

// MemoryStore keeps sessions in process. It backs single-replica dev setups and tests.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]memoryItem
}

type memoryItem struct {
	sel       bookingflow.Selection
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{ttl: ttl, now: now, items: map[string]memoryItem{}}
}

func (s *MemoryStore) Create(_ context.Context, sel *bookingflow.Selection) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	id := uuid.NewString()
	s.items[id] = memoryItem{sel: *sel, expiresAt: s.now().Add(s.ttl)}
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*bookingflow.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.live(id)
	if !ok {
		return nil, ErrNotFound
	}
	item.expiresAt = s.now().Add(s.ttl)
	s.items[id] = item
	sel := item.sel
	return &sel, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, sel *bookingflow.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(id); !ok {
		return ErrNotFound
	}
	s.items[id] = memoryItem{sel: *sel, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) live(id string) (memoryItem, bool) {
	item, ok := s.items[id]
	if !ok {
		return memoryItem{}, false
	}
	if !s.now().Before(item.expiresAt) {
		delete(s.items, id)
		return memoryItem{}, false
	}
	return item, true
}

func (s *MemoryStore) sweep() {
	now := s.now()
	for id, item := range s.items {
		if !now.Before(item.expiresAt) {
			delete(s.items, id)
		}
	}
}
