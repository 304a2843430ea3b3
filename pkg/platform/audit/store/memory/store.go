package memory

import (
	"context"
	"sync"

	audit "saldo/pkg/platform/audit"
)

// InMemoryStore keeps audit events in process memory, bounded by capacity.
type InMemoryStore struct {
	mu       sync.RWMutex
	events   []audit.Event
	capacity int
}

// DefaultCapacity bounds the in-memory trail when no capacity is given.
const DefaultCapacity = 10_000

func NewInMemoryStore() *InMemoryStore {
	return NewInMemoryStoreWithCapacity(DefaultCapacity)
}

// NewInMemoryStoreWithCapacity keeps at most capacity events, evicting the oldest.
func NewInMemoryStoreWithCapacity(capacity int) *InMemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryStore{capacity: capacity}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if over := len(s.events) - s.capacity; over > 0 {
		s.events = append([]audit.Event(nil), s.events[over:]...)
	}
	return nil
}

// ListRecent returns up to limit events, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]audit.Event, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}
