// Package transient is the short-lived payload cache written by the
// external client and read by the latest-query passthrough. It plays no
// part in billing.
package transient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"saldo/internal/benefit/models"
	"saldo/internal/sentinel"
)

// DefaultTTL is how long a payload stays readable.
const DefaultTTL = 5 * time.Minute

type entry struct {
	payload   models.Payload
	expiresAt time.Time
}

// InMemoryCache expires entries lazily on read and on Sweep.
type InMemoryCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[models.Key]entry
}

// NewInMemory creates a cache with ttl (DefaultTTL when non-positive) and
// clock (time.Now when nil).
func NewInMemory(ttl time.Duration, clock func() time.Time) *InMemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &InMemoryCache{ttl: ttl, now: clock, items: make(map[models.Key]entry)}
}

// Put stores payload under key, replacing any previous entry.
func (c *InMemoryCache) Put(_ context.Context, key models.Key, payload models.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{payload: payload, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// Get returns the live payload for key.
func (c *InMemoryCache) Get(_ context.Context, key models.Key) (models.Payload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return models.Payload{}, fmt.Errorf("transient entry: %w", sentinel.ErrNotFound)
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		return models.Payload{}, fmt.Errorf("transient entry expired: %w", sentinel.ErrNotFound)
	}
	return e.payload, nil
}

// Sweep drops expired entries and reports how many were removed.
func (c *InMemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries, expired or not.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
