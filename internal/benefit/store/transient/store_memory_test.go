package transient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/benefit/models"
	"saldo/internal/sentinel"
	"saldo/pkg/testutil"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	key := models.NewKey(testutil.TestDocument, testutil.TestBenefit)

	t.Run("entry readable until ttl elapses", func(t *testing.T) {
		clock := &fakeClock{now: testutil.FixedNow}
		c := NewInMemory(0, clock.Now)
		require.NoError(t, c.Put(ctx, key, testutil.MatchedPayload()))

		clock.now = clock.now.Add(DefaultTTL - time.Second)
		got, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, testutil.MatchedPayload(), got)

		clock.now = clock.now.Add(time.Second)
		_, err = c.Get(ctx, key)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.Zero(t, c.Len())
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := NewInMemory(time.Minute, nil).Get(ctx, key)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("put refreshes expiry", func(t *testing.T) {
		clock := &fakeClock{now: testutil.FixedNow}
		c := NewInMemory(time.Minute, clock.Now)
		require.NoError(t, c.Put(ctx, key, models.Payload{}))
		clock.now = clock.now.Add(50 * time.Second)
		require.NoError(t, c.Put(ctx, key, testutil.MatchedPayload()))
		clock.now = clock.now.Add(50 * time.Second)

		got, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, got.Matched())
	})

	t.Run("sweep drops expired entries", func(t *testing.T) {
		clock := &fakeClock{now: testutil.FixedNow}
		c := NewInMemory(time.Minute, clock.Now)
		require.NoError(t, c.Put(ctx, key, testutil.MatchedPayload()))
		clock.now = clock.now.Add(30 * time.Second)
		require.NoError(t, c.Put(ctx, models.NewKey("1", "2"), testutil.MatchedPayload()))

		clock.now = clock.now.Add(45 * time.Second)
		assert.Equal(t, 1, c.Sweep())
		assert.Equal(t, 1, c.Len())
	})
}
