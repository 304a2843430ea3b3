package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	audit "saldo/pkg/platform/audit"
	"saldo/pkg/platform/audit/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	err error
}

func (s *failingStore) Append(_ context.Context, _ audit.Event) error {
	return s.err
}

func (s *failingStore) ListRecent(_ context.Context, _ int) ([]audit.Event, error) {
	return nil, nil
}

func TestPublisher_EmitStoresEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	err := pub.Emit(context.Background(), audit.Event{
		Login:  "ana",
		Action: audit.ActionQueryServed,
	})
	require.NoError(t, err)

	events, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionQueryServed, events[0].Action)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithClock(func() time.Time { return fixed }))

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Login: "ana"}))

	events, err := store.ListRecent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, fixed, events[0].Timestamp)
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	original := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Login: "ana", Timestamp: original}))

	events, err := store.ListRecent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, original, events[0].Timestamp)
}

func TestPublisher_EmitReturnsError(t *testing.T) {
	boom := errors.New("store failure")
	pub := NewPublisher(&failingStore{err: boom})

	err := pub.Emit(context.Background(), audit.Event{Login: "ana"})

	assert.ErrorIs(t, err, boom)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(16))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Login: "ana"}))
	}
	pub.Close()

	events, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

func TestPublisher_EmitAfterCloseIsRejected(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(4))
	pub.Close()
	pub.Close()

	assert.NotPanics(t, func() {
		err := pub.Emit(context.Background(), audit.Event{Login: "ana"})
		assert.Error(t, err)
	})

	events, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}
