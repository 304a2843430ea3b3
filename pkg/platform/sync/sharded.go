// Package sync provides keyed locking helpers.
package sync

import (
	"hash/fnv"
	"sync"
)

// DefaultShards is used when NewShardedMutex is given a non-positive count.
const DefaultShards = 32

// ShardedMutex serializes work per key without a global lock. Keys are
// hashed onto a fixed set of mutexes, so unrelated keys may share a shard
// but the same key always lands on the same one.
type ShardedMutex struct {
	shards []sync.Mutex
}

// NewShardedMutex creates a ShardedMutex with n shards.
func NewShardedMutex(n int) *ShardedMutex {
	if n <= 0 {
		n = DefaultShards
	}
	return &ShardedMutex{shards: make([]sync.Mutex, n)}
}

// Lock acquires the lock for the given key's shard.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the lock for the given key's shard.
func (m *ShardedMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

// WithLock runs fn while holding the key's shard and returns fn's error.
func (m *ShardedMutex) WithLock(key string, fn func() error) error {
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}

// Shards reports the shard count.
func (m *ShardedMutex) Shards() int {
	return len(m.shards)
}

func (m *ShardedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(m.shards)))
}
