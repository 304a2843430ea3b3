//go:build integration

// Package containers starts shared testcontainers for integration tests.
package containers

import (
	"sync"
	"testing"
)

// Manager hands out the Postgres and Redis containers behind the store
// integration suites. Each starts on first request and is shared by every
// suite in the test binary; suites truncate in SetupTest instead.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
	redis    *RedisContainer
}

var (
	globalManager *Manager
	initOnce      sync.Once
)

// GetManager returns the singleton container manager.
func GetManager() *Manager {
	initOnce.Do(func() {
		globalManager = &Manager{}
	})
	return globalManager
}

// GetPostgres returns a migrated Postgres container, starting it if necessary.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	skipShort(t)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.postgres == nil {
		m.postgres = NewPostgresContainer(t)
	}
	return m.postgres
}

// GetRedis returns a Redis container, starting it if necessary.
func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	skipShort(t)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.redis == nil {
		m.redis = NewRedisContainer(t)
	}
	return m.redis
}

func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("store integration suites need docker; skipped with -short")
	}
}
