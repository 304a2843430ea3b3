package seeder

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/benefit/store/directory"
	"saldo/internal/benefit/store/ledger"
)

func TestLoadFile(t *testing.T) {
	ctx := context.Background()
	users := directory.NewInMemory()
	credits := ledger.NewInMemory()
	s := New(users, credits, slog.Default())
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"users": [
			{"login": "ana", "name": "Ana", "credits": [
				{"total_loaded": 10, "available_limit": 0, "queries_made": 10},
				{"total_loaded": 50}
			]},
			{"login": "bruno", "name": "Bruno"}
		]
	}`), 0o600))

	require.NoError(t, s.LoadFile(ctx, path))

	ana, err := users.ResolveUser(ctx, "ana")
	require.NoError(t, err)
	balance, err := credits.CurrentBalance(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, balance.AvailableLimit, "last listed grant is current")
	assert.Equal(t, 0, balance.QueriesMade)

	summary, err := credits.Summary(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, summary.TotalLoaded)
	assert.Equal(t, 50, summary.AvailableLimit)
	assert.Equal(t, 10, summary.QueriesMade)

	bruno, err := users.ResolveUser(ctx, "bruno")
	require.NoError(t, err)
	_, err = credits.CurrentBalance(ctx, bruno.ID)
	assert.Error(t, err, "user without grants has no relationship")
}

func TestLoadFileErrors(t *testing.T) {
	ctx := context.Background()
	s := New(directory.NewInMemory(), ledger.NewInMemory(), nil)

	t.Run("missing file", func(t *testing.T) {
		err := s.LoadFile(ctx, filepath.Join(t.TempDir(), "absent.json"))
		assert.ErrorContains(t, err, "read seed file")
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"users": [`), 0o600))
		assert.ErrorContains(t, s.LoadFile(ctx, path), "decode seed file")
	})

	t.Run("duplicate login", func(t *testing.T) {
		err := s.Seed(ctx, File{Users: []SeedUser{{Login: "dup"}, {Login: "dup"}}})
		assert.ErrorContains(t, err, `seed user "dup"`)
	})
}
