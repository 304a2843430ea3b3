// Package ledger holds per-user credit grants. Balances aggregate every row
// of a user while debits target only the most recent row.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"saldo/internal/benefit/models"
	"saldo/internal/sentinel"
	id "saldo/pkg/domain"
	platformsync "saldo/pkg/platform/sync"
)

type account struct {
	rows []models.CreditRow
}

// latest returns the index of the most recently created row. Rows created
// at the same instant resolve to the last added.
func (a *account) latest() int {
	idx := 0
	for i := 1; i < len(a.rows); i++ {
		if !a.rows[i].CreatedAt.Before(a.rows[idx].CreatedAt) {
			idx = i
		}
	}
	return idx
}

// InMemoryStore keeps credit rows per user. Each user's rows are guarded by
// a sharded lock so a debit is a single read-modify-write.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[id.UserID]*account
	locks    *platformsync.ShardedMutex
}

// NewInMemory creates an empty in-memory ledger.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[id.UserID]*account),
		locks:    platformsync.NewShardedMutex(0),
	}
}

// AddRow records a credit grant for row.UserID.
func (s *InMemoryStore) AddRow(_ context.Context, row models.CreditRow) error {
	if err := validateRow(row); err != nil {
		return err
	}
	if row.ID.IsNil() {
		row.ID = id.NewLedgerRowID()
	}

	// The account becomes visible only while its shard is held, so readers
	// that find it always wait for the first row.
	return s.locks.WithLock(row.UserID.String(), func() error {
		s.mu.Lock()
		acc, ok := s.accounts[row.UserID]
		if !ok {
			acc = &account{}
			s.accounts[row.UserID] = acc
		}
		s.mu.Unlock()
		acc.rows = append(acc.rows, row)
		return nil
	})
}

// CurrentBalance reads the most recent row of userID.
func (s *InMemoryStore) CurrentBalance(_ context.Context, userID id.UserID) (models.Balance, error) {
	acc := s.account(userID)
	if acc == nil {
		return models.Balance{}, noRelationship(userID)
	}
	var bal models.Balance
	err := s.locks.WithLock(userID.String(), func() error {
		row := acc.rows[acc.latest()]
		bal = models.Balance{AvailableLimit: row.AvailableLimit, QueriesMade: row.QueriesMade}
		return nil
	})
	return bal, err
}

// Debit consumes one credit from the most recent row of userID.
func (s *InMemoryStore) Debit(_ context.Context, userID id.UserID) (models.Balance, error) {
	acc := s.account(userID)
	if acc == nil {
		return models.Balance{}, noRelationship(userID)
	}
	var bal models.Balance
	err := s.locks.WithLock(userID.String(), func() error {
		row := &acc.rows[acc.latest()]
		if row.AvailableLimit <= 0 {
			return fmt.Errorf("debit user %s: %w", userID, sentinel.ErrInsufficientCredit)
		}
		row.AvailableLimit--
		row.QueriesMade++
		bal = models.Balance{AvailableLimit: row.AvailableLimit, QueriesMade: row.QueriesMade}
		return nil
	})
	return bal, err
}

// Summary sums every row of userID. A user without rows reports zeros.
func (s *InMemoryStore) Summary(_ context.Context, userID id.UserID) (models.CreditSummary, error) {
	acc := s.account(userID)
	if acc == nil {
		return models.CreditSummary{}, nil
	}
	var sum models.CreditSummary
	err := s.locks.WithLock(userID.String(), func() error {
		for _, row := range acc.rows {
			sum.TotalLoaded += row.TotalLoaded
			sum.AvailableLimit += row.AvailableLimit
			sum.QueriesMade += row.QueriesMade
		}
		return nil
	})
	return sum, err
}

func (s *InMemoryStore) account(userID id.UserID) *account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts[userID]
}

func noRelationship(userID id.UserID) error {
	return fmt.Errorf("no ledger row for user %s: %w", userID, sentinel.ErrNoRelationship)
}

func validateRow(row models.CreditRow) error {
	if row.UserID.IsNil() {
		return fmt.Errorf("ledger row user is required: %w", sentinel.ErrInvalidInput)
	}
	if row.TotalLoaded < 0 || row.AvailableLimit < 0 || row.QueriesMade < 0 {
		return fmt.Errorf("ledger counters must be non-negative: %w", sentinel.ErrInvalidInput)
	}
	if row.CreatedAt.IsZero() {
		return fmt.Errorf("ledger row time is required: %w", sentinel.ErrInvalidInput)
	}
	return nil
}
