// Package records is the append-only log of benefit query outcomes.
package records

import (
	"context"
	"fmt"
	"sync"

	"saldo/internal/benefit/models"
	"saldo/internal/sentinel"
	id "saldo/pkg/domain"
)

// InMemoryStore keeps records per key in append order.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[models.Key][]models.QueryRecord
}

// NewInMemory creates an empty in-memory record store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[models.Key][]models.QueryRecord)}
}

// Append stores record. A nil ID is replaced with a fresh one.
func (s *InMemoryStore) Append(_ context.Context, record models.QueryRecord) (models.QueryRecord, error) {
	if err := validateRecord(record); err != nil {
		return models.QueryRecord{}, err
	}
	if record.ID.IsNil() {
		record.ID = id.NewQueryID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := record.Key()
	s.records[key] = append(s.records[key], record)
	return record, nil
}

// MostRecent returns the latest record for key by recording time. Among
// records with equal timestamps the last appended wins.
func (s *InMemoryStore) MostRecent(_ context.Context, key models.Key) (models.QueryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.records[key]
	if len(list) == 0 {
		return models.QueryRecord{}, fmt.Errorf("no record for key: %w", sentinel.ErrNotFound)
	}
	latest := list[0]
	for _, r := range list[1:] {
		if !r.RecordedAt.Before(latest.RecordedAt) {
			latest = r
		}
	}
	return latest, nil
}

func validateRecord(record models.QueryRecord) error {
	if record.Key().IsZero() {
		return fmt.Errorf("record key is required: %w", sentinel.ErrInvalidInput)
	}
	if record.UserID.IsNil() {
		return fmt.Errorf("record user is required: %w", sentinel.ErrInvalidInput)
	}
	if record.RecordedAt.IsZero() {
		return fmt.Errorf("record time is required: %w", sentinel.ErrInvalidInput)
	}
	return nil
}
