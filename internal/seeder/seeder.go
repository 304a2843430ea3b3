// Package seeder loads operators and their credit grants from a JSON file.
package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"saldo/internal/benefit/models"
	id "saldo/pkg/domain"
)

// UserStore defines methods for seeding users
type UserStore interface {
	Add(ctx context.Context, user models.User) (models.User, error)
}

// LedgerStore defines methods for seeding credit rows
type LedgerStore interface {
	AddRow(ctx context.Context, row models.CreditRow) error
}

// File is the seed document.
//
//	{"users": [{"login": "ana", "name": "Ana", "credits": [{"total_loaded": 50}]}]}
type File struct {
	Users []SeedUser `json:"users"`
}

// SeedUser is one operator with its grants, oldest first.
type SeedUser struct {
	Login   string       `json:"login"`
	Name    string       `json:"name"`
	Credits []SeedCredit `json:"credits"`
}

// SeedCredit is one grant. A nil AvailableLimit means the grant is unused.
type SeedCredit struct {
	TotalLoaded    int  `json:"total_loaded"`
	AvailableLimit *int `json:"available_limit,omitempty"`
	QueriesMade    int  `json:"queries_made"`
}

// Seeder populates the directory and ledger.
type Seeder struct {
	users  UserStore
	ledger LedgerStore
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new seeder
func New(users UserStore, ledger LedgerStore, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{users: users, ledger: ledger, logger: logger, now: time.Now}
}

// LoadFile reads and applies a seed file.
func (s *Seeder) LoadFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var file File
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("decode seed file: %w", err)
	}
	return s.Seed(ctx, file)
}

// Seed adds every user and its credit rows. Rows of one user get strictly
// increasing creation times so the last listed grant is the current one.
func (s *Seeder) Seed(ctx context.Context, file File) error {
	base := s.now()
	rows := 0
	for _, su := range file.Users {
		user, err := s.users.Add(ctx, models.User{
			ID:    id.NewUserID(),
			Login: su.Login,
			Name:  su.Name,
		})
		if err != nil {
			return fmt.Errorf("seed user %q: %w", su.Login, err)
		}
		for i, c := range su.Credits {
			available := c.TotalLoaded
			if c.AvailableLimit != nil {
				available = *c.AvailableLimit
			}
			row := models.CreditRow{
				ID:             id.NewLedgerRowID(),
				UserID:         user.ID,
				TotalLoaded:    c.TotalLoaded,
				AvailableLimit: available,
				QueriesMade:    c.QueriesMade,
				CreatedAt:      base.Add(time.Duration(i-len(su.Credits)) * time.Second),
			}
			if err := s.ledger.AddRow(ctx, row); err != nil {
				return fmt.Errorf("seed credits for %q: %w", su.Login, err)
			}
			rows++
		}
	}

	s.logger.Info("seed data loaded",
		"users", len(file.Users),
		"credit_rows", rows,
	)
	return nil
}
