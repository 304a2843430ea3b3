package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"saldo/internal/benefit/models"
	"saldo/internal/sentinel"
	id "saldo/pkg/domain"
)

// latestRow selects the row a debit targets. Both CurrentBalance and Debit
// use the same ordering so they agree on which row is current.
const latestRow = `SELECT id FROM credits WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`

// PostgresStore persists credit rows in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// AddRow inserts a credit grant.
func (s *PostgresStore) AddRow(ctx context.Context, row models.CreditRow) error {
	if err := validateRow(row); err != nil {
		return err
	}
	if row.ID.IsNil() {
		row.ID = id.NewLedgerRowID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credits (id, user_id, total_loaded, available_limit, queries_made, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(row.ID), uuid.UUID(row.UserID), row.TotalLoaded, row.AvailableLimit, row.QueriesMade, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert credit row: %w", err)
	}
	return nil
}

// CurrentBalance reads the most recent row of userID.
func (s *PostgresStore) CurrentBalance(ctx context.Context, userID id.UserID) (models.Balance, error) {
	var bal models.Balance
	err := s.db.QueryRowContext(ctx, `
		SELECT available_limit, queries_made FROM credits
		WHERE id = (`+latestRow+`)`, uuid.UUID(userID)).Scan(&bal.AvailableLimit, &bal.QueriesMade)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Balance{}, noRelationship(userID)
		}
		return models.Balance{}, fmt.Errorf("read current balance: %w", err)
	}
	return bal, nil
}

// Debit consumes one credit from the most recent row of userID with a
// single conditional update, so concurrent debits never lose an update or
// drive the balance negative.
func (s *PostgresStore) Debit(ctx context.Context, userID id.UserID) (models.Balance, error) {
	var bal models.Balance
	err := s.db.QueryRowContext(ctx, `
		UPDATE credits
		SET available_limit = available_limit - 1, queries_made = queries_made + 1
		WHERE id = (`+latestRow+`) AND available_limit > 0
		RETURNING available_limit, queries_made`, uuid.UUID(userID)).Scan(&bal.AvailableLimit, &bal.QueriesMade)
	if err == nil {
		return bal, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Balance{}, fmt.Errorf("debit credit: %w", err)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM credits WHERE user_id = $1)`, uuid.UUID(userID)).Scan(&exists); err != nil {
		return models.Balance{}, fmt.Errorf("check ledger rows: %w", err)
	}
	if !exists {
		return models.Balance{}, noRelationship(userID)
	}
	return models.Balance{}, fmt.Errorf("debit user %s: %w", userID, sentinel.ErrInsufficientCredit)
}

// Summary sums every row of userID. A user without rows reports zeros.
func (s *PostgresStore) Summary(ctx context.Context, userID id.UserID) (models.CreditSummary, error) {
	var sum models.CreditSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_loaded), 0), COALESCE(SUM(available_limit), 0), COALESCE(SUM(queries_made), 0)
		FROM credits WHERE user_id = $1`, uuid.UUID(userID)).Scan(&sum.TotalLoaded, &sum.AvailableLimit, &sum.QueriesMade)
	if err != nil {
		return models.CreditSummary{}, fmt.Errorf("sum credits: %w", err)
	}
	return sum, nil
}
