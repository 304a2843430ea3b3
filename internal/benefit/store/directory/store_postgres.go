package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"saldo/internal/benefit/models"
	"saldo/internal/sentinel"
	id "saldo/pkg/domain"
)

// PostgresStore reads users from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed directory.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Add inserts user. A duplicate login is rejected as invalid input.
func (s *PostgresStore) Add(ctx context.Context, user models.User) (models.User, error) {
	user.Login = strings.TrimSpace(user.Login)
	if user.Login == "" {
		return models.User{}, fmt.Errorf("login is required: %w", sentinel.ErrInvalidInput)
	}
	if user.ID.IsNil() {
		user.ID = id.NewUserID()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, login, name) VALUES ($1, $2, $3)`,
		uuid.UUID(user.ID), user.Login, user.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("login %q already registered: %w", user.Login, sentinel.ErrInvalidInput)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// ResolveUser finds the user for login.
func (s *PostgresStore) ResolveUser(ctx context.Context, login string) (models.User, error) {
	var (
		user   models.User
		userID uuid.UUID
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, login, name FROM users WHERE login = $1`, strings.TrimSpace(login)).
		Scan(&userID, &user.Login, &user.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return models.User{}, fmt.Errorf("resolve user: %w", err)
	}
	user.ID = id.UserID(userID)
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
