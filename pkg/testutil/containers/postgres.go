//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"saldo/internal/platform/database"
	id "saldo/pkg/domain"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies the goose migrations.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("saldo_test"),
		postgres.WithUsername("saldo"),
		postgres.WithPassword("saldo_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	// The container is shared by the Manager; Ryuk removes it when the
	// test process exits.
	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// TruncateTables clears all data from the specified tables.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateAll truncates every application table.
func (p *PostgresContainer) TruncateAll(ctx context.Context) error {
	return p.TruncateTables(ctx, "audit_events", "benefit_queries", "credits", "users")
}

// CreateTestUser inserts a user with the given login.
func (p *PostgresContainer) CreateTestUser(ctx context.Context, t testing.TB, login string) id.UserID {
	t.Helper()
	userID := id.UserID(uuid.New())
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO users (id, login, name) VALUES ($1, $2, $3)`,
		uuid.UUID(userID), login, "Test "+login)
	if err != nil {
		t.Fatalf("CreateTestUser: %v", err)
	}
	return userID
}

// CreateCreditRow inserts a credit grant created at createdAt.
func (p *PostgresContainer) CreateCreditRow(ctx context.Context, t testing.TB, userID id.UserID, loaded, available, made int, createdAt time.Time) id.LedgerRowID {
	t.Helper()
	rowID := id.NewLedgerRowID()
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO credits (id, user_id, total_loaded, available_limit, queries_made, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(rowID), uuid.UUID(userID), loaded, available, made, createdAt)
	if err != nil {
		t.Fatalf("CreateCreditRow: %v", err)
	}
	return rowID
}
