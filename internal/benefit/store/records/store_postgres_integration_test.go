//go:build integration

package records_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"saldo/internal/benefit/models"
	"saldo/internal/benefit/store/records"
	"saldo/internal/sentinel"
	id "saldo/pkg/domain"
	"saldo/pkg/testutil"
	"saldo/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *records.PostgresStore
	userID   id.UserID
	key      models.Key
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = records.NewPostgres(s.postgres.DB)
	s.key = models.NewKey(testutil.TestDocument, testutil.TestBenefit)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateAll(ctx))
	s.userID = s.postgres.CreateTestUser(ctx, s.T(), "operator")
}

func (s *PostgresStoreSuite) TestRoundTripKeepsEveryPayloadField() {
	ctx := context.Background()
	rec := testutil.NewRecord().WithUser(s.userID).Build()
	rec.RecordedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err := s.store.Append(ctx, rec)
	s.Require().NoError(err)

	got, err := s.store.MostRecent(ctx, s.key)
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.Equal(rec.Payload, got.Payload)
	s.Equal(models.SourceFile, got.SourceFile)
	s.True(rec.RecordedAt.Equal(got.RecordedAt))
}

func (s *PostgresStoreSuite) TestUnmatchedStoresNullName() {
	ctx := context.Background()
	rec := testutil.NewRecord().WithUser(s.userID).Unmatched().Build()

	_, err := s.store.Append(ctx, rec)
	s.Require().NoError(err)

	var nameIsNull bool
	err = s.postgres.DB.QueryRowContext(ctx,
		`SELECT name IS NULL FROM benefit_queries WHERE id = $1`, rec.ID.String()).Scan(&nameIsNull)
	s.Require().NoError(err)
	s.True(nameIsNull)

	got, err := s.store.MostRecent(ctx, s.key)
	s.Require().NoError(err)
	s.False(got.Valid())
}

func (s *PostgresStoreSuite) TestMostRecentOrdersByRecordingTime() {
	ctx := context.Background()
	now := time.Now().UTC()
	older := testutil.NewRecord().WithUser(s.userID).Build()
	older.RecordedAt = now.Add(-2 * time.Hour)
	newer := testutil.NewRecord().WithUser(s.userID).Unmatched().Build()
	newer.RecordedAt = now.Add(-time.Hour)

	_, err := s.store.Append(ctx, newer)
	s.Require().NoError(err)
	_, err = s.store.Append(ctx, older)
	s.Require().NoError(err)

	got, err := s.store.MostRecent(ctx, s.key)
	s.Require().NoError(err)
	s.Equal(newer.ID, got.ID)

	var count int
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM benefit_queries WHERE document = $1 AND benefit = $2`,
		s.key.Document, s.key.Benefit).Scan(&count))
	s.Equal(2, count)
}

func (s *PostgresStoreSuite) TestMostRecentNotFound() {
	_, err := s.store.MostRecent(context.Background(), models.NewKey("1", "2"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
