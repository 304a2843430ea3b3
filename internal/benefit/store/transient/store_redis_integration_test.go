//go:build integration

package transient_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"saldo/internal/benefit/models"
	"saldo/internal/benefit/store/transient"
	"saldo/internal/sentinel"
	"saldo/pkg/testutil"
	"saldo/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	client *redis.Client
	key    models.Key
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	rc := containers.GetManager().GetRedis(s.T())
	opts, err := redis.ParseURL(rc.URL)
	s.Require().NoError(err)
	s.client = redis.NewClient(opts)
	s.key = models.NewKey(testutil.TestDocument, testutil.TestBenefit)
}

func (s *RedisCacheSuite) TearDownSuite() {
	_ = s.client.Close()
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.client.FlushDB(context.Background()).Err())
}

func (s *RedisCacheSuite) TestPutGet() {
	ctx := context.Background()
	c := transient.NewRedis(s.client, time.Minute)
	s.Require().NoError(c.Put(ctx, s.key, testutil.MatchedPayload()))

	got, err := c.Get(ctx, s.key)
	s.Require().NoError(err)
	s.Equal(testutil.MatchedPayload(), got)

	ttl, err := s.client.TTL(ctx, "saldo:transient:"+s.key.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Minute)
}

func (s *RedisCacheSuite) TestExpiry() {
	ctx := context.Background()
	c := transient.NewRedis(s.client, time.Second)
	s.Require().NoError(c.Put(ctx, s.key, testutil.MatchedPayload()))

	s.Eventually(func() bool {
		_, err := c.Get(ctx, s.key)
		return err != nil
	}, 5*time.Second, 100*time.Millisecond)

	_, err := c.Get(ctx, s.key)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestMissing() {
	_, err := transient.NewRedis(s.client, 0).Get(context.Background(), s.key)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
