//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"givers/internal/platform/config"
	platformredis "givers/internal/platform/redis"
	id "givers/pkg/domain"
	"givers/pkg/testutil/containers"
)

type CacheSuite struct {
	suite.Suite
	container *containers.RedisContainer
	client    *platformredis.Client
	cache     *platformredis.Cache
}

func TestCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupSuite() {
	s.container = containers.GetManager().GetRedis(s.T())

	cfg := config.Redis{
		URL:          s.container.Addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		TotalTTL:     time.Minute,
		DismissalTTL: 24 * time.Hour,
	}
	client, err := platformredis.New(cfg)
	s.Require().NoError(err)
	s.client = client
	s.cache = platformredis.NewCache(client, cfg)
}

func (s *CacheSuite) SetupTest() {
	s.Require().NoError(s.container.FlushAll(context.Background()))
}

func (s *CacheSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
}

func (s *CacheSuite) TestMonthlyTotalRoundTrip() {
	ctx := context.Background()
	projectID := id.ProjectID(uuid.New())

	_, ok, err := s.cache.GetMonthlyTotal(ctx, projectID)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.cache.SetMonthlyTotal(ctx, projectID, 12500))

	total, ok, err := s.cache.GetMonthlyTotal(ctx, projectID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(id.Money(12500), total)
}

func (s *CacheSuite) TestInvalidateMonthlyTotal() {
	ctx := context.Background()
	projectID := id.ProjectID(uuid.New())

	s.Require().NoError(s.cache.SetMonthlyTotal(ctx, projectID, 500))
	s.Require().NoError(s.cache.InvalidateMonthlyTotal(ctx, projectID))

	_, ok, err := s.cache.GetMonthlyTotal(ctx, projectID)
	s.Require().NoError(err)
	s.False(ok)

	// Invalidating an absent key is a no-op.
	s.Require().NoError(s.cache.InvalidateMonthlyTotal(ctx, projectID))
}

// TestDismissalIsSessionScoped verifies a dismissal in one session never leaks
// into another session of the same user.
func (s *CacheSuite) TestDismissalIsSessionScoped() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())

	dismissed, err := s.cache.MigrationPromptDismissed(ctx, userID, "sess-1")
	s.Require().NoError(err)
	s.False(dismissed)

	s.Require().NoError(s.cache.DismissMigrationPrompt(ctx, userID, "sess-1"))

	dismissed, err = s.cache.MigrationPromptDismissed(ctx, userID, "sess-1")
	s.Require().NoError(err)
	s.True(dismissed)

	dismissed, err = s.cache.MigrationPromptDismissed(ctx, userID, "sess-2")
	s.Require().NoError(err)
	s.False(dismissed)
}

func (s *CacheSuite) TestHealth() {
	s.Require().NoError(s.client.Health(context.Background()))
}
