//go:build integration

package user_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"givers/internal/user/models"
	"givers/internal/user/store/user"
	id "givers/pkg/domain"
	"givers/pkg/platform/sentinel"
	"givers/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.PostgresStore
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
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "users")
	s.Require().NoError(err)
}

func newTestUser(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := models.NewUser(id.UserID(uuid.New()), email, "Test User",
		time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	return u
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	u := newTestUser(s.T(), "a@example.com")

	s.Require().NoError(s.store.Create(ctx, u))

	found, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.Email, found.Email)
	s.Equal(u.Name, found.Name)
	s.False(found.IsSuspended())
	s.False(found.PendingTokenMigration)
}

func (s *PostgresStoreSuite) TestUniqueEmail() {
	ctx := context.Background()
	u := newTestUser(s.T(), "dup@example.com")
	s.Require().NoError(s.store.Create(ctx, u))

	other := newTestUser(s.T(), "dup@example.com")
	s.ErrorIs(s.store.Create(ctx, other), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestSuspensionRoundTrip() {
	ctx := context.Background()
	u := newTestUser(s.T(), "suspend@example.com")
	s.Require().NoError(s.store.Create(ctx, u))

	now := time.Now().UTC().Truncate(time.Microsecond)
	u.ApplySuspension(true, now)
	s.Require().NoError(s.store.Update(ctx, u))

	found, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.True(found.IsSuspended())

	found.ApplySuspension(false, now.Add(time.Minute))
	s.Require().NoError(s.store.Update(ctx, found))

	found, err = s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.False(found.IsSuspended())
	s.Nil(found.SuspendedAt)
}

func (s *PostgresStoreSuite) TestUpdateMissing() {
	u := newTestUser(s.T(), "ghost@example.com")
	s.ErrorIs(s.store.Update(context.Background(), u), sentinel.ErrNotFound)
}

// TestConcurrentClearPendingMigration verifies the FOR UPDATE edit path makes
// the single-shot flag clear exactly once under a race.
func (s *PostgresStoreSuite) TestConcurrentClearPendingMigration() {
	ctx := context.Background()
	u := newTestUser(s.T(), "pending@example.com")
	u.PendingTokenMigration = true
	s.Require().NoError(s.store.Create(ctx, u))

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, u.ID,
				(*models.User).CanClearPendingMigration,
				func(u *models.User) { u.ApplyClearPendingMigration(time.Now()) })
			if err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one clear should succeed")

	found, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.False(found.PendingTokenMigration)
}

func (s *PostgresStoreSuite) TestList() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		u := newTestUser(s.T(), uuid.NewString()+"@example.com")
		u.CreatedAt = base.Add(time.Duration(i) * time.Second)
		u.UpdatedAt = u.CreatedAt
		s.Require().NoError(s.store.Create(ctx, u))
	}

	page, err := s.store.List(ctx, 3, 0)
	s.Require().NoError(err)
	s.Len(page, 3)

	rest, err := s.store.List(ctx, 3, 3)
	s.Require().NoError(err)
	s.Len(rest, 2)
	s.True(rest[0].CreatedAt.After(page[2].CreatedAt))
}
