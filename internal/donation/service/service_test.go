package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"givers/internal/donation/models"
	donationstore "givers/internal/donation/store/donation"
	"givers/internal/platform/events"
	recurringstore "givers/internal/donation/store/recurring"
	projectmodels "givers/internal/project/models"
	projectservice "givers/internal/project/service"
	projectstore "givers/internal/project/store/project"
	usermodels "givers/internal/user/models"
	userservice "givers/internal/user/service"
	userstore "givers/internal/user/store/user"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
	"givers/pkg/platform/tx"
	"givers/pkg/requestcontext"
)

// fakeCache implements Cache with plain maps.
type fakeCache struct {
	totals     map[id.ProjectID]id.Money
	dismissals map[string]bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		totals:     make(map[id.ProjectID]id.Money),
		dismissals: make(map[string]bool),
	}
}

func (c *fakeCache) GetMonthlyTotal(_ context.Context, projectID id.ProjectID) (id.Money, bool, error) {
	total, ok := c.totals[projectID]
	return total, ok, nil
}

func (c *fakeCache) SetMonthlyTotal(_ context.Context, projectID id.ProjectID, total id.Money) error {
	c.totals[projectID] = total
	return nil
}

func (c *fakeCache) InvalidateMonthlyTotal(_ context.Context, projectID id.ProjectID) error {
	delete(c.totals, projectID)
	return nil
}

func (c *fakeCache) DismissMigrationPrompt(_ context.Context, userID id.UserID, sessionID string) error {
	c.dismissals[userID.String()+":"+sessionID] = true
	return nil
}

func (c *fakeCache) MigrationPromptDismissed(_ context.Context, userID id.UserID, sessionID string) (bool, error) {
	return c.dismissals[userID.String()+":"+sessionID], nil
}

// capturePublisher records every published activity event.
type capturePublisher struct {
	published []events.Activity
}

func (p *capturePublisher) Publish(_ context.Context, ev events.Activity) error {
	p.published = append(p.published, ev)
	return nil
}

func (p *capturePublisher) Close() {}

type DonationServiceSuite struct {
	suite.Suite
	users     *userstore.InMemory
	projects  *projectstore.InMemory
	donations *donationstore.InMemory
	recurring *recurringstore.InMemory
	cache     *fakeCache
	userSvc   *userservice.Service
	service   *Service

	now       time.Time
	donorID   id.UserID
	projectID id.ProjectID
}

func TestDonationServiceSuite(t *testing.T) {
	suite.Run(t, new(DonationServiceSuite))
}

func (s *DonationServiceSuite) SetupTest() {
	s.users = userstore.NewInMemory()
	s.projects = projectstore.NewInMemory()
	s.donations = donationstore.NewInMemory()
	s.recurring = recurringstore.NewInMemory()
	s.cache = newFakeCache()

	s.userSvc = userservice.New(s.users)
	projectSvc := projectservice.New(s.projects, s.userSvc, nil)
	s.service = New(s.recurring, s.donations, s.userSvc, projectSvc, &tx.MemoryRunner{},
		WithCache(s.cache))

	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.donorID = s.createUser(false)
	s.projectID = s.createProject(projectmodels.ProjectStatusActive)
}

func (s *DonationServiceSuite) createUser(pendingMigration bool) id.UserID {
	userID := id.UserID(uuid.New())
	u := &usermodels.User{
		ID:                    userID,
		Email:                 userID.String() + "@example.com",
		Role:                  usermodels.RoleDonor,
		PendingTokenMigration: pendingMigration,
		CreatedAt:             s.now,
		UpdatedAt:             s.now,
	}
	s.Require().NoError(s.users.Create(context.Background(), u))
	return userID
}

func (s *DonationServiceSuite) createProject(status projectmodels.ProjectStatus) id.ProjectID {
	projectID := id.ProjectID(uuid.New())
	p := &projectmodels.Project{
		ID:        projectID,
		OwnerID:   id.UserID(uuid.New()),
		Name:      "Test Project",
		Status:    status,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.projects.Create(context.Background(), p))
	return projectID
}

func (s *DonationServiceSuite) userCtx(userID id.UserID) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), userID)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *DonationServiceSuite) tokenCtx(token string) context.Context {
	ctx := requestcontext.WithDonorToken(context.Background(), token)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *DonationServiceSuite) TestCreateRecurring() {
	s.Run("creates active donation", func() {
		r, err := s.service.CreateRecurring(s.userCtx(s.donorID), s.projectID, 1000, models.IntervalMonthly, "")
		s.Require().NoError(err)
		s.Equal(models.StatusActive, r.Status)
		s.Equal(id.Money(1000), r.Amount)
	})

	s.Run("rejects suspended account", func() {
		suspendedID := s.createUser(false)
		_, err := s.users.Execute(context.Background(), suspendedID,
			func(*usermodels.User) error { return nil },
			func(u *usermodels.User) { u.ApplySuspension(true, s.now) })
		s.Require().NoError(err)

		_, err = s.service.CreateRecurring(s.userCtx(suspendedID), s.projectID, 1000, models.IntervalMonthly, "")
		s.True(dErrors.HasCode(err, dErrors.CodeSuspendedAccount))
	})

	s.Run("rejects frozen project", func() {
		frozenID := s.createProject(projectmodels.ProjectStatusFrozen)
		_, err := s.service.CreateRecurring(s.userCtx(s.donorID), frozenID, 1000, models.IntervalMonthly, "")
		s.True(dErrors.HasCode(err, dErrors.CodeProjectNotDonatable))
	})

	s.Run("rejects non-positive amount", func() {
		_, err := s.service.CreateRecurring(s.userCtx(s.donorID), s.projectID, 0, models.IntervalMonthly, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("anonymous token donor may donate", func() {
		r, err := s.service.CreateRecurring(s.tokenCtx("tok-abc"), s.projectID, 500, models.IntervalMonthly, "")
		s.Require().NoError(err)
		s.Equal(models.TokenDonor("tok-abc"), r.Donor)
	})
}

func (s *DonationServiceSuite) TestPauseResume() {
	ctx := s.userCtx(s.donorID)
	r, err := s.service.CreateRecurring(ctx, s.projectID, 1000, models.IntervalMonthly, "")
	s.Require().NoError(err)

	s.Run("pause is idempotent", func() {
		paused, err := s.service.Pause(ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPaused, paused.Status)

		again, err := s.service.Pause(ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPaused, again.Status)
		s.Equal(paused.UpdatedAt, again.UpdatedAt, "no-op pause must not touch the timestamp")
	})

	s.Run("paused donation is excluded from the total", func() {
		total, err := s.service.CurrentMonthlyTotal(ctx, s.projectID)
		s.Require().NoError(err)
		s.Equal(id.Money(0), total)
	})

	s.Run("resume restores the total", func() {
		resumed, err := s.service.Resume(ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, resumed.Status)

		total, err := s.service.CurrentMonthlyTotal(ctx, s.projectID)
		s.Require().NoError(err)
		s.Equal(id.Money(1000), total)
	})

	s.Run("only the donor may pause", func() {
		otherID := s.createUser(false)
		_, err := s.service.Pause(s.userCtx(otherID), r.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *DonationServiceSuite) TestCancelAndDelete() {
	ctx := s.userCtx(s.donorID)

	s.Run("cancel is terminal but visible", func() {
		r, err := s.service.CreateRecurring(ctx, s.projectID, 1000, models.IntervalMonthly, "")
		s.Require().NoError(err)

		cancelled, err := s.service.Cancel(ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, cancelled.Status)

		_, err = s.service.Cancel(ctx, r.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "second cancel must fail")

		_, err = s.service.Resume(ctx, r.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

		list, err := s.service.ListMyRecurring(ctx)
		s.Require().NoError(err)
		s.Len(list, 1, "cancelled donation stays in history")
	})

	s.Run("delete hides from every listing", func() {
		r, err := s.service.CreateRecurring(ctx, s.projectID, 2000, models.IntervalMonthly, "")
		s.Require().NoError(err)

		s.Require().NoError(s.service.Delete(ctx, r.ID))

		_, err = s.service.Pause(ctx, r.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "deleted donation is gone")

		list, err := s.service.ListMyRecurring(ctx)
		s.Require().NoError(err)
		for _, rec := range list {
			s.NotEqual(r.ID, rec.ID)
		}
	})

	s.Run("delete is allowed from cancelled", func() {
		r, err := s.service.CreateRecurring(ctx, s.projectID, 3000, models.IntervalMonthly, "")
		s.Require().NoError(err)
		_, err = s.service.Cancel(ctx, r.ID)
		s.Require().NoError(err)
		s.NoError(s.service.Delete(ctx, r.ID))
	})
}

func (s *DonationServiceSuite) TestUpdateRecurring() {
	ctx := s.userCtx(s.donorID)
	r, err := s.service.CreateRecurring(ctx, s.projectID, 1000, models.IntervalMonthly, "")
	s.Require().NoError(err)

	s.Run("updates amount and interval together", func() {
		amount := id.Money(24000)
		interval := models.IntervalYearly
		updated, err := s.service.UpdateRecurring(ctx, r.ID, &amount, &interval)
		s.Require().NoError(err)
		s.Equal(id.Money(24000), updated.Amount)
		s.Equal(models.IntervalYearly, updated.Interval)
	})

	s.Run("rejects non-positive amount", func() {
		amount := id.Money(-5)
		_, err := s.service.UpdateRecurring(ctx, r.ID, &amount, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects edits on cancelled donation", func() {
		_, err := s.service.Cancel(ctx, r.ID)
		s.Require().NoError(err)
		amount := id.Money(500)
		_, err = s.service.UpdateRecurring(ctx, r.ID, &amount, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *DonationServiceSuite) TestCurrentMonthlyTotal() {
	ctx := s.userCtx(s.donorID)
	_, err := s.service.CreateRecurring(ctx, s.projectID, 1000, models.IntervalMonthly, "")
	s.Require().NoError(err)
	_, err = s.service.CreateRecurring(ctx, s.projectID, 12000, models.IntervalYearly, "")
	s.Require().NoError(err)

	s.Run("yearly amounts are normalized by default", func() {
		total, err := s.service.CurrentMonthlyTotal(ctx, s.projectID)
		s.Require().NoError(err)
		s.Equal(id.Money(2000), total)
	})

	s.Run("normalization can be disabled", func() {
		svc := New(s.recurring, s.donations, s.userSvc,
			projectservice.New(s.projects, s.userSvc, nil), &tx.MemoryRunner{},
			WithYearlyNormalization(false))
		total, err := svc.CurrentMonthlyTotal(ctx, s.projectID)
		s.Require().NoError(err)
		s.Equal(id.Money(13000), total)
	})

	s.Run("second read is served from cache", func() {
		total, ok, err := s.cache.GetMonthlyTotal(ctx, s.projectID)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(id.Money(2000), total)
	})
}

func (s *DonationServiceSuite) TestMigrateFromToken() {
	const token = "tok-migrate"
	tokenCtx := s.tokenCtx(token)

	// Anonymous history: one recurring, one one-time donation.
	_, err := s.service.CreateRecurring(tokenCtx, s.projectID, 1000, models.IntervalMonthly, "")
	s.Require().NoError(err)
	_, err = s.service.ConfirmDonation(tokenCtx, s.projectID, 500, "hello")
	s.Require().NoError(err)

	userID := s.createUser(true)
	authedCtx := requestcontext.WithDonorToken(s.userCtx(userID), token)

	s.Run("migrates both record kinds exactly once", func() {
		result, err := s.service.MigrateFromToken(authedCtx)
		s.Require().NoError(err)
		s.Equal(2, result.MigratedCount)
		s.False(result.AlreadyMigrated)

		recs, err := s.service.ListMyRecurring(s.userCtx(userID))
		s.Require().NoError(err)
		s.Len(recs, 1)

		donations, err := s.service.ListMyDonations(s.userCtx(userID))
		s.Require().NoError(err)
		s.Len(donations, 1)

		pending, err := s.userSvc.PendingMigration(context.Background(), userID)
		s.Require().NoError(err)
		s.False(pending, "flag is cleared by the migration")
	})

	s.Run("second call reports already migrated", func() {
		result, err := s.service.MigrateFromToken(authedCtx)
		s.Require().NoError(err)
		s.True(result.AlreadyMigrated)
		s.Zero(result.MigratedCount)
	})

	s.Run("claims records the token accumulated after the first migration", func() {
		_, err := s.service.ConfirmDonation(tokenCtx, s.projectID, 250, "while logged out")
		s.Require().NoError(err)

		result, err := s.service.MigrateFromToken(authedCtx)
		s.Require().NoError(err)
		s.False(result.AlreadyMigrated)
		s.Equal(1, result.MigratedCount)

		donations, err := s.service.ListMyDonations(s.userCtx(userID))
		s.Require().NoError(err)
		s.Len(donations, 2)
	})

	s.Run("requires authentication", func() {
		_, err := s.service.MigrateFromToken(tokenCtx)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *DonationServiceSuite) TestMigrateWithoutPendingFlag() {
	const token = "tok-late"
	_, err := s.service.ConfirmDonation(s.tokenCtx(token), s.projectID, 700, "")
	s.Require().NoError(err)

	// Registered without a token cookie, so no pending flag was ever set.
	userID := s.createUser(false)
	authedCtx := requestcontext.WithDonorToken(s.userCtx(userID), token)

	result, err := s.service.MigrateFromToken(authedCtx)
	s.Require().NoError(err)
	s.False(result.AlreadyMigrated)
	s.Equal(1, result.MigratedCount)

	donations, err := s.service.ListMyDonations(s.userCtx(userID))
	s.Require().NoError(err)
	s.Len(donations, 1)

	s.Run("nothing left to claim reports already migrated", func() {
		result, err := s.service.MigrateFromToken(authedCtx)
		s.Require().NoError(err)
		s.True(result.AlreadyMigrated)
		s.Zero(result.MigratedCount)
	})
}

func (s *DonationServiceSuite) TestActivityDonorLabel() {
	publisher := &capturePublisher{}
	svc := New(s.recurring, s.donations, s.userSvc,
		projectservice.New(s.projects, s.userSvc, nil), &tx.MemoryRunner{},
		WithPublisher(publisher))

	namedID := id.UserID(uuid.New())
	s.Require().NoError(s.users.Create(context.Background(), &usermodels.User{
		ID:        namedID,
		Email:     "alice@example.com",
		Name:      "Alice",
		Role:      usermodels.RoleDonor,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}))

	s.Run("named account shows its display name", func() {
		_, err := svc.ConfirmDonation(s.userCtx(namedID), s.projectID, 500, "hi")
		s.Require().NoError(err)

		s.Require().Len(publisher.published, 1)
		ev := publisher.published[0]
		s.Equal(events.KindDonationCreated, ev.Kind)
		s.Equal("Alice", ev.Donor)
	})

	s.Run("anonymous token donor shows the anonymous label", func() {
		_, err := svc.CreateRecurring(s.tokenCtx("tok-feed"), s.projectID, 1000, models.IntervalMonthly, "")
		s.Require().NoError(err)

		s.Require().Len(publisher.published, 2)
		ev := publisher.published[1]
		s.Equal(events.KindRecurringCreated, ev.Kind)
		s.Equal("Anonymous", ev.Donor)
	})

	s.Run("account without a name shows the anonymous label", func() {
		namelessID := s.createUser(false)
		r, err := svc.CreateRecurring(s.userCtx(namelessID), s.projectID, 1000, models.IntervalMonthly, "")
		s.Require().NoError(err)

		s.Require().Len(publisher.published, 3)
		s.Equal("Anonymous", publisher.published[2].Donor)

		_, err = svc.Pause(s.userCtx(namelessID), r.ID)
		s.Require().NoError(err)
		s.Require().Len(publisher.published, 4)
		s.Equal(events.KindRecurringPaused, publisher.published[3].Kind)
		s.Equal("Anonymous", publisher.published[3].Donor)
	})
}

func (s *DonationServiceSuite) TestDismissMigrationPrompt() {
	userID := s.createUser(true)
	ctx := requestcontext.WithSessionID(s.userCtx(userID), "sess-1")

	s.Run("prompt is visible before dismissal", func() {
		visible, err := s.service.MigrationPromptVisible(ctx, userID)
		s.Require().NoError(err)
		s.True(visible)
	})

	s.Run("dismissal hides the prompt for this session only", func() {
		s.Require().NoError(s.service.DismissMigrationPrompt(ctx))

		visible, err := s.service.MigrationPromptVisible(ctx, userID)
		s.Require().NoError(err)
		s.False(visible)

		otherSession := requestcontext.WithSessionID(s.userCtx(userID), "sess-2")
		visible, err = s.service.MigrationPromptVisible(otherSession, userID)
		s.Require().NoError(err)
		s.True(visible, "dismissal is scoped to the session")

		pending, err := s.userSvc.PendingMigration(context.Background(), userID)
		s.Require().NoError(err)
		s.True(pending, "dismissal must not clear the pending flag")
	})
}
