package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	userstore "givers/internal/user/store/user"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
	"givers/pkg/requestcontext"
)

type UserServiceSuite struct {
	suite.Suite
	store   *userstore.InMemory
	service *Service

	now time.Time
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	s.store = userstore.NewInMemory()
	s.service = New(s.store)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *UserServiceSuite) hostCtx(hostID id.UserID) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), hostID)
	ctx = requestcontext.WithHost(ctx, true)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *UserServiceSuite) register(ctx context.Context, email string) id.UserID {
	u, err := s.service.Register(ctx, RegisterInput{Email: email})
	s.Require().NoError(err)
	return u.ID
}

func (s *UserServiceSuite) TestRegister() {
	ctx := requestcontext.WithTime(context.Background(), s.now)

	s.Run("plain registration has no pending migration", func() {
		u, err := s.service.Register(ctx, RegisterInput{Email: "a@example.com", Name: "A"})
		s.Require().NoError(err)
		s.False(u.PendingTokenMigration)
	})

	s.Run("registration with a donor token flags migration", func() {
		tokenCtx := requestcontext.WithDonorToken(ctx, "tok-1")
		u, err := s.service.Register(tokenCtx, RegisterInput{Email: "b@example.com"})
		s.Require().NoError(err)
		s.True(u.PendingTokenMigration)
	})

	s.Run("rejects empty email", func() {
		_, err := s.service.Register(ctx, RegisterInput{Email: "  "})
		s.Error(err)
	})
}

func (s *UserServiceSuite) TestSetSuspension() {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	hostID := s.register(ctx, "host@example.com")
	donorID := s.register(ctx, "donor@example.com")

	s.Run("requires host role", func() {
		donorCtx := requestcontext.WithUserID(ctx, donorID)
		_, err := s.service.SetSuspension(donorCtx, donorID, true)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("host suspends and unsuspends", func() {
		u, err := s.service.SetSuspension(s.hostCtx(hostID), donorID, true)
		s.Require().NoError(err)
		s.True(u.IsSuspended())

		suspended, err := s.service.IsSuspended(context.Background(), donorID)
		s.Require().NoError(err)
		s.True(suspended)

		u, err = s.service.SetSuspension(s.hostCtx(hostID), donorID, false)
		s.Require().NoError(err)
		s.False(u.IsSuspended())
	})

	s.Run("host cannot suspend their own account", func() {
		_, err := s.service.SetSuspension(s.hostCtx(hostID), hostID, true)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown account is not found", func() {
		otherHost := s.register(ctx, "host2@example.com")
		_, err := s.service.SetSuspension(s.hostCtx(otherHost), id.UserID{}, true)
		s.Error(err)
	})
}

func (s *UserServiceSuite) TestDisplayName() {
	ctx := requestcontext.WithTime(context.Background(), s.now)

	s.Run("returns the account name", func() {
		u, err := s.service.Register(ctx, RegisterInput{Email: "named@example.com", Name: "Dana"})
		s.Require().NoError(err)

		name, err := s.service.DisplayName(ctx, u.ID)
		s.Require().NoError(err)
		s.Equal("Dana", name)
	})

	s.Run("nameless account gets the anonymous label", func() {
		userID := s.register(ctx, "nameless@example.com")
		name, err := s.service.DisplayName(ctx, userID)
		s.Require().NoError(err)
		s.Equal("Anonymous", name)
	})

	s.Run("unknown account is not found", func() {
		_, err := s.service.DisplayName(ctx, id.UserID{})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *UserServiceSuite) TestClearPendingMigration() {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	tokenCtx := requestcontext.WithDonorToken(ctx, "tok-2")
	userID := s.register(tokenCtx, "c@example.com")

	s.Run("clears the flag once", func() {
		s.Require().NoError(s.service.ClearPendingMigration(ctx, userID))

		pending, err := s.service.PendingMigration(ctx, userID)
		s.Require().NoError(err)
		s.False(pending)
	})

	s.Run("second clear is an invalid state", func() {
		err := s.service.ClearPendingMigration(ctx, userID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}
