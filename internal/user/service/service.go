// Package service implements account management: registration, lookup,
// host-only listing and suspension.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"givers/internal/user/models"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
	"givers/pkg/platform/sentinel"
	"givers/pkg/requestcontext"
)

// UserStore is the persistence surface the service needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Execute(ctx context.Context, userID id.UserID,
		validate func(*models.User) error,
		apply func(*models.User)) (*models.User, error)
}

// Service coordinates account operations.
type Service struct {
	store  UserStore
	logger *slog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates an account service.
func New(store UserStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Email string
	Name  string
}

// Register creates a donor-role account. When the request carries an anonymous
// donor token the account is flagged for token migration, so the client can
// offer to claim the token's donation history.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	now := requestcontext.Now(ctx)
	u, err := models.NewUser(id.UserID(uuid.New()), in.Email, in.Name, now)
	if err != nil {
		return nil, err
	}
	if requestcontext.DonorToken(ctx) != "" {
		u.PendingTokenMigration = true
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "account already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register account")
	}
	s.logger.InfoContext(ctx, "account registered",
		slog.String("user_id", u.ID.String()),
		slog.Bool("pending_token_migration", u.PendingTokenMigration))
	return u, nil
}

// Get returns an account by ID.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	return u, nil
}

// Me returns the authenticated caller's account.
func (s *Service) Me(ctx context.Context) (*models.User, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return s.Get(ctx, userID)
}

// List returns accounts ordered by creation time. Host only.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if !requestcontext.IsHost(ctx) {
		return nil, dErrors.New(dErrors.CodeForbidden, "host role required")
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	users, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list accounts")
	}
	return users, nil
}

// SetSuspension suspends or unsuspends an account. Host only, and a host
// cannot suspend their own account.
func (s *Service) SetSuspension(ctx context.Context, userID id.UserID, suspended bool) (*models.User, error) {
	if !requestcontext.IsHost(ctx) {
		return nil, dErrors.New(dErrors.CodeForbidden, "host role required")
	}
	if callerID := requestcontext.UserID(ctx); callerID == userID && suspended {
		return nil, dErrors.New(dErrors.CodeValidation, "cannot suspend own account")
	}
	now := requestcontext.Now(ctx)
	u, err := s.store.Execute(ctx, userID,
		func(u *models.User) error { return nil },
		func(u *models.User) { u.ApplySuspension(suspended, now) },
	)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	s.logger.InfoContext(ctx, "account suspension changed",
		slog.String("user_id", userID.String()),
		slog.Bool("suspended", suspended))
	return u, nil
}

// IsSuspended reports whether the account is suspended. It satisfies the
// suspension gate other verticals check before accepting writes.
func (s *Service) IsSuspended(ctx context.Context, userID id.UserID) (bool, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return false, wrapUserErr(err)
	}
	return u.IsSuspended(), nil
}

// DisplayName returns the account's public display label for the activity
// feed. Accounts without a name show the anonymous label; internal
// identifiers never leak into the feed.
func (s *Service) DisplayName(ctx context.Context, userID id.UserID) (string, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return "", wrapUserErr(err)
	}
	if u.Name == "" {
		return "Anonymous", nil
	}
	return u.Name, nil
}

// PendingMigration reports whether the account still has an unclaimed donor
// token migration.
func (s *Service) PendingMigration(ctx context.Context, userID id.UserID) (bool, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return false, wrapUserErr(err)
	}
	return u.PendingTokenMigration, nil
}

// ClearPendingMigration marks the account's token migration as completed.
// Called by the migration transaction; fails with an invalid-state error when
// no migration is pending, which keeps the flag single-shot.
func (s *Service) ClearPendingMigration(ctx context.Context, userID id.UserID) error {
	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx, userID,
		func(u *models.User) error { return u.CanClearPendingMigration() },
		func(u *models.User) { u.ApplyClearPendingMigration(now) },
	)
	if err != nil {
		return wrapUserErr(err)
	}
	return nil
}

func wrapUserErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "account not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "account conflict")
	default:
		var dErr *dErrors.Error
		if errors.As(err, &dErr) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "account store failure")
	}
}
