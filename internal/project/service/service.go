package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"givers/internal/funding"
	"givers/internal/project/models"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
	"givers/pkg/platform/sentinel"
	"givers/pkg/requestcontext"
)

// ProjectStore is the persistence port for project aggregates.
type ProjectStore interface {
	Create(ctx context.Context, p *models.Project) error
	FindByID(ctx context.Context, projectID id.ProjectID) (*models.Project, error)
	ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	Execute(ctx context.Context, projectID id.ProjectID,
		validate func(*models.Project) error, apply func(*models.Project)) (*models.Project, error)
}

// SuspensionChecker reports whether an account is suspended. Suspension
// blocks new projects but never read access.
type SuspensionChecker interface {
	IsSuspended(ctx context.Context, userID id.UserID) (bool, error)
}

// TotalsProvider supplies the live sum of active recurring donations for a
// project, normalized to monthly. Owned by the donation vertical.
type TotalsProvider interface {
	CurrentMonthlyTotal(ctx context.Context, projectID id.ProjectID) (id.Money, error)
}

// Service orchestrates project lifecycle and pledge configuration.
type Service struct {
	projects ProjectStore
	users    SuspensionChecker
	totals   TotalsProvider
	logger   *slog.Logger
}

// Option configures the Service.
type Option func(s *Service)

// WithLogger sets a logger for audit-style records of pledge edits.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs a project Service.
func New(projects ProjectStore, users SuspensionChecker, totals TotalsProvider, opts ...Option) *Service {
	s := &Service{projects: projects, users: users, totals: totals}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProject registers a new active project owned by the caller.
func (s *Service) CreateProject(ctx context.Context, name, description string) (*models.Project, error) {
	ownerID := requestcontext.UserID(ctx)
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if err := s.requireNotSuspended(ctx, ownerID); err != nil {
		return nil, err
	}

	p, err := models.NewProject(id.ProjectID(uuid.New()), ownerID, name, description, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create project")
	}

	s.log(ctx, "project created", "project_id", p.ID.String(), "owner_id", ownerID.String())
	return p, nil
}

// GetProject returns a project by id. Deleted projects stay readable; hiding
// them is a listing concern.
func (s *Service) GetProject(ctx context.Context, projectID id.ProjectID) (*models.Project, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, wrapProjectErr(err)
	}
	return p, nil
}

// ListByOwner returns the projects owned by a user.
func (s *Service) ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Project, error) {
	return s.projects.ListByOwner(ctx, ownerID)
}

// UpdatePledge replaces the pledge configuration (flat want and cost items)
// and recomputes the cached monthly target in the same atomic write. The
// target is never patched independently of its inputs.
func (s *Service) UpdatePledge(ctx context.Context, projectID id.ProjectID, cfg funding.PledgeConfig) (*models.Project, error) {
	if cfg.OwnerWantMonthly != nil && *cfg.OwnerWantMonthly < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "owner want monthly must not be negative")
	}
	if err := funding.ValidateCostItems(cfg.CostItems); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	callerID := requestcontext.UserID(ctx)
	p, err := s.projects.Execute(ctx, projectID,
		func(p *models.Project) error { return requireOwner(p, callerID) },
		func(p *models.Project) { p.ApplyPledge(cfg, now) },
	)
	if err != nil {
		return nil, wrapProjectErr(err)
	}

	s.log(ctx, "pledge updated", "project_id", projectID.String(), "monthly_target", int64(p.MonthlyTarget))
	return p, nil
}

// UpdateAlerts replaces the owner's achievement alert thresholds. Threshold
// ordering (critical < warning) is enforced here, at write time.
func (s *Service) UpdateAlerts(ctx context.Context, projectID id.ProjectID, th funding.AlertThresholds) (*models.Project, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	callerID := requestcontext.UserID(ctx)
	p, err := s.projects.Execute(ctx, projectID,
		func(p *models.Project) error { return requireOwner(p, callerID) },
		func(p *models.Project) { p.ApplyAlerts(th, now) },
	)
	if err != nil {
		return nil, wrapProjectErr(err)
	}
	return p, nil
}

// UpdateStatus transitions the project between active and frozen, or marks it
// deleted. Owner only.
func (s *Service) UpdateStatus(ctx context.Context, projectID id.ProjectID, status models.ProjectStatus) (*models.Project, error) {
	switch status {
	case models.ProjectStatusActive, models.ProjectStatusFrozen, models.ProjectStatusDeleted:
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown project status %q", status)
	}

	now := requestcontext.Now(ctx)
	callerID := requestcontext.UserID(ctx)
	p, err := s.projects.Execute(ctx, projectID,
		func(p *models.Project) error { return requireOwner(p, callerID) },
		func(p *models.Project) {
			p.Status = status
			p.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapProjectErr(err)
	}
	return p, nil
}

// Achievement recomputes the monthly target from the project's current pledge
// inputs and evaluates it against the live recurring total. Recomputing here
// (rather than trusting the cached column) keeps owner edits from ever being
// evaluated against a stale target.
func (s *Service) Achievement(ctx context.Context, projectID id.ProjectID) (funding.Achievement, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return funding.Achievement{}, wrapProjectErr(err)
	}

	target := funding.ResolveMonthlyTarget(p.Pledge)
	current, err := s.totals.CurrentMonthlyTotal(ctx, projectID)
	if err != nil {
		return funding.Achievement{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load current total")
	}
	return funding.EvaluateAchievement(target, current, p.Alerts), nil
}

// IsDonatable reports whether the project currently accepts donations. It
// satisfies the gate the donation vertical checks before accepting writes.
func (s *Service) IsDonatable(ctx context.Context, projectID id.ProjectID) (bool, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return false, wrapProjectErr(err)
	}
	return p.Donatable(), nil
}

func (s *Service) requireNotSuspended(ctx context.Context, userID id.UserID) error {
	if s.users == nil {
		return nil
	}
	suspended, err := s.users.IsSuspended(ctx, userID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check account status")
	}
	if suspended {
		return dErrors.New(dErrors.CodeSuspendedAccount, "account is suspended")
	}
	return nil
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, msg, args...)
}

func requireOwner(p *models.Project, callerID id.UserID) error {
	if callerID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if p.OwnerID != callerID {
		return dErrors.New(dErrors.CodeForbidden, "only the project owner may modify pledge configuration")
	}
	return nil
}

func wrapProjectErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "project not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "project already exists")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "project store failure")
	}
}
