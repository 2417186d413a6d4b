// Package disclosure assembles host-only data disclosure bundles: everything
// the platform holds about one user or one project, in a single read-only
// export.
package disclosure

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	donationmodels "givers/internal/donation/models"
	projectmodels "givers/internal/project/models"
	usermodels "givers/internal/user/models"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
	"givers/pkg/requestcontext"
)

// SubjectType selects what the export is about.
type SubjectType string

const (
	SubjectUser    SubjectType = "user"
	SubjectProject SubjectType = "project"
)

// ParseSubjectType validates a subject type string.
func ParseSubjectType(s string) (SubjectType, error) {
	switch SubjectType(s) {
	case SubjectUser, SubjectProject:
		return SubjectType(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown subject type %q", s)
	}
}

// Identity is the subset of account fields disclosed for a user subject.
type Identity struct {
	ID          id.UserID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	SuspendedAt *time.Time `json:"suspended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Bundle is one export. Deterministic for a given data state modulo
// ExportedAt: every list is store-ordered (newest first) and deleted
// recurring donations never appear.
type Bundle struct {
	SubjectType SubjectType `json:"subject_type"`
	SubjectID   string      `json:"subject_id"`
	ExportedAt  time.Time   `json:"exported_at"`

	Identity  *Identity                          `json:"identity,omitempty"`
	Projects  []*projectmodels.Project           `json:"projects,omitempty"`
	Project   *projectmodels.Project             `json:"project,omitempty"`
	Donations []*donationmodels.Donation         `json:"donations"`
	Recurring []*donationmodels.RecurringDonation `json:"recurring_donations"`
}

// Users is the slice of the user vertical the assembler reads.
type Users interface {
	Get(ctx context.Context, userID id.UserID) (*usermodels.User, error)
}

// Projects is the slice of the project vertical the assembler reads.
type Projects interface {
	GetProject(ctx context.Context, projectID id.ProjectID) (*projectmodels.Project, error)
	ListByOwner(ctx context.Context, ownerID id.UserID) ([]*projectmodels.Project, error)
}

// DonationReader reads one-time donation history.
type DonationReader interface {
	ListByDonor(ctx context.Context, donor donationmodels.Donor) ([]*donationmodels.Donation, error)
	ListByProject(ctx context.Context, projectID id.ProjectID, limit, offset int) ([]*donationmodels.Donation, error)
}

// RecurringReader reads recurring donation history. Listings include
// cancelled and paused records and exclude deleted ones.
type RecurringReader interface {
	ListByDonor(ctx context.Context, donor donationmodels.Donor) ([]*donationmodels.RecurringDonation, error)
	ListByProject(ctx context.Context, projectID id.ProjectID) ([]*donationmodels.RecurringDonation, error)
}

// Service assembles disclosure bundles.
type Service struct {
	users     Users
	projects  Projects
	donations DonationReader
	recurring RecurringReader
	logger    *slog.Logger
}

// New constructs a disclosure Service.
func New(users Users, projects Projects, donations DonationReader, recurring RecurringReader, logger *slog.Logger) *Service {
	return &Service{
		users:     users,
		projects:  projects,
		donations: donations,
		recurring: recurring,
		logger:    logger,
	}
}

const exportPageSize = 500

// Export assembles the bundle for the given subject. Host only; the export
// never mutates anything.
func (s *Service) Export(ctx context.Context, subjectType SubjectType, subjectID string) (*Bundle, error) {
	if !requestcontext.IsHost(ctx) {
		return nil, dErrors.New(dErrors.CodeForbidden, "host role required")
	}

	bundle := &Bundle{
		SubjectType: subjectType,
		SubjectID:   subjectID,
		ExportedAt:  requestcontext.Now(ctx).UTC(),
		Donations:   []*donationmodels.Donation{},
		Recurring:   []*donationmodels.RecurringDonation{},
	}

	var err error
	switch subjectType {
	case SubjectUser:
		err = s.exportUser(ctx, subjectID, bundle)
	case SubjectProject:
		err = s.exportProject(ctx, subjectID, bundle)
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown subject type %q", subjectType)
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "disclosure exported",
		slog.String("subject_type", string(subjectType)),
		slog.String("subject_id", subjectID),
		slog.Int("donations", len(bundle.Donations)),
		slog.Int("recurring", len(bundle.Recurring)))
	return bundle, nil
}

func (s *Service) exportUser(ctx context.Context, subjectID string, bundle *Bundle) error {
	userID, err := id.ParseUserID(subjectID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "subject id must be a UUID")
	}

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	bundle.Identity = &Identity{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        string(u.Role),
		SuspendedAt: u.SuspendedAt,
		CreatedAt:   u.CreatedAt,
	}

	donor := donationmodels.UserDonor(userID)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		projects, err := s.projects.ListByOwner(gctx, userID)
		if err != nil {
			return err
		}
		bundle.Projects = projects
		return nil
	})
	g.Go(func() error {
		donations, err := s.donations.ListByDonor(gctx, donor)
		if err != nil {
			return err
		}
		bundle.Donations = append(bundle.Donations, donations...)
		return nil
	})
	g.Go(func() error {
		recurring, err := s.recurring.ListByDonor(gctx, donor)
		if err != nil {
			return err
		}
		bundle.Recurring = append(bundle.Recurring, recurring...)
		return nil
	})
	return g.Wait()
}

func (s *Service) exportProject(ctx context.Context, subjectID string, bundle *Bundle) error {
	projectID, err := id.ParseProjectID(subjectID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "subject id must be a UUID")
	}

	p, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	bundle.Project = p

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for offset := 0; ; offset += exportPageSize {
			page, err := s.donations.ListByProject(gctx, projectID, exportPageSize, offset)
			if err != nil {
				return err
			}
			bundle.Donations = append(bundle.Donations, page...)
			if len(page) < exportPageSize {
				return nil
			}
		}
	})
	g.Go(func() error {
		recurring, err := s.recurring.ListByProject(gctx, projectID)
		if err != nil {
			return err
		}
		bundle.Recurring = append(bundle.Recurring, recurring...)
		return nil
	})
	return g.Wait()
}
