package disclosure

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	donationmodels "givers/internal/donation/models"
	donationstore "givers/internal/donation/store/donation"
	recurringstore "givers/internal/donation/store/recurring"
	projectmodels "givers/internal/project/models"
	projectservice "givers/internal/project/service"
	projectstore "givers/internal/project/store/project"
	userservice "givers/internal/user/service"
	userstore "givers/internal/user/store/user"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
	"givers/pkg/requestcontext"
)

type DisclosureSuite struct {
	suite.Suite
	users     *userstore.InMemory
	projects  *projectstore.InMemory
	donations *donationstore.InMemory
	recurring *recurringstore.InMemory
	service   *Service

	now       time.Time
	subjectID id.UserID
	projectID id.ProjectID
}

func TestDisclosureSuite(t *testing.T) {
	suite.Run(t, new(DisclosureSuite))
}

func (s *DisclosureSuite) SetupTest() {
	s.users = userstore.NewInMemory()
	s.projects = projectstore.NewInMemory()
	s.donations = donationstore.NewInMemory()
	s.recurring = recurringstore.NewInMemory()

	userSvc := userservice.New(s.users)
	projectSvc := projectservice.New(s.projects, userSvc, nil)
	s.service = New(userSvc, projectSvc, s.donations, s.recurring, slog.Default())

	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	subject, err := userSvc.Register(
		requestcontext.WithTime(ctx, s.now), userservice.RegisterInput{Email: "subject@example.com", Name: "Subject"})
	s.Require().NoError(err)
	s.subjectID = subject.ID

	s.projectID = id.ProjectID(uuid.New())
	s.Require().NoError(s.projects.Create(ctx, &projectmodels.Project{
		ID:        s.projectID,
		OwnerID:   s.subjectID,
		Name:      "Subject Project",
		Status:    projectmodels.ProjectStatusActive,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}))

	donor := donationmodels.UserDonor(s.subjectID)
	d, err := donationmodels.NewDonation(id.DonationID(uuid.New()), s.projectID, donor, 500, "", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.donations.Create(ctx, d))

	// One of each visibility class: active, cancelled, deleted.
	for i, status := range []donationmodels.RecurringStatus{
		donationmodels.StatusActive,
		donationmodels.StatusCancelled,
		donationmodels.StatusDeleted,
	} {
		r, err := donationmodels.NewRecurringDonation(
			id.RecurringDonationID(uuid.New()), s.projectID, donor, 1000,
			donationmodels.IntervalMonthly, "", s.now.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(err)
		r.Status = status
		s.Require().NoError(s.recurring.Create(ctx, r))
	}
}

func (s *DisclosureSuite) hostCtx() context.Context {
	ctx := requestcontext.WithHost(context.Background(), true)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *DisclosureSuite) TestExportRequiresHost() {
	_, err := s.service.Export(context.Background(), SubjectUser, s.subjectID.String())
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *DisclosureSuite) TestExportUser() {
	bundle, err := s.service.Export(s.hostCtx(), SubjectUser, s.subjectID.String())
	s.Require().NoError(err)

	s.Require().NotNil(bundle.Identity)
	s.Equal("subject@example.com", bundle.Identity.Email)
	s.Len(bundle.Projects, 1)
	s.Len(bundle.Donations, 1)
	s.Len(bundle.Recurring, 2, "cancelled stays, deleted never appears")
	for _, r := range bundle.Recurring {
		s.NotEqual(donationmodels.StatusDeleted, r.Status)
	}
	s.Equal(s.now.UTC(), bundle.ExportedAt)
}

func (s *DisclosureSuite) TestExportProject() {
	bundle, err := s.service.Export(s.hostCtx(), SubjectProject, s.projectID.String())
	s.Require().NoError(err)

	s.Require().NotNil(bundle.Project)
	s.Nil(bundle.Identity)
	s.Len(bundle.Donations, 1)
	s.Len(bundle.Recurring, 2)
}

// TestExportDeterminism verifies two exports of the same state are identical
// apart from the timestamp, which is pinned here.
func (s *DisclosureSuite) TestExportDeterminism() {
	first, err := s.service.Export(s.hostCtx(), SubjectUser, s.subjectID.String())
	s.Require().NoError(err)
	second, err := s.service.Export(s.hostCtx(), SubjectUser, s.subjectID.String())
	s.Require().NoError(err)

	a, err := json.Marshal(first)
	s.Require().NoError(err)
	b, err := json.Marshal(second)
	s.Require().NoError(err)
	s.JSONEq(string(a), string(b))
}

func (s *DisclosureSuite) TestExportValidation() {
	s.Run("unknown subject type", func() {
		_, err := ParseSubjectType("campaign")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("malformed subject id", func() {
		_, err := s.service.Export(s.hostCtx(), SubjectUser, "not-a-uuid")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown user", func() {
		_, err := s.service.Export(s.hostCtx(), SubjectUser, uuid.NewString())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
