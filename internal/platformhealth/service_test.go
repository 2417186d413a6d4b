package platformhealth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"givers/internal/funding"
	"givers/internal/platformhealth"
	healthstore "givers/internal/platformhealth/store/health"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
	"givers/pkg/requestcontext"
)

// fakeTotals returns a fixed platform-wide monthly total.
type fakeTotals struct {
	total id.Money
}

func (f *fakeTotals) PlatformMonthlyTotal(context.Context) (id.Money, error) {
	return f.total, nil
}

type PlatformHealthSuite struct {
	suite.Suite
	store   *healthstore.InMemory
	totals  *fakeTotals
	service *platformhealth.Service

	now time.Time
}

func TestPlatformHealthSuite(t *testing.T) {
	suite.Run(t, new(PlatformHealthSuite))
}

func (s *PlatformHealthSuite) SetupTest() {
	s.store = healthstore.NewInMemory()
	s.totals = &fakeTotals{}
	s.service = platformhealth.New(s.store, s.totals)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PlatformHealthSuite) hostCtx() context.Context {
	ctx := requestcontext.WithHost(context.Background(), true)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *PlatformHealthSuite) TestUnconfiguredShowsNoSignal() {
	s.totals.total = 9999

	h, err := s.service.Health(context.Background())
	s.Require().NoError(err)
	s.False(h.HasTarget)
	s.Empty(h.Signal)
	s.Zero(h.Rate)
}

func (s *PlatformHealthSuite) TestEvaluatesAgainstPlatformTotal() {
	_, err := s.service.UpdateConfig(s.hostCtx(), 100000, nil)
	s.Require().NoError(err)

	s.Run("default thresholds", func() {
		s.totals.total = 50000
		h, err := s.service.Health(context.Background())
		s.Require().NoError(err)
		s.Equal(50, h.Rate)
		s.Equal(funding.SignalWarning, h.Signal)
		s.Equal(s.now, h.UpdatedAt)
	})

	s.Run("configured thresholds shift the signal", func() {
		_, err := s.service.UpdateConfig(s.hostCtx(), 100000,
			&funding.AlertThresholds{WarningThreshold: 80, CriticalThreshold: 60})
		s.Require().NoError(err)

		h, err := s.service.Health(context.Background())
		s.Require().NoError(err)
		s.Equal(funding.SignalCritical, h.Signal, "50 is below the configured critical threshold")
	})

	s.Run("reaching the cost sets the mark", func() {
		s.totals.total = 120000
		h, err := s.service.Health(context.Background())
		s.Require().NoError(err)
		s.True(h.Reached)
		s.Equal(funding.SignalReached, h.Signal)
	})
}

func (s *PlatformHealthSuite) TestUpdateConfigValidation() {
	s.Run("requires host role", func() {
		_, err := s.service.UpdateConfig(context.Background(), 100000, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("rejects negative cost", func() {
		_, err := s.service.UpdateConfig(s.hostCtx(), -1, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects critical at or above warning", func() {
		_, err := s.service.UpdateConfig(s.hostCtx(), 100000,
			&funding.AlertThresholds{WarningThreshold: 40, CriticalThreshold: 40})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
