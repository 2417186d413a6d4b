package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
)

func newActive(t *testing.T) *RecurringDonation {
	t.Helper()
	r, err := NewRecurringDonation(
		id.RecurringDonationID(uuid.New()),
		id.ProjectID(uuid.New()),
		UserDonor(id.UserID(uuid.New())),
		1000, IntervalMonthly, "", time.Now())
	require.NoError(t, err)
	return r
}

func TestNewRecurringDonationInvariants(t *testing.T) {
	_, err := NewRecurringDonation(id.RecurringDonationID(uuid.New()), id.ProjectID(uuid.New()),
		UserDonor(id.UserID(uuid.New())), 0, IntervalMonthly, "", time.Now())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewRecurringDonation(id.RecurringDonationID(uuid.New()), id.ProjectID(uuid.New()),
		UserDonor(id.UserID(uuid.New())), 1000, Interval("weekly"), "", time.Now())
	require.Error(t, err)
}

func TestPauseResumeIdempotent(t *testing.T) {
	r := newActive(t)
	now := time.Now()

	require.NoError(t, r.CanPause())
	r.ApplyPause(now)
	assert.Equal(t, StatusPaused, r.Status)

	// Second pause: allowed, no state change, timestamp untouched.
	later := now.Add(time.Hour)
	require.NoError(t, r.CanPause())
	r.ApplyPause(later)
	assert.Equal(t, StatusPaused, r.Status)
	assert.Equal(t, now, r.UpdatedAt)

	require.NoError(t, r.CanResume())
	r.ApplyResume(later)
	assert.Equal(t, StatusActive, r.Status)

	require.NoError(t, r.CanResume())
	r.ApplyResume(later.Add(time.Hour))
	assert.Equal(t, later, r.UpdatedAt)
}

func TestTerminalStatesRejectEdits(t *testing.T) {
	amount := id.Money(500)

	r := newActive(t)
	r.ApplyCancel(time.Now())
	assert.Equal(t, StatusCancelled, r.Status)

	err := r.CanUpdate(&amount, nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	require.Error(t, r.CanPause())
	require.Error(t, r.CanResume())
	require.Error(t, r.CanCancel())

	// Deleting a cancelled donation is still allowed.
	require.NoError(t, r.CanDelete())
	r.ApplyDelete(time.Now())
	assert.Equal(t, StatusDeleted, r.Status)

	err = r.CanUpdate(&amount, nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	require.Error(t, r.CanDelete())
}

func TestUpdateValidation(t *testing.T) {
	r := newActive(t)
	zero := id.Money(0)
	err := r.CanUpdate(&zero, nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	amount := id.Money(2500)
	interval := IntervalYearly
	require.NoError(t, r.CanUpdate(&amount, &interval))
	r.ApplyUpdate(&amount, &interval, time.Now())
	assert.Equal(t, amount, r.Amount)
	assert.Equal(t, IntervalYearly, r.Interval)

	// Paused donations remain editable.
	r.ApplyPause(time.Now())
	require.NoError(t, r.CanUpdate(&amount, nil))
}

func TestMonthlyAmountNormalization(t *testing.T) {
	r := newActive(t)
	r.Amount = 12000
	r.Interval = IntervalYearly

	assert.Equal(t, id.Money(1000), r.MonthlyAmount(true))
	assert.Equal(t, id.Money(12000), r.MonthlyAmount(false))

	r.Interval = IntervalMonthly
	assert.Equal(t, id.Money(12000), r.MonthlyAmount(true))
}
