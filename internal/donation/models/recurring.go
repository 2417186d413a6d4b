package models

import (
	"time"

	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
)

// RecurringStatus is the lifecycle state of a recurring donation.
//
// Transitions:
//   - Active ↔ Paused (pause/resume, idempotent: repeating the command from
//     the state it targets is a no-op success)
//   - Active|Paused → Cancelled (terminal, stays visible in history)
//   - Active|Paused|Cancelled → Deleted (terminal, invisible everywhere)
//
// Cancelled and Deleted have identical aggregate effect (excluded from the
// current monthly total) but different listing visibility.
type RecurringStatus string

const (
	StatusActive    RecurringStatus = "active"
	StatusPaused    RecurringStatus = "paused"
	StatusCancelled RecurringStatus = "cancelled"
	StatusDeleted   RecurringStatus = "deleted"
)

// Terminal reports whether no further donor edits are possible.
func (s RecurringStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusDeleted
}

// Interval is the billing cadence of a recurring donation.
type Interval string

const (
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
)

// ParseInterval validates an interval string.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case IntervalMonthly, IntervalYearly:
		return Interval(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown interval %q", s)
	}
}

// RecurringDonation is a subscription-like pledge owned by its donor.
//
// Invariants:
//   - Amount > 0
//   - Status transitions follow the RecurringStatus state machine
//   - Only Active donations count toward a project's current monthly total
//     (Paused donations are listed but not counted)
type RecurringDonation struct {
	ID        id.RecurringDonationID `json:"id"`
	ProjectID id.ProjectID           `json:"project_id"`
	Donor     Donor                  `json:"donor"`
	Amount    id.Money               `json:"amount"`
	Interval  Interval               `json:"interval"`
	Status    RecurringStatus        `json:"status"`
	Message   string                 `json:"message,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// MonthlyAmount normalizes the amount to a per-month figure. Yearly amounts
// divide by 12 when normalizeYearly is set; otherwise they count at face
// value (the cadence of that behavior is deployment-configurable).
func (r *RecurringDonation) MonthlyAmount(normalizeYearly bool) id.Money {
	if r.Interval == IntervalYearly && normalizeYearly {
		return r.Amount / 12
	}
	return r.Amount
}

// CanPause checks the pause transition. Pausing an already-paused donation is
// a no-op success, mirroring the toggle-shaped UI without its races.
func (r *RecurringDonation) CanPause() error {
	if r.Status.Terminal() {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot pause a %s donation", r.Status)
	}
	return nil
}

// ApplyPause transitions to Paused. Timestamp only moves on a real change.
func (r *RecurringDonation) ApplyPause(now time.Time) {
	if r.Status == StatusPaused {
		return
	}
	r.Status = StatusPaused
	r.UpdatedAt = now
}

// CanResume checks the resume transition; resuming an Active donation is a
// no-op success.
func (r *RecurringDonation) CanResume() error {
	if r.Status.Terminal() {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot resume a %s donation", r.Status)
	}
	return nil
}

// ApplyResume transitions to Active.
func (r *RecurringDonation) ApplyResume(now time.Time) {
	if r.Status == StatusActive {
		return
	}
	r.Status = StatusActive
	r.UpdatedAt = now
}

// CanCancel checks the cancel transition. Cancelling is terminal and not
// idempotent: a second cancel is an invalid-state error.
func (r *RecurringDonation) CanCancel() error {
	if r.Status.Terminal() {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot cancel a %s donation", r.Status)
	}
	return nil
}

// ApplyCancel transitions to Cancelled.
func (r *RecurringDonation) ApplyCancel(now time.Time) {
	r.Status = StatusCancelled
	r.UpdatedAt = now
}

// CanDelete checks the delete transition. Deleting is allowed even from
// Cancelled; a deleted donation is gone from every listing and aggregate.
func (r *RecurringDonation) CanDelete() error {
	if r.Status == StatusDeleted {
		return dErrors.New(dErrors.CodeInvalidState, "donation is already deleted")
	}
	return nil
}

// ApplyDelete transitions to Deleted. Any in-progress edit is aborted by the
// same atomic write that applies this transition.
func (r *RecurringDonation) ApplyDelete(now time.Time) {
	r.Status = StatusDeleted
	r.UpdatedAt = now
}

// CanUpdate checks amount/interval edits, valid only from Active or Paused.
func (r *RecurringDonation) CanUpdate(amount *id.Money, interval *Interval) error {
	if r.Status.Terminal() {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot edit a %s donation", r.Status)
	}
	if amount != nil && *amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	return nil
}

// ApplyUpdate edits amount and/or interval in one write; callers never see an
// amount change without its accompanying interval change.
func (r *RecurringDonation) ApplyUpdate(amount *id.Money, interval *Interval, now time.Time) {
	if amount != nil {
		r.Amount = *amount
	}
	if interval != nil {
		r.Interval = *interval
	}
	r.UpdatedAt = now
}

// NewRecurringDonation constructs an Active recurring donation.
func NewRecurringDonation(recurringID id.RecurringDonationID, projectID id.ProjectID, donor Donor, amount id.Money, interval Interval, message string, now time.Time) (*RecurringDonation, error) {
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "amount must be positive")
	}
	if interval != IntervalMonthly && interval != IntervalYearly {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown interval %q", interval)
	}
	return &RecurringDonation{
		ID:        recurringID,
		ProjectID: projectID,
		Donor:     donor,
		Amount:    amount,
		Interval:  interval,
		Status:    StatusActive,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
