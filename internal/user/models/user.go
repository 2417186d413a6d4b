package models

import (
	"strings"
	"time"

	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
)

// Role is the platform role of an account. Host is the operator role that
// may run admin operations and disclosure exports.
type Role string

const (
	RoleHost         Role = "host"
	RoleProjectOwner Role = "project_owner"
	RoleDonor        Role = "donor"
)

// User is an authenticated account.
//
// Invariants:
//   - Suspension blocks creation of donations, recurring donations and
//     projects, but never read access, and never touches existing records
//   - PendingTokenMigration is cleared exactly once, by a successful
//     migration; session-scoped dismissal of the migration prompt must not
//     clear it
type User struct {
	ID    id.UserID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  Role      `json:"role"`

	SuspendedAt           *time.Time `json:"suspended_at,omitempty"`
	PendingTokenMigration bool       `json:"pending_token_migration"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsSuspended reports whether the account is currently suspended.
func (u *User) IsSuspended() bool { return u.SuspendedAt != nil }

// IsHost reports whether the account holds the operator role.
func (u *User) IsHost() bool { return u.Role == RoleHost }

// ApplySuspension suspends or unsuspends the account.
func (u *User) ApplySuspension(suspended bool, now time.Time) {
	if suspended {
		u.SuspendedAt = &now
	} else {
		u.SuspendedAt = nil
	}
	u.UpdatedAt = now
}

// CanClearPendingMigration guards the single-shot flag clear.
func (u *User) CanClearPendingMigration() error {
	if !u.PendingTokenMigration {
		return dErrors.New(dErrors.CodeInvalidState, "no token migration pending")
	}
	return nil
}

// ApplyClearPendingMigration clears the flag after a successful migration.
func (u *User) ApplyClearPendingMigration(now time.Time) {
	u.PendingTokenMigration = false
	u.UpdatedAt = now
}

// NewUser constructs a donor-role account.
func NewUser(userID id.UserID, email, name string, now time.Time) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	return &User{
		ID:        userID,
		Email:     email,
		Name:      strings.TrimSpace(name),
		Role:      RoleDonor,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
