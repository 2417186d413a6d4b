// Package domain holds typed identifiers and money primitives shared across
// verticals. Wrapping uuid.UUID in distinct types keeps a project id from
// being passed where a donation id is expected.
package domain

import "github.com/google/uuid"

type (
	// UserID identifies an authenticated account.
	UserID uuid.UUID
	// ProjectID identifies a funded project.
	ProjectID uuid.UUID
	// DonationID identifies a one-time donation record.
	DonationID uuid.UUID
	// RecurringDonationID identifies a subscription-like pledge.
	RecurringDonationID uuid.UUID
)

func (id UserID) String() string              { return uuid.UUID(id).String() }
func (id ProjectID) String() string           { return uuid.UUID(id).String() }
func (id DonationID) String() string          { return uuid.UUID(id).String() }
func (id RecurringDonationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool              { return uuid.UUID(id) == uuid.Nil }
func (id ProjectID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id DonationID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id RecurringDonationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Wrapping uuid.UUID in a defined type loses its text marshalers, so each id
// restores them; without these, ids encode as byte arrays in JSON.

func (id UserID) MarshalText() ([]byte, error)              { return uuid.UUID(id).MarshalText() }
func (id ProjectID) MarshalText() ([]byte, error)           { return uuid.UUID(id).MarshalText() }
func (id DonationID) MarshalText() ([]byte, error)          { return uuid.UUID(id).MarshalText() }
func (id RecurringDonationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error              { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ProjectID) UnmarshalText(b []byte) error           { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DonationID) UnmarshalText(b []byte) error          { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RecurringDonationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseUserID parses s as a user id.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	return UserID(u), err
}

// ParseProjectID parses s as a project id.
func ParseProjectID(s string) (ProjectID, error) {
	u, err := uuid.Parse(s)
	return ProjectID(u), err
}

// ParseRecurringDonationID parses s as a recurring donation id.
func ParseRecurringDonationID(s string) (RecurringDonationID, error) {
	u, err := uuid.Parse(s)
	return RecurringDonationID(u), err
}
