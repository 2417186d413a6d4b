package models

import (
	"time"

	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
)

// DonorType discriminates authenticated donors from anonymous browser tokens.
type DonorType string

const (
	DonorTypeUser  DonorType = "user"
	DonorTypeToken DonorType = "token"
)

// Donor attributes a donation. For user donors, Ref is the account id; for
// token donors it is the anonymous browser token, replaced by the account id
// when the donor migrates.
type Donor struct {
	Type DonorType `json:"type"`
	Ref  string    `json:"ref"`
}

// UserDonor attributes to an authenticated account.
func UserDonor(userID id.UserID) Donor {
	return Donor{Type: DonorTypeUser, Ref: userID.String()}
}

// TokenDonor attributes to an anonymous browser token.
func TokenDonor(token string) Donor {
	return Donor{Type: DonorTypeToken, Ref: token}
}

// IsUser reports whether the donor is the given account.
func (d Donor) IsUser(userID id.UserID) bool {
	return d.Type == DonorTypeUser && d.Ref == userID.String()
}

// Donation is a one-time contribution. Immutable once created.
type Donation struct {
	ID        id.DonationID `json:"id"`
	ProjectID id.ProjectID  `json:"project_id"`
	Donor     Donor         `json:"donor"`
	Amount    id.Money      `json:"amount"`
	Message   string        `json:"message,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewDonation constructs a one-time donation record.
func NewDonation(donationID id.DonationID, projectID id.ProjectID, donor Donor, amount id.Money, message string, now time.Time) (*Donation, error) {
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "amount must be positive")
	}
	return &Donation{
		ID:        donationID,
		ProjectID: projectID,
		Donor:     donor,
		Amount:    amount,
		Message:   message,
		CreatedAt: now,
	}, nil
}
