package handler

import (
	"github.com/asaskevich/govalidator"

	"givers/internal/donation/models"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
)

// CheckoutRequest is the HTTP request body for POST /api/donations/checkout.
type CheckoutRequest struct {
	ProjectID string `json:"project_id"`
	Amount    int64  `json:"amount"`
	Recurring bool   `json:"recurring"`
	Interval  string `json:"interval"`
	Message   string `json:"message"`

	parsedProjectID id.ProjectID
	parsedInterval  models.Interval
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CheckoutRequest) Validate() error {
	if !govalidator.IsUUID(r.ProjectID) {
		return dErrors.New(dErrors.CodeValidation, "project_id must be a UUID")
	}
	projectID, err := id.ParseProjectID(r.ProjectID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "project_id must be a UUID")
	}
	r.parsedProjectID = projectID

	if r.Amount <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if len(r.Message) > 500 {
		return dErrors.New(dErrors.CodeValidation, "message must be at most 500 characters")
	}
	if r.Recurring {
		interval, err := models.ParseInterval(r.Interval)
		if err != nil {
			return err
		}
		r.parsedInterval = interval
	}
	return nil
}

// ParsedProjectID returns the validated project id.
func (r *CheckoutRequest) ParsedProjectID() id.ProjectID { return r.parsedProjectID }

// ParsedInterval returns the validated interval; zero for one-time donations.
func (r *CheckoutRequest) ParsedInterval() models.Interval { return r.parsedInterval }

// ConfirmRequest is the HTTP request body for POST /api/donations/confirm.
// Same shape as checkout; the confirm path records what was paid.
type ConfirmRequest struct {
	CheckoutRequest
}

// UpdateRecurringRequest is the HTTP request body for
// PATCH /api/recurring-donations/{id}. Absent fields stay unchanged.
type UpdateRecurringRequest struct {
	Amount   *int64  `json:"amount"`
	Interval *string `json:"interval"`

	parsedAmount   *id.Money
	parsedInterval *models.Interval
}

// Validate validates and parses the request.
func (r *UpdateRecurringRequest) Validate() error {
	if r.Amount == nil && r.Interval == nil {
		return dErrors.New(dErrors.CodeValidation, "nothing to update")
	}
	if r.Amount != nil {
		if *r.Amount <= 0 {
			return dErrors.New(dErrors.CodeValidation, "amount must be positive")
		}
		amount := id.Money(*r.Amount)
		r.parsedAmount = &amount
	}
	if r.Interval != nil {
		interval, err := models.ParseInterval(*r.Interval)
		if err != nil {
			return err
		}
		r.parsedInterval = &interval
	}
	return nil
}

// ParsedAmount returns the validated amount, or nil when unchanged.
func (r *UpdateRecurringRequest) ParsedAmount() *id.Money { return r.parsedAmount }

// ParsedInterval returns the validated interval, or nil when unchanged.
func (r *UpdateRecurringRequest) ParsedInterval() *models.Interval { return r.parsedInterval }
