package handler

import (
	"strings"

	"givers/internal/funding"
	"givers/internal/project/models"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
)

// CreateProjectRequest is the HTTP request body for POST /api/projects.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateProjectRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > 128 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 128 characters")
	}
	return nil
}

// UpdateStatusRequest is the HTTP request body for PATCH /api/projects/{id}.
type UpdateStatusRequest struct {
	Status string `json:"status"`

	parsedStatus models.ProjectStatus
}

// Validate validates and parses the request.
func (r *UpdateStatusRequest) Validate() error {
	switch models.ProjectStatus(r.Status) {
	case models.ProjectStatusActive, models.ProjectStatusFrozen, models.ProjectStatusDeleted:
		r.parsedStatus = models.ProjectStatus(r.Status)
		return nil
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unknown status %q", r.Status)
	}
}

// ParsedStatus returns the validated status.
func (r *UpdateStatusRequest) ParsedStatus() models.ProjectStatus {
	return r.parsedStatus
}

// PledgeRequest is the HTTP request body for PUT /api/projects/{id}/pledge.
type PledgeRequest struct {
	OwnerWantMonthly *int64            `json:"owner_want_monthly"`
	CostItems        []CostItemRequest `json:"cost_items"`
}

// CostItemRequest is one cost line in a pledge request.
type CostItemRequest struct {
	Label     string `json:"label"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Validate validates the request. Blank rows are allowed here; the resolver
// drops them.
func (r *PledgeRequest) Validate() error {
	if r.OwnerWantMonthly != nil && *r.OwnerWantMonthly < 0 {
		return dErrors.New(dErrors.CodeValidation, "owner_want_monthly must not be negative")
	}
	if len(r.CostItems) > 100 {
		return dErrors.New(dErrors.CodeValidation, "at most 100 cost items")
	}
	return nil
}

// ToConfig converts the request to a pledge configuration.
func (r *PledgeRequest) ToConfig() funding.PledgeConfig {
	cfg := funding.PledgeConfig{}
	if r.OwnerWantMonthly != nil {
		want := id.Money(*r.OwnerWantMonthly)
		cfg.OwnerWantMonthly = &want
	}
	for _, item := range r.CostItems {
		cfg.CostItems = append(cfg.CostItems, funding.CostItem{
			Label:     item.Label,
			UnitPrice: id.Money(item.UnitPrice),
			Quantity:  item.Quantity,
		})
	}
	return cfg
}

// AlertsRequest is the HTTP request body for PUT /api/projects/{id}/alerts.
type AlertsRequest struct {
	WarningThreshold  int `json:"warning_threshold"`
	CriticalThreshold int `json:"critical_threshold"`
}

// Validate defers to the domain rule so ordering is enforced in one place.
func (r *AlertsRequest) Validate() error {
	return r.ToThresholds().Validate()
}

// ToThresholds converts the request to domain thresholds.
func (r *AlertsRequest) ToThresholds() funding.AlertThresholds {
	return funding.AlertThresholds{
		WarningThreshold:  r.WarningThreshold,
		CriticalThreshold: r.CriticalThreshold,
	}
}
