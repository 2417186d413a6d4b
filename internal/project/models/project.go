package models

import (
	"strings"
	"time"

	"givers/internal/funding"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
)

// ProjectStatus is the project lifecycle state. Frozen and deleted projects
// remain readable but accept no new donations.
type ProjectStatus string

const (
	ProjectStatusActive  ProjectStatus = "active"
	ProjectStatusFrozen  ProjectStatus = "frozen"
	ProjectStatusDeleted ProjectStatus = "deleted"
)

// Project is the aggregate root for a funded project.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - MonthlyTarget is always funding.ResolveMonthlyTarget(Pledge); it is a
//     cache of the resolver, never a second source of truth
//   - Alerts, when set, satisfy critical < warning (enforced at write time)
//   - Pledge configuration is mutated only by the owner
type Project struct {
	ID          id.ProjectID  `json:"id"`
	OwnerID     id.UserID     `json:"owner_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`

	Pledge funding.PledgeConfig `json:"pledge"`
	// MonthlyTarget caches ResolveMonthlyTarget(Pledge); recomputed on every
	// pledge edit so consumers never read a stale target.
	MonthlyTarget id.Money                 `json:"monthly_target"`
	Alerts        *funding.AlertThresholds `json:"alerts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Donatable reports whether the project accepts new donations.
func (p *Project) Donatable() bool {
	return p.Status == ProjectStatusActive
}

// ApplyPledge replaces the pledge configuration and recomputes the cached
// target. Callers validate cost items first.
func (p *Project) ApplyPledge(cfg funding.PledgeConfig, now time.Time) {
	p.Pledge = cfg
	p.MonthlyTarget = funding.ResolveMonthlyTarget(cfg)
	p.UpdatedAt = now
}

// ApplyAlerts replaces the alert thresholds. Callers validate first.
func (p *Project) ApplyAlerts(th funding.AlertThresholds, now time.Time) {
	p.Alerts = &th
	p.UpdatedAt = now
}

// NewProject constructs an active project with an empty pledge configuration.
func NewProject(projectID id.ProjectID, ownerID id.UserID, name, description string, now time.Time) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "project name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "project name must be 128 characters or less")
	}
	return &Project{
		ID:          projectID,
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Status:      ProjectStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
