// Package project provides storage for project aggregates. InMemory backs
// tests and local development; PostgresStore is the production path.
package project

import (
	"context"
	"sync"

	"givers/internal/funding"
	"givers/internal/project/models"
	id "givers/pkg/domain"
	"givers/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded map store.
type InMemory struct {
	mu       sync.RWMutex
	projects map[id.ProjectID]*models.Project
}

// NewInMemory creates an empty in-memory project store.
func NewInMemory() *InMemory {
	return &InMemory{projects: make(map[id.ProjectID]*models.Project)}
}

func clone(p *models.Project) *models.Project {
	cp := *p
	if p.Pledge.CostItems != nil {
		cp.Pledge.CostItems = append([]funding.CostItem(nil), p.Pledge.CostItems...)
	}
	if p.Pledge.OwnerWantMonthly != nil {
		want := *p.Pledge.OwnerWantMonthly
		cp.Pledge.OwnerWantMonthly = &want
	}
	if p.Alerts != nil {
		alerts := *p.Alerts
		cp.Alerts = &alerts
	}
	return &cp
}

func (s *InMemory) Create(ctx context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return sentinel.ErrConflict
	}
	s.projects[p.ID] = clone(p)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, projectID id.ProjectID) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *InMemory) ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Project
	for _, p := range s.projects {
		if p.OwnerID == ownerID {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (s *InMemory) Update(ctx context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.projects[p.ID] = clone(p)
	return nil
}

// Execute atomically validates and mutates a project while holding the store
// lock, so no caller observes a half-applied edit.
func (s *InMemory) Execute(ctx context.Context, projectID id.ProjectID,
	validate func(*models.Project) error,
	apply func(*models.Project),
) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	apply(p)
	return clone(p), nil
}
