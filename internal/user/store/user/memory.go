// Package user provides storage for accounts.
package user

import (
	"context"
	"sort"
	"sync"

	"givers/internal/user/models"
	id "givers/pkg/domain"
	"givers/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded map store.
type InMemory struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

// NewInMemory creates an empty in-memory user store.
func NewInMemory() *InMemory {
	return &InMemory{users: make(map[id.UserID]*models.User)}
}

func clone(u *models.User) *models.User {
	cp := *u
	if u.SuspendedAt != nil {
		t := *u.SuspendedAt
		cp.SuspendedAt = &t
	}
	return &cp
}

func (s *InMemory) Create(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return sentinel.ErrConflict
	}
	s.users[u.ID] = clone(u)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(u), nil
}

func (s *InMemory) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*models.User
	for _, u := range s.users {
		all = append(all, clone(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *InMemory) Update(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.users[u.ID] = clone(u)
	return nil
}

// Execute atomically validates and mutates a user while holding the store lock.
func (s *InMemory) Execute(ctx context.Context, userID id.UserID,
	validate func(*models.User) error,
	apply func(*models.User),
) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(u); err != nil {
		return nil, err
	}
	apply(u)
	return clone(u), nil
}
