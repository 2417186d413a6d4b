// Package recurring provides storage for recurring donation records.
//
// Deleted records stay in the backing table with status 'deleted' but are
// invisible to every listing; cancelled records remain listed. Both are
// excluded from active-only aggregates.
package recurring

import (
	"context"
	"sort"
	"sync"

	"givers/internal/donation/models"
	id "givers/pkg/domain"
	"givers/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded map store.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.RecurringDonationID]*models.RecurringDonation
}

// NewInMemory creates an empty in-memory recurring donation store.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.RecurringDonationID]*models.RecurringDonation)}
}

func clone(r *models.RecurringDonation) *models.RecurringDonation {
	cp := *r
	return &cp
}

func (s *InMemory) Create(ctx context.Context, r *models.RecurringDonation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; ok {
		return sentinel.ErrConflict
	}
	s.records[r.ID] = clone(r)
	return nil
}

// FindByID returns a record unless it has been deleted; deleted records are
// indistinguishable from never-existing ones.
func (s *InMemory) FindByID(ctx context.Context, recurringID id.RecurringDonationID) (*models.RecurringDonation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recurringID]
	if !ok || r.Status == models.StatusDeleted {
		return nil, sentinel.ErrNotFound
	}
	return clone(r), nil
}

// ListByDonor returns the donor's history, cancelled included, deleted
// excluded, newest first.
func (s *InMemory) ListByDonor(ctx context.Context, donor models.Donor) ([]*models.RecurringDonation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.RecurringDonation
	for _, r := range s.records {
		if r.Donor == donor && r.Status != models.StatusDeleted {
			out = append(out, clone(r))
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

// ListByProject returns a project's recurring donations, cancelled included,
// deleted excluded, newest first.
func (s *InMemory) ListByProject(ctx context.Context, projectID id.ProjectID) ([]*models.RecurringDonation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.RecurringDonation
	for _, r := range s.records {
		if r.ProjectID == projectID && r.Status != models.StatusDeleted {
			out = append(out, clone(r))
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

// ActiveByProject returns only Active records; Paused donations are excluded
// from aggregates.
func (s *InMemory) ActiveByProject(ctx context.Context, projectID id.ProjectID) ([]*models.RecurringDonation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.RecurringDonation
	for _, r := range s.records {
		if r.ProjectID == projectID && r.Status == models.StatusActive {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

// ActiveAll returns every Active record across all projects, for the
// platform-wide aggregate.
func (s *InMemory) ActiveAll(ctx context.Context) ([]*models.RecurringDonation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.RecurringDonation
	for _, r := range s.records {
		if r.Status == models.StatusActive {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

// Execute atomically validates and mutates a record while holding the store
// lock. Deleted records are not found.
func (s *InMemory) Execute(ctx context.Context, recurringID id.RecurringDonationID,
	validate func(*models.RecurringDonation) error,
	apply func(*models.RecurringDonation),
) (*models.RecurringDonation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recurringID]
	if !ok || r.Status == models.StatusDeleted {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	apply(r)
	return clone(r), nil
}

// MigrateToken reassigns every token-attributed record to the given account
// in one pass and reports how many changed.
func (s *InMemory) MigrateToken(ctx context.Context, token string, userID id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	donor := models.TokenDonor(token)
	count := 0
	for _, r := range s.records {
		if r.Donor == donor {
			r.Donor = models.UserDonor(userID)
			count++
		}
	}
	return count, nil
}

func sortByCreatedDesc(list []*models.RecurringDonation) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
