// Package donation provides storage for one-time donation records, which are
// immutable once created apart from token-to-account migration.
package donation

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
	records map[id.DonationID]*models.Donation
}

// NewInMemory creates an empty in-memory donation store.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.DonationID]*models.Donation)}
}

func clone(d *models.Donation) *models.Donation {
	cp := *d
	return &cp
}

func (s *InMemory) Create(ctx context.Context, d *models.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[d.ID]; ok {
		return sentinel.ErrConflict
	}
	s.records[d.ID] = clone(d)
	return nil
}

func (s *InMemory) ListByDonor(ctx context.Context, donor models.Donor) ([]*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Donation
	for _, d := range s.records {
		if d.Donor == donor {
			out = append(out, clone(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListByProject(ctx context.Context, projectID id.ProjectID, limit, offset int) ([]*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*models.Donation
	for _, d := range s.records {
		if d.ProjectID == projectID {
			all = append(all, clone(d))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// MigrateToken reassigns every token-attributed donation to the account.
func (s *InMemory) MigrateToken(ctx context.Context, token string, userID id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	donor := models.TokenDonor(token)
	count := 0
	for _, d := range s.records {
		if d.Donor == donor {
			d.Donor = models.UserDonor(userID)
			count++
		}
	}
	return count, nil
}
