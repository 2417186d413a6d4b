// Package health stores the singleton platform health configuration.
package health

import (
	"context"
	"sync"

	"givers/internal/platformhealth"
)

// InMemory holds the singleton config behind a mutex.
type InMemory struct {
	mu  sync.RWMutex
	cfg platformhealth.Config
}

// NewInMemory creates an unconfigured in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Get returns the config; the zero value when never configured.
func (s *InMemory) Get(ctx context.Context) (*platformhealth.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.cfg
	if s.cfg.Alerts != nil {
		alerts := *s.cfg.Alerts
		cfg.Alerts = &alerts
	}
	return &cfg, nil
}

func (s *InMemory) Put(ctx context.Context, cfg *platformhealth.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = *cfg
	if cfg.Alerts != nil {
		alerts := *cfg.Alerts
		s.cfg.Alerts = &alerts
	}
	return nil
}
