// Package platformhealth tracks the platform's own funding figure: the
// operator-configured monthly cost evaluated against the live monthly total
// of every active recurring donation, platform-wide. It backs the health mark
// shown in navigation.
package platformhealth

import (
	"context"
	"log/slog"
	"time"

	"givers/internal/funding"
	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
	"givers/pkg/requestcontext"
)

// Config is the singleton operator configuration: what running the platform
// costs per month, and optional alert thresholds. A zero MonthlyCost means
// the figure is unconfigured and no signal is shown.
type Config struct {
	MonthlyCost id.Money                 `json:"monthly_cost"`
	Alerts      *funding.AlertThresholds `json:"alerts,omitempty"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// Health is the evaluated platform figure.
type Health struct {
	funding.Achievement
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists the singleton config.
type Store interface {
	Get(ctx context.Context) (*Config, error)
	Put(ctx context.Context, cfg *Config) error
}

// Totals is the slice of the donation vertical this service reads.
type Totals interface {
	PlatformMonthlyTotal(ctx context.Context) (id.Money, error)
}

// Service evaluates and configures platform health.
type Service struct {
	store  Store
	totals Totals
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New constructs a platform health Service.
func New(store Store, totals Totals, opts ...Option) *Service {
	s := &Service{store: store, totals: totals, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Health evaluates the platform figure with the shared funding evaluator.
// Public: anyone may see the platform's health mark.
func (s *Service) Health(ctx context.Context) (*Health, error) {
	cfg, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.totals.PlatformMonthlyTotal(ctx)
	if err != nil {
		return nil, err
	}
	return &Health{
		Achievement: funding.EvaluateAchievement(cfg.MonthlyCost, current, cfg.Alerts),
		UpdatedAt:   cfg.UpdatedAt,
	}, nil
}

// UpdateConfig replaces the singleton config. Host only; thresholds are
// validated at write time like project alerts.
func (s *Service) UpdateConfig(ctx context.Context, monthlyCost id.Money, alerts *funding.AlertThresholds) (*Config, error) {
	if !requestcontext.IsHost(ctx) {
		return nil, dErrors.New(dErrors.CodeForbidden, "host role required")
	}
	if monthlyCost < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "monthly cost cannot be negative")
	}
	if alerts != nil {
		if err := alerts.Validate(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		MonthlyCost: monthlyCost,
		Alerts:      alerts,
		UpdatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.Put(ctx, cfg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store platform config")
	}

	s.logger.InfoContext(ctx, "platform health config updated",
		slog.Int64("monthly_cost", int64(monthlyCost)))
	return cfg, nil
}
