package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"givers/internal/funding"
	"givers/internal/platformhealth"
)

// PostgresStore persists the singleton config as a fixed single row.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed platform health store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get returns the config; the zero value when the row was never written.
func (s *PostgresStore) Get(ctx context.Context) (*platformhealth.Config, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT monthly_cost, warning_threshold, critical_threshold, updated_at
		 FROM platform_health WHERE id = 1`)

	var (
		cfg      platformhealth.Config
		warning  sql.NullInt64
		critical sql.NullInt64
	)
	err := row.Scan(&cfg.MonthlyCost, &warning, &critical, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &platformhealth.Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get platform health config: %w", err)
	}
	if warning.Valid && critical.Valid {
		cfg.Alerts = &funding.AlertThresholds{
			WarningThreshold:  int(warning.Int64),
			CriticalThreshold: int(critical.Int64),
		}
	}
	return &cfg, nil
}

func (s *PostgresStore) Put(ctx context.Context, cfg *platformhealth.Config) error {
	var warning, critical sql.NullInt64
	if cfg.Alerts != nil {
		warning = sql.NullInt64{Int64: int64(cfg.Alerts.WarningThreshold), Valid: true}
		critical = sql.NullInt64{Int64: int64(cfg.Alerts.CriticalThreshold), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO platform_health (id, monthly_cost, warning_threshold, critical_threshold, updated_at)
		 VALUES (1, $1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET monthly_cost = EXCLUDED.monthly_cost,
		     warning_threshold = EXCLUDED.warning_threshold,
		     critical_threshold = EXCLUDED.critical_threshold,
		     updated_at = EXCLUDED.updated_at`,
		cfg.MonthlyCost, warning, critical, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put platform health config: %w", err)
	}
	return nil
}
