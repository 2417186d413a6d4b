package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"givers/internal/funding"
	"givers/internal/project/models"
	id "givers/pkg/domain"
	"givers/pkg/platform/sentinel"
	"givers/pkg/platform/tx"
)

// PostgresStore persists projects in PostgreSQL. The pledge configuration is
// stored as JSONB since the resolver only ever consumes it whole.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed project store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if dbTx, ok := tx.From(ctx); ok {
		return dbTx
	}
	return s.db
}

const projectCols = `id, owner_id, name, description, status, pledge, monthly_target,
	warning_threshold, critical_threshold, created_at, updated_at`

func scanProject(scan func(...any) error) (*models.Project, error) {
	var (
		p          models.Project
		projectID  uuid.UUID
		ownerID    uuid.UUID
		pledgeJSON []byte
		warning    sql.NullInt64
		critical   sql.NullInt64
	)
	err := scan(&projectID, &ownerID, &p.Name, &p.Description, &p.Status, &pledgeJSON,
		&p.MonthlyTarget, &warning, &critical, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = id.ProjectID(projectID)
	p.OwnerID = id.UserID(ownerID)
	if len(pledgeJSON) > 0 {
		if err := json.Unmarshal(pledgeJSON, &p.Pledge); err != nil {
			return nil, fmt.Errorf("decode pledge config: %w", err)
		}
	}
	if warning.Valid && critical.Valid {
		p.Alerts = &funding.AlertThresholds{
			WarningThreshold:  int(warning.Int64),
			CriticalThreshold: int(critical.Int64),
		}
	}
	return &p, nil
}

func alertCols(p *models.Project) (warning, critical sql.NullInt64) {
	if p.Alerts != nil {
		warning = sql.NullInt64{Int64: int64(p.Alerts.WarningThreshold), Valid: true}
		critical = sql.NullInt64{Int64: int64(p.Alerts.CriticalThreshold), Valid: true}
	}
	return warning, critical
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Project) error {
	pledgeJSON, err := json.Marshal(p.Pledge)
	if err != nil {
		return fmt.Errorf("encode pledge config: %w", err)
	}
	warning, critical := alertCols(p)
	_, err = s.q(ctx).ExecContext(ctx,
		`INSERT INTO projects
		 (id, owner_id, name, description, status, pledge, monthly_target,
		  warning_threshold, critical_threshold, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(p.ID), uuid.UUID(p.OwnerID), p.Name, p.Description, p.Status,
		pledgeJSON, p.MonthlyTarget, warning, critical, p.CreatedAt, p.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, projectID id.ProjectID) (*models.Project, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+projectCols+` FROM projects WHERE id = $1`, uuid.UUID(projectID))
	p, err := scanProject(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Project, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+projectCols+` FROM projects WHERE owner_id = $1 ORDER BY created_at`,
		uuid.UUID(ownerID))
	if err != nil {
		return nil, fmt.Errorf("list projects by owner: %w", err)
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Project) error {
	pledgeJSON, err := json.Marshal(p.Pledge)
	if err != nil {
		return fmt.Errorf("encode pledge config: %w", err)
	}
	warning, critical := alertCols(p)
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE projects
		 SET name = $2, description = $3, status = $4, pledge = $5, monthly_target = $6,
		     warning_threshold = $7, critical_threshold = $8, updated_at = $9
		 WHERE id = $1`,
		uuid.UUID(p.ID), p.Name, p.Description, p.Status, pledgeJSON, p.MonthlyTarget,
		warning, critical, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Execute loads the project FOR UPDATE, validates, applies, and writes back
// in one transaction so concurrent edits cannot interleave.
func (s *PostgresStore) Execute(ctx context.Context, projectID id.ProjectID,
	validate func(*models.Project) error,
	apply func(*models.Project),
) (*models.Project, error) {
	if _, ok := tx.From(ctx); ok {
		return s.executeLocked(ctx, projectID, validate, apply)
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin project update: %w", err)
	}
	p, err := s.executeLocked(tx.WithTx(ctx, dbTx), projectID, validate, apply)
	if err != nil {
		_ = dbTx.Rollback()
		return nil, err
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit project update: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) executeLocked(ctx context.Context, projectID id.ProjectID,
	validate func(*models.Project) error,
	apply func(*models.Project),
) (*models.Project, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+projectCols+` FROM projects WHERE id = $1 FOR UPDATE`, uuid.UUID(projectID))
	p, err := scanProject(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock project: %w", err)
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	apply(p)
	if err := s.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
