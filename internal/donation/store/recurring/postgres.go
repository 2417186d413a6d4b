package recurring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"givers/internal/donation/models"
	id "givers/pkg/domain"
	"givers/pkg/platform/sentinel"
	"givers/pkg/platform/tx"
)

// PostgresStore persists recurring donations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed recurring donation store.
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

const recurringCols = `id, project_id, donor_type, donor_ref, amount, "interval", status,
	COALESCE(message, ''), created_at, updated_at`

func scanRecurring(scan func(...any) error) (*models.RecurringDonation, error) {
	var (
		r           models.RecurringDonation
		recurringID uuid.UUID
		projectID   uuid.UUID
	)
	err := scan(&recurringID, &projectID, &r.Donor.Type, &r.Donor.Ref, &r.Amount,
		&r.Interval, &r.Status, &r.Message, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.ID = id.RecurringDonationID(recurringID)
	r.ProjectID = id.ProjectID(projectID)
	return &r, nil
}

func (s *PostgresStore) Create(ctx context.Context, r *models.RecurringDonation) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO recurring_donations
		 (id, project_id, donor_type, donor_ref, amount, "interval", status, message,
		  created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)`,
		uuid.UUID(r.ID), uuid.UUID(r.ProjectID), r.Donor.Type, r.Donor.Ref,
		r.Amount, r.Interval, r.Status, r.Message, r.CreatedAt, r.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create recurring donation: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, recurringID id.RecurringDonationID) (*models.RecurringDonation, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+recurringCols+` FROM recurring_donations
		 WHERE id = $1 AND status <> 'deleted'`, uuid.UUID(recurringID))
	r, err := scanRecurring(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recurring donation: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListByDonor(ctx context.Context, donor models.Donor) ([]*models.RecurringDonation, error) {
	return s.list(ctx,
		`SELECT `+recurringCols+` FROM recurring_donations
		 WHERE donor_type = $1 AND donor_ref = $2 AND status <> 'deleted'
		 ORDER BY created_at DESC`,
		donor.Type, donor.Ref)
}

func (s *PostgresStore) ListByProject(ctx context.Context, projectID id.ProjectID) ([]*models.RecurringDonation, error) {
	return s.list(ctx,
		`SELECT `+recurringCols+` FROM recurring_donations
		 WHERE project_id = $1 AND status <> 'deleted'
		 ORDER BY created_at DESC`,
		uuid.UUID(projectID))
}

func (s *PostgresStore) ActiveByProject(ctx context.Context, projectID id.ProjectID) ([]*models.RecurringDonation, error) {
	return s.list(ctx,
		`SELECT `+recurringCols+` FROM recurring_donations
		 WHERE project_id = $1 AND status = 'active'`,
		uuid.UUID(projectID))
}

func (s *PostgresStore) ActiveAll(ctx context.Context) ([]*models.RecurringDonation, error) {
	return s.list(ctx,
		`SELECT `+recurringCols+` FROM recurring_donations WHERE status = 'active'`)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.RecurringDonation, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring donations: %w", err)
	}
	defer rows.Close()

	var out []*models.RecurringDonation
	for rows.Next() {
		r, err := scanRecurring(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Execute loads the record FOR UPDATE, validates, applies, and writes back in
// one transaction. A concurrent delete aborts the edit: the locked read sees
// status 'deleted' and reports not found.
func (s *PostgresStore) Execute(ctx context.Context, recurringID id.RecurringDonationID,
	validate func(*models.RecurringDonation) error,
	apply func(*models.RecurringDonation),
) (*models.RecurringDonation, error) {
	if _, ok := tx.From(ctx); ok {
		return s.executeLocked(ctx, recurringID, validate, apply)
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin recurring update: %w", err)
	}
	r, err := s.executeLocked(tx.WithTx(ctx, dbTx), recurringID, validate, apply)
	if err != nil {
		_ = dbTx.Rollback()
		return nil, err
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit recurring update: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) executeLocked(ctx context.Context, recurringID id.RecurringDonationID,
	validate func(*models.RecurringDonation) error,
	apply func(*models.RecurringDonation),
) (*models.RecurringDonation, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+recurringCols+` FROM recurring_donations
		 WHERE id = $1 AND status <> 'deleted' FOR UPDATE`, uuid.UUID(recurringID))
	r, err := scanRecurring(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock recurring donation: %w", err)
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	apply(r)

	_, err = s.q(ctx).ExecContext(ctx,
		`UPDATE recurring_donations
		 SET donor_type = $2, donor_ref = $3, amount = $4, "interval" = $5, status = $6,
		     updated_at = $7
		 WHERE id = $1`,
		uuid.UUID(r.ID), r.Donor.Type, r.Donor.Ref, r.Amount, r.Interval, r.Status, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update recurring donation: %w", err)
	}
	return r, nil
}

// MigrateToken reassigns token-attributed records to an account. A single
// UPDATE keeps the reassignment atomic; callers wrap it in the migration
// transaction alongside the one-time donation pass.
func (s *PostgresStore) MigrateToken(ctx context.Context, token string, userID id.UserID) (int, error) {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE recurring_donations
		 SET donor_type = 'user', donor_ref = $1, updated_at = NOW()
		 WHERE donor_type = 'token' AND donor_ref = $2`,
		userID.String(), token)
	if err != nil {
		return 0, fmt.Errorf("migrate recurring donations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
