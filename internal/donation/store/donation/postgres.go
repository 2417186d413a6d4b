package donation

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

// PostgresStore persists one-time donations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed donation store.
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

const donationCols = `id, project_id, donor_type, donor_ref, amount, COALESCE(message, ''), created_at`

func scanDonation(scan func(...any) error) (*models.Donation, error) {
	var (
		d          models.Donation
		donationID uuid.UUID
		projectID  uuid.UUID
	)
	err := scan(&donationID, &projectID, &d.Donor.Type, &d.Donor.Ref, &d.Amount,
		&d.Message, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.ID = id.DonationID(donationID)
	d.ProjectID = id.ProjectID(projectID)
	return &d, nil
}

func (s *PostgresStore) Create(ctx context.Context, d *models.Donation) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO donations (id, project_id, donor_type, donor_ref, amount, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`,
		uuid.UUID(d.ID), uuid.UUID(d.ProjectID), d.Donor.Type, d.Donor.Ref,
		d.Amount, d.Message, d.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create donation: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByDonor(ctx context.Context, donor models.Donor) ([]*models.Donation, error) {
	return s.list(ctx,
		`SELECT `+donationCols+` FROM donations
		 WHERE donor_type = $1 AND donor_ref = $2
		 ORDER BY created_at DESC`,
		donor.Type, donor.Ref)
}

func (s *PostgresStore) ListByProject(ctx context.Context, projectID id.ProjectID, limit, offset int) ([]*models.Donation, error) {
	return s.list(ctx,
		`SELECT `+donationCols+` FROM donations
		 WHERE project_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		uuid.UUID(projectID), limit, offset)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Donation, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var out []*models.Donation
	for rows.Next() {
		d, err := scanDonation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MigrateToken reassigns token-attributed donations to an account in a single
// UPDATE.
func (s *PostgresStore) MigrateToken(ctx context.Context, token string, userID id.UserID) (int, error) {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE donations SET donor_type = 'user', donor_ref = $1
		 WHERE donor_type = 'token' AND donor_ref = $2`,
		userID.String(), token)
	if err != nil {
		return 0, fmt.Errorf("migrate donations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
