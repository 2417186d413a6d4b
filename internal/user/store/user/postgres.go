package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"givers/internal/user/models"
	id "givers/pkg/domain"
	"givers/pkg/platform/sentinel"
	"givers/pkg/platform/tx"
)

// PostgresStore persists accounts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
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

const userCols = `id, email, COALESCE(name, ''), role, suspended_at, pending_token_migration,
	created_at, updated_at`

func scanUser(scan func(...any) error) (*models.User, error) {
	var (
		u           models.User
		userID      uuid.UUID
		suspendedAt sql.NullTime
	)
	err := scan(&userID, &u.Email, &u.Name, &u.Role, &suspendedAt,
		&u.PendingTokenMigration, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.ID = id.UserID(userID)
	if suspendedAt.Valid {
		t := suspendedAt.Time
		u.SuspendedAt = &t
	}
	return &u, nil
}

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	var suspendedAt sql.NullTime
	if u.SuspendedAt != nil {
		suspendedAt = sql.NullTime{Time: *u.SuspendedAt, Valid: true}
	}
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, suspended_at, pending_token_migration,
		  created_at, updated_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)`,
		uuid.UUID(u.ID), u.Email, u.Name, u.Role, suspendedAt,
		u.PendingTokenMigration, u.CreatedAt, u.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, uuid.UUID(userID))
	u, err := scanUser(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+userCols+` FROM users ORDER BY created_at LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	var suspendedAt sql.NullTime
	if u.SuspendedAt != nil {
		suspendedAt = sql.NullTime{Time: *u.SuspendedAt, Valid: true}
	}
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE users
		 SET email = $2, name = NULLIF($3, ''), role = $4, suspended_at = $5,
		     pending_token_migration = $6, updated_at = $7
		 WHERE id = $1`,
		uuid.UUID(u.ID), u.Email, u.Name, u.Role, suspendedAt,
		u.PendingTokenMigration, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
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

// Execute loads the user FOR UPDATE, validates, applies, and writes back in
// one transaction.
func (s *PostgresStore) Execute(ctx context.Context, userID id.UserID,
	validate func(*models.User) error,
	apply func(*models.User),
) (*models.User, error) {
	if _, ok := tx.From(ctx); ok {
		return s.executeLocked(ctx, userID, validate, apply)
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin user update: %w", err)
	}
	u, err := s.executeLocked(tx.WithTx(ctx, dbTx), userID, validate, apply)
	if err != nil {
		_ = dbTx.Rollback()
		return nil, err
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit user update: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) executeLocked(ctx context.Context, userID id.UserID,
	validate func(*models.User) error,
	apply func(*models.User),
) (*models.User, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1 FOR UPDATE`, uuid.UUID(userID))
	u, err := scanUser(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	if err := validate(u); err != nil {
		return nil, err
	}
	apply(u)
	if err := s.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
