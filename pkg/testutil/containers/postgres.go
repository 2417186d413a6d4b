//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                      UUID PRIMARY KEY,
	email                   TEXT NOT NULL UNIQUE,
	name                    TEXT,
	role                    TEXT NOT NULL,
	suspended_at            TIMESTAMPTZ,
	pending_token_migration BOOLEAN NOT NULL DEFAULT FALSE,
	created_at              TIMESTAMPTZ NOT NULL,
	updated_at              TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id                 UUID PRIMARY KEY,
	owner_id           UUID NOT NULL,
	name               TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL,
	pledge             JSONB NOT NULL DEFAULT '{}',
	monthly_target     BIGINT NOT NULL DEFAULT 0,
	warning_threshold  INT,
	critical_threshold INT,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS projects_owner_idx ON projects (owner_id);

CREATE TABLE IF NOT EXISTS donations (
	id         UUID PRIMARY KEY,
	project_id UUID NOT NULL,
	donor_type TEXT NOT NULL,
	donor_ref  TEXT NOT NULL,
	amount     BIGINT NOT NULL,
	message    TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS donations_donor_idx ON donations (donor_type, donor_ref);
CREATE INDEX IF NOT EXISTS donations_project_idx ON donations (project_id);

CREATE TABLE IF NOT EXISTS recurring_donations (
	id         UUID PRIMARY KEY,
	project_id UUID NOT NULL,
	donor_type TEXT NOT NULL,
	donor_ref  TEXT NOT NULL,
	amount     BIGINT NOT NULL,
	"interval" TEXT NOT NULL,
	status     TEXT NOT NULL,
	message    TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS recurring_donor_idx ON recurring_donations (donor_type, donor_ref);
CREATE INDEX IF NOT EXISTS recurring_project_idx ON recurring_donations (project_id, status);

CREATE TABLE IF NOT EXISTS platform_health (
	id                 INT PRIMARY KEY CHECK (id = 1),
	monthly_cost       BIGINT NOT NULL DEFAULT 0,
	warning_threshold  INT,
	critical_threshold INT,
	updated_at         TIMESTAMPTZ NOT NULL
);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	URL       string
}

// NewPostgresContainer starts a new PostgreSQL container and applies the
// schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("givers_test"),
		tcpostgres.WithUsername("givers"),
		tcpostgres.WithPassword("givers"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Shared across suites; Ryuk terminates the container when the test
	// process exits.
	return &PostgresContainer{Container: container, DB: db, URL: url}
}

// TruncateTables empties the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	quoted := make([]string, len(tables))
	for i, table := range tables {
		quoted[i] = fmt.Sprintf("%q", table)
	}
	_, err := p.DB.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(quoted, ", ")))
	return err
}
