package health

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	_ "github.com/lib/pq"
)

// PostgresChecker probes PostgreSQL through a separate database/sql handle,
// so a saturated application pool does not mask a healthy server
type PostgresChecker struct {
	BaseChecker
	db   *sql.DB
	host string
}

// NewPostgresChecker creates a new PostgreSQL checker
func NewPostgresChecker(dsn string) (*PostgresChecker, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	host := "localhost"
	if u, err := url.Parse(dsn); err == nil && u.Host != "" {
		host = u.Host
	}

	return &PostgresChecker{
		BaseChecker: BaseChecker{name: "postgres"},
		db:          db,
		host:        host,
	}, nil
}

// Check verifies PostgreSQL connectivity and that the schema was migrated
func (c *PostgresChecker) Check(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres at %s: %w", c.host, err)
	}

	var applied int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}

	if applied == 0 {
		slog.Warn("postgres reachable but no migrations applied", "host", c.host)
		return fmt.Errorf("no migrations applied")
	}

	return nil
}

// Close closes the underlying handle
func (c *PostgresChecker) Close() error {
	return c.db.Close()
}
