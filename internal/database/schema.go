package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a statement. *pgxpool.Pool implements it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema statements, applied in order. All are idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS price_ticks (
		time    TIMESTAMPTZ      NOT NULL,
		symbol  TEXT             NOT NULL,
		price   DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (symbol, time)
	)`,
	`CREATE INDEX IF NOT EXISTS price_ticks_time_idx ON price_ticks (time DESC)`,
}

// hypertableSQL converts price_ticks into a hypertable when the
// timescaledb extension is installed.
const hypertableSQL = `SELECT create_hypertable('price_ticks', 'time', if_not_exists => TRUE)`

// EnsureSchema creates the tick table. A plain PostgreSQL server without
// TimescaleDB still works; the hypertable step is skipped with a warning.
func EnsureSchema(ctx context.Context, db Execer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	for _, stmt := range Schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	if _, err := db.Exec(ctx, hypertableSQL); err != nil {
		logger.Warn("price_ticks is not a hypertable", "error", err)
	}

	return nil
}
