package postgres

import (
	"context"
	"fmt"

	"doc-splitter/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DSN builds a libpq keyword/value connection string.
func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
}

func NewPool(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.DBName),
	)

	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS page_analyses (
    id             UUID PRIMARY KEY,
    user_id        UUID NOT NULL,
    document_name  TEXT NOT NULL DEFAULT '',
    page_count     INTEGER NOT NULL,
    strategy       TEXT NOT NULL,
    fallback       BOOLEAN NOT NULL DEFAULT FALSE,
    total_invoices INTEGER NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_page_analyses_user_created ON page_analyses (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS page_groups (
    analysis_id          UUID NOT NULL REFERENCES page_analyses(id) ON DELETE CASCADE,
    invoice_number       INTEGER NOT NULL,
    pages                INTEGER[] NOT NULL,
    confidence           DOUBLE PRECISION NOT NULL,
    reasoning            TEXT NOT NULL DEFAULT '',
    is_expensify_export  BOOLEAN NOT NULL DEFAULT FALSE,
    expensify_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    expensify_indicators TEXT[] NOT NULL DEFAULT '{}',
    expensify_reason     TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (analysis_id, invoice_number)
);
`

// Migrate creates the analysis tables when they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
