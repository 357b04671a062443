// Package postgres upserts aggregated area wages into PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/puma-wage-map/internal/domain"

	_ "github.com/lib/pq"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS puma_hourly_wages (
	geoid           TEXT PRIMARY KEY,
	avg_hourly_wage DOUBLE PRECISION NOT NULL,
	computed_at     TIMESTAMPTZ      NOT NULL
);`

const upsertSQL = `
INSERT INTO puma_hourly_wages (geoid, avg_hourly_wage, computed_at)
VALUES ($1, $2, $3)
ON CONFLICT (geoid) DO UPDATE
SET avg_hourly_wage = EXCLUDED.avg_hourly_wage,
    computed_at     = EXCLUDED.computed_at`

// Writer stores area wages in the puma_hourly_wages table.
// It implements pipeline.WageLoader.
type Writer struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWriter opens a connection pool for dsn and verifies it with a ping.
func NewWriter(ctx context.Context, dsn string, logger *slog.Logger) (*Writer, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("connected to postgres")
	return &Writer{db: db, logger: logger}, nil
}

// CreateTable creates the wage table if it does not exist.
func (w *Writer) CreateTable(ctx context.Context) error {
	if _, err := w.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create puma_hourly_wages: %w", err)
	}
	return nil
}

// LoadWages upserts every area wage in one transaction. Any failed row
// rolls the whole batch back.
func (w *Writer) LoadWages(ctx context.Context, result domain.AggregateResult) (err error) {
	if len(result.Wages) == 0 {
		return nil
	}
	if err := w.CreateTable(ctx); err != nil {
		return err
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	computedAt := result.ComputedAt.UTC()
	for _, aw := range result.Wages {
		if _, err = stmt.ExecContext(ctx, aw.GEOID, aw.AvgHourlyWage, computedAt); err != nil {
			return fmt.Errorf("upsert %s: %w", aw.GEOID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	w.logger.Info("wages upserted", "table", "puma_hourly_wages", "rows", len(result.Wages))
	return nil
}

// Close closes the connection pool.
func (w *Writer) Close() error {
	return w.db.Close()
}
