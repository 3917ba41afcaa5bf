// Package postgres records table build history in Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/annotation-tables/internal/orchestrator"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "table_builds"

// BuildStoreConfig controls the Postgres connection pool used for build history rows.
type BuildStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type txBeginner interface {
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// BuildStore writes one row per attempted job of every run. It satisfies
// orchestrator.ReportSink.
type BuildStore struct {
	pool  txBeginner
	table string
}

var _ orchestrator.ReportSink = (*BuildStore)(nil)

// NewBuildStore creates a Postgres-backed BuildStore using the provided config.
func NewBuildStore(ctx context.Context, cfg BuildStoreConfig) (*BuildStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("history.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &BuildStore{pool: pool, table: table}, nil
}

// NewBuildStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewBuildStoreWithPool(pool txBeginner, table string) (*BuildStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &BuildStore{pool: pool, table: name}, nil
}

// Close releases the underlying pool resources.
func (s *BuildStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Consume inserts the report's job rows in a single transaction.
func (s *BuildStore) Consume(ctx context.Context, report orchestrator.Report) (err error) {
	if s == nil || s.pool == nil {
		return fmt.Errorf("build store is not configured")
	}
	if len(report.Jobs) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	job_id,
	outcome,
	output_path,
	ref_genome,
	started_at,
	elapsed_ms,
	error_message
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`, s.table)

	for _, job := range report.Jobs {
		var errMsg *string
		if job.Error != "" {
			msg := job.Error
			errMsg = &msg
		}
		args := []any{
			report.RunID,
			job.ID,
			string(job.Outcome),
			job.OutputPath,
			report.RefGenome,
			job.StartedAt,
			job.Elapsed.Milliseconds(),
			errMsg,
		}
		if _, err = tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert build %s: %w", job.ID, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func tableName(table string) (string, error) {
	if table == "" {
		return defaultTable, nil
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}
