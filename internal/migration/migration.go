package migration

import (
	"context"
	"database/sql"

	"bizmetrics/internal/errors"
)

// Execer is the slice of *sqlx.DB the runner needs
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db Execer) error
	Version() string
}

// MigrationRunner handles database schema migrations. Every step is
// idempotent, so Run is safe on every server start.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.1.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db Execer) error {
	if err := r.createExperimentsTable(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to create experiments table")
	}

	if err := r.createMetricReportsTable(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to create metric_reports table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createExperimentsTable(ctx context.Context, db Execer) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS experiments (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			hypothesis TEXT NOT NULL DEFAULT '',
			primary_metric VARCHAR(100) NOT NULL DEFAULT '',
			significance_level DOUBLE PRECISION NOT NULL,
			confidence_level DOUBLE PRECISION NOT NULL,
			minimum_detectable_effect DOUBLE PRECISION,
			status VARCHAR(20) NOT NULL DEFAULT 'draft',
			variants JSONB NOT NULL DEFAULT '[]',
			summaries JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createMetricReportsTable(ctx context.Context, db Execer) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS metric_reports (
			id UUID PRIMARY KEY,
			source VARCHAR(500) NOT NULL DEFAULT '',
			metrics JSONB NOT NULL DEFAULT '[]',
			category VARCHAR(20) NOT NULL DEFAULT '',
			period VARCHAR(20) NOT NULL DEFAULT 'all',
			report JSONB NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db Execer) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_experiments_created_at ON experiments(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_experiments_status ON experiments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_metric_reports_created_at ON metric_reports(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_metric_reports_fingerprint ON metric_reports(fingerprint)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
