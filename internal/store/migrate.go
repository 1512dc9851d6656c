package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

type Migration struct {
	Version     int
	Description string
	Up          []string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Create job_applications table",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS job_applications (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  company_name TEXT NOT NULL,
  job_title TEXT NOT NULL,
  status TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  job_url TEXT NOT NULL DEFAULT '',
  salary_min INTEGER,
  salary_max INTEGER,
  applied_date TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`,
			`CREATE INDEX IF NOT EXISTS idx_job_applications_status
ON job_applications(status);`,
			`CREATE INDEX IF NOT EXISTS idx_job_applications_updated_at
ON job_applications(updated_at DESC);`,
		},
	},
	{
		Version:     2,
		Description: "Index created_at and company_name lookups",
		Up: []string{
			`CREATE INDEX IF NOT EXISTS idx_job_applications_created_at
ON job_applications(created_at);`,
			`CREATE INDEX IF NOT EXISTS idx_job_applications_company
ON job_applications(company_name COLLATE NOCASE);`,
		},
	},
}

// Migrations returns the known schema migrations in version order.
func Migrations() []Migration {
	out := make([]Migration, len(migrations))
	copy(out, migrations)
	return out
}

func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// Migrate applies every migration newer than PRAGMA user_version, each in
// its own transaction together with the version bump.
func Migrate(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		logger.Info("Applying migration",
			zap.Int("version", m.Version),
			zap.String("description", m.Description),
		)
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.Version, err)
		}
		current = m.Version
	}

	logger.Debug("Schema up to date", zap.Int("version", current))
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.Up {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	// PRAGMA does not accept bound parameters
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, m.Version)); err != nil {
		return err
	}
	return tx.Commit()
}
