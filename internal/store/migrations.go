package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// CurrentSchemaVersion tracks the database schema version.
const CurrentSchemaVersion = "1.0.0"

// Migration represents one database schema migration.
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains every migration in apply order.
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- One row per mapped repository
CREATE TABLE IF NOT EXISTS bundles (
    repo_path TEXT PRIMARY KEY,
    generation_id TEXT NOT NULL,
    generated_at TEXT NOT NULL,
    entity_count INTEGER NOT NULL DEFAULT 0,
    payload BLOB NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_bundles_generated_at ON bundles(generated_at);
`

const migrationV1Down = `
DROP TABLE IF EXISTS bundles;
`

// ApplyMigrations runs every migration newer than the recorded schema
// version.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)

	var currentVersion *semver.Version
	if err == sql.ErrNoRows {
		currentVersion = semver.MustParse("0.0.0")
	} else if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	} else {
		var currentVersionStr string
		err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersionStr)
		if err == sql.ErrNoRows || currentVersionStr == "" {
			currentVersion = semver.MustParse("0.0.0")
		} else if err != nil {
			return fmt.Errorf("read schema_version: %w", err)
		} else {
			currentVersion, err = semver.NewVersion(currentVersionStr)
			if err != nil {
				return fmt.Errorf("invalid current schema version %s: %w", currentVersionStr, err)
			}
		}
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}
		if !currentVersion.LessThan(migrationVersion) {
			continue // already applied
		}
		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("apply migration %s: %w", migration.Version, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("record migration %s: %w", migration.Version, err)
		}
		currentVersion = migrationVersion
	}
	return nil
}

// RollbackMigration rolls back the most recent migration.
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	var currentVersion string
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("no migrations to rollback: %w", err)
	}

	var migration *Migration
	for i := range AllMigrations {
		if AllMigrations[i].Version == currentVersion {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", currentVersion)
	}

	if _, err := db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("rollback migration %s: %w", currentVersion, err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", currentVersion); err != nil {
		return fmt.Errorf("remove migration record %s: %w", currentVersion, err)
	}
	return nil
}
