package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// Migration represents a single schema migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// ApplyMigrations applies the given migrations in version order, recording
// applied versions in schema_migrations under the given component name so
// each package can keep its own numbering. Safe to run repeatedly.
func ApplyMigrations(ctx context.Context, db *sql.DB, component string, migrations []Migration) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			component TEXT NOT NULL,
			version INTEGER NOT NULL,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			PRIMARY KEY (component, version)
		)
	`); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for _, m := range sorted {
		applied, err := migrationApplied(ctx, db, component, m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %s/%d: %w", component, m.Version, err)
		}

		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %s/%d (%s) failed: %w", component, m.Version, m.Description, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (component, version, description, applied_at) VALUES ($1, $2, $3, $4)`,
			component, m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s/%d: %w", component, m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s/%d: %w", component, m.Version, err)
		}
	}

	return nil
}

func migrationApplied(ctx context.Context, db *sql.DB, component string, version int) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE component = $1 AND version = $2`,
		component, version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %s/%d: %w", component, version, err)
	}
	return count > 0, nil
}
