package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			CREATE TABLE IF NOT EXISTS alerts (
				id TEXT PRIMARY KEY,
				rule_id TEXT NOT NULL,
				service_name TEXT NOT NULL,
				env TEXT,
				tenant TEXT,
				severity TEXT NOT NULL,
				status TEXT NOT NULL,
				observed REAL NOT NULL DEFAULT 0,
				threshold REAL NOT NULL DEFAULT 0,
				opened_at DATETIME NOT NULL,
				closed_at DATETIME,
				note TEXT
			);

			CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
			CREATE INDEX IF NOT EXISTS idx_alerts_service_rule
				ON alerts(service_name, rule_id, status);
		`,
	},
}

// runMigrations applies pending migrations in order.
func runMigrations(db *sql.DB) error {
	// Create migrations tracking table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for _, m := range migrations {
		var applied int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if applied > 0 {
			continue
		}

		if _, err := db.Exec(m.Up); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = db.Exec("INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now())
		if err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}

	return nil
}
