package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: listing filters by status and category on every page load.
	`CREATE INDEX IF NOT EXISTS idx_items_status_active
	     ON items(status) WHERE deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_items_category
	     ON items(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_items_location
	     ON items(location_id)`,
}

// Migrate ensures the schema exists and applies all migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
