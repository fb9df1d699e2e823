package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial rules schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS auto_rules (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					description TEXT,
					marketplace TEXT,
					conditions TEXT NOT NULL,
					condition_logic TEXT,
					actions TEXT NOT NULL,
					priority INTEGER DEFAULT 50,
					enabled BOOLEAN DEFAULT 1,
					stop_on_match BOOLEAN DEFAULT 0,
					is_system_rule BOOLEAN DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_auto_rules_priority ON auto_rules(priority DESC)`,
				`CREATE INDEX idx_auto_rules_enabled ON auto_rules(enabled)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Multi-marketplace scope and system rule states",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`ALTER TABLE auto_rules ADD COLUMN marketplaces TEXT`,
				// Rows written before this version keep their single marketplace.
				`UPDATE auto_rules SET marketplaces = json_array(marketplace)
					WHERE marketplace IS NOT NULL AND marketplace != ''`,
				`CREATE TABLE IF NOT EXISTS system_rule_states (
					rule_id TEXT PRIMARY KEY,
					enabled BOOLEAN NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Add rule usage metrics",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`ALTER TABLE auto_rules ADD COLUMN match_count INTEGER DEFAULT 0`,
				`ALTER TABLE auto_rules ADD COLUMN total_impact TEXT DEFAULT '0'`,
				`ALTER TABLE auto_rules ADD COLUMN last_applied_at DATETIME`,
			})
		},
	},
	{
		Version:     4,
		Description: "Add rule audit log",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS rule_audit_log (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					rule_id TEXT NOT NULL,
					rule_name TEXT,
					action TEXT NOT NULL CHECK (action IN ('created', 'updated', 'deleted', 'enabled', 'disabled')),
					previous_data TEXT,
					new_data TEXT,
					change_reason TEXT,
					changed_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rule_audit_log_rule ON rule_audit_log(rule_id, changed_at DESC)`,
			})
		},
	},
}

// SchemaVersion reports the current PRAGMA user_version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", classify(err))
	}
	return version, nil
}

// Migrate brings the schema up to ExpectedSchemaVersion.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", classify(txErr))
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
