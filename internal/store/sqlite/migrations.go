package sqlite

import (
	"database/sql"
	"fmt"
)

// migration is a single versioned schema change.
type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "create_tenants",
		SQL: `
			CREATE TABLE IF NOT EXISTS tenants (
				tenant_id      TEXT PRIMARY KEY,
				shop_domain    TEXT NOT NULL,
				shop_name      TEXT NOT NULL DEFAULT '',
				email          TEXT NOT NULL DEFAULT '',
				access_token   TEXT NOT NULL DEFAULT '',
				token_expiry   TIMESTAMP,
				currency       TEXT NOT NULL DEFAULT '',
				timezone       TEXT NOT NULL DEFAULT '',
				status         TEXT NOT NULL DEFAULT 'active',
				creation_time  TIMESTAMP NOT NULL,
				reconnect_time TIMESTAMP,
				webhook_url    TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_tenants_shop_domain ON tenants(shop_domain, status);
		`,
	},
	{
		Version: 2,
		Name:    "create_conversations",
		SQL: `
			CREATE TABLE IF NOT EXISTS conversations (
				tenant_id   TEXT NOT NULL,
				user_id     TEXT NOT NULL,
				messages    TEXT NOT NULL DEFAULT '[]',
				context     TEXT NOT NULL DEFAULT '{}',
				update_time TIMESTAMP NOT NULL,
				PRIMARY KEY (tenant_id, user_id)
			);
		`,
	},
}

// migrate applies all pending migrations in order.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, m.Version).Scan(&count); err != nil {
			return fmt.Errorf("checking migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}
