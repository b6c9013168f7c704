package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migration pairs a monotonically increasing version with the DDL that
// brings the schema to that version.
type migration struct {
	version    int
	name       string
	statements []string
}

// Every barcode, room or equipment alike, claims a row in the shared
// barcodes registry inside the same transaction as the owning record.
// The registry primary key is what makes cross-kind duplicates impossible
// to persist.
var migrations = []migration{
	{
		version: 1,
		name:    "inventory schema",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS barcodes (
				barcode TEXT PRIMARY KEY,
				owner_kind TEXT NOT NULL CHECK (owner_kind IN ('room', 'equipment'))
			)`,
			`CREATE TABLE IF NOT EXISTS rooms (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				barcode TEXT UNIQUE NOT NULL,
				location TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS equipment (
				id TEXT PRIMARY KEY,
				room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				barcode TEXT UNIQUE NOT NULL,
				category TEXT NOT NULL,
				status TEXT NOT NULL CHECK (status IN ('available', 'in-use', 'maintenance')),
				position INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_equipment_room_id ON equipment(room_id)`,
		},
	},
}

// Migrate applies any pending schema migrations, recording applied versions
// in a schema_migrations ledger so the operation is safe to repeat.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if _, err := pool.DB().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if _, ok := applied[m.version]; ok {
			continue
		}

		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
				}
			}
			_, err := tx.Exec(
				`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
				m.version, m.name, time.Now().UTC().Format(time.RFC3339),
			)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func appliedVersions(ctx context.Context, pool *ConnectionPool) (map[int]struct{}, error) {
	rows, err := pool.DB().QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]struct{})
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = struct{}{}
	}

	return applied, rows.Err()
}
