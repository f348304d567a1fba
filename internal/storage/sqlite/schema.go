// Package sqlite implements the on-disk storage engine: schema bootstrap,
// forward-only migrations, the single-writer accessor, and every table
// operation the memory engine performs.
package sqlite

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"time"
)

// bootstrapSchema is applied before any registered migration runs. It only
// creates the tracking tables the migrator itself depends on; every domain
// table is owned by a migration so that a fresh database and an upgraded
// database converge on the same path.
const bootstrapSchema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    checksum TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS migration_audit (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    version INTEGER NOT NULL,
    name TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    checksum TEXT NOT NULL,
    applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func checksum(name string) string {
	sum := sha256.Sum256([]byte(name))
	return fmt.Sprintf("%x", sum)
}

// EnsureBootstrap creates the migration tracking tables if they don't
// already exist. Safe to call outside of a transaction.
func EnsureBootstrap(db *sql.DB) error {
	_, err := db.Exec(bootstrapSchema)
	return err
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func stampVersion(db *sql.DB, version int, name string, elapsed time.Duration) error {
	sum := checksum(name)
	if _, err := db.Exec(`INSERT OR REPLACE INTO schema_migrations (version, applied_at, checksum) VALUES (?, CURRENT_TIMESTAMP, ?)`, version, sum); err != nil {
		return err
	}
	_, err := db.Exec(`INSERT INTO migration_audit (version, name, duration_ms, checksum) VALUES (?, ?, ?, ?)`,
		version, name, elapsed.Milliseconds(), sum)
	return err
}

// tableExists reports whether a table is present in sqlite_master.
func tableExists(db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// columnExists reports whether a column is present on a table, using
// PRAGMA table_info. Returns false (no error) if the table itself is
// absent, so callers can probe speculatively.
func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
