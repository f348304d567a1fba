package migrations

import "database/sql"

// ContentHashColumn adds the content_hash column used for dedup-by-content
// in remember(). This is the revision some historical client builds are
// known to have stamped into schema_migrations without ever running —
// Up must therefore be safe to run again even when version 2 is already
// recorded, which is why it uses ADD COLUMN IF MISSING semantics rather
// than a bare ALTER TABLE.
func ContentHashColumn(db *sql.DB) error {
	if err := addColumnIfMissing(db, "memories", "content_hash", "content_hash TEXT"); err != nil {
		return err
	}
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_memories_content_hash ON memories(content_hash)`)
	return err
}

// VerifyContentHashColumn probes for the column itself rather than trusting
// the stamp, since a stamp alone is not proof of application here.
func VerifyContentHashColumn(db *sql.DB) (bool, error) {
	return columnExists(db, "memories", "content_hash")
}
