package migrations

import "database/sql"

// EntitiesTable creates the entity graph's node table: one row per
// canonical (case-folded, whitespace-collapsed) name.
func EntitiesTable(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS entities (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    canonical_name TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT '',
    mention_count INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_entities_mention_count ON entities(mention_count);
`)
	return err
}

func VerifyEntitiesTable(db *sql.DB) (bool, error) {
	return tableExists(db, "entities")
}
