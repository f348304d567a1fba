package migrations

import "database/sql"

// MentionsTable creates the memory<->entity link table.
func MentionsTable(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS memory_entity_mentions (
    memory_id TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    mention_text TEXT NOT NULL DEFAULT '',
    confidence REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (memory_id, entity_id),
    FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE,
    FOREIGN KEY (entity_id) REFERENCES entities(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_mentions_entity ON memory_entity_mentions(entity_id);
`)
	return err
}

func VerifyMentionsTable(db *sql.DB) (bool, error) {
	return tableExists(db, "memory_entity_mentions")
}
