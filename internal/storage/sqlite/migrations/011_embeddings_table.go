package migrations

import "database/sql"

// EmbeddingsTable creates the content-addressed embeddings table: identical
// chunk text yields exactly one row shared by every memory or document
// chunk that embeds it.
func EmbeddingsTable(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS embeddings (
    id TEXT PRIMARY KEY,
    chunk_hash TEXT NOT NULL UNIQUE,
    vector BLOB NOT NULL,
    dimension INTEGER NOT NULL,
    source_type TEXT NOT NULL,
    source_id TEXT NOT NULL,
    chunk_text TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_embeddings_source ON embeddings(source_type, source_id);
`)
	return err
}

func VerifyEmbeddingsTable(db *sql.DB) (bool, error) {
	return tableExists(db, "embeddings")
}
