package migrations

import "database/sql"

// DocumentsTables creates the document ingestion aggregate and its link
// table back to the individual memory rows each chunk produced.
func DocumentsTables(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    path TEXT NOT NULL,
    file_hash TEXT NOT NULL,
    ingestion_status TEXT NOT NULL DEFAULT 'pending',
    chunk_count INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_path ON documents(path);

CREATE TABLE IF NOT EXISTS document_memory_links (
    document_id TEXT NOT NULL,
    memory_id TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    header TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (document_id, memory_id),
    FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE,
    FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE
);
`)
	return err
}

func VerifyDocumentsTables(db *sql.DB) (bool, error) {
	ok, err := tableExists(db, "documents")
	if err != nil || !ok {
		return ok, err
	}
	return tableExists(db, "document_memory_links")
}
