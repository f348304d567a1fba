package migrations

import "database/sql"

// MemoryHistoryTable creates the append-only history log: every accepted
// mutation writes exactly one row here in the same transaction.
func MemoryHistoryTable(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS memory_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    memory_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    previous_content TEXT NOT NULL DEFAULT '',
    next_content TEXT NOT NULL DEFAULT '',
    changed_by TEXT NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT '',
    metadata TEXT NOT NULL DEFAULT '{}',
    actor_type TEXT NOT NULL DEFAULT 'system',
    session_id TEXT,
    request_id TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_memory_history_memory_id ON memory_history(memory_id);
CREATE INDEX IF NOT EXISTS idx_memory_history_created_at ON memory_history(created_at);
`)
	return err
}

func VerifyMemoryHistoryTable(db *sql.DB) (bool, error) {
	return tableExists(db, "memory_history")
}
