package migrations

import "database/sql"

// SessionsTable persists the claimed/ended lifecycle of harness sessions so
// a daemon restart doesn't lose claim state mid-conversation.
func SessionsTable(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sessions (
    session_key TEXT PRIMARY KEY,
    runtime_path TEXT NOT NULL DEFAULT '',
    project TEXT NOT NULL DEFAULT '',
    harness TEXT NOT NULL DEFAULT '',
    claimed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    ended_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);
`)
	return err
}

func VerifySessionsTable(db *sql.DB) (bool, error) {
	return tableExists(db, "sessions")
}
