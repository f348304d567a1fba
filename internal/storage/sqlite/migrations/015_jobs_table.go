package migrations

import "database/sql"

// JobsTable creates the durable, at-least-once work queue.
func JobsTable(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    memory_id TEXT,
    job_type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    payload TEXT NOT NULL DEFAULT '{}',
    result TEXT,
    attempts INTEGER NOT NULL DEFAULT 0,
    max_attempts INTEGER NOT NULL DEFAULT 3,
    lease_id TEXT,
    leased_at DATETIME,
    next_attempt_at DATETIME,
    completed_at DATETIME,
    failed_at DATETIME,
    last_error TEXT,
    last_error_code TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_jobs_status_type ON jobs(status, job_type);
CREATE INDEX IF NOT EXISTS idx_jobs_next_attempt ON jobs(next_attempt_at);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`)
	return err
}

func VerifyJobsTable(db *sql.DB) (bool, error) {
	return tableExists(db, "jobs")
}
