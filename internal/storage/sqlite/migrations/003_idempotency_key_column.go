package migrations

import "database/sql"

// IdempotencyKeyColumn adds the optional idempotency_key column, unique
// across all rows (including soft-deleted ones) when present.
func IdempotencyKeyColumn(db *sql.DB) error {
	if err := addColumnIfMissing(db, "memories", "idempotency_key", "idempotency_key TEXT"); err != nil {
		return err
	}
	_, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_memories_idempotency_key ON memories(idempotency_key) WHERE idempotency_key IS NOT NULL`)
	return err
}

func VerifyIdempotencyKeyColumn(db *sql.DB) (bool, error) {
	return columnExists(db, "memories", "idempotency_key")
}
