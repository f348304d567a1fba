package migrations

import "database/sql"

// ContentHashUniqueIndex enforces the partial unique index on content_hash
// across live rows. Before creating it, any pre-existing collisions (rows
// that predate this revision and happen to share a hash) are resolved by
// keeping the most recently updated row's hash and nulling the others —
// otherwise the CREATE UNIQUE INDEX itself would fail on an existing
// database.
func ContentHashUniqueIndex(db *sql.DB) error {
	if _, err := db.Exec(`
UPDATE memories
SET content_hash = NULL
WHERE is_deleted = 0
  AND content_hash IS NOT NULL
  AND id NOT IN (
    SELECT id FROM (
      SELECT id, content_hash,
             ROW_NUMBER() OVER (
               PARTITION BY content_hash
               ORDER BY updated_at DESC, id ASC
             ) AS rn
      FROM memories
      WHERE is_deleted = 0 AND content_hash IS NOT NULL
    )
    WHERE rn = 1
  );
`); err != nil {
		return err
	}

	_, err := db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_memories_content_hash_unique
ON memories(content_hash)
WHERE is_deleted = 0 AND content_hash IS NOT NULL;
`)
	return err
}

func VerifyContentHashUniqueIndex(db *sql.DB) (bool, error) {
	return indexExists(db, "idx_memories_content_hash_unique")
}
