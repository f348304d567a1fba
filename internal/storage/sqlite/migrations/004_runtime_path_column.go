package migrations

import "database/sql"

// RuntimePathColumn records which channel (plugin/legacy/cli) a memory
// entered the engine through, used to deduplicate session claims.
func RuntimePathColumn(db *sql.DB) error {
	return addColumnIfMissing(db, "memories", "runtime_path", "runtime_path TEXT NOT NULL DEFAULT ''")
}

func VerifyRuntimePathColumn(db *sql.DB) (bool, error) {
	return columnExists(db, "memories", "runtime_path")
}
