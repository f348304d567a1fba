package migrations

import (
	"database/sql"
	"strings"
)

// vectorDimension is the fixed dimension every embedding in this database
// is produced at. Changing it requires a fresh database.
const vectorDimension = 1536

// VectorStore creates the vector virtual table only if the host SQLite has
// a vector-search extension (vec0) loaded. Its absence is not a migration
// failure: recall simply degrades to keyword-only, per the vector leg's
// contract.
func VectorStore(db *sql.DB) error {
	_, err := db.Exec(`
CREATE VIRTUAL TABLE IF NOT EXISTS memories_vec USING vec0(
    content_hash TEXT PRIMARY KEY,
    embedding FLOAT[1536]
);
`)
	if err == nil {
		return nil
	}
	if isMissingModuleError(err) {
		return nil
	}
	return err
}

// VerifyVectorStore reports the table as "present" whenever either the
// table actually exists or the vec0 module is simply unavailable on this
// build — in the latter case there is nothing this migration could ever
// have done, so it should not be re-attempted on every startup.
func VerifyVectorStore(db *sql.DB) (bool, error) {
	exists, err := tableExists(db, "memories_vec")
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	return !VectorExtensionAvailable(db), nil
}

// VectorExtensionAvailable probes whether the vec0 virtual table module is
// loaded, by attempting (and immediately rolling back) a throwaway table
// creation in a transaction.
func VectorExtensionAvailable(db *sql.DB) bool {
	tx, err := db.Begin()
	if err != nil {
		return false
	}
	defer tx.Rollback()

	_, err = tx.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS __signet_vec_probe USING vec0(content_hash TEXT PRIMARY KEY, embedding FLOAT[8])`)
	return err == nil || !isMissingModuleError(err)
}

func isMissingModuleError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such module")
}
