package migrations

import "database/sql"

// ExtractionStatusColumn adds the extraction pipeline status and the
// embedding model name recorded once a memory has been embedded.
func ExtractionStatusColumn(db *sql.DB) error {
	if err := addColumnIfMissing(db, "memories", "extraction_status", "extraction_status TEXT NOT NULL DEFAULT 'none'"); err != nil {
		return err
	}
	return addColumnIfMissing(db, "memories", "embedding_model", "embedding_model TEXT")
}

func VerifyExtractionStatusColumn(db *sql.DB) (bool, error) {
	return columnExists(db, "memories", "extraction_status")
}
