package migrations

import "database/sql"

// ProvenanceColumns adds the optional source_* columns linking a memory
// back to the document/session it was extracted or ingested from.
func ProvenanceColumns(db *sql.DB) error {
	for _, col := range []string{"source_type", "source_path", "source_section", "source_id"} {
		if err := addColumnIfMissing(db, "memories", col, col+" TEXT"); err != nil {
			return err
		}
	}
	return nil
}

func VerifyProvenanceColumns(db *sql.DB) (bool, error) {
	return columnExists(db, "memories", "source_type")
}
