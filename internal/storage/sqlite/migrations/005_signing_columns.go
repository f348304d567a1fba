package migrations

import "database/sql"

// SigningColumns adds the optional signature/signer_did pair the Signing
// Layer attaches before a write transaction starts.
func SigningColumns(db *sql.DB) error {
	if err := addColumnIfMissing(db, "memories", "signature", "signature TEXT"); err != nil {
		return err
	}
	return addColumnIfMissing(db, "memories", "signer_did", "signer_did TEXT")
}

func VerifySigningColumns(db *sql.DB) (bool, error) {
	ok, err := columnExists(db, "memories", "signature")
	if err != nil || !ok {
		return ok, err
	}
	return columnExists(db, "memories", "signer_did")
}
