package migrations

import "database/sql"

// FTSIndex creates the keyword full-text index and the triggers that keep
// it synchronised with the memories table on insert/update/delete. The
// index is external-content, addressed by memories' implicit rowid, so it
// adds no duplicate storage of the content column.
func FTSIndex(db *sql.DB) error {
	_, err := db.Exec(`
CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
    content,
    content='memories',
    content_rowid='rowid',
    tokenize='unicode61'
);

CREATE TRIGGER IF NOT EXISTS memories_fts_ai AFTER INSERT ON memories BEGIN
    INSERT INTO memories_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE TRIGGER IF NOT EXISTS memories_fts_ad AFTER DELETE ON memories BEGIN
    INSERT INTO memories_fts(memories_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
END;

CREATE TRIGGER IF NOT EXISTS memories_fts_au AFTER UPDATE ON memories BEGIN
    INSERT INTO memories_fts(memories_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
    INSERT INTO memories_fts(rowid, content) VALUES (new.rowid, new.content);
END;
`)
	return err
}

func VerifyFTSIndex(db *sql.DB) (bool, error) {
	return tableExists(db, "memories_fts")
}
