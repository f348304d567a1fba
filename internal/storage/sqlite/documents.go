package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/types"
)

func (d *DB) UpsertDocument(ctx context.Context, path, fileHash string) (*types.Document, error) {
	var doc *types.Document
	err := d.withWriteSQLTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT id, path, file_hash, ingestion_status, chunk_count, created_at, updated_at FROM documents WHERE path = ?`, path)
		var existing types.Document
		scanErr := row.Scan(&existing.ID, &existing.Path, &existing.FileHash, &existing.IngestionStatus, &existing.ChunkCount, &existing.CreatedAt, &existing.UpdatedAt)
		if scanErr == nil {
			if existing.FileHash == fileHash {
				doc = &existing
				return nil
			}
			_, err := tx.ExecContext(ctx, `
UPDATE documents SET file_hash = ?, ingestion_status = 'pending', chunk_count = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
				fileHash, existing.ID)
			if err != nil {
				return signeterr.Internal("update document", err)
			}
			existing.FileHash = fileHash
			existing.IngestionStatus = "pending"
			existing.ChunkCount = 0
			doc = &existing
			return nil
		}
		if scanErr != sql.ErrNoRows {
			return signeterr.Internal("lookup document", scanErr)
		}

		id := uuid.New().String()
		_, err := tx.ExecContext(ctx, `INSERT INTO documents (id, path, file_hash) VALUES (?, ?, ?)`, id, path, fileHash)
		if err != nil {
			return signeterr.Internal("insert document", err)
		}
		row = tx.QueryRowContext(ctx, `SELECT id, path, file_hash, ingestion_status, chunk_count, created_at, updated_at FROM documents WHERE id = ?`, id)
		var created types.Document
		if err := row.Scan(&created.ID, &created.Path, &created.FileHash, &created.IngestionStatus, &created.ChunkCount, &created.CreatedAt, &created.UpdatedAt); err != nil {
			return signeterr.Internal("reload document", err)
		}
		doc = &created
		return nil
	})
	return doc, err
}

func (d *DB) LinkDocumentMemory(ctx context.Context, documentID, memoryID string, chunkIndex int, header string) error {
	return d.withWriteSQLTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT OR REPLACE INTO document_memory_links (document_id, memory_id, chunk_index, header) VALUES (?, ?, ?, ?)`,
			documentID, memoryID, chunkIndex, header)
		if err != nil {
			return signeterr.Internal("link document memory", err)
		}
		_, err = tx.ExecContext(ctx, `
UPDATE documents SET chunk_count = chunk_count + 1, ingestion_status = 'ingesting', updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			documentID)
		if err != nil {
			return signeterr.Internal("bump document chunk count", err)
		}
		return nil
	})
}
