package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"

	"github.com/google/uuid"

	"github.com/signet-ai/signet/internal/signeterr"
)

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// UpsertEmbedding stores a content-addressed vector: identical chunk text
// always produces exactly one row, shared by every memory or document
// chunk that embeds it. When the vector extension is available the row is
// mirrored into the vector virtual table for nearest-neighbour search.
func (d *DB) UpsertEmbedding(ctx context.Context, chunkHash string, vector []float32, dimension int, sourceType, sourceID, chunkText string) (string, error) {
	var id string
	err := d.withWriteSQLTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT id FROM embeddings WHERE chunk_hash = ?`, chunkHash)
		scanErr := row.Scan(&id)
		if scanErr == nil {
			return nil
		}
		if scanErr != sql.ErrNoRows {
			return signeterr.Internal("lookup embedding", scanErr)
		}

		id = uuid.New().String()
		_, err := tx.ExecContext(ctx, `
INSERT INTO embeddings (id, chunk_hash, vector, dimension, source_type, source_id, chunk_text)
VALUES (?, ?, ?, ?, ?, ?, ?)`, id, chunkHash, encodeVector(vector), dimension, sourceType, sourceID, chunkText)
		if err != nil {
			return signeterr.Internal("insert embedding", err)
		}

		if d.vectorOK {
			_, err := tx.ExecContext(ctx, `
INSERT OR REPLACE INTO memories_vec (content_hash, embedding) VALUES (?, ?)`, chunkHash, encodeVector(vector))
			if err != nil {
				return signeterr.Internal("insert vector row", err)
			}
		}
		return nil
	})
	return id, err
}

// SearchVector returns a memory-id -> similarity map for live memories
// whose content hash matches the nearest neighbours of query.
func (d *DB) SearchVector(ctx context.Context, query []float32, limit int) (map[string]float64, error) {
	out := map[string]float64{}
	if !d.vectorOK {
		return out, nil
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := d.db.QueryContext(ctx, `
SELECT content_hash, distance FROM memories_vec WHERE embedding MATCH ? ORDER BY distance LIMIT ?`,
		encodeVector(query), limit)
	if err != nil {
		return nil, signeterr.Internal("vector search", err)
	}
	defer rows.Close()

	type hit struct {
		hash     string
		distance float64
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.hash, &h.distance); err != nil {
			return nil, signeterr.Internal("scan vector search row", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, h := range hits {
		row := d.db.QueryRowContext(ctx, `SELECT id FROM memories WHERE content_hash = ? AND is_deleted = 0`, h.hash)
		var id string
		if err := row.Scan(&id); err != nil {
			continue
		}
		out[id] = 1 / (1 + h.distance)
	}
	return out, nil
}
