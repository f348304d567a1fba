package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/types"
)

func upsertEntity(ctx context.Context, tx *sql.Tx, canonicalName, displayName, entityType string) (*types.Entity, error) {
	canon := canonicalEntityName(canonicalName)
	if canon == "" {
		return nil, signeterr.InvalidPayload("entity name must not be empty")
	}

	row := tx.QueryRowContext(ctx, `SELECT id, name, canonical_name, type, mention_count, created_at FROM entities WHERE canonical_name = ?`, canon)
	var e types.Entity
	err := row.Scan(&e.ID, &e.Name, &e.CanonicalName, &e.Type, &e.MentionCount, &e.CreatedAt)
	if err == nil {
		return &e, nil
	}
	if err != sql.ErrNoRows {
		return nil, signeterr.Internal("lookup entity", err)
	}

	id := uuid.New().String()
	name := displayName
	if name == "" {
		name = canon
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO entities (id, name, canonical_name, type) VALUES (?, ?, ?, ?)`, id, name, canon, entityType)
	if err != nil {
		return nil, signeterr.Internal("insert entity", err)
	}
	row = tx.QueryRowContext(ctx, `SELECT id, name, canonical_name, type, mention_count, created_at FROM entities WHERE id = ?`, id)
	if err := row.Scan(&e.ID, &e.Name, &e.CanonicalName, &e.Type, &e.MentionCount, &e.CreatedAt); err != nil {
		return nil, signeterr.Internal("reload entity", err)
	}
	return &e, nil
}

func linkMention(ctx context.Context, tx *sql.Tx, memoryID, entityID, mentionText string, confidence float64) error {
	res, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO memory_entity_mentions (memory_id, entity_id, mention_text, confidence) VALUES (?, ?, ?, ?)`,
		memoryID, entityID, mentionText, confidence)
	if err != nil {
		return signeterr.Internal("insert mention", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return signeterr.Internal("mention rows affected", err)
	}
	if n == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `UPDATE entities SET mention_count = mention_count + 1 WHERE id = ?`, entityID); err != nil {
		return signeterr.Internal("increment mention count", err)
	}
	return nil
}

func upsertRelation(ctx context.Context, tx *sql.Tx, sourceEntityID, targetEntityID, relationType string, strength, confidence float64) error {
	row := tx.QueryRowContext(ctx, `
SELECT confidence FROM relations WHERE source_entity_id = ? AND target_entity_id = ? AND relation_type = ?`,
		sourceEntityID, targetEntityID, relationType)
	var existingConfidence float64
	err := row.Scan(&existingConfidence)
	if err == sql.ErrNoRows {
		_, err := tx.ExecContext(ctx, `
INSERT INTO relations (source_entity_id, target_entity_id, relation_type, strength, confidence, mention_count)
VALUES (?, ?, ?, ?, ?, 1)`, sourceEntityID, targetEntityID, relationType, strength, confidence)
		if err != nil {
			return signeterr.Internal("insert relation", err)
		}
		return nil
	}
	if err != nil {
		return signeterr.Internal("lookup relation", err)
	}

	newConfidence := confidence
	if existingConfidence > newConfidence {
		newConfidence = existingConfidence
	}
	_, err = tx.ExecContext(ctx, `
UPDATE relations SET strength = ?, confidence = ?, mention_count = mention_count + 1
WHERE source_entity_id = ? AND target_entity_id = ? AND relation_type = ?`,
		strength, newConfidence, sourceEntityID, targetEntityID, relationType)
	if err != nil {
		return signeterr.Internal("update relation", err)
	}
	return nil
}

func (d *DB) EntitiesForMemory(ctx context.Context, memoryID string) ([]*types.Entity, error) {
	rows, err := d.db.QueryContext(ctx, `
SELECT e.id, e.name, e.canonical_name, e.type, e.mention_count, e.created_at
FROM entities e
JOIN memory_entity_mentions m ON m.entity_id = e.id
WHERE m.memory_id = ?
ORDER BY e.mention_count DESC`, memoryID)
	if err != nil {
		return nil, signeterr.Internal("query entities for memory", err)
	}
	defer rows.Close()
	return scanEntityRows(rows)
}

func (d *DB) HottestEntities(ctx context.Context, limit int) ([]*types.Entity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx, `
SELECT id, name, canonical_name, type, mention_count, created_at
FROM entities ORDER BY mention_count DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, signeterr.Internal("query hottest entities", err)
	}
	defer rows.Close()
	return scanEntityRows(rows)
}

func scanEntityRows(rows *sql.Rows) ([]*types.Entity, error) {
	var out []*types.Entity
	for rows.Next() {
		var e types.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.CanonicalName, &e.Type, &e.MentionCount, &e.CreatedAt); err != nil {
			return nil, signeterr.Internal("scan entity row", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
