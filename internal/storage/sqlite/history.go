package sqlite

import (
	"context"
	"database/sql"

	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/types"
)

// appendHistory writes exactly one append-only event row in the same
// transaction as the mutation it describes.
func appendHistory(ctx context.Context, tx *sql.Tx, memoryID string, kind types.HistoryEventKind,
	previousContent, nextContent, changedBy, reason string, actorType types.ActorType, sessionID, requestID string) error {

	if actorType == "" {
		actorType = types.ActorSystem
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO memory_history (memory_id, kind, previous_content, next_content, changed_by, reason, actor_type, session_id, request_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		memoryID, kind, previousContent, nextContent, changedBy, reason, actorType, nullIfEmpty(sessionID), nullIfEmpty(requestID))
	if err != nil {
		return signeterr.Internal("append history event", err)
	}
	return nil
}

func (d *DB) GetHistory(ctx context.Context, id string, limit int) ([]*types.HistoryEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx, `
SELECT id, memory_id, kind, previous_content, next_content, changed_by, reason, metadata, actor_type, session_id, request_id, created_at
FROM memory_history WHERE memory_id = ? ORDER BY id DESC LIMIT ?`, id, limit)
	if err != nil {
		return nil, signeterr.Internal("query history", err)
	}
	defer rows.Close()

	var out []*types.HistoryEvent
	for rows.Next() {
		var e types.HistoryEvent
		var sessionID, requestID sql.NullString
		if err := rows.Scan(&e.ID, &e.MemoryID, &e.Kind, &e.PreviousContent, &e.NextContent, &e.ChangedBy, &e.Reason, &e.Metadata, &e.ActorType, &sessionID, &requestID, &e.CreatedAt); err != nil {
			return nil, signeterr.Internal("scan history row", err)
		}
		e.SessionID = sessionID.String
		e.RequestID = requestID.String
		out = append(out, &e)
	}
	return out, rows.Err()
}
