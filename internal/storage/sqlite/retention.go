package sqlite

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/storage"
)

// RunRetentionSweep performs the four batch-limited purges in the order
// the memory lifecycle requires: mentions and orphaned entities before the
// memory row they describe, history before the memory, completed and dead
// jobs independently of memory liveness.
func (d *DB) RunRetentionSweep(ctx context.Context, tombstoneWindow, historyWindow, completedWindow, deadWindow int64, batchLimit int) (*storage.RetentionSummary, error) {
	if batchLimit <= 0 {
		batchLimit = 500
	}
	summary := &storage.RetentionSummary{}

	err := d.withWriteSQLTx(ctx, func(tx *sql.Tx) error {
		expiredIDs, err := selectExpiredTombstones(ctx, tx, tombstoneWindow, batchLimit)
		if err != nil {
			return err
		}

		for _, id := range expiredIDs {
			links, err := purgeMentionsForMemory(ctx, tx, id)
			if err != nil {
				return err
			}
			summary.GraphLinksPurged += links

			orphaned, err := purgeOrphanedEntities(ctx, tx)
			if err != nil {
				return err
			}
			summary.EntitiesOrphaned += orphaned

			if _, err := tx.ExecContext(ctx, `DELETE FROM memory_history WHERE memory_id = ?`, id); err != nil {
				return signeterr.Internal("purge history for tombstoned memory", err)
			}

			if _, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id); err != nil {
				return signeterr.Internal("purge tombstoned memory", err)
			}
			summary.TombstonesPurged++
		}

		n, err := purgeOlderThan(ctx, tx, "memory_history", "created_at <= datetime(CURRENT_TIMESTAMP, ?)", historyWindow, batchLimit)
		if err != nil {
			return err
		}
		summary.HistoryPurged = n

		n, err = purgeOlderThan(ctx, tx, "jobs", "status = 'completed' AND completed_at <= datetime(CURRENT_TIMESTAMP, ?)", completedWindow, batchLimit)
		if err != nil {
			return err
		}
		summary.CompletedJobsPurged = n

		n, err = purgeOlderThan(ctx, tx, "jobs", "status = 'dead' AND failed_at <= datetime(CURRENT_TIMESTAMP, ?)", deadWindow, batchLimit)
		if err != nil {
			return err
		}
		summary.DeadJobsPurged = n

		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func selectExpiredTombstones(ctx context.Context, tx *sql.Tx, window int64, limit int) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
SELECT id FROM memories WHERE is_deleted = 1 AND deleted_at <= datetime(CURRENT_TIMESTAMP, ?) LIMIT ?`,
		formatMillisAgo(window), limit)
	if err != nil {
		return nil, signeterr.Internal("select expired tombstones", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, signeterr.Internal("scan tombstone id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func purgeMentionsForMemory(ctx context.Context, tx *sql.Tx, memoryID string) (int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT entity_id FROM memory_entity_mentions WHERE memory_id = ?`, memoryID)
	if err != nil {
		return 0, signeterr.Internal("select mentions for memory", err)
	}
	var entityIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, signeterr.Internal("scan mention entity id", err)
		}
		entityIDs = append(entityIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM memory_entity_mentions WHERE memory_id = ?`, memoryID)
	if err != nil {
		return 0, signeterr.Internal("delete mentions for memory", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, signeterr.Internal("mentions rows affected", err)
	}

	for _, entityID := range entityIDs {
		if _, err := tx.ExecContext(ctx, `
UPDATE entities SET mention_count = mention_count - 1 WHERE id = ? AND mention_count > 0`, entityID); err != nil {
			return 0, signeterr.Internal("decrement entity mention count", err)
		}
	}
	return int(n), nil
}

func purgeOrphanedEntities(ctx context.Context, tx *sql.Tx) (int, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE mention_count <= 0`)
	if err != nil {
		return 0, signeterr.Internal("purge orphaned entities", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, signeterr.Internal("orphaned entities rows affected", err)
	}
	return int(n), nil
}

// purgeOlderThan deletes at most limit rows from table matching
// whereClause (which must reference the window placeholder as `?`).
// SQLite's DELETE has no LIMIT clause of its own, so the batch bound is
// enforced via a rowid subquery instead — without it a single sweep
// could delete an unbounded number of rows in one transaction.
func purgeOlderThan(ctx context.Context, tx *sql.Tx, table, whereClause string, windowMs int64, limit int) (int, error) {
	query := `DELETE FROM ` + table + ` WHERE rowid IN (SELECT rowid FROM ` + table + ` WHERE ` + whereClause + ` LIMIT ?)`
	res, err := tx.ExecContext(ctx, query, formatMillisAgo(windowMs), limit)
	if err != nil {
		return 0, signeterr.Internal("purge older than window", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, signeterr.Internal("purge rows affected", err)
	}
	return int(n), nil
}

func formatMillisAgo(ms int64) string {
	return "-" + strconv.FormatInt(ms/1000, 10) + " seconds"
}
