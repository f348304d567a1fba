package sqlite

import (
	"context"

	"github.com/signet-ai/signet/internal/signeterr"
)

// SearchKeyword ranks memories via the FTS5 BM25-equivalent function,
// returning a map of memory id to a score normalised into (0, 1]: sqlite's
// bm25() is unbounded and more negative is better, so the raw value is
// folded through 1/(1+abs(x)).
func (d *DB) SearchKeyword(ctx context.Context, query string, limit int) (map[string]float64, error) {
	if query == "" {
		return map[string]float64{}, nil
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := d.db.QueryContext(ctx, `
SELECT m.id, bm25(memories_fts) AS rank
FROM memories_fts
JOIN memories m ON m.rowid = memories_fts.rowid
WHERE memories_fts MATCH ? AND m.is_deleted = 0
ORDER BY rank LIMIT ?`, query, limit)
	if err != nil {
		return nil, signeterr.Internal("keyword search", err)
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var id string
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, signeterr.Internal("scan keyword search row", err)
		}
		if rank < 0 {
			rank = -rank
		}
		out[id] = 1 / (1 + rank)
	}
	return out, rows.Err()
}
