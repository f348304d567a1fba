package sqlite

import (
	"context"
	"database/sql"

	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/types"
)

func scanSession(row scanner) (*types.Session, error) {
	var s types.Session
	var endedAt sql.NullTime
	if err := row.Scan(&s.Key, &s.RuntimePath, &s.Project, &s.Harness, &s.ClaimedAt, &endedAt); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	return &s, nil
}

const sessionColumns = `session_key, runtime_path, project, harness, claimed_at, ended_at`

// ClaimSession implements the absent -> claimed -> ended state machine: a
// session already claimed on a different runtime path is rejected so two
// harnesses can never inject into the same conversation at once.
func (d *DB) ClaimSession(ctx context.Context, key, runtimePath, project, harness string) (*types.Session, error) {
	var out *types.Session
	err := d.withWriteSQLTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_key = ?`, key)
		existing, scanErr := scanSession(row)
		if scanErr == sql.ErrNoRows {
			_, err := tx.ExecContext(ctx, `
INSERT INTO sessions (session_key, runtime_path, project, harness) VALUES (?, ?, ?, ?)`, key, runtimePath, project, harness)
			if err != nil {
				return signeterr.Internal("claim session", err)
			}
			row = tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_key = ?`, key)
			created, err := scanSession(row)
			if err != nil {
				return signeterr.Internal("reload claimed session", err)
			}
			out = created
			return nil
		}
		if scanErr != nil {
			return signeterr.Internal("lookup session", scanErr)
		}

		if existing.EndedAt == nil {
			if existing.RuntimePath != runtimePath {
				return signeterr.Forbidden("session already claimed on a different runtime path")
			}
			out = existing
			return nil
		}

		_, err := tx.ExecContext(ctx, `
UPDATE sessions SET runtime_path = ?, project = ?, harness = ?, claimed_at = CURRENT_TIMESTAMP, ended_at = NULL
WHERE session_key = ?`, runtimePath, project, harness, key)
		if err != nil {
			return signeterr.Internal("re-claim session", err)
		}
		row = tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_key = ?`, key)
		reclaimed, err := scanSession(row)
		if err != nil {
			return signeterr.Internal("reload re-claimed session", err)
		}
		out = reclaimed
		return nil
	})
	return out, err
}

func (d *DB) GetSession(ctx context.Context, key string) (*types.Session, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_key = ?`, key)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, signeterr.NotFound("session not found")
	}
	if err != nil {
		return nil, signeterr.Internal("get session", err)
	}
	return s, nil
}

func (d *DB) EndSession(ctx context.Context, key string) error {
	return d.withWriteSQLTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE sessions SET ended_at = CURRENT_TIMESTAMP WHERE session_key = ? AND ended_at IS NULL`, key)
		if err != nil {
			return signeterr.Internal("end session", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return signeterr.Internal("end session rows affected", err)
		}
		if n == 0 {
			return signeterr.NotFound("session not found or already ended")
		}
		return nil
	})
}
