package sqlite

import (
	"context"
	"database/sql"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/types"
)

func enqueueJob(ctx context.Context, tx *sql.Tx, jobType types.JobType, memoryID, payload string, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	id := uuid.New().String()
	_, err := tx.ExecContext(ctx, `
INSERT INTO jobs (id, memory_id, job_type, status, payload, max_attempts) VALUES (?, ?, ?, 'pending', ?, ?)`,
		id, nullIfEmpty(memoryID), jobType, payload, maxAttempts)
	if err != nil {
		return "", signeterr.Internal("enqueue job", err)
	}
	return id, nil
}

// LeaseJobs implements the dequeue side of the queue's lease contract: it
// selects eligible rows and flips them to leased in one write transaction.
func (d *DB) LeaseJobs(ctx context.Context, workerID string, jobTypes []types.JobType, limit, leaseSeconds int) ([]*types.Job, error) {
	if limit <= 0 {
		limit = 10
	}
	if leaseSeconds <= 0 {
		leaseSeconds = 300
	}

	var out []*types.Job

	placeholders := make([]string, len(jobTypes))
	args := make([]any, 0, len(jobTypes)+2)
	for i, jt := range jobTypes {
		placeholders[i] = "?"
		args = append(args, string(jt))
	}
	typeClause := ""
	if len(jobTypes) > 0 {
		typeClause = " AND job_type IN (" + strings.Join(placeholders, ",") + ")"
	}
	args = append(args, limit)

	runErr := d.withWriteSQLTx(ctx, func(tx *sql.Tx) error {
		query := `
SELECT id FROM jobs
WHERE status IN ('pending', 'retry_scheduled')
  AND (next_attempt_at IS NULL OR next_attempt_at <= CURRENT_TIMESTAMP)` + typeClause + `
ORDER BY created_at ASC LIMIT ?`

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return signeterr.Internal("select leasable jobs", err)
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return signeterr.Internal("scan leasable job id", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		leaseID := uuid.New().String()
		for _, id := range ids {
			_, err := tx.ExecContext(ctx, `
UPDATE jobs SET status = 'leased', leased_at = CURRENT_TIMESTAMP, lease_id = ?, attempts = attempts + 1
WHERE id = ?`, leaseID+":"+workerID, id)
			if err != nil {
				return signeterr.Internal("lease job", err)
			}
			job, err := getJobTx(ctx, tx, id)
			if err != nil {
				return err
			}
			out = append(out, job)
		}
		return nil
	})
	if runErr != nil {
		return nil, runErr
	}
	return out, nil
}

func getJobTx(ctx context.Context, q execer, id string) (*types.Job, error) {
	row := q.QueryRowContext(ctx, `
SELECT id, memory_id, job_type, status, payload, result, attempts, max_attempts, lease_id, leased_at,
	next_attempt_at, completed_at, failed_at, last_error, last_error_code, created_at
FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

func scanJob(row scanner) (*types.Job, error) {
	var j types.Job
	var memoryID, result, leaseID, lastError, lastErrorCode sql.NullString
	var leasedAt, nextAttemptAt, completedAt, failedAt sql.NullTime

	err := row.Scan(&j.ID, &memoryID, &j.Type, &j.Status, &j.Payload, &result, &j.Attempts, &j.MaxAttempts,
		&leaseID, &leasedAt, &nextAttemptAt, &completedAt, &failedAt, &lastError, &lastErrorCode, &j.CreatedAt)
	if err != nil {
		return nil, err
	}
	j.MemoryID = memoryID.String
	j.Result = result.String
	j.LeaseID = leaseID.String
	j.LastError = lastError.String
	j.LastErrorCode = lastErrorCode.String
	if leasedAt.Valid {
		t := leasedAt.Time
		j.LeasedAt = &t
	}
	if nextAttemptAt.Valid {
		t := nextAttemptAt.Time
		j.NextAttemptAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	if failedAt.Valid {
		t := failedAt.Time
		j.FailedAt = &t
	}
	return &j, nil
}

// completeJob and failJob only transition a job out of leased when the
// caller's lease id still matches the row's current one — a worker whose
// lease expired and was reclaimed by SweepExpiredLeases must not be able
// to complete or fail the job out from under whoever holds it now.

func completeJob(ctx context.Context, tx *sql.Tx, jobID, leaseID, result string) error {
	res, err := tx.ExecContext(ctx, `
UPDATE jobs SET status = 'completed', completed_at = CURRENT_TIMESTAMP, result = ?
WHERE id = ? AND status = 'leased' AND lease_id = ?`, result, jobID, leaseID)
	if err != nil {
		return signeterr.Internal("complete job", err)
	}
	return requireLeaseMatch(res, jobID)
}

func failJob(ctx context.Context, tx *sql.Tx, jobID, leaseID, errMsg, errCode string, baseBackoff, capBackoff int64) error {
	if baseBackoff <= 0 {
		baseBackoff = 5
	}
	if capBackoff <= 0 {
		capBackoff = 300
	}

	row := tx.QueryRowContext(ctx, `
SELECT attempts, max_attempts FROM jobs WHERE id = ? AND status = 'leased' AND lease_id = ?`, jobID, leaseID)
	var attempts, maxAttempts int
	if err := row.Scan(&attempts, &maxAttempts); err != nil {
		if err == sql.ErrNoRows {
			return signeterr.VersionConflict("job lease no longer held: " + jobID)
		}
		return signeterr.Internal("lookup job for failure", err)
	}

	if attempts >= maxAttempts {
		res, err := tx.ExecContext(ctx, `
UPDATE jobs SET status = 'dead', failed_at = CURRENT_TIMESTAMP, last_error = ?, last_error_code = ?
WHERE id = ? AND status = 'leased' AND lease_id = ?`, errMsg, errCode, jobID, leaseID)
		if err != nil {
			return signeterr.Internal("mark job dead", err)
		}
		return requireLeaseMatch(res, jobID)
	}

	backoff := baseBackoff * (1 << uint(attempts-1))
	if backoff > capBackoff {
		backoff = capBackoff
	}
	jitter := time.Duration(rand.Int63n(1000)) * time.Millisecond
	nextAttempt := time.Now().Add(time.Duration(backoff)*time.Second + jitter)

	res, err := tx.ExecContext(ctx, `
UPDATE jobs SET status = 'retry_scheduled', next_attempt_at = ?, last_error = ?, last_error_code = ?
WHERE id = ? AND status = 'leased' AND lease_id = ?`, nextAttempt, errMsg, errCode, jobID, leaseID)
	if err != nil {
		return signeterr.Internal("schedule job retry", err)
	}
	return requireLeaseMatch(res, jobID)
}

func requireLeaseMatch(res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return signeterr.Internal("check lease update", err)
	}
	if n == 0 {
		return signeterr.VersionConflict("job lease no longer held: " + jobID)
	}
	return nil
}

// SweepExpiredLeases reclaims leased jobs whose lease has outlived
// leaseSeconds, flipping them back to retry_scheduled for immediate
// re-pickup.
func (d *DB) SweepExpiredLeases(ctx context.Context, leaseSeconds int) (int, error) {
	if leaseSeconds <= 0 {
		leaseSeconds = 300
	}
	var n int64
	err := d.withWriteSQLTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE jobs SET status = 'retry_scheduled', next_attempt_at = CURRENT_TIMESTAMP, lease_id = NULL
WHERE status = 'leased' AND leased_at <= datetime(CURRENT_TIMESTAMP, ?)`, formatSecondsAgo(leaseSeconds))
		if err != nil {
			return signeterr.Internal("sweep expired leases", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return int(n), err
}

func formatSecondsAgo(seconds int) string {
	return "-" + strconv.Itoa(seconds) + " seconds"
}

func (d *DB) GetJob(ctx context.Context, jobID string) (*types.Job, error) {
	job, err := getJobTx(ctx, d.db, jobID)
	if err == sql.ErrNoRows {
		return nil, signeterr.NotFound("job not found")
	}
	if err != nil {
		return nil, signeterr.Internal("get job", err)
	}
	return job, nil
}
