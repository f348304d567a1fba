package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/storage"
	"github.com/signet-ai/signet/internal/storage/sqlite/migrations"
	"github.com/signet-ai/signet/internal/types"
)

var _ storage.Storage = (*DB)(nil)

// execer is satisfied by both *sql.DB and *sql.Tx, so every table
// operation in this package is written once and works against either a
// pooled read handle or the single write transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// writeTask is one unit of work queued against the single writer.
type writeTask struct {
	ctx  context.Context
	fn   func(tx *sql.Tx) error
	done chan error
}

// DB is the sqlite-backed implementation of storage.Storage: a single
// writer goroutine serialises all mutating work over a channel, while
// reads are handed out directly from the pooled *sql.DB against the
// latest committed snapshot.
type DB struct {
	db       *sql.DB
	path     string
	writeCh  chan writeTask
	stopCh   chan struct{}
	vectorOK bool
}

// Open opens (creating if absent) the memories database at path, runs the
// migrator to the latest revision, and starts the single-writer loop.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(8)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	sdb := &DB{
		db:       db,
		path:     path,
		writeCh:  make(chan writeTask, 256),
		stopCh:   make(chan struct{}),
		vectorOK: migrations.VectorExtensionAvailable(db),
	}
	go sdb.writerLoop()
	return sdb, nil
}

func (d *DB) writerLoop() {
	for {
		select {
		case task := <-d.writeCh:
			d.runTask(task)
		case <-d.stopCh:
			return
		}
	}
}

func (d *DB) runTask(task writeTask) {
	// A caller that cancelled before we got here gets nothing started;
	// DB state is never left half-committed by a task that never began.
	select {
	case <-task.ctx.Done():
		task.done <- task.ctx.Err()
		return
	default:
	}

	tx, err := d.db.BeginTx(context.Background(), &sql.TxOptions{})
	if err != nil {
		task.done <- signeterr.Internal("begin write transaction", err)
		return
	}
	if _, err := tx.Exec(`BEGIN IMMEDIATE`); err != nil {
		// Some sqlite drivers apply IMMEDIATE via the Begin call itself;
		// if the statement-form isn't supported this is a no-op error
		// we can ignore as long as the surrounding tx already holds the
		// write lock. Errors here are not the common case.
	}

	runErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = signeterr.Internal("panic in write transaction", fmt.Errorf("%v", r))
			}
		}()
		return task.fn(tx)
	}()

	if runErr != nil {
		_ = tx.Rollback()
		task.done <- runErr
		return
	}
	if err := tx.Commit(); err != nil {
		task.done <- signeterr.Internal("commit write transaction", err)
		return
	}
	task.done <- nil
}

// WithWriteTx serialises fn against every other writer. A cancelled
// caller stops waiting immediately; if the task hadn't started yet it is
// simply dropped (never begun, so nothing to roll back); if it had
// already started it runs to completion so the database is never left
// half-committed.
func (d *DB) WithWriteTx(ctx context.Context, fn func(tx storage.Transaction) error) error {
	done := make(chan error, 1)
	task := writeTask{
		ctx: ctx,
		fn: func(tx *sql.Tx) error {
			return fn(&txImpl{tx: tx, d: d})
		},
		done: done,
	}

	select {
	case d.writeCh <- task:
	case <-ctx.Done():
		return signeterr.Timeout("write queue cancelled")
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// The task may still be running; its result is discarded here
		// but the transaction itself still commits or rolls back
		// cleanly on the writer goroutine.
		return signeterr.Timeout("write cancelled while waiting")
	}
}

// withWriteSQLTx queues fn directly against the raw write transaction,
// bypassing the storage.Transaction adapter, for internal callers (jobs,
// retention) that need statements the public interface doesn't expose.
func (d *DB) withWriteSQLTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	done := make(chan error, 1)
	task := writeTask{ctx: ctx, fn: fn, done: done}

	select {
	case d.writeCh <- task:
	case <-ctx.Done():
		return signeterr.Timeout("write queue cancelled")
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return signeterr.Timeout("write cancelled while waiting")
	}
}

// WithRead hands fn a direct handle to the pooled read connections,
// operating against the latest committed snapshot.
func (d *DB) WithRead(ctx context.Context, fn func(db *sql.DB) error) error {
	return fn(d.db)
}

func (d *DB) Close() error {
	close(d.stopCh)
	return d.db.Close()
}

func (d *DB) Path() string          { return d.path }
func (d *DB) UnderlyingDB() *sql.DB { return d.db }
func (d *DB) VectorAvailable() bool { return d.vectorOK }

// txImpl adapts one write transaction to the storage.Transaction
// interface, so Memory Store / Entity Graph / Job Queue callers inside a
// single WithWriteTx callback share one atomic commit.
type txImpl struct {
	tx *sql.Tx
	d  *DB
}

func (t *txImpl) Remember(ctx context.Context, content string, opts storage.RememberOpts) (*storage.RememberResult, error) {
	return remember(ctx, t.tx, content, opts)
}
func (t *txImpl) Modify(ctx context.Context, id string, patch storage.ModifyPatch, reason string, ifVersion *int) (*storage.BatchResult, error) {
	return modify(ctx, t.tx, id, patch, reason, ifVersion)
}
func (t *txImpl) Forget(ctx context.Context, id string, reason string, force bool, ifVersion *int) (*storage.BatchResult, error) {
	return forget(ctx, t.tx, id, reason, force, ifVersion)
}
func (t *txImpl) Recover(ctx context.Context, id string, reason string, ifVersion *int) (*storage.BatchResult, error) {
	return recoverMemory(ctx, t.tx, id, reason, ifVersion)
}
func (t *txImpl) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	return getMemory(ctx, t.tx, id)
}
func (t *txImpl) UpsertEntity(ctx context.Context, canonicalName, displayName, entityType string) (*types.Entity, error) {
	return upsertEntity(ctx, t.tx, canonicalName, displayName, entityType)
}
func (t *txImpl) LinkMention(ctx context.Context, memoryID, entityID, mentionText string, confidence float64) error {
	return linkMention(ctx, t.tx, memoryID, entityID, mentionText, confidence)
}
func (t *txImpl) UpsertRelation(ctx context.Context, sourceEntityID, targetEntityID, relationType string, strength, confidence float64) error {
	return upsertRelation(ctx, t.tx, sourceEntityID, targetEntityID, relationType, strength, confidence)
}
func (t *txImpl) EnqueueJob(ctx context.Context, jobType types.JobType, memoryID, payload string, maxAttempts int) (string, error) {
	return enqueueJob(ctx, t.tx, jobType, memoryID, payload, maxAttempts)
}
func (t *txImpl) CompleteJob(ctx context.Context, jobID, leaseID, result string) error {
	return completeJob(ctx, t.tx, jobID, leaseID, result)
}
func (t *txImpl) FailJob(ctx context.Context, jobID, leaseID, errMsg, errCode string, baseBackoff, capBackoff int64) error {
	return failJob(ctx, t.tx, jobID, leaseID, errMsg, errCode, baseBackoff, capBackoff)
}

// Convenience top-level methods on *DB so callers that only need one
// operation don't have to open WithWriteTx by hand.

func (d *DB) Remember(ctx context.Context, content string, opts storage.RememberOpts) (*storage.RememberResult, error) {
	var res *storage.RememberResult
	err := d.WithWriteTx(ctx, func(tx storage.Transaction) error {
		r, err := tx.Remember(ctx, content, opts)
		res = r
		return err
	})
	return res, err
}

func (d *DB) Modify(ctx context.Context, id string, patch storage.ModifyPatch, reason string, ifVersion *int) (*storage.BatchResult, error) {
	var res *storage.BatchResult
	err := d.WithWriteTx(ctx, func(tx storage.Transaction) error {
		r, err := tx.Modify(ctx, id, patch, reason, ifVersion)
		res = r
		return err
	})
	return res, err
}

func (d *DB) Forget(ctx context.Context, id string, reason string, force bool, ifVersion *int) (*storage.BatchResult, error) {
	var res *storage.BatchResult
	err := d.WithWriteTx(ctx, func(tx storage.Transaction) error {
		r, err := tx.Forget(ctx, id, reason, force, ifVersion)
		res = r
		return err
	})
	return res, err
}

func (d *DB) Recover(ctx context.Context, id string, reason string, ifVersion *int) (*storage.BatchResult, error) {
	var res *storage.BatchResult
	err := d.WithWriteTx(ctx, func(tx storage.Transaction) error {
		r, err := tx.Recover(ctx, id, reason, ifVersion)
		res = r
		return err
	})
	return res, err
}

func (d *DB) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	return getMemory(ctx, d.db, id)
}

func (d *DB) UpsertEntity(ctx context.Context, canonicalName, displayName, entityType string) (*types.Entity, error) {
	var res *types.Entity
	err := d.WithWriteTx(ctx, func(tx storage.Transaction) error {
		r, err := tx.UpsertEntity(ctx, canonicalName, displayName, entityType)
		res = r
		return err
	})
	return res, err
}

func (d *DB) LinkMention(ctx context.Context, memoryID, entityID, mentionText string, confidence float64) error {
	return d.WithWriteTx(ctx, func(tx storage.Transaction) error {
		return tx.LinkMention(ctx, memoryID, entityID, mentionText, confidence)
	})
}

func (d *DB) UpsertRelation(ctx context.Context, sourceEntityID, targetEntityID, relationType string, strength, confidence float64) error {
	return d.WithWriteTx(ctx, func(tx storage.Transaction) error {
		return tx.UpsertRelation(ctx, sourceEntityID, targetEntityID, relationType, strength, confidence)
	})
}

func (d *DB) EnqueueJob(ctx context.Context, jobType types.JobType, memoryID, payload string, maxAttempts int) (string, error) {
	var id string
	err := d.WithWriteTx(ctx, func(tx storage.Transaction) error {
		var err error
		id, err = tx.EnqueueJob(ctx, jobType, memoryID, payload, maxAttempts)
		return err
	})
	return id, err
}

func (d *DB) CompleteJob(ctx context.Context, jobID, leaseID, result string) error {
	return d.WithWriteTx(ctx, func(tx storage.Transaction) error {
		return tx.CompleteJob(ctx, jobID, leaseID, result)
	})
}

func (d *DB) FailJob(ctx context.Context, jobID, leaseID, errMsg, errCode string, baseBackoff, capBackoff int64) error {
	return d.WithWriteTx(ctx, func(tx storage.Transaction) error {
		return tx.FailJob(ctx, jobID, leaseID, errMsg, errCode, baseBackoff, capBackoff)
	})
}
