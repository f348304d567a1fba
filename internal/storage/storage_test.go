// Package storage tests for interface compliance and contract verification.
package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/signet-ai/signet/internal/types"
)

// Compile-time interface conformance checks. Real behavioral conformance
// tests for the sqlite backend live in internal/storage/sqlite.
var (
	_ Storage     = (*mockStorage)(nil)
	_ Transaction = (*mockTransaction)(nil)
)

type mockStorage struct{}

func (m *mockStorage) WithWriteTx(ctx context.Context, fn func(tx Transaction) error) error {
	return fn(&mockTransaction{})
}
func (m *mockStorage) WithRead(ctx context.Context, fn func(db *sql.DB) error) error {
	return fn(nil)
}
func (m *mockStorage) Remember(ctx context.Context, content string, opts RememberOpts) (*RememberResult, error) {
	return &RememberResult{}, nil
}
func (m *mockStorage) Modify(ctx context.Context, id string, patch ModifyPatch, reason string, ifVersion *int) (*BatchResult, error) {
	return &BatchResult{}, nil
}
func (m *mockStorage) Forget(ctx context.Context, id string, reason string, force bool, ifVersion *int) (*BatchResult, error) {
	return &BatchResult{}, nil
}
func (m *mockStorage) Recover(ctx context.Context, id string, reason string, ifVersion *int) (*BatchResult, error) {
	return &BatchResult{}, nil
}
func (m *mockStorage) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	return nil, nil
}
func (m *mockStorage) ListMemories(ctx context.Context, filter ListFilter) ([]*types.Memory, error) {
	return nil, nil
}
func (m *mockStorage) BatchModify(ctx context.Context, ids []string, patch ModifyPatch, reason string) ([]BatchResult, error) {
	return nil, nil
}
func (m *mockStorage) BatchForget(ctx context.Context, ids []string, reason string, force bool) ([]BatchResult, error) {
	return nil, nil
}
func (m *mockStorage) TouchAccess(ctx context.Context, id string) {}
func (m *mockStorage) GetHistory(ctx context.Context, id string, limit int) ([]*types.HistoryEvent, error) {
	return nil, nil
}
func (m *mockStorage) SetExtractionStatus(ctx context.Context, id string, status types.ExtractionStatus) error {
	return nil
}
func (m *mockStorage) SearchKeyword(ctx context.Context, query string, limit int) (map[string]float64, error) {
	return nil, nil
}
func (m *mockStorage) UpsertEmbedding(ctx context.Context, chunkHash string, vector []float32, dimension int, sourceType, sourceID, chunkText string) (string, error) {
	return "", nil
}
func (m *mockStorage) SearchVector(ctx context.Context, query []float32, limit int) (map[string]float64, error) {
	return nil, nil
}
func (m *mockStorage) VectorAvailable() bool { return false }
func (m *mockStorage) UpsertEntity(ctx context.Context, canonicalName, displayName, entityType string) (*types.Entity, error) {
	return nil, nil
}
func (m *mockStorage) LinkMention(ctx context.Context, memoryID, entityID, mentionText string, confidence float64) error {
	return nil
}
func (m *mockStorage) UpsertRelation(ctx context.Context, sourceEntityID, targetEntityID, relationType string, strength, confidence float64) error {
	return nil
}
func (m *mockStorage) EntitiesForMemory(ctx context.Context, memoryID string) ([]*types.Entity, error) {
	return nil, nil
}
func (m *mockStorage) HottestEntities(ctx context.Context, limit int) ([]*types.Entity, error) {
	return nil, nil
}
func (m *mockStorage) EnqueueJob(ctx context.Context, jobType types.JobType, memoryID, payload string, maxAttempts int) (string, error) {
	return "", nil
}
func (m *mockStorage) LeaseJobs(ctx context.Context, workerID string, jobTypes []types.JobType, limit, leaseSeconds int) ([]*types.Job, error) {
	return nil, nil
}
func (m *mockStorage) CompleteJob(ctx context.Context, jobID, leaseID, result string) error {
	return nil
}
func (m *mockStorage) FailJob(ctx context.Context, jobID, leaseID, errMsg, errCode string, baseBackoff, capBackoff int64) error {
	return nil
}
func (m *mockStorage) SweepExpiredLeases(ctx context.Context, leaseSeconds int) (int, error) {
	return 0, nil
}
func (m *mockStorage) GetJob(ctx context.Context, jobID string) (*types.Job, error) { return nil, nil }
func (m *mockStorage) UpsertDocument(ctx context.Context, path, fileHash string) (*types.Document, error) {
	return nil, nil
}
func (m *mockStorage) LinkDocumentMemory(ctx context.Context, documentID, memoryID string, chunkIndex int, header string) error {
	return nil
}
func (m *mockStorage) ClaimSession(ctx context.Context, key, runtimePath, project, harness string) (*types.Session, error) {
	return nil, nil
}
func (m *mockStorage) GetSession(ctx context.Context, key string) (*types.Session, error) {
	return nil, nil
}
func (m *mockStorage) EndSession(ctx context.Context, key string) error { return nil }
func (m *mockStorage) RunRetentionSweep(ctx context.Context, tombstoneWindow, historyWindow, completedWindow, deadWindow int64, batchLimit int) (*RetentionSummary, error) {
	return &RetentionSummary{}, nil
}
func (m *mockStorage) Close() error           { return nil }
func (m *mockStorage) Path() string           { return "" }
func (m *mockStorage) UnderlyingDB() *sql.DB  { return nil }

type mockTransaction struct{}

func (m *mockTransaction) Remember(ctx context.Context, content string, opts RememberOpts) (*RememberResult, error) {
	return &RememberResult{}, nil
}
func (m *mockTransaction) Modify(ctx context.Context, id string, patch ModifyPatch, reason string, ifVersion *int) (*BatchResult, error) {
	return &BatchResult{}, nil
}
func (m *mockTransaction) Forget(ctx context.Context, id string, reason string, force bool, ifVersion *int) (*BatchResult, error) {
	return &BatchResult{}, nil
}
func (m *mockTransaction) Recover(ctx context.Context, id string, reason string, ifVersion *int) (*BatchResult, error) {
	return &BatchResult{}, nil
}
func (m *mockTransaction) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	return nil, nil
}
func (m *mockTransaction) UpsertEntity(ctx context.Context, canonicalName, displayName, entityType string) (*types.Entity, error) {
	return nil, nil
}
func (m *mockTransaction) LinkMention(ctx context.Context, memoryID, entityID, mentionText string, confidence float64) error {
	return nil
}
func (m *mockTransaction) UpsertRelation(ctx context.Context, sourceEntityID, targetEntityID, relationType string, strength, confidence float64) error {
	return nil
}
func (m *mockTransaction) EnqueueJob(ctx context.Context, jobType types.JobType, memoryID, payload string, maxAttempts int) (string, error) {
	return "", nil
}
func (m *mockTransaction) CompleteJob(ctx context.Context, jobID, leaseID, result string) error {
	return nil
}
func (m *mockTransaction) FailJob(ctx context.Context, jobID, leaseID, errMsg, errCode string, baseBackoff, capBackoff int64) error {
	return nil
}

// TestInterfaceDocumentation exercises every method group on the mocks so a
// signature change anywhere breaks compilation here first.
func TestInterfaceDocumentation(t *testing.T) {
	t.Run("Storage interface has expected method groups", func(t *testing.T) {
		var s Storage = &mockStorage{}

		_ = s.WithWriteTx
		_ = s.WithRead

		_ = s.Remember
		_ = s.Modify
		_ = s.Forget
		_ = s.Recover
		_ = s.GetMemory
		_ = s.ListMemories
		_ = s.BatchModify
		_ = s.BatchForget
		_ = s.TouchAccess
		_ = s.GetHistory

		_ = s.SearchKeyword
		_ = s.UpsertEmbedding
		_ = s.SearchVector
		_ = s.VectorAvailable

		_ = s.UpsertEntity
		_ = s.LinkMention
		_ = s.UpsertRelation
		_ = s.EntitiesForMemory
		_ = s.HottestEntities

		_ = s.EnqueueJob
		_ = s.LeaseJobs
		_ = s.CompleteJob
		_ = s.FailJob
		_ = s.SweepExpiredLeases
		_ = s.GetJob

		_ = s.UpsertDocument
		_ = s.LinkDocumentMemory

		_ = s.ClaimSession
		_ = s.GetSession
		_ = s.EndSession

		_ = s.RunRetentionSweep

		_ = s.Close
		_ = s.Path
		_ = s.UnderlyingDB
	})

	t.Run("Transaction interface has expected methods", func(t *testing.T) {
		var tx Transaction = &mockTransaction{}

		_ = tx.Remember
		_ = tx.Modify
		_ = tx.Forget
		_ = tx.Recover
		_ = tx.GetMemory
		_ = tx.UpsertEntity
		_ = tx.LinkMention
		_ = tx.UpsertRelation
		_ = tx.EnqueueJob
		_ = tx.CompleteJob
		_ = tx.FailJob
	})
}

func TestRememberOptsDefaults(t *testing.T) {
	opts := RememberOpts{}
	if opts.Pinned {
		t.Errorf("expected zero-value RememberOpts to be unpinned")
	}
	if opts.ActorType != "" {
		t.Errorf("expected zero-value ActorType, got %q", opts.ActorType)
	}
}
