package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/signet-ai/signet/internal/recall"
	"github.com/signet-ai/signet/internal/storage"
	"github.com/signet-ai/signet/internal/types"
)

type fakeStorage struct {
	memories map[string]*types.Memory
	sessions map[string]*types.Session
}

func (f *fakeStorage) WithWriteTx(ctx context.Context, fn func(tx storage.Transaction) error) error {
	return nil
}
func (f *fakeStorage) WithRead(ctx context.Context, fn func(db *sql.DB) error) error { return nil }
func (f *fakeStorage) Remember(ctx context.Context, content string, opts storage.RememberOpts) (*storage.RememberResult, error) {
	return nil, nil
}
func (f *fakeStorage) Modify(ctx context.Context, id string, patch storage.ModifyPatch, reason string, ifVersion *int) (*storage.BatchResult, error) {
	return nil, nil
}
func (f *fakeStorage) Forget(ctx context.Context, id string, reason string, force bool, ifVersion *int) (*storage.BatchResult, error) {
	return nil, nil
}
func (f *fakeStorage) Recover(ctx context.Context, id string, reason string, ifVersion *int) (*storage.BatchResult, error) {
	return nil, nil
}
func (f *fakeStorage) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	return f.memories[id], nil
}
func (f *fakeStorage) ListMemories(ctx context.Context, filter storage.ListFilter) ([]*types.Memory, error) {
	out := make([]*types.Memory, 0, len(f.memories))
	for _, m := range f.memories {
		out = append(out, m)
	}
	return out, nil
}
func (f *fakeStorage) BatchModify(ctx context.Context, ids []string, patch storage.ModifyPatch, reason string) ([]storage.BatchResult, error) {
	return nil, nil
}
func (f *fakeStorage) BatchForget(ctx context.Context, ids []string, reason string, force bool) ([]storage.BatchResult, error) {
	return nil, nil
}
func (f *fakeStorage) TouchAccess(ctx context.Context, id string) {}
func (f *fakeStorage) GetHistory(ctx context.Context, id string, limit int) ([]*types.HistoryEvent, error) {
	return nil, nil
}
func (f *fakeStorage) SetExtractionStatus(ctx context.Context, id string, status types.ExtractionStatus) error {
	return nil
}
func (f *fakeStorage) SearchKeyword(ctx context.Context, query string, limit int) (map[string]float64, error) {
	return nil, nil
}
func (f *fakeStorage) UpsertEmbedding(ctx context.Context, chunkHash string, vector []float32, dimension int, sourceType, sourceID, chunkText string) (string, error) {
	return "", nil
}
func (f *fakeStorage) SearchVector(ctx context.Context, query []float32, limit int) (map[string]float64, error) {
	return nil, nil
}
func (f *fakeStorage) VectorAvailable() bool { return false }
func (f *fakeStorage) UpsertEntity(ctx context.Context, canonicalName, displayName, entityType string) (*types.Entity, error) {
	return nil, nil
}
func (f *fakeStorage) LinkMention(ctx context.Context, memoryID, entityID, mentionText string, confidence float64) error {
	return nil
}
func (f *fakeStorage) UpsertRelation(ctx context.Context, sourceEntityID, targetEntityID, relationType string, strength, confidence float64) error {
	return nil
}
func (f *fakeStorage) EntitiesForMemory(ctx context.Context, memoryID string) ([]*types.Entity, error) {
	return nil, nil
}
func (f *fakeStorage) HottestEntities(ctx context.Context, limit int) ([]*types.Entity, error) {
	return nil, nil
}
func (f *fakeStorage) EnqueueJob(ctx context.Context, jobType types.JobType, memoryID, payload string, maxAttempts int) (string, error) {
	return "", nil
}
func (f *fakeStorage) LeaseJobs(ctx context.Context, workerID string, jobTypes []types.JobType, limit, leaseSeconds int) ([]*types.Job, error) {
	return nil, nil
}
func (f *fakeStorage) CompleteJob(ctx context.Context, jobID, leaseID, result string) error {
	return nil
}
func (f *fakeStorage) FailJob(ctx context.Context, jobID, leaseID, errMsg, errCode string, baseBackoff, capBackoff int64) error {
	return nil
}
func (f *fakeStorage) SweepExpiredLeases(ctx context.Context, leaseSeconds int) (int, error) {
	return 0, nil
}
func (f *fakeStorage) GetJob(ctx context.Context, jobID string) (*types.Job, error) { return nil, nil }
func (f *fakeStorage) UpsertDocument(ctx context.Context, path, fileHash string) (*types.Document, error) {
	return nil, nil
}
func (f *fakeStorage) LinkDocumentMemory(ctx context.Context, documentID, memoryID string, chunkIndex int, header string) error {
	return nil
}
func (f *fakeStorage) ClaimSession(ctx context.Context, key, runtimePath, project, harness string) (*types.Session, error) {
	if existing, ok := f.sessions[key]; ok && existing.EndedAt == nil && existing.RuntimePath != runtimePath {
		return nil, errForbidden{}
	}
	s := &types.Session{Key: key, RuntimePath: runtimePath, Project: project, Harness: harness, ClaimedAt: time.Now()}
	f.sessions[key] = s
	return s, nil
}
func (f *fakeStorage) GetSession(ctx context.Context, key string) (*types.Session, error) {
	return f.sessions[key], nil
}
func (f *fakeStorage) EndSession(ctx context.Context, key string) error {
	if s, ok := f.sessions[key]; ok {
		now := time.Now()
		s.EndedAt = &now
	}
	return nil
}
func (f *fakeStorage) RunRetentionSweep(ctx context.Context, tombstoneWindow, historyWindow, completedWindow, deadWindow int64, batchLimit int) (*storage.RetentionSummary, error) {
	return nil, nil
}
func (f *fakeStorage) Close() error          { return nil }
func (f *fakeStorage) Path() string          { return "" }
func (f *fakeStorage) UnderlyingDB() *sql.DB { return nil }

type errForbidden struct{}

func (errForbidden) Error() string { return "forbidden" }

var _ storage.Storage = (*fakeStorage)(nil)

func TestOnSessionStartClaimsAndFormatsRecent(t *testing.T) {
	fs := &fakeStorage{
		sessions: map[string]*types.Session{},
		memories: map[string]*types.Memory{
			"a": {ID: "a", Content: "remembered thing", Type: "fact", UpdatedAt: time.Now()},
		},
	}
	recallEngine := recall.New(fs, nil, recall.DefaultConfig())
	e := New(fs, recallEngine)

	injection, err := e.OnSessionStart(context.Background(), "sess-1", "plugin", "proj", "claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if injection == "" {
		t.Fatalf("expected non-empty injection string")
	}
	if fs.sessions["sess-1"] == nil {
		t.Fatalf("expected session to be claimed")
	}
}

func TestOnUserPromptAutoClaimsLegacyWhenAbsent(t *testing.T) {
	fs := &fakeStorage{sessions: map[string]*types.Session{}, memories: map[string]*types.Memory{}}
	recallEngine := recall.New(fs, nil, recall.DefaultConfig())
	e := New(fs, recallEngine)

	_, err := e.OnUserPrompt(context.Background(), "sess-2", "what did we discuss", "proj", "claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := fs.sessions["sess-2"]
	if s == nil || s.RuntimePath != "legacy" {
		t.Fatalf("expected auto-claim with legacy runtime path, got %+v", s)
	}
}
