package recall

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/signet-ai/signet/internal/storage"
	"github.com/signet-ai/signet/internal/types"
)

// fakeStorage implements storage.Storage with just enough behavior to
// exercise the fusion algorithm; every method the recall engine doesn't
// touch is a harmless stub.
type fakeStorage struct {
	memories  map[string]*types.Memory
	keyword   map[string]float64
	vector    map[string]float64
	vecOK     bool
	entities  map[string][]*types.Entity
	hottest   []*types.Entity
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
	return f.keyword, nil
}
func (f *fakeStorage) UpsertEmbedding(ctx context.Context, chunkHash string, vector []float32, dimension int, sourceType, sourceID, chunkText string) (string, error) {
	return "", nil
}
func (f *fakeStorage) SearchVector(ctx context.Context, query []float32, limit int) (map[string]float64, error) {
	return f.vector, nil
}
func (f *fakeStorage) VectorAvailable() bool { return f.vecOK }
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
	return f.entities[memoryID], nil
}
func (f *fakeStorage) HottestEntities(ctx context.Context, limit int) ([]*types.Entity, error) {
	return f.hottest, nil
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
	return nil, nil
}
func (f *fakeStorage) GetSession(ctx context.Context, key string) (*types.Session, error) {
	return nil, nil
}
func (f *fakeStorage) EndSession(ctx context.Context, key string) error { return nil }
func (f *fakeStorage) RunRetentionSweep(ctx context.Context, tombstoneWindow, historyWindow, completedWindow, deadWindow int64, batchLimit int) (*storage.RetentionSummary, error) {
	return nil, nil
}
func (f *fakeStorage) Close() error          { return nil }
func (f *fakeStorage) Path() string          { return "" }
func (f *fakeStorage) UnderlyingDB() *sql.DB { return nil }

var _ storage.Storage = (*fakeStorage)(nil)

func newMemory(id, content string, pinned bool, updatedAt time.Time) *types.Memory {
	return &types.Memory{ID: id, Content: content, Type: "fact", Importance: 0.5, Pinned: pinned, UpdatedAt: updatedAt, CreatedAt: updatedAt}
}

func TestRecallEmptyQueryNoFilterReturnsEmpty(t *testing.T) {
	fs := &fakeStorage{memories: map[string]*types.Memory{}}
	e := New(fs, nil, DefaultConfig())
	results, err := e.Recall(context.Background(), "", Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for empty query with no filters, got %d", len(results))
	}
}

func TestRecallEmptyQueryWithFilterListsOrdered(t *testing.T) {
	older := newMemory("a", "older", false, time.Now().Add(-time.Hour))
	newer := newMemory("b", "newer", false, time.Now())
	fs := &fakeStorage{memories: map[string]*types.Memory{"a": older, "b": newer}}
	e := New(fs, nil, DefaultConfig())
	results, err := e.Recall(context.Background(), "", Filter{Type: "fact", Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 || results[0].ID != "b" || results[1].ID != "a" {
		t.Fatalf("expected newer-first ordering, got %+v", results)
	}
}

func TestRecallFusesKeywordAndPinnedBoost(t *testing.T) {
	plain := newMemory("a", "plain memory", false, time.Now())
	pinned := newMemory("b", "pinned memory", true, time.Now())
	fs := &fakeStorage{
		memories: map[string]*types.Memory{"a": plain, "b": pinned},
		keyword:  map[string]float64{"a": 0.5, "b": 0.5},
	}
	e := New(fs, nil, DefaultConfig())
	results, err := e.Recall(context.Background(), "memory", Filter{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "b" {
		t.Fatalf("expected pinned memory to outrank plain memory due to pinnedBoost, got %+v", results)
	}
}

func TestRecallMinScoreFloor(t *testing.T) {
	weak := newMemory("a", "weak", false, time.Now())
	fs := &fakeStorage{
		memories: map[string]*types.Memory{"a": weak},
		keyword:  map[string]float64{"a": 0.01},
	}
	e := New(fs, nil, DefaultConfig())
	results, err := e.Recall(context.Background(), "weak", Filter{MinScore: 0.5, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected min_score floor to exclude weak match, got %+v", results)
	}
}
