// Package storage defines the engine's accessor contract: a single
// writer serialising all mutating work, and freely concurrent readers
// against the latest committed snapshot.
package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/signet-ai/signet/internal/types"
)

// ErrDBNotInitialized is returned when a storage feature is used before
// the backing database has been opened and migrated.
var ErrDBNotInitialized = errors.New("database not initialized")

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeAndHash trims, NFC-normalises and collapses whitespace in
// content the same way the engine's internal remember() path does, and
// returns the resulting content_hash. Callers that need a stable id to
// sign before a write transaction starts (the Signing Layer) use this to
// compute the same hash the write path will.
func NormalizeAndHash(content string) (normalized, hash string) {
	trimmed := strings.TrimSpace(content)
	composed := norm.NFC.String(trimmed)
	normalized = whitespaceRun.ReplaceAllString(composed, " ")
	sum := sha256.Sum256([]byte(normalized))
	return normalized, hex.EncodeToString(sum[:])
}

// RememberOpts carries the optional fields remember() accepts beyond the
// raw content string.
type RememberOpts struct {
	// PrecomputedID, if set, is used as the new row's id instead of
	// generating one, so a caller (the Signing Layer) can sign the
	// envelope's id/content_hash pair before the write transaction
	// starts.
	PrecomputedID string
	// CreatedAt, if non-zero, is persisted as the row's created_at instead
	// of the column's CURRENT_TIMESTAMP default, so a caller that signed
	// the envelope before the write transaction (the Signing Layer) can
	// guarantee the persisted timestamp matches the signed one.
	CreatedAt      time.Time
	Type           string
	Importance     float64
	Confidence     float64
	Tags           []string
	Who            string
	Project        string
	Pinned         bool
	SourceType     string
	SourcePath     string
	SourceSection  string
	SourceID       string
	IdempotencyKey string
	RuntimePath    string
	Signature      string
	SignerDID      string
	ActorType      types.ActorType
	SessionID      string
	RequestID      string
}

// RememberResult reports what remember() actually did.
type RememberResult struct {
	ID      string
	Version int
	Deduped bool
}

// ModifyPatch carries the optional fields a modify() call may change.
// Nil pointers mean "leave unchanged".
type ModifyPatch struct {
	Content    *string
	Type       *string
	Importance *float64
	Tags       []string
	Pinned     *bool
}

// BatchItemStatus is the per-item outcome of a batch modify/forget call.
type BatchItemStatus string

const (
	BatchUpdated         BatchItemStatus = "updated"
	BatchDeleted         BatchItemStatus = "deleted"
	BatchVersionConflict BatchItemStatus = "version_conflict"
	BatchDuplicate       BatchItemStatus = "duplicate"
	BatchNotFound        BatchItemStatus = "not_found"
	BatchNoChanges       BatchItemStatus = "no_changes"
)

// BatchResult is one item's outcome within a batch operation.
type BatchResult struct {
	ID      string          `json:"id"`
	Status  BatchItemStatus `json:"status"`
	Version int             `json:"version,omitempty"`
}

// RetentionSummary reports what one retention sweep did, for observability.
type RetentionSummary struct {
	TombstonesPurged     int `json:"tombstonesPurged"`
	HistoryPurged        int `json:"historyPurged"`
	CompletedJobsPurged  int `json:"completedJobsPurged"`
	DeadJobsPurged       int `json:"deadJobsPurged"`
	GraphLinksPurged     int `json:"graphLinksPurged"`
	EntitiesOrphaned     int `json:"entitiesOrphaned"`
}

// ListFilter constrains ListMemories and the Recall Engine's candidate
// pool selection. Zero values mean "no constraint" except where noted.
type ListFilter struct {
	Type          string
	Tags          []string
	Who           string
	Pinned        *bool
	ImportanceMin float64
	Since         *time.Time
	Limit         int
	Offset        int
}

// Transaction exposes the subset of Storage operations that must run
// inside a single write transaction together, for callers composing
// multi-step atomic workflows (e.g. a worker writing a derived memory
// and its graph links in one commit).
type Transaction interface {
	Remember(ctx context.Context, content string, opts RememberOpts) (*RememberResult, error)
	Modify(ctx context.Context, id string, patch ModifyPatch, reason string, ifVersion *int) (*BatchResult, error)
	Forget(ctx context.Context, id string, reason string, force bool, ifVersion *int) (*BatchResult, error)
	Recover(ctx context.Context, id string, reason string, ifVersion *int) (*BatchResult, error)
	GetMemory(ctx context.Context, id string) (*types.Memory, error)

	UpsertEntity(ctx context.Context, canonicalName, displayName, entityType string) (*types.Entity, error)
	LinkMention(ctx context.Context, memoryID, entityID, mentionText string, confidence float64) error
	UpsertRelation(ctx context.Context, sourceEntityID, targetEntityID, relationType string, strength, confidence float64) error

	EnqueueJob(ctx context.Context, jobType types.JobType, memoryID, payload string, maxAttempts int) (string, error)
	CompleteJob(ctx context.Context, jobID, leaseID, result string) error
	FailJob(ctx context.Context, jobID, leaseID, errMsg, errCode string, baseBackoff, capBackoff int64) error
}

// Storage is the full accessor contract for the memories database.
type Storage interface {
	// Single-writer / reader primitives.
	WithWriteTx(ctx context.Context, fn func(tx Transaction) error) error
	WithRead(ctx context.Context, fn func(db *sql.DB) error) error

	// Memory Store (read-only / best-effort paths that don't need the
	// full write-transaction ceremony of Transaction above).
	Remember(ctx context.Context, content string, opts RememberOpts) (*RememberResult, error)
	Modify(ctx context.Context, id string, patch ModifyPatch, reason string, ifVersion *int) (*BatchResult, error)
	Forget(ctx context.Context, id string, reason string, force bool, ifVersion *int) (*BatchResult, error)
	Recover(ctx context.Context, id string, reason string, ifVersion *int) (*BatchResult, error)
	GetMemory(ctx context.Context, id string) (*types.Memory, error)
	ListMemories(ctx context.Context, filter ListFilter) ([]*types.Memory, error)
	BatchModify(ctx context.Context, ids []string, patch ModifyPatch, reason string) ([]BatchResult, error)
	BatchForget(ctx context.Context, ids []string, reason string, force bool) ([]BatchResult, error)
	TouchAccess(ctx context.Context, id string)
	GetHistory(ctx context.Context, id string, limit int) ([]*types.HistoryEvent, error)
	SetExtractionStatus(ctx context.Context, id string, status types.ExtractionStatus) error

	// Full-text & vector indexes.
	SearchKeyword(ctx context.Context, query string, limit int) (map[string]float64, error)
	UpsertEmbedding(ctx context.Context, chunkHash string, vector []float32, dimension int, sourceType, sourceID, chunkText string) (string, error)
	SearchVector(ctx context.Context, query []float32, limit int) (map[string]float64, error)
	VectorAvailable() bool

	// Entity graph.
	UpsertEntity(ctx context.Context, canonicalName, displayName, entityType string) (*types.Entity, error)
	LinkMention(ctx context.Context, memoryID, entityID, mentionText string, confidence float64) error
	UpsertRelation(ctx context.Context, sourceEntityID, targetEntityID, relationType string, strength, confidence float64) error
	EntitiesForMemory(ctx context.Context, memoryID string) ([]*types.Entity, error)
	HottestEntities(ctx context.Context, limit int) ([]*types.Entity, error)

	// Job queue.
	EnqueueJob(ctx context.Context, jobType types.JobType, memoryID, payload string, maxAttempts int) (string, error)
	LeaseJobs(ctx context.Context, workerID string, jobTypes []types.JobType, limit, leaseSeconds int) ([]*types.Job, error)
	CompleteJob(ctx context.Context, jobID, leaseID, result string) error
	FailJob(ctx context.Context, jobID, leaseID, errMsg, errCode string, baseBackoff, capBackoff int64) error
	SweepExpiredLeases(ctx context.Context, leaseSeconds int) (int, error)
	GetJob(ctx context.Context, jobID string) (*types.Job, error)

	// Documents.
	UpsertDocument(ctx context.Context, path, fileHash string) (*types.Document, error)
	LinkDocumentMemory(ctx context.Context, documentID, memoryID string, chunkIndex int, header string) error

	// Sessions.
	ClaimSession(ctx context.Context, key, runtimePath, project, harness string) (*types.Session, error)
	GetSession(ctx context.Context, key string) (*types.Session, error)
	EndSession(ctx context.Context, key string) error

	// Retention.
	RunRetentionSweep(ctx context.Context, tombstoneWindow, historyWindow, completedWindow, deadWindow int64, batchLimit int) (*RetentionSummary, error)

	// Lifecycle.
	Close() error
	Path() string
	UnderlyingDB() *sql.DB
}
