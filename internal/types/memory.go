// Package types holds the data-model structs shared across the memory
// engine: the storage layer, the recall engine, the job queue and the
// workers all operate on these types rather than passing raw SQL rows
// around.
package types

import "time"

// ExtractionStatus tracks where a memory is in the extraction pipeline.
type ExtractionStatus string

const (
	ExtractionNone       ExtractionStatus = "none"
	ExtractionPending    ExtractionStatus = "pending"
	ExtractionInProgress ExtractionStatus = "in_progress"
	ExtractionDone       ExtractionStatus = "done"
	ExtractionFailed     ExtractionStatus = "failed"
)

// RuntimePath labels which channel a harness used to reach the daemon.
type RuntimePath string

const (
	RuntimePlugin RuntimePath = "plugin"
	RuntimeLegacy RuntimePath = "legacy"
	RuntimeCLI    RuntimePath = "cli"
)

// Memory is the durable record at the center of the engine. Field tags
// mirror the JSON shape returned by the HTTP API (§6 of the spec).
type Memory struct {
	ID              string    `json:"id"`
	Content         string    `json:"content"`
	Type            string    `json:"type"`
	Importance      float64   `json:"importance"`
	Confidence      float64   `json:"confidence"`
	Tags            []string  `json:"tags,omitempty"`
	Who             string    `json:"who,omitempty"`
	Project         string    `json:"project,omitempty"`
	Pinned          bool      `json:"pinned"`
	IsDeleted       bool      `json:"-"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	ContentHash     string    `json:"content_hash,omitempty"`
	IdempotencyKey  string    `json:"idempotency_key,omitempty"`
	RuntimePath     string    `json:"runtime_path,omitempty"`
	Signature       string    `json:"signature,omitempty"`
	SignerDID       string    `json:"signer_did,omitempty"`
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	SourceType    string `json:"source_type,omitempty"`
	SourcePath    string `json:"source_path,omitempty"`
	SourceSection string `json:"source_section,omitempty"`
	SourceID      string `json:"source_id,omitempty"`

	AccessCount  int        `json:"access_count"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`

	ExtractionStatus ExtractionStatus `json:"extraction_status"`
	EmbeddingModel   string           `json:"embedding_model,omitempty"`
}

// HistoryEventKind enumerates the append-only history event kinds.
type HistoryEventKind string

const (
	HistoryCreated   HistoryEventKind = "created"
	HistoryUpdated   HistoryEventKind = "updated"
	HistoryDeleted   HistoryEventKind = "deleted"
	HistoryRecovered HistoryEventKind = "recovered"
)

// ActorType classifies who triggered a history event, for retention policy
// and audit purposes (§4.3 "History actor classification").
type ActorType string

const (
	ActorUser    ActorType = "user"
	ActorHarness ActorType = "harness"
	ActorWorker  ActorType = "worker"
	ActorSystem  ActorType = "system"
)

// HistoryEvent is one append-only row describing a memory state transition.
type HistoryEvent struct {
	ID              int64            `json:"id"`
	MemoryID        string           `json:"memory_id"`
	Kind            HistoryEventKind `json:"kind"`
	PreviousContent string           `json:"previous_content,omitempty"`
	NextContent     string           `json:"next_content,omitempty"`
	ChangedBy       string           `json:"changed_by,omitempty"`
	Reason          string           `json:"reason,omitempty"`
	Metadata        string           `json:"metadata,omitempty"` // JSON blob
	ActorType       ActorType        `json:"actor_type"`
	SessionID       string           `json:"session_id,omitempty"`
	RequestID       string           `json:"request_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Embedding is a content-addressed vector row, shared by any number of
// memory/document-chunk references that embed identical text.
type Embedding struct {
	ID         string    `json:"id"`
	ChunkHash  string    `json:"chunk_hash"`
	Vector     []float32 `json:"-"`
	Dimension  int       `json:"dimension"`
	SourceType string    `json:"source_type"` // "memory" | "document_chunk"
	SourceID   string    `json:"source_id"`
	ChunkText  string    `json:"chunk_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Entity is a named thing mentioned across memories.
type Entity struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CanonicalName string    `json:"canonical_name"`
	Type          string    `json:"type,omitempty"`
	MentionCount  int       `json:"mention_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Relation is a directed, typed edge between two entities.
type Relation struct {
	ID             int64     `json:"id"`
	SourceEntityID string    `json:"source_entity_id"`
	TargetEntityID string    `json:"target_entity_id"`
	RelationType   string    `json:"relation_type"`
	Strength       float64   `json:"strength"`
	Confidence     float64   `json:"confidence"`
	MentionCount   int       `json:"mention_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Mention links a memory to an entity it references.
type Mention struct {
	MemoryID   string  `json:"memory_id"`
	EntityID   string  `json:"entity_id"`
	Text       string  `json:"mention_text"`
	Confidence float64 `json:"confidence"`
}

// JobType enumerates the kinds of work the queue carries.
type JobType string

const (
	JobExtract   JobType = "extract"
	JobEmbed     JobType = "embed"
	JobDecide    JobType = "decide"
	JobSummary   JobType = "summary"
	JobDocument  JobType = "document"
	JobRetention JobType = "retention"
)

// JobStatus enumerates the lifecycle states a job moves through.
type JobStatus string

const (
	JobPending        JobStatus = "pending"
	JobLeased         JobStatus = "leased"
	JobRetryScheduled JobStatus = "retry_scheduled"
	JobCompleted      JobStatus = "completed"
	JobDead           JobStatus = "dead"
)

// Job is a durable, at-least-once unit of async work.
type Job struct {
	ID            string     `json:"id"`
	MemoryID      string     `json:"memory_id,omitempty"`
	Type          JobType    `json:"job_type"`
	Status        JobStatus  `json:"status"`
	Payload       string     `json:"payload"` // JSON
	Result        string     `json:"result,omitempty"`
	Attempts      int        `json:"attempts"`
	MaxAttempts   int        `json:"max_attempts"`
	LeaseID       string     `json:"-"`
	LeasedAt      *time.Time `json:"leased_at,omitempty"`
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	LastErrorCode string     `json:"last_error_code,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Document aggregates the memories ingested from one source file.
type Document struct {
	ID              string    `json:"id"`
	Path            string    `json:"path"`
	FileHash        string    `json:"file_hash"`
	IngestionStatus string    `json:"ingestion_status"`
	ChunkCount      int       `json:"chunk_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DocumentMemoryLink ties a memory row back to the document chunk it came
// from, for provenance and re-ingestion skip checks.
type DocumentMemoryLink struct {
	DocumentID string `json:"document_id"`
	MemoryID   string `json:"memory_id"`
	ChunkIndex int    `json:"chunk_index"`
	Header     string `json:"header,omitempty"`
}

// Session tracks the claimed/ended lifecycle of one harness session.
type Session struct {
	Key         string     `json:"session_key"`
	RuntimePath string     `json:"runtime_path"`
	Project     string     `json:"project,omitempty"`
	Harness     string     `json:"harness,omitempty"`
	ClaimedAt   time.Time  `json:"claimed_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}
