package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/storage"
	"github.com/signet-ai/signet/internal/types"
)

const memoryColumns = `id, content, type, importance, confidence, tags, who, project, pinned,
	is_deleted, deleted_at, content_hash, idempotency_key, runtime_path, signature, signer_did,
	version, created_at, updated_at, source_type, source_path, source_section, source_id,
	access_count, last_accessed, extraction_status, embedding_model`

type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(row scanner) (*types.Memory, error) {
	var m types.Memory
	var tags string
	var pinned, isDeleted int
	var idempotencyKey, runtimePath, signature, signerDID sql.NullString
	var sourceType, sourcePath, sourceSection, sourceID, embeddingModel sql.NullString
	var deletedAt, lastAccessed sql.NullTime

	err := row.Scan(
		&m.ID, &m.Content, &m.Type, &m.Importance, &m.Confidence, &tags, &m.Who, &m.Project, &pinned,
		&isDeleted, &deletedAt, &m.ContentHash, &idempotencyKey, &runtimePath, &signature, &signerDID,
		&m.Version, &m.CreatedAt, &m.UpdatedAt, &sourceType, &sourcePath, &sourceSection, &sourceID,
		&m.AccessCount, &lastAccessed, &m.ExtractionStatus, &embeddingModel,
	)
	if err != nil {
		return nil, err
	}

	m.Pinned = pinned != 0
	m.IsDeleted = isDeleted != 0
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}
	if tags != "" {
		m.Tags = strings.Split(tags, ",")
	}
	m.IdempotencyKey = idempotencyKey.String
	m.RuntimePath = runtimePath.String
	m.Signature = signature.String
	m.SignerDID = signerDID.String
	m.SourceType = sourceType.String
	m.SourcePath = sourcePath.String
	m.SourceSection = sourceSection.String
	m.SourceID = sourceID.String
	m.EmbeddingModel = embeddingModel.String
	if lastAccessed.Valid {
		la := lastAccessed.Time
		m.LastAccessed = &la
	}
	return &m, nil
}

func getMemory(ctx context.Context, q execer, id string) (*types.Memory, error) {
	row := q.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, signeterr.NotFound("memory not found")
	}
	if err != nil {
		return nil, signeterr.Internal("scan memory", err)
	}
	return m, nil
}

func findByIdempotencyKey(ctx context.Context, q execer, key string) (*types.Memory, error) {
	row := q.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE idempotency_key = ?`, key)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, signeterr.Internal("scan memory by idempotency key", err)
	}
	return m, nil
}

func findLiveByContentHash(ctx context.Context, q execer, hash string) (*types.Memory, error) {
	row := q.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE content_hash = ? AND is_deleted = 0`, hash)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, signeterr.Internal("scan memory by content hash", err)
	}
	return m, nil
}

// remember implements the Memory Store's idempotent create operation.
func remember(ctx context.Context, tx *sql.Tx, content string, opts storage.RememberOpts) (*storage.RememberResult, error) {
	normalized := normalizeContent(content)
	if normalized == "" {
		return nil, signeterr.InvalidPayload("content must not be empty")
	}
	hash := contentHash(normalized)

	if opts.IdempotencyKey != "" {
		if existing, err := findByIdempotencyKey(ctx, tx, opts.IdempotencyKey); err != nil {
			return nil, err
		} else if existing != nil {
			return &storage.RememberResult{ID: existing.ID, Version: existing.Version, Deduped: true}, nil
		}
	}

	if existing, err := findLiveByContentHash(ctx, tx, hash); err != nil {
		return nil, err
	} else if existing != nil {
		newTags := mergeTags(existing.Tags, opts.Tags)
		newImportance := existing.Importance
		if opts.Importance > newImportance {
			newImportance = opts.Importance
		}
		_, err := tx.ExecContext(ctx, `
UPDATE memories SET tags = ?, importance = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`, strings.Join(newTags, ","), newImportance, existing.ID)
		if err != nil {
			return nil, signeterr.Internal("refresh deduped memory", err)
		}
		return &storage.RememberResult{ID: existing.ID, Version: existing.Version, Deduped: true}, nil
	}

	id := opts.PrecomputedID
	if id == "" {
		id = uuid.New().String()
	}
	importance := opts.Importance
	if importance == 0 {
		importance = 0.5
	}
	confidence := opts.Confidence
	if confidence == 0 {
		confidence = 1.0
	}
	memType := opts.Type
	if memType == "" {
		memType = "fact"
	}
	extractionStatus := types.ExtractionPending

	var createdAt any
	if !opts.CreatedAt.IsZero() {
		createdAt = opts.CreatedAt.UTC()
	}

	_, err := tx.ExecContext(ctx, `
INSERT INTO memories (
	id, content, type, importance, confidence, tags, who, project, pinned,
	content_hash, idempotency_key, runtime_path, signature, signer_did,
	source_type, source_path, source_section, source_id, extraction_status, version,
	created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1,
	COALESCE(?, CURRENT_TIMESTAMP), COALESCE(?, CURRENT_TIMESTAMP))`,
		id, normalized, memType, importance, confidence, strings.Join(opts.Tags, ","), opts.Who, opts.Project, boolToInt(opts.Pinned),
		hash, nullIfEmpty(opts.IdempotencyKey), opts.RuntimePath, nullIfEmpty(opts.Signature), nullIfEmpty(opts.SignerDID),
		nullIfEmpty(opts.SourceType), nullIfEmpty(opts.SourcePath), nullIfEmpty(opts.SourceSection), nullIfEmpty(opts.SourceID), extractionStatus,
		createdAt, createdAt)
	if err != nil {
		return nil, signeterr.Internal("insert memory", err)
	}

	if err := appendHistory(ctx, tx, id, types.HistoryCreated, "", normalized, opts.Who, "", opts.ActorType, opts.SessionID, opts.RequestID); err != nil {
		return nil, err
	}

	return &storage.RememberResult{ID: id, Version: 1, Deduped: false}, nil
}

func modify(ctx context.Context, tx *sql.Tx, id string, patch storage.ModifyPatch, reason string, ifVersion *int) (*storage.BatchResult, error) {
	current, err := getMemory(ctx, tx, id)
	if err != nil {
		if se, ok := signeterr.As(err); ok && se.Code == signeterr.CodeNotFound {
			return &storage.BatchResult{ID: id, Status: storage.BatchNotFound}, nil
		}
		return nil, err
	}
	if ifVersion != nil && *ifVersion != current.Version {
		return &storage.BatchResult{ID: id, Status: storage.BatchVersionConflict, Version: current.Version}, nil
	}
	if current.IsDeleted {
		return &storage.BatchResult{ID: id, Status: storage.BatchNotFound}, nil
	}

	newContent := current.Content
	contentChanged := false
	if patch.Content != nil {
		normalized := normalizeContent(*patch.Content)
		if normalized != current.Content {
			newContent = normalized
			contentChanged = true
		}
	}
	newType := current.Type
	if patch.Type != nil {
		newType = *patch.Type
	}
	newImportance := current.Importance
	if patch.Importance != nil {
		newImportance = *patch.Importance
	}
	newTags := current.Tags
	if patch.Tags != nil {
		newTags = patch.Tags
	}
	newPinned := current.Pinned
	if patch.Pinned != nil {
		newPinned = *patch.Pinned
	}

	noOp := !contentChanged && newType == current.Type && newImportance == current.Importance &&
		strings.Join(newTags, ",") == strings.Join(current.Tags, ",") && newPinned == current.Pinned
	if noOp {
		return &storage.BatchResult{ID: id, Status: storage.BatchNoChanges, Version: current.Version}, nil
	}

	newVersion := current.Version + 1
	extractionStatus := current.ExtractionStatus
	newHash := current.ContentHash
	if contentChanged {
		extractionStatus = types.ExtractionPending
		newHash = contentHash(newContent)
	}

	_, err = tx.ExecContext(ctx, `
UPDATE memories SET content = ?, type = ?, importance = ?, tags = ?, pinned = ?,
	content_hash = ?, extraction_status = ?, version = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`, newContent, newType, newImportance, strings.Join(newTags, ","), boolToInt(newPinned),
		newHash, extractionStatus, newVersion, id)
	if err != nil {
		return nil, signeterr.Internal("update memory", err)
	}

	if err := appendHistory(ctx, tx, id, types.HistoryUpdated, current.Content, newContent, "", reason, "", "", ""); err != nil {
		return nil, err
	}

	return &storage.BatchResult{ID: id, Status: storage.BatchUpdated, Version: newVersion}, nil
}

func forget(ctx context.Context, tx *sql.Tx, id string, reason string, force bool, ifVersion *int) (*storage.BatchResult, error) {
	current, err := getMemory(ctx, tx, id)
	if err != nil {
		if se, ok := signeterr.As(err); ok && se.Code == signeterr.CodeNotFound {
			return &storage.BatchResult{ID: id, Status: storage.BatchNotFound}, nil
		}
		return nil, err
	}
	if ifVersion != nil && *ifVersion != current.Version {
		return &storage.BatchResult{ID: id, Status: storage.BatchVersionConflict, Version: current.Version}, nil
	}
	if current.IsDeleted {
		return &storage.BatchResult{ID: id, Status: storage.BatchDeleted, Version: current.Version}, nil
	}
	if current.Pinned && !force {
		return nil, signeterr.PinnedRequiresForce("memory is pinned; pass force=true")
	}

	newVersion := current.Version + 1
	_, err = tx.ExecContext(ctx, `
UPDATE memories SET is_deleted = 1, deleted_at = CURRENT_TIMESTAMP, version = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`, newVersion, id)
	if err != nil {
		return nil, signeterr.Internal("soft delete memory", err)
	}

	if err := appendHistory(ctx, tx, id, types.HistoryDeleted, current.Content, current.Content, "", reason, "", "", ""); err != nil {
		return nil, err
	}

	return &storage.BatchResult{ID: id, Status: storage.BatchDeleted, Version: newVersion}, nil
}

func recoverMemory(ctx context.Context, tx *sql.Tx, id string, reason string, ifVersion *int) (*storage.BatchResult, error) {
	current, err := getMemory(ctx, tx, id)
	if err != nil {
		if se, ok := signeterr.As(err); ok && se.Code == signeterr.CodeNotFound {
			return &storage.BatchResult{ID: id, Status: storage.BatchNotFound}, nil
		}
		return nil, err
	}
	if !current.IsDeleted {
		return &storage.BatchResult{ID: id, Status: storage.BatchUpdated, Version: current.Version}, nil
	}
	if ifVersion != nil && *ifVersion != current.Version {
		return &storage.BatchResult{ID: id, Status: storage.BatchVersionConflict, Version: current.Version}, nil
	}

	newVersion := current.Version + 1
	_, err = tx.ExecContext(ctx, `
UPDATE memories SET is_deleted = 0, deleted_at = NULL, version = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`, newVersion, id)
	if err != nil {
		return nil, signeterr.Internal("recover memory", err)
	}

	if err := appendHistory(ctx, tx, id, types.HistoryRecovered, current.Content, current.Content, "", reason, "", "", ""); err != nil {
		return nil, err
	}

	return &storage.BatchResult{ID: id, Status: storage.BatchUpdated, Version: newVersion}, nil
}

func mergeTags(existing, incoming []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range existing {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	for _, t := range incoming {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (d *DB) ListMemories(ctx context.Context, filter storage.ListFilter) ([]*types.Memory, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + memoryColumns + ` FROM memories WHERE is_deleted = 0`
	args := []any{}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.Who != "" {
		query += ` AND who = ?`
		args = append(args, filter.Who)
	}
	if filter.Pinned != nil {
		query += ` AND pinned = ?`
		args = append(args, boolToInt(*filter.Pinned))
	}
	if filter.ImportanceMin > 0 {
		query += ` AND importance >= ?`
		args = append(args, filter.ImportanceMin)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}
	for _, tag := range filter.Tags {
		query += ` AND (',' || tags || ',') LIKE ?`
		args = append(args, "%,"+tag+",%")
	}
	query += ` ORDER BY updated_at DESC, id ASC LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, signeterr.Internal("list memories", err)
	}
	defer rows.Close()

	var out []*types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, signeterr.Internal("scan memory row", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (d *DB) BatchModify(ctx context.Context, ids []string, patch storage.ModifyPatch, reason string) ([]storage.BatchResult, error) {
	out := make([]storage.BatchResult, 0, len(ids))
	for _, id := range ids {
		var res *storage.BatchResult
		err := d.WithWriteTx(ctx, func(tx storage.Transaction) error {
			r, err := tx.Modify(ctx, id, patch, reason, nil)
			res = r
			return err
		})
		if err != nil {
			out = append(out, storage.BatchResult{ID: id, Status: storage.BatchNotFound})
			continue
		}
		out = append(out, *res)
	}
	return out, nil
}

func (d *DB) BatchForget(ctx context.Context, ids []string, reason string, force bool) ([]storage.BatchResult, error) {
	out := make([]storage.BatchResult, 0, len(ids))
	for _, id := range ids {
		var res *storage.BatchResult
		err := d.WithWriteTx(ctx, func(tx storage.Transaction) error {
			r, err := tx.Forget(ctx, id, reason, force, nil)
			res = r
			return err
		})
		if err != nil {
			out = append(out, storage.BatchResult{ID: id, Status: storage.BatchNotFound})
			continue
		}
		out = append(out, *res)
	}
	return out, nil
}

// TouchAccess is a best-effort access-count bump: queued onto the single
// writer like any other mutation, but the caller never waits on it.
func (d *DB) TouchAccess(ctx context.Context, id string) {
	go func() {
		_ = d.withWriteSQLTx(context.Background(), func(tx *sql.Tx) error {
			_, err := tx.ExecContext(context.Background(), `
UPDATE memories SET access_count = access_count + 1, last_accessed = CURRENT_TIMESTAMP
WHERE id = ?`, id)
			return err
		})
	}()
}

// SetExtractionStatus records where a memory is in the extraction
// pipeline, driven by the Extract worker as it picks up, finishes, or
// fails a job.
func (d *DB) SetExtractionStatus(ctx context.Context, id string, status types.ExtractionStatus) error {
	return d.withWriteSQLTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE memories SET extraction_status = ? WHERE id = ?`, status, id)
		if err != nil {
			return signeterr.Internal("set extraction status", err)
		}
		return nil
	})
}
