package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/signet-ai/signet/internal/naturaldate"
	"github.com/signet-ai/signet/internal/recall"
	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/storage"
	"github.com/signet-ai/signet/internal/types"
)

// toActorType maps the x-signet-actor-type header onto the closed
// ActorType enum the history ledger and retention policy key off of,
// defaulting to "harness" for requests that don't set it.
func toActorType(raw string) types.ActorType {
	switch types.ActorType(raw) {
	case types.ActorUser, types.ActorHarness, types.ActorWorker, types.ActorSystem:
		return types.ActorType(raw)
	default:
		return types.ActorHarness
	}
}

type rememberRequest struct {
	Content        string   `json:"content"`
	Type           string   `json:"type"`
	Importance     float64  `json:"importance"`
	Tags           []string `json:"tags"`
	Who            string   `json:"who"`
	Pinned         bool     `json:"pinned"`
	SourceType     string   `json:"source_type"`
	IdempotencyKey string   `json:"idempotencyKey"`
	RuntimePath    string   `json:"runtimePath"`
	Mode           string   `json:"mode"` // auto | sync | async
}

type rememberResponse struct {
	ID       string   `json:"id"`
	Version  int      `json:"version"`
	Embedded bool     `json:"embedded,omitempty"`
	Deduped  bool     `json:"deduped,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Server) handleRemember(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config.Current()
	if !cfg.Enabled || cfg.MutationsFrozen {
		writeError(w, signeterr.New(signeterr.CodeForbidden, "writes are disabled"))
		return
	}

	var req rememberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Content == "" {
		writeError(w, signeterr.InvalidPayload("content is required"))
		return
	}

	actor, actorType := actorFrom(r)
	runtimePath := req.RuntimePath
	if runtimePath == "" {
		runtimePath = runtimePathFrom(r)
	}
	who := req.Who
	if who == "" {
		who = actor
	}

	// The signing layer needs the envelope's id and content_hash fixed
	// before the write transaction starts, since the signature covers
	// them. Both are computed here with the exact normalization the
	// write path itself applies, so the signed pair matches what ends
	// up persisted.
	id := uuid.New().String()
	_, hash := storage.NormalizeAndHash(req.Content)
	createdAt := time.Now()

	var signature, signerDID string
	if s.Signer != nil && s.Signer.Available() {
		sig, did, err := s.Signer.Sign(id, hash, createdAt)
		if err != nil {
			writeError(w, err)
			return
		}
		signature, signerDID = sig, did
	}

	result, err := s.Store.Remember(r.Context(), req.Content, storage.RememberOpts{
		PrecomputedID:  id,
		CreatedAt:      createdAt,
		Type:           req.Type,
		Importance:     req.Importance,
		Tags:           req.Tags,
		Who:            who,
		Pinned:         req.Pinned,
		SourceType:     req.SourceType,
		IdempotencyKey: req.IdempotencyKey,
		RuntimePath:    runtimePath,
		Signature:      signature,
		SignerDID:      signerDID,
		ActorType:      toActorType(actorType),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := rememberResponse{ID: result.ID, Version: result.Version, Deduped: result.Deduped, Warnings: warningsFrom(r)}

	if !result.Deduped && !cfg.ShadowMode {
		mode := req.Mode
		if mode == "" {
			mode = "auto"
		}
		if mode != "sync" {
			_, _ = s.Store.EnqueueJob(r.Context(), types.JobEmbed, result.ID, "", cfg.WorkerMaxRetries)
			_, _ = s.Store.EnqueueJob(r.Context(), types.JobExtract, result.ID, "", cfg.WorkerMaxRetries)
			resp.Embedded = false
		} else {
			resp.Embedded = true
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type recallRequest struct {
	Query         string   `json:"query"`
	Limit         int      `json:"limit"`
	Type          string   `json:"type"`
	Tags          []string `json:"tags"`
	Who           string   `json:"who"`
	Pinned        *bool    `json:"pinned"`
	ImportanceMin float64  `json:"importance_min"`
	Since         string   `json:"since"`
	MinScore      float64  `json:"minScore"`
}

type recallStats struct {
	Total      int    `json:"total"`
	SearchTime string `json:"searchTime"`
}

type recallResponse struct {
	Results  []recall.Result `json:"results"`
	Stats    recallStats     `json:"stats"`
	Warnings []string        `json:"warnings,omitempty"`
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	var req recallRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	filter := recall.Filter{
		Type:          req.Type,
		Tags:          req.Tags,
		Who:           req.Who,
		Pinned:        req.Pinned,
		ImportanceMin: req.ImportanceMin,
		MinScore:      req.MinScore,
		Limit:         req.Limit,
	}
	var warnings []string
	if req.Since != "" {
		if t, err := time.Parse(time.RFC3339, req.Since); err == nil {
			filter.Since = &t
		} else if t, ok := naturaldate.Resolve(req.Since, time.Now()); ok {
			filter.Since = &t
		} else {
			warnings = append(warnings, "could not resolve since: "+req.Since)
		}
	}

	start := time.Now()
	results, err := s.Recall.Recall(r.Context(), req.Query, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recallResponse{
		Results:  results,
		Stats:    recallStats{Total: len(results), SearchTime: time.Since(start).String()},
		Warnings: append(warnings, warningsFrom(r)...),
	})
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	memory, err := s.Store.GetMemory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if memory == nil {
		writeError(w, signeterr.NotFound("memory not found: "+id))
		return
	}
	s.Store.TouchAccess(r.Context(), id)
	writeJSON(w, http.StatusOK, memory)
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.ListFilter{
		Type:   q.Get("type"),
		Limit:  atoiDefault(q.Get("limit"), 50),
		Offset: atoiDefault(q.Get("offset"), 0),
	}
	memories, err := s.Store.ListMemories(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": memories})
}

type modifyRequest struct {
	Content    *string  `json:"content"`
	Type       *string  `json:"type"`
	Importance *float64 `json:"importance"`
	Tags       []string `json:"tags"`
	Pinned     *bool    `json:"pinned"`
	Reason     string   `json:"reason"`
	IfVersion  *int     `json:"if_version"`
}

type modifyResponse struct {
	ID             string                   `json:"id"`
	Status         storage.BatchItemStatus  `json:"status"`
	CurrentVersion int                      `json:"currentVersion"`
	NewVersion     int                      `json:"newVersion,omitempty"`
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config.Current()
	if !cfg.AllowUpdateDelete {
		writeError(w, signeterr.Forbidden("modify is disabled"))
		return
	}
	if cfg.MutationsFrozen {
		writeError(w, signeterr.New(signeterr.CodeForbidden, "writes are disabled"))
		return
	}

	id := chi.URLParam(r, "id")
	var req modifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.Store.Modify(r.Context(), id, storage.ModifyPatch{
		Content:    req.Content,
		Type:       req.Type,
		Importance: req.Importance,
		Tags:       req.Tags,
		Pinned:     req.Pinned,
	}, req.Reason, req.IfVersion)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := modifyResponse{ID: result.ID, Status: result.Status, CurrentVersion: result.Version}
	if result.Status == storage.BatchUpdated {
		resp.NewVersion = result.Version
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config.Current()
	if !cfg.AllowUpdateDelete {
		writeError(w, signeterr.Forbidden("forget is disabled"))
		return
	}
	if cfg.MutationsFrozen {
		writeError(w, signeterr.New(signeterr.CodeForbidden, "writes are disabled"))
		return
	}

	id := chi.URLParam(r, "id")
	q := r.URL.Query()
	reason := q.Get("reason")
	force := q.Get("force") == "true"
	var ifVersion *int
	if v := q.Get("if_version"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			ifVersion = &n
		}
	}

	result, err := s.Store.Forget(r.Context(), id, reason, force, ifVersion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": result.ID, "status": result.Status, "currentVersion": result.Version})
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config.Current()
	if cfg.MutationsFrozen {
		writeError(w, signeterr.New(signeterr.CodeForbidden, "writes are disabled"))
		return
	}

	id := chi.URLParam(r, "id")
	var req struct {
		Reason    string `json:"reason"`
		IfVersion *int   `json:"if_version"`
	}
	_ = decodeJSON(r, &req)

	result, err := s.Store.Recover(r.Context(), id, req.Reason, req.IfVersion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := atoiDefault(r.URL.Query().Get("limit"), 50)

	events, err := s.Store.GetHistory(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

type batchForgetRequest struct {
	Mode          string   `json:"mode"` // preview | execute
	Query         string   `json:"query"`
	IDs           []string `json:"ids"`
	Reason        string   `json:"reason"`
	Force         bool     `json:"force"`
	ConfirmToken  string   `json:"confirm_token"`
}

func (s *Server) handleBatchForget(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config.Current()
	if !cfg.AllowUpdateDelete || cfg.MutationsFrozen {
		writeError(w, signeterr.Forbidden("batch forget is disabled"))
		return
	}

	var req batchForgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ids := req.IDs
	if req.Query != "" && len(ids) == 0 {
		results, err := s.Recall.Recall(r.Context(), req.Query, recall.Filter{Limit: 100})
		if err != nil {
			writeError(w, err)
			return
		}
		for _, res := range results {
			ids = append(ids, res.ID)
		}
	}

	if req.Mode == "" || req.Mode == "preview" {
		writeJSON(w, http.StatusOK, map[string]any{
			"mode":          "preview",
			"ids":           ids,
			"count":         len(ids),
			"confirm_token": previewToken(ids),
		})
		return
	}

	if req.ConfirmToken == "" || req.ConfirmToken != previewToken(ids) {
		writeError(w, signeterr.InvalidPayload("confirm_token missing or stale; re-run preview"))
		return
	}

	results, err := s.Store.BatchForget(r.Context(), ids, req.Reason, req.Force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mode": "execute", "results": results})
}

type batchModifyRequest struct {
	IDs    []string `json:"ids"`
	Reason string   `json:"reason"`
	modifyRequest
}

func (s *Server) handleBatchModify(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config.Current()
	if !cfg.AllowUpdateDelete || cfg.MutationsFrozen {
		writeError(w, signeterr.Forbidden("batch modify is disabled"))
		return
	}

	var req batchModifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	results, err := s.Store.BatchModify(r.Context(), req.IDs, storage.ModifyPatch{
		Content:    req.Content,
		Type:       req.Type,
		Importance: req.Importance,
		Tags:       req.Tags,
		Pinned:     req.Pinned,
	}, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.Store.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if job == nil {
		writeError(w, signeterr.NotFound("job not found: "+id))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// previewToken derives a stable, deterministic token for a preview/execute
// batch-forget pairing so a stale preview can't be replayed against a
// since-changed id set.
func previewToken(ids []string) string {
	h := 0
	for _, id := range ids {
		for _, c := range id {
			h = h*31 + int(c)
		}
	}
	return strconv.Itoa(h)
}
