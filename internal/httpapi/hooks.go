package httpapi

import (
	"net/http"

	"github.com/signet-ai/signet/internal/recall"
	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/storage"
	"github.com/signet-ai/signet/internal/types"
)

// hookEnvelope is the common shape every hook call carries: which harness
// is calling, which session it belongs to, and where it's running from.
type hookEnvelope struct {
	Harness     string `json:"harness"`
	SessionKey  string `json:"sessionKey"`
	RuntimePath string `json:"runtimePath"`
	Project     string `json:"project"`
}

type hookInjectResponse struct {
	Inject   string   `json:"inject"`
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Server) handleHookSessionStart(w http.ResponseWriter, r *http.Request) {
	var req hookEnvelope
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	inject, err := s.Session.OnSessionStart(r.Context(), req.SessionKey, req.RuntimePath, req.Project, req.Harness)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hookInjectResponse{Inject: inject, Warnings: warningsFrom(r)})
}

type hookUserPromptRequest struct {
	hookEnvelope
	Prompt string `json:"prompt"`
}

func (s *Server) handleHookUserPrompt(w http.ResponseWriter, r *http.Request) {
	var req hookUserPromptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	inject, err := s.Session.OnUserPrompt(r.Context(), req.SessionKey, req.Prompt, req.Project, req.Harness)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hookInjectResponse{Inject: inject, Warnings: warningsFrom(r)})
}

func (s *Server) handleHookSessionEnd(w http.ResponseWriter, r *http.Request) {
	var req hookEnvelope
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Session.OnSessionEnd(r.Context(), req.SessionKey); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ended"})
}

// handleHookPreCompaction and handleHookCompactionComplete mark the
// boundaries of a harness's context-compaction cycle. Signet holds no
// session state across compaction itself — the session claim and its
// recall injections are keyed by session_key, not by conversation
// turn count — so these are acknowledgement-only lifecycle markers a
// harness can use for its own bookkeeping.
func (s *Server) handleHookPreCompaction(w http.ResponseWriter, r *http.Request) {
	var req hookEnvelope
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "acknowledged"})
}

func (s *Server) handleHookCompactionComplete(w http.ResponseWriter, r *http.Request) {
	var req hookEnvelope
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "acknowledged"})
}

type hookRememberRequest struct {
	hookEnvelope
	Content    string   `json:"content"`
	Type       string   `json:"type"`
	Importance float64  `json:"importance"`
	Tags       []string `json:"tags"`
	Pinned     bool     `json:"pinned"`
}

// handleHookRemember is the hook-surface entrypoint the conversational
// harnesses themselves call, distinct from /api/memory/remember (the
// direct API a human-facing client or CLI calls): same write path, but
// the actor is always attributed as the harness and runtimePath/who
// come from the hook envelope rather than request headers.
func (s *Server) handleHookRemember(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config.Current()
	if !cfg.Enabled || cfg.MutationsFrozen {
		writeError(w, signeterr.New(signeterr.CodeForbidden, "writes are disabled"))
		return
	}

	var req hookRememberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Content == "" {
		writeError(w, signeterr.InvalidPayload("content is required"))
		return
	}

	result, err := s.Store.Remember(r.Context(), req.Content, storage.RememberOpts{
		Type:        req.Type,
		Importance:  req.Importance,
		Tags:        req.Tags,
		Pinned:      req.Pinned,
		Who:         req.Harness,
		RuntimePath: req.RuntimePath,
		ActorType:   toActorType("harness"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if !result.Deduped && !cfg.ShadowMode {
		_, _ = s.Store.EnqueueJob(r.Context(), types.JobEmbed, result.ID, "", cfg.WorkerMaxRetries)
		_, _ = s.Store.EnqueueJob(r.Context(), types.JobExtract, result.ID, "", cfg.WorkerMaxRetries)
	}

	writeJSON(w, http.StatusOK, rememberResponse{ID: result.ID, Version: result.Version, Deduped: result.Deduped, Warnings: warningsFrom(r)})
}

type hookRecallRequest struct {
	hookEnvelope
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) handleHookRecall(w http.ResponseWriter, r *http.Request) {
	var req hookRecallRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	results, err := s.Recall.Recall(r.Context(), req.Query, recall.Filter{Limit: req.Limit})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recallResponse{
		Results:  results,
		Stats:    recallStats{Total: len(results)},
		Warnings: warningsFrom(r),
	})
}
