// Package httpapi exposes the daemon's loopback-only HTTP surface: the
// memory CRUD/recall endpoints, the hook lifecycle endpoints harnesses
// call into, and status/health/log-stream endpoints.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/signet-ai/signet/internal/config"
	"github.com/signet-ai/signet/internal/recall"
	"github.com/signet-ai/signet/internal/session"
	"github.com/signet-ai/signet/internal/signing"
	"github.com/signet-ai/signet/internal/storage"
	"github.com/signet-ai/signet/internal/workers"
)

// Version is the daemon's build version, compared against an incoming
// x-signet-client-version header for a soft compatibility warning.
var Version = "dev"

// Server wires every HTTP handler to the engine's components.
type Server struct {
	Store       storage.Storage
	Recall      *recall.Engine
	Session     *session.Engine
	Signer      *signing.Signer
	Config      *config.Loader
	Maintenance *workers.MaintenanceScheduler
	Log         zerolog.Logger
	Hub         *LogHub

	AgentsDir string
	HTTPAddr  string
	PID       int
	StartedAt time.Time
}

// Routes builds the chi router for the whole HTTP surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestContext)
	r.Use(clientVersionCheck)

	r.Get("/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/logs/stream", s.handleLogStream)

	r.Route("/api/memory", func(r chi.Router) {
		r.Post("/remember", s.handleRemember)
		r.Post("/recall", s.handleRecall)
		r.Post("/forget", s.handleBatchForget)
		r.Post("/modify", s.handleBatchModify)
		r.Get("/jobs/{id}", s.handleJobStatus)
		r.Get("/{id}", s.handleGetMemory)
		r.Patch("/{id}", s.handleModify)
		r.Delete("/{id}", s.handleForget)
		r.Post("/{id}/recover", s.handleRecover)
		r.Get("/{id}/history", s.handleHistory)
	})
	r.Get("/api/memories", s.handleListMemories)

	r.Route("/api/hooks", func(r chi.Router) {
		r.Post("/session-start", s.handleHookSessionStart)
		r.Post("/user-prompt-submit", s.handleHookUserPrompt)
		r.Post("/session-end", s.handleHookSessionEnd)
		r.Post("/pre-compaction", s.handleHookPreCompaction)
		r.Post("/compaction-complete", s.handleHookCompactionComplete)
		r.Post("/remember", s.handleHookRemember)
		r.Post("/recall", s.handleHookRecall)
	})

	return r
}
