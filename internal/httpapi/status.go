package httpapi

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	PID       int    `json:"pid"`
	Uptime    string `json:"uptime"`
	Port      string `json:"port"`
	AgentsDir string `json:"agentsDir"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   Version,
		PID:       s.PID,
		Uptime:    time.Since(s.StartedAt).Round(time.Second).String(),
		Port:      s.HTTPAddr,
		AgentsDir: s.AgentsDir,
	})
}

type statusResponse struct {
	Status           string         `json:"status"`
	Version          string         `json:"version"`
	Uptime           string         `json:"uptime"`
	PipelineFlags    map[string]any `json:"pipelineFlags"`
	EmbeddingEnabled bool           `json:"embeddingEnabled"`
	VectorAvailable  bool           `json:"vectorAvailable"`
	HealthScore      int            `json:"healthScore"`
	OrphanedEntities int            `json:"orphanedEntities"`
	DeadJobs         int            `json:"deadJobs"`
	VacuumSuggested  bool           `json:"vacuumSuggested"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config.Current()

	resp := statusResponse{
		Status:  "ok",
		Version: Version,
		Uptime:  time.Since(s.StartedAt).Round(time.Second).String(),
		PipelineFlags: map[string]any{
			"enabled":           cfg.Enabled,
			"shadowMode":        cfg.ShadowMode,
			"mutationsFrozen":   cfg.MutationsFrozen,
			"allowUpdateDelete": cfg.AllowUpdateDelete,
			"graphEnabled":      cfg.GraphEnabled,
			"autonomousEnabled": cfg.AutonomousEnabled,
			"autonomousFrozen":  cfg.AutonomousFrozen,
			"rerankerEnabled":   cfg.RerankerEnabled,
		},
		VectorAvailable: s.Store.VectorAvailable(),
		HealthScore:     100,
	}

	if s.Maintenance != nil {
		if report := s.Maintenance.Latest(); report != nil {
			resp.HealthScore = report.HealthScore
			resp.OrphanedEntities = report.OrphanedEntities
			resp.DeadJobs = report.DeadJobs
			resp.VacuumSuggested = report.VacuumSuggested
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
