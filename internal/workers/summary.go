package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/signet-ai/signet/internal/collab"
	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/storage"
	"github.com/signet-ai/signet/internal/types"
)

// summaryPayload is the JSON carried by a summary job's Payload column.
type summaryPayload struct {
	SessionKey   string `json:"session_key"`
	Transcript   string `json:"transcript"`
	Who          string `json:"who,omitempty"`
	Project      string `json:"project,omitempty"`
	IdentityPath string `json:"identity_path,omitempty"`
}

const summaryPrompt = `Summarise the following session transcript into a short,
durable memory worth keeping after the session ends: what was done, what
was decided, and anything worth recalling later. Two to four sentences,
plain prose, no headers.

Transcript:
%s
`

// NewSummaryPoller builds the Summary worker: consumes a session
// transcript captured at session end, writes a summary-typed memory,
// and optionally appends to an identity markdown file on disk.
func NewSummaryPoller(store storage.Storage, gen collab.Generator, cfg PollConfig, log zerolog.Logger) *Poller {
	return &Poller{
		Name:         "summary",
		JobType:      types.JobSummary,
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
		LeaseSeconds: cfg.LeaseSeconds,
		ItemTimeout:  cfg.ItemTimeout,
		BaseBackoff:  cfg.BaseBackoff,
		CapBackoff:   cfg.CapBackoff,
		Store:        store,
		Log:          log,
		Process: func(ctx context.Context, job *types.Job) (string, error) {
			return runSummary(ctx, store, gen, job)
		},
	}
}

func runSummary(ctx context.Context, store storage.Storage, gen collab.Generator, job *types.Job) (string, error) {
	if gen == nil {
		return "", signeterr.DependencyUnavailable("no generator backend configured")
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		return "", signeterr.InvalidPayload("could not parse summary job payload: " + err.Error())
	}
	if payload.Transcript == "" {
		return "", signeterr.InvalidPayload("summary job missing transcript")
	}

	summary, err := gen.Generate(ctx, fmt.Sprintf(summaryPrompt, payload.Transcript))
	if err != nil {
		return "", signeterr.DependencyUnavailable("generator call failed: " + err.Error())
	}

	result, err := store.Remember(ctx, summary, storage.RememberOpts{
		Type:       "summary",
		Who:        payload.Who,
		Project:    payload.Project,
		SourceType: "session",
		SourceID:   payload.SessionKey,
		ActorType:  types.ActorWorker,
	})
	if err != nil {
		return "", err
	}

	if payload.IdentityPath != "" {
		if err := appendIdentityNote(payload.IdentityPath, summary); err != nil {
			return "", signeterr.Internal("append identity note", err)
		}
	}

	return fmt.Sprintf(`{"memory_id":"%s"}`, result.ID), nil
}

func appendIdentityNote(path, note string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "\n- %s: %s\n", time.Now().UTC().Format(time.RFC3339), note)
	return err
}
