package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/signet-ai/signet/internal/collab"
	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/storage"
	"github.com/signet-ai/signet/internal/types"
)

type decideVerdict struct {
	Action      string `json:"action"` // "keep", "merge", "update", "skip"
	TargetID    string `json:"target_id,omitempty"`
	MergedText  string `json:"merged_text,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

const decidePrompt = `You are deciding how a newly extracted fact relates to similar
existing memories, to avoid duplicate or contradictory entries.

New fact:
%s

Similar existing memories (id: content):
%s

Decide exactly one action:
- "keep": the new fact is distinct, leave everything as-is.
- "skip": the new fact is redundant with an existing memory, discard it.
- "update": the new fact supersedes an existing memory's content.
- "merge": combine the new fact and an existing memory into one, more complete memory.

Output ONLY a valid JSON object: {"action": "...", "target_id": "...", "merged_text": "...", "reason": "..."}
"target_id" and "merged_text" are required only for "update"/"merge".
`

// NewDecidePoller builds the Decide worker: runs a merge/skip/update
// decision for a freshly extracted memory against its closest existing
// neighbours, using an LLM prompt, and applies the verdict via
// modify/forget.
func NewDecidePoller(store storage.Storage, gen collab.Generator, cfg PollConfig, log zerolog.Logger) *Poller {
	return &Poller{
		Name:         "decide",
		JobType:      types.JobDecide,
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
		LeaseSeconds: cfg.LeaseSeconds,
		ItemTimeout:  cfg.ItemTimeout,
		BaseBackoff:  cfg.BaseBackoff,
		CapBackoff:   cfg.CapBackoff,
		Store:        store,
		Log:          log,
		Process: func(ctx context.Context, job *types.Job) (string, error) {
			return runDecide(ctx, store, gen, job)
		},
	}
}

func runDecide(ctx context.Context, store storage.Storage, gen collab.Generator, job *types.Job) (string, error) {
	if gen == nil {
		return "", signeterr.DependencyUnavailable("no generator backend configured")
	}
	if job.MemoryID == "" {
		return "", signeterr.InvalidPayload("decide job missing memory_id")
	}

	memory, err := store.GetMemory(ctx, job.MemoryID)
	if err != nil {
		return "", err
	}

	neighborScores, err := store.SearchKeyword(ctx, memory.Content, 6)
	if err != nil {
		neighborScores = nil
	}

	var neighborLines []string
	neighbors := make(map[string]*types.Memory)
	for id := range neighborScores {
		if id == memory.ID {
			continue
		}
		n, err := store.GetMemory(ctx, id)
		if err != nil || n.IsDeleted {
			continue
		}
		neighbors[id] = n
		neighborLines = append(neighborLines, fmt.Sprintf("%s: %s", id, n.Content))
		if len(neighborLines) >= 5 {
			break
		}
	}
	if len(neighborLines) == 0 {
		return `{"action":"keep","reason":"no similar memories found"}`, nil
	}

	raw, err := gen.Generate(ctx, fmt.Sprintf(decidePrompt, memory.Content, strings.Join(neighborLines, "\n")))
	if err != nil {
		return "", signeterr.DependencyUnavailable("generator call failed: " + err.Error())
	}

	var verdict decideVerdict
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &verdict); err != nil {
		return "", signeterr.InvalidPayload("could not parse decide response: " + err.Error())
	}

	switch verdict.Action {
	case "skip":
		_, err = store.Forget(ctx, memory.ID, "decide: redundant with "+verdict.TargetID, false, nil)
	case "update":
		if _, ok := neighbors[verdict.TargetID]; !ok || verdict.MergedText == "" {
			break
		}
		content := verdict.MergedText
		_, err = store.Modify(ctx, verdict.TargetID, storage.ModifyPatch{Content: &content}, "decide: updated by "+memory.ID, nil)
		if err == nil {
			_, err = store.Forget(ctx, memory.ID, "decide: merged into "+verdict.TargetID, false, nil)
		}
	case "merge":
		if _, ok := neighbors[verdict.TargetID]; !ok || verdict.MergedText == "" {
			break
		}
		content := verdict.MergedText
		_, err = store.Modify(ctx, verdict.TargetID, storage.ModifyPatch{Content: &content}, "decide: merged with "+memory.ID, nil)
		if err == nil {
			_, err = store.Forget(ctx, memory.ID, "decide: merged into "+verdict.TargetID, false, nil)
		}
	}
	if err != nil {
		return "", err
	}

	out, _ := json.Marshal(verdict)
	return string(out), nil
}
