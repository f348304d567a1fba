// Package session wires the session/hook state machine to the Recall
// Engine: claiming a session key, and composing the injection string a
// harness gets back on session-start and user-prompt-submit.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/signet-ai/signet/internal/recall"
	"github.com/signet-ai/signet/internal/storage"
	"github.com/signet-ai/signet/internal/types"
)

// RecentMemoryCount is how many recent memories back the session-start
// injection when there's no prompt yet to search against.
const RecentMemoryCount = 10

// PromptMemoryCount is how many recall results back a user-prompt
// injection.
const PromptMemoryCount = 5

// Engine composes hook responses from a session store and the recall
// engine.
type Engine struct {
	store  storage.Storage
	recall *recall.Engine
}

func New(store storage.Storage, recallEngine *recall.Engine) *Engine {
	return &Engine{store: store, recall: recallEngine}
}

// OnSessionStart claims the session key for runtimePath and returns the
// injection string built from the most recently touched memories, since
// there is no prompt yet to search against.
func (e *Engine) OnSessionStart(ctx context.Context, key, runtimePath, project, harness string) (string, error) {
	if _, err := e.store.ClaimSession(ctx, key, runtimePath, project, harness); err != nil {
		return "", err
	}

	results, err := e.recall.Recall(ctx, "", recall.Filter{Limit: RecentMemoryCount})
	if err != nil {
		return "", err
	}
	return formatInjection(results, ""), nil
}

// OnUserPrompt requires a prior claim; if the session is absent it
// auto-claims with the legacy runtime path label, then returns the
// injection string built from recalling against the prompt.
func (e *Engine) OnUserPrompt(ctx context.Context, key, prompt, project, harness string) (string, error) {
	existing, err := e.store.GetSession(ctx, key)
	if err != nil || existing == nil || existing.EndedAt != nil {
		if _, err := e.store.ClaimSession(ctx, key, string(types.RuntimeLegacy), project, harness); err != nil {
			return "", err
		}
	}

	results, err := e.recall.Recall(ctx, prompt, recall.Filter{Limit: PromptMemoryCount})
	if err != nil {
		return "", err
	}
	return formatInjection(results, prompt), nil
}

// OnSessionEnd ends the session, making a subsequent claim on the same
// key start a fresh session row.
func (e *Engine) OnSessionEnd(ctx context.Context, key string) error {
	return e.store.EndSession(ctx, key)
}

// formatInjection renders the top recall results into a compact block
// carrying the result count, the engine name, and the query terms (if
// any) that produced them.
func formatInjection(results []recall.Result, query string) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	header := fmt.Sprintf("%d relevant memories (recall: hybrid)", len(results))
	if strings.TrimSpace(query) != "" {
		header = fmt.Sprintf("%d relevant memories (recall: hybrid, query: %q)", len(results), query)
	}
	b.WriteString(header)
	b.WriteString("\n")
	for _, r := range results {
		b.WriteString(fmt.Sprintf("- [%s] %s\n", r.Type, r.Content))
	}
	return b.String()
}
