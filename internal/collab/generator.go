package collab

import "context"

// Generator produces free-text completions for a prompt. Backed by
// Anthropic or Ollama; callers treat a nil Generator as "extraction
// unavailable" rather than special-casing it at every call site.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
