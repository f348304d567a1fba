// Package generator ships concrete Generator backends so the engine is
// runnable standalone: a fully local Ollama backend and a hosted
// Anthropic backend.
package generator

import (
	"context"
	"fmt"

	"github.com/ollama/ollama/api"
)

// Ollama is a Generator backed by a local Ollama daemon.
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama builds an Ollama generator against the environment-configured
// daemon address, defaulting the model the same way the teacher's
// extractor does when none is supplied.
func NewOllama(model string) (*Ollama, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	if model == "" {
		model = "llama3.2:3b"
	}
	return &Ollama{client: client, model: model}, nil
}

func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: &stream,
	}

	var out string
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out += resp.Response
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return out, nil
}
