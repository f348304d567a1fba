// Package embedder ships concrete Embedder backends: a local Ollama
// embedding model, and a dependency-free hashing fallback for tests.
package embedder

import (
	"context"
	"fmt"

	"github.com/ollama/ollama/api"
)

// Ollama is an Embedder backed by a local Ollama daemon's embed endpoint.
type Ollama struct {
	client    *api.Client
	model     string
	dimension int
}

// NewOllama builds an Ollama embedder. dimension must match the model's
// actual output width (e.g. 768 for nomic-embed-text) since the vector
// store is created with a fixed column width.
func NewOllama(model string, dimension int) (*Ollama, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &Ollama{client: client, model: model, dimension: dimension}, nil
}

func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.Embed(ctx, &api.EmbedRequest{Model: o.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama embed: empty response")
	}
	return resp.Embeddings[0], nil
}

func (o *Ollama) Dimension() int { return o.dimension }
