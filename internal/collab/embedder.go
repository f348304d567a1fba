package collab

import "context"

// Embedder turns normalised text into a fixed-dimension vector. The
// dimension is a property of the backend, set when the backend is built
// and reported by Dimension().
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
