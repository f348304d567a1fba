package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/signet-ai/signet/internal/collab"
	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/storage"
	"github.com/signet-ai/signet/internal/types"
)

// NewEmbedPoller builds the Embed worker: calls the Embedder on a
// memory's normalised content and writes the resulting vector into the
// content-addressed vector store, keyed by chunk hash so repeated
// content is stored only once. The Embedder is still called on every job.
func NewEmbedPoller(store storage.Storage, emb collab.Embedder, cfg PollConfig, log zerolog.Logger) *Poller {
	return &Poller{
		Name:         "embed",
		JobType:      types.JobEmbed,
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
		LeaseSeconds: cfg.LeaseSeconds,
		ItemTimeout:  cfg.ItemTimeout,
		BaseBackoff:  cfg.BaseBackoff,
		CapBackoff:   cfg.CapBackoff,
		Store:        store,
		Log:          log,
		Process: func(ctx context.Context, job *types.Job) (string, error) {
			return runEmbed(ctx, store, emb, job)
		},
	}
}

func runEmbed(ctx context.Context, store storage.Storage, emb collab.Embedder, job *types.Job) (string, error) {
	if emb == nil {
		return "", signeterr.DependencyUnavailable("no embedder backend configured")
	}
	if job.MemoryID == "" {
		return "", signeterr.InvalidPayload("embed job missing memory_id")
	}

	memory, err := store.GetMemory(ctx, job.MemoryID)
	if err != nil {
		return "", err
	}

	normalized := norm.NFC.String(memory.Content)
	sum := sha256.Sum256([]byte(normalized))
	chunkHash := hex.EncodeToString(sum[:])

	vector, err := emb.Embed(ctx, normalized)
	if err != nil {
		return "", signeterr.DependencyUnavailable("embedder call failed: " + err.Error())
	}

	embeddingID, err := store.UpsertEmbedding(ctx, chunkHash, vector, emb.Dimension(), "memory", memory.ID, normalized)
	if err != nil {
		return "", err
	}
	return `{"embedding_id":"` + embeddingID + `"}`, nil
}
