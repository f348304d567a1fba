package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/signet-ai/signet/internal/signeterr"
	"github.com/signet-ai/signet/internal/storage"
	"github.com/signet-ai/signet/internal/types"
)

type documentPayload struct {
	Path    string `json:"path"`
	Who     string `json:"who,omitempty"`
	Project string `json:"project,omitempty"`
}

// NewDocumentPoller builds the Document worker: hashes a file, chunks it
// hierarchically (heading-aware paragraph splitting), writes one memory
// per chunk carrying provenance columns, and enqueues an embed job per
// chunk memory.
func NewDocumentPoller(store storage.Storage, cfg PollConfig, log zerolog.Logger) *Poller {
	return &Poller{
		Name:         "document",
		JobType:      types.JobDocument,
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
		LeaseSeconds: cfg.LeaseSeconds,
		ItemTimeout:  cfg.ItemTimeout,
		BaseBackoff:  cfg.BaseBackoff,
		CapBackoff:   cfg.CapBackoff,
		Store:        store,
		Log:          log,
		Process: func(ctx context.Context, job *types.Job) (string, error) {
			return runDocument(ctx, store, job)
		},
	}
}

func runDocument(ctx context.Context, store storage.Storage, job *types.Job) (string, error) {
	var payload documentPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		return "", signeterr.InvalidPayload("could not parse document job payload: " + err.Error())
	}
	if payload.Path == "" {
		return "", signeterr.InvalidPayload("document job missing path")
	}

	data, err := os.ReadFile(payload.Path)
	if err != nil {
		return "", signeterr.Internal("read document file", err)
	}
	sum := sha256.Sum256(data)
	fileHash := hex.EncodeToString(sum[:])

	doc, err := store.UpsertDocument(ctx, payload.Path, fileHash)
	if err != nil {
		return "", err
	}
	if doc.IngestionStatus != "pending" {
		return `{"skipped":"unchanged"}`, nil
	}

	chunks := chunkDocument(string(data))
	written := 0
	for i, chunk := range chunks {
		content := strings.TrimSpace(chunk.Text)
		if content == "" {
			continue
		}
		var memoryID string
		err := store.WithWriteTx(ctx, func(tx storage.Transaction) error {
			result, err := tx.Remember(ctx, content, storage.RememberOpts{
				Type:          "document_chunk",
				Who:           payload.Who,
				Project:       payload.Project,
				SourceType:    "document",
				SourcePath:    payload.Path,
				SourceSection: chunk.Header,
				SourceID:      doc.ID,
				ActorType:     types.ActorWorker,
			})
			if err != nil {
				return err
			}
			memoryID = result.ID
			return nil
		})
		if err != nil {
			return "", err
		}
		if err := store.LinkDocumentMemory(ctx, doc.ID, memoryID, i, chunk.Header); err != nil {
			return "", err
		}
		if _, err := store.EnqueueJob(ctx, types.JobEmbed, memoryID, "", 5); err != nil {
			return "", err
		}
		written++
	}

	return `{"chunks_written":` + strconv.Itoa(written) + `}`, nil
}

type docChunk struct {
	Header string
	Text   string
}

// chunkDocument splits markdown-ish text into paragraph chunks, tagging
// each with the nearest preceding heading line for provenance.
func chunkDocument(text string) []docChunk {
	lines := strings.Split(text, "\n")
	var chunks []docChunk
	var header string
	var buf []string

	flush := func() {
		joined := strings.TrimSpace(strings.Join(buf, "\n"))
		if joined != "" {
			chunks = append(chunks, docChunk{Header: header, Text: joined})
		}
		buf = buf[:0]
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			flush()
			header = strings.TrimLeft(trimmed, "# ")
			continue
		}
		if trimmed == "" {
			flush()
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return chunks
}
