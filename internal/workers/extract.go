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

// extractedFact is one structured fact the Generator pulls out of a
// memory's content, along with the entities it mentions.
type extractedFact struct {
	Content    string           `json:"content"`
	Type       string           `json:"type"`
	Confidence float64          `json:"confidence"`
	Entities   []extractedEntity `json:"entities"`
}

type extractedEntity struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

type extractionResponse struct {
	Facts []extractedFact `json:"facts"`
}

const extractPrompt = `You are a fact extractor for a personal memory system.

From the note below, extract a flat list of standalone facts worth
remembering on their own, and the entities each fact mentions.

RULES:
1. Output ONLY a valid JSON object.
2. The object MUST have exactly one key: "facts".
3. "facts" MUST be an array of objects with "content" (string), "type"
   (one of "fact", "preference", "decision", "todo"), "confidence"
   (0..1), and "entities" (array of {"name", "type", "confidence"}).
4. DO NOT include headers, descriptions, or explanations.

Note:
%s

Required Output Format:
{"facts": [{"content": "...", "type": "fact", "confidence": 0.9, "entities": [{"name": "...", "type": "person", "confidence": 0.8}]}]}
`

// NewExtractPoller builds the Extract worker: runs the Generator on a
// memory's content, writing the derived memories and their graph links
// together in one write transaction.
func NewExtractPoller(store storage.Storage, gen collab.Generator, cfg PollConfig, log zerolog.Logger) *Poller {
	return &Poller{
		Name:         "extract",
		JobType:      types.JobExtract,
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
		LeaseSeconds: cfg.LeaseSeconds,
		ItemTimeout:  cfg.ItemTimeout,
		BaseBackoff:  cfg.BaseBackoff,
		CapBackoff:   cfg.CapBackoff,
		Store:        store,
		Log:          log,
		Process: func(ctx context.Context, job *types.Job) (string, error) {
			return runExtract(ctx, store, gen, job)
		},
	}
}

func runExtract(ctx context.Context, store storage.Storage, gen collab.Generator, job *types.Job) (string, error) {
	if gen == nil {
		return "", signeterr.DependencyUnavailable("no generator backend configured")
	}
	if job.MemoryID == "" {
		return "", signeterr.InvalidPayload("extract job missing memory_id")
	}

	memory, err := store.GetMemory(ctx, job.MemoryID)
	if err != nil {
		return "", err
	}
	if err := store.SetExtractionStatus(ctx, memory.ID, types.ExtractionInProgress); err != nil {
		return "", err
	}

	raw, err := gen.Generate(ctx, fmt.Sprintf(extractPrompt, memory.Content))
	if err != nil {
		_ = store.SetExtractionStatus(ctx, memory.ID, types.ExtractionFailed)
		return "", signeterr.DependencyUnavailable("generator call failed: " + err.Error())
	}

	var parsed extractionResponse
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &parsed); err != nil {
		_ = store.SetExtractionStatus(ctx, memory.ID, types.ExtractionFailed)
		return "", signeterr.InvalidPayload("could not parse extraction response: " + err.Error())
	}

	written := 0
	err = store.WithWriteTx(ctx, func(tx storage.Transaction) error {
		for _, fact := range parsed.Facts {
			content := strings.TrimSpace(fact.Content)
			if content == "" {
				continue
			}
			factType := fact.Type
			if factType == "" {
				factType = "fact"
			}
			result, err := tx.Remember(ctx, content, storage.RememberOpts{
				Type:          factType,
				Confidence:    fact.Confidence,
				Who:           memory.Who,
				Project:       memory.Project,
				SourceType:    "extracted",
				SourceID:      memory.ID,
				ActorType:     types.ActorWorker,
			})
			if err != nil {
				return err
			}
			written++

			for _, ent := range fact.Entities {
				name := strings.TrimSpace(ent.Name)
				if name == "" {
					continue
				}
				canonical := strings.ToLower(strings.Join(strings.Fields(name), " "))
				entity, err := tx.UpsertEntity(ctx, canonical, name, ent.Type)
				if err != nil {
					return err
				}
				confidence := ent.Confidence
				if confidence == 0 {
					confidence = 1.0
				}
				if err := tx.LinkMention(ctx, result.ID, entity.ID, name, confidence); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		_ = store.SetExtractionStatus(ctx, memory.ID, types.ExtractionFailed)
		return "", err
	}

	if err := store.SetExtractionStatus(ctx, memory.ID, types.ExtractionDone); err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"facts_written":%d}`, written), nil
}

// cleanJSON strips a markdown code fence some models wrap JSON output in.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
