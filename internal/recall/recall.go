// Package recall implements the hybrid recall engine: a weighted fusion
// of keyword, vector and entity-graph scoring, with an optional
// second-pass reranker, over the filtered candidate pool.
package recall

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/signet-ai/signet/internal/collab"
	"github.com/signet-ai/signet/internal/metrics"
	"github.com/signet-ai/signet/internal/storage"
	"github.com/signet-ai/signet/internal/types"
)

// Source names a result's dominant scoring leg, carried through to the
// caller so it can explain why a memory surfaced.
type Source string

const (
	SourceHybrid  Source = "hybrid"
	SourceVector  Source = "vector"
	SourceKeyword Source = "keyword"
)

// Filter narrows the candidate pool before scoring. It mirrors
// storage.ListFilter plus the recall-specific MinScore/Limit floor.
type Filter struct {
	Type          string
	Tags          []string
	Who           string
	Pinned        *bool
	ImportanceMin float64
	Since         *time.Time
	MinScore      float64
	Limit         int
}

// Config tunes the fusion weights, pinned bonus, graph boost and
// time-decay half-life. Defaults follow the fusion formula's stated
// defaults.
type Config struct {
	WeightKeyword      float64
	WeightVector       float64
	WeightGraph        float64
	PinnedBoost        float64
	GraphBoostFraction float64
	HalfLife           time.Duration

	RerankerEnabled bool
	RerankerTopN    int
	RerankerTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		WeightKeyword:      0.4,
		WeightVector:       0.5,
		WeightGraph:        0.1,
		PinnedBoost:        0.05,
		GraphBoostFraction: 0,
		HalfLife:           0, // 0 disables time-decay
		RerankerEnabled:    false,
		RerankerTopN:       20,
		RerankerTimeout:    3 * time.Second,
	}
}

// Result is one scored memory returned to the caller.
type Result struct {
	ID         string          `json:"id"`
	Content    string          `json:"content"`
	Type       string          `json:"type"`
	Importance float64         `json:"importance"`
	Score      float64         `json:"score"`
	Source     Source          `json:"source"`
	Legs       types.LegScores `json:"legs"`
}

// Engine ties storage and an optional embedder together into the hybrid
// recall algorithm; the reranker stage reuses the same embedder. Embedder
// may be nil: the engine degrades to keyword+graph-only scoring, and the
// reranker stage is skipped.
type Engine struct {
	store    storage.Storage
	embedder collab.Embedder
	reranker collab.Embedder // a fresh embedding of full content for rerank similarity
	cfg      Config
}

func New(store storage.Storage, embedder collab.Embedder, cfg Config) *Engine {
	return &Engine{store: store, embedder: embedder, reranker: embedder, cfg: cfg}
}

// Recall runs the hybrid scoring algorithm and returns results ordered
// by (score desc, updated_at desc, id asc), truncated to filter.Limit.
func (e *Engine) Recall(ctx context.Context, query string, filter Filter) ([]Result, error) {
	start := time.Now()
	defer func() { metrics.ObserveRecallLatency(time.Since(start)) }()

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	listFilter := storage.ListFilter{
		Type:          filter.Type,
		Tags:          filter.Tags,
		Who:           filter.Who,
		Pinned:        filter.Pinned,
		ImportanceMin: filter.ImportanceMin,
		Since:         filter.Since,
		Limit:         10000,
	}
	hasFilter := filter.Type != "" || len(filter.Tags) > 0 || filter.Who != "" ||
		filter.Pinned != nil || filter.ImportanceMin > 0 || filter.Since != nil || filter.Limit > 0

	if strings.TrimSpace(query) == "" {
		if !hasFilter {
			return nil, nil
		}
		candidates, err := e.store.ListMemories(ctx, listFilter)
		if err != nil {
			return nil, err
		}
		sort.Slice(candidates, func(i, j int) bool {
			if !candidates[i].UpdatedAt.Equal(candidates[j].UpdatedAt) {
				return candidates[i].UpdatedAt.After(candidates[j].UpdatedAt)
			}
			return candidates[i].ID < candidates[j].ID
		})
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}
		out := make([]Result, 0, len(candidates))
		for _, m := range candidates {
			out = append(out, Result{ID: m.ID, Content: m.Content, Type: m.Type, Importance: m.Importance, Score: 0, Source: SourceKeyword})
		}
		return out, nil
	}

	candidates, err := e.store.ListMemories(ctx, listFilter)
	if err != nil {
		return nil, err
	}
	pool := make(map[string]*types.Memory, len(candidates))
	for _, m := range candidates {
		pool[m.ID] = m
	}

	keywordScores, err := e.store.SearchKeyword(ctx, query, 500)
	if err != nil {
		keywordScores = nil
	}

	var vectorScores map[string]float64
	if e.embedder != nil && e.store.VectorAvailable() {
		qVec, embErr := e.embedder.Embed(ctx, query)
		if embErr == nil {
			vectorScores, _ = e.store.SearchVector(ctx, qVec, 500)
		}
	}

	graphScores := e.graphBoost(ctx, query, pool)

	var usedLegs []types.RecallLeg
	if keywordScores != nil {
		usedLegs = append(usedLegs, types.LegKeyword)
	}
	if vectorScores != nil {
		usedLegs = append(usedLegs, types.LegVector)
	}
	if len(graphScores) > 0 {
		usedLegs = append(usedLegs, types.LegGraph)
	}
	metrics.MarkRecallLegs(usedLegs...)

	now := time.Now()
	scored := make([]Result, 0, len(pool))
	for id, m := range pool {
		kw := keywordScores[id]
		vec := vectorScores[id]
		graph := graphScores[id]

		final := e.cfg.WeightKeyword*kw + e.cfg.WeightVector*vec + e.cfg.WeightGraph*graph
		var pinnedBoost float64
		if m.Pinned {
			pinnedBoost = e.cfg.PinnedBoost
			final += pinnedBoost
		}
		if e.cfg.HalfLife > 0 {
			age := now.Sub(m.UpdatedAt)
			final *= math.Exp(-age.Hours() / e.cfg.HalfLife.Hours())
		}

		source := SourceKeyword
		switch {
		case kw > 0 && vec > 0:
			source = SourceHybrid
		case vec > 0:
			source = SourceVector
		}

		scored = append(scored, Result{
			ID: id, Content: m.Content, Type: m.Type, Importance: m.Importance,
			Score: final, Source: source,
			Legs: types.LegScores{Keyword: kw, Vector: vec, Graph: graph, Pinned: pinnedBoost},
		})
	}

	if e.cfg.RerankerEnabled && e.reranker != nil {
		scored = e.rerank(ctx, query, scored, pool)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		mi, mj := pool[scored[i].ID], pool[scored[j].ID]
		if mi != nil && mj != nil && !mi.UpdatedAt.Equal(mj.UpdatedAt) {
			return mi.UpdatedAt.After(mj.UpdatedAt)
		}
		return scored[i].ID < scored[j].ID
	})

	filtered := scored[:0:0]
	for _, r := range scored {
		if r.Score >= filter.MinScore {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// graphBoost computes, for every candidate, graphBoostFraction times the
// number of entities it shares with either the query's named entities or
// the candidate pool's hottest entities.
func (e *Engine) graphBoost(ctx context.Context, query string, pool map[string]*types.Memory) map[string]float64 {
	out := make(map[string]float64, len(pool))
	if e.cfg.GraphBoostFraction == 0 || len(pool) == 0 {
		return out
	}

	boostEntities := make(map[string]bool)
	hottest, err := e.store.HottestEntities(ctx, 10)
	if err == nil {
		for _, ent := range hottest {
			boostEntities[ent.ID] = true
		}
	}
	lowered := strings.ToLower(query)
	// entities whose canonical name appears in the query text are treated
	// as the query's named entities, since no NER model backs this engine.
	for _, ent := range hottest {
		if strings.Contains(lowered, strings.ToLower(ent.CanonicalName)) {
			boostEntities[ent.ID] = true
		}
	}

	for id, m := range pool {
		entities, err := e.store.EntitiesForMemory(ctx, m.ID)
		if err != nil || len(entities) == 0 {
			continue
		}
		shared := 0
		for _, ent := range entities {
			if boostEntities[ent.ID] {
				shared++
			}
		}
		if shared > 0 {
			out[id] = e.cfg.GraphBoostFraction * float64(shared)
		}
	}
	return out
}

// rerank re-scores the top-N fused results by cosine similarity between
// the query embedding and a fresh embedding of each candidate's content,
// falling back to the fused order if it doesn't finish within the
// configured timeout.
func (e *Engine) rerank(ctx context.Context, query string, scored []Result, pool map[string]*types.Memory) []Result {
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	topN := e.cfg.RerankerTopN
	if topN <= 0 || topN > len(scored) {
		topN = len(scored)
	}
	top := scored[:topN]
	rest := scored[topN:]

	rerankCtx, cancel := context.WithTimeout(ctx, e.cfg.RerankerTimeout)
	defer cancel()

	qVec, err := e.reranker.Embed(rerankCtx, query)
	if err != nil {
		return scored
	}

	type job struct {
		idx int
		sim float64
		err error
	}
	done := make(chan job, len(top))
	for i, r := range top {
		go func(i int, r Result) {
			m := pool[r.ID]
			if m == nil {
				done <- job{idx: i, err: context.Canceled}
				return
			}
			vec, err := e.reranker.Embed(rerankCtx, m.Content)
			if err != nil {
				done <- job{idx: i, err: err}
				return
			}
			done <- job{idx: i, sim: cosineSimilarity(qVec, vec)}
		}(i, r)
	}

	results := make([]Result, len(top))
	copy(results, top)
	for range top {
		select {
		case j := <-done:
			if j.err == nil {
				results[j.idx].Score = j.sim
				results[j.idx].Source = SourceVector
			}
		case <-rerankCtx.Done():
			return scored
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return append(results, rest...)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
