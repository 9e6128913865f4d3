package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/storyforge/narrative-search/internal/core/domain"
	"github.com/storyforge/narrative-search/internal/core/ports"
)

// ScoreCombiner merges a lexical match score and a vector similarity score
// into one ranking score. Implementations must be pure and deterministic so
// that ranking is reproducible given the same two component scores.
type ScoreCombiner func(lexical, vector float64) float64

// WeightedSumCombiner blends the two scores linearly.
func WeightedSumCombiner(lexicalWeight, vectorWeight float64) ScoreCombiner {
	if lexicalWeight <= 0 && vectorWeight <= 0 {
		lexicalWeight, vectorWeight = 0.6, 0.4
	}
	return func(lexical, vector float64) float64 {
		return lexicalWeight*sanitizeScore(lexical) + vectorWeight*sanitizeScore(vector)
	}
}

func sanitizeScore(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// HybridSearchUseCase orchestrates one query: weight the terms, fetch
// candidates from the lexical and vector backends, then combine and rank.
type HybridSearchUseCase struct {
	weighter   ports.TermWeighter
	lexical    ports.LexicalSearcher
	vector     ports.VectorSearcher
	combine    ScoreCombiner
	candidates int
	log        *slog.Logger
}

func NewHybridSearchUseCase(
	weighter ports.TermWeighter,
	lexical ports.LexicalSearcher,
	vector ports.VectorSearcher,
	combine ScoreCombiner,
	candidates int,
	log *slog.Logger,
) *HybridSearchUseCase {
	if combine == nil {
		combine = WeightedSumCombiner(0, 0)
	}
	if candidates <= 0 {
		candidates = 30
	}
	if log == nil {
		log = slog.Default()
	}
	return &HybridSearchUseCase{
		weighter:   weighter,
		lexical:    lexical,
		vector:     vector,
		combine:    combine,
		candidates: candidates,
		log:        log,
	}
}

// Search returns up to limit ranked chunks and whether rarity weighting was
// in effect. A single backend failure degrades to the surviving backend.
func (uc *HybridSearchUseCase) Search(ctx context.Context, query string, limit int) ([]domain.ScoredChunk, bool, error) {
	if limit <= 0 {
		limit = 5
	}
	candidates := uc.candidates
	if candidates < limit {
		candidates = limit
	}

	weightedQuery, weighted := uc.weighter.Weight(QueryTerms(query))

	lexicalHits, lexErr := uc.lexical.Search(ctx, weightedQuery, weighted, candidates)
	vectorHits, vecErr := uc.vector.Search(ctx, query, candidates)

	if lexErr != nil && vecErr != nil {
		return nil, weighted, fmt.Errorf("lexical search: %v; vector search: %w", lexErr, vecErr)
	}
	if lexErr != nil {
		uc.log.Warn("lexical_search_failed", "error", lexErr)
		lexicalHits = nil
	}
	if vecErr != nil {
		uc.log.Warn("vector_search_failed", "error", vecErr)
		vectorHits = nil
	}

	normalizeLexical(lexicalHits)
	normalizeVector(vectorHits)

	ranked := uc.Rank(mergeScorePairs(lexicalHits, vectorHits))
	return trimCandidates(ranked, limit), weighted, nil
}

// Rank applies the combiner to per-result score pairs and orders the results
// with deterministic tie-breaks. Pure over its input.
func (uc *HybridSearchUseCase) Rank(pairs []domain.ScoredChunk) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(pairs))
	copy(out, pairs)
	for i := range out {
		out[i].Score = uc.combine(out[i].LexicalScore, out[i].VectorScore)
	}
	sortChunks(out)
	return out
}

func mergeScorePairs(lexical, vector []domain.ScoredChunk) []domain.ScoredChunk {
	acc := make(map[string]domain.ScoredChunk, len(lexical)+len(vector))
	order := make([]string, 0, len(lexical)+len(vector))

	add := func(chunk domain.ScoredChunk, lexScore, vecScore float64) {
		key := chunkKey(chunk)
		cur, ok := acc[key]
		if !ok {
			order = append(order, key)
			cur = chunk
		}
		cur = preferRicherChunk(cur, chunk)
		if lexScore > cur.LexicalScore {
			cur.LexicalScore = lexScore
		}
		if vecScore > cur.VectorScore {
			cur.VectorScore = vecScore
		}
		acc[key] = cur
	}

	for _, chunk := range lexical {
		add(chunk, chunk.LexicalScore, 0)
	}
	for _, chunk := range vector {
		add(chunk, 0, chunk.VectorScore)
	}

	out := make([]domain.ScoredChunk, 0, len(order))
	for _, key := range order {
		out = append(out, acc[key])
	}
	return out
}

func chunkKey(chunk domain.ScoredChunk) string {
	if chunk.ChunkID != "" {
		return chunk.ChunkID
	}
	return fmt.Sprintf("%s:%d", chunk.StoryID, chunk.ChunkIndex)
}

func preferRicherChunk(current, candidate domain.ScoredChunk) domain.ScoredChunk {
	if current.Text == "" && candidate.Text != "" {
		current.Text = candidate.Text
	}
	if current.StoryID == "" && candidate.StoryID != "" {
		current.StoryID = candidate.StoryID
	}
	if current.ChunkID == "" && candidate.ChunkID != "" {
		current.ChunkID = candidate.ChunkID
	}
	return current
}

func normalizeLexical(chunks []domain.ScoredChunk) {
	normalize(chunks,
		func(c *domain.ScoredChunk) float64 { return c.LexicalScore },
		func(c *domain.ScoredChunk, v float64) { c.LexicalScore = v },
	)
}

func normalizeVector(chunks []domain.ScoredChunk) {
	normalize(chunks,
		func(c *domain.ScoredChunk) float64 { return c.VectorScore },
		func(c *domain.ScoredChunk, v float64) { c.VectorScore = v },
	)
}

// normalize rescales one backend's scores to [0,1] so the combiner sees
// comparable inputs regardless of backend score ranges.
func normalize(chunks []domain.ScoredChunk, get func(*domain.ScoredChunk) float64, set func(*domain.ScoredChunk, float64)) {
	if len(chunks) == 0 {
		return
	}

	minScore := get(&chunks[0])
	maxScore := minScore
	for i := range chunks[1:] {
		v := get(&chunks[i+1])
		if v < minScore {
			minScore = v
		}
		if v > maxScore {
			maxScore = v
		}
	}

	scoreRange := maxScore - minScore
	for i := range chunks {
		v := get(&chunks[i])
		if scoreRange <= 0 {
			if v > 0 {
				set(&chunks[i], 1)
			} else {
				set(&chunks[i], 0)
			}
			continue
		}
		set(&chunks[i], (v-minScore)/scoreRange)
	}
}

func sortChunks(chunks []domain.ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		if chunks[i].StoryID != chunks[j].StoryID {
			return chunks[i].StoryID < chunks[j].StoryID
		}
		if chunks[i].ChunkIndex != chunks[j].ChunkIndex {
			return chunks[i].ChunkIndex < chunks[j].ChunkIndex
		}
		return chunks[i].ChunkID < chunks[j].ChunkID
	})
}

func trimCandidates(chunks []domain.ScoredChunk, limit int) []domain.ScoredChunk {
	if limit <= 0 || len(chunks) <= limit {
		return chunks
	}
	return chunks[:limit]
}
