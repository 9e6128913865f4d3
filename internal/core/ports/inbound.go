package ports

import (
	"context"

	"github.com/storyforge/narrative-search/internal/core/domain"
)

// TermWeighter rewrites query terms into a weighted boolean query. The second
// return reports whether rarity weighting was in effect.
type TermWeighter interface {
	Weight(terms []string) (domain.WeightedQuery, bool)
	WeightClass(term string) domain.WeightClass
}

// HybridSearcher is the inbound contract for hybrid ranking.
type HybridSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.ScoredChunk, bool, error)
	Rank(pairs []domain.ScoredChunk) []domain.ScoredChunk
}

// DictionaryAdmin exposes operational control over the term dictionary.
type DictionaryAdmin interface {
	ForceRefresh() bool
	Stats() domain.DictionaryStats
}
