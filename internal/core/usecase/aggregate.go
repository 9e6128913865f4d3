package usecase

import (
	"context"
	"errors"
	"math"

	"github.com/storyforge/narrative-search/internal/core/domain"
	"github.com/storyforge/narrative-search/internal/core/ports"
)

// FrequencyAggregator computes per-term document frequencies over the corpus.
type FrequencyAggregator struct {
	corpus ports.CorpusSource
}

func NewFrequencyAggregator(corpus ports.CorpusSource) *FrequencyAggregator {
	return &FrequencyAggregator{corpus: corpus}
}

// Aggregate scans every corpus document once and returns, for each distinct
// normalized term, the number of documents containing it, plus the total
// number of documents scanned. A failed scan returns no partial mapping.
func (a *FrequencyAggregator) Aggregate(ctx context.Context) (map[string]int, int, error) {
	counts := make(map[string]int)
	total := 0

	err := a.corpus.EachDocumentTerms(ctx, func(_ string, terms []string) error {
		total++
		seen := make(map[string]struct{}, len(terms))
		for _, term := range terms {
			norm := domain.NormalizeTerm(term)
			if norm == "" {
				continue
			}
			if _, ok := seen[norm]; ok {
				continue
			}
			seen[norm] = struct{}{}
			counts[norm]++
		}
		return nil
	})
	if err != nil {
		return nil, 0, domain.WrapError(domain.ErrCorpusUnavailable, "aggregate corpus", err)
	}
	return counts, total, nil
}

// ComputeIDF converts document frequencies into natural-log IDF scores:
// idf = ln(total / count). Scores are finite for every valid entry.
func ComputeIDF(counts map[string]int, totalDocuments int) (map[string]float64, error) {
	if totalDocuments <= 0 {
		return nil, domain.WrapError(domain.ErrEmptyCorpus, "compute idf", errors.New("corpus has no documents"))
	}

	out := make(map[string]float64, len(counts))
	for term, count := range counts {
		if count <= 0 {
			continue
		}
		if count > totalDocuments {
			// Aggregation invariant violation; clamp rather than emit a
			// negative score.
			count = totalDocuments
		}
		out[term] = math.Log(float64(totalDocuments) / float64(count))
	}
	return out, nil
}
