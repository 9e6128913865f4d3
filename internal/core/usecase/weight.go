package usecase

import "github.com/storyforge/narrative-search/internal/core/domain"

// QueryWeighterService rewrites query terms into a weighted boolean query
// using the dictionary cache. Total: a degraded dictionary yields a valid
// query with every term classed D and is_weighted false.
type QueryWeighterService struct {
	dict *DictionaryCache
}

func NewQueryWeighterService(dict *DictionaryCache) *QueryWeighterService {
	return &QueryWeighterService{dict: dict}
}

// Weight preserves input order and duplicates; empty terms are dropped.
func (s *QueryWeighterService) Weight(terms []string) (domain.WeightedQuery, bool) {
	weighted := s.dict.Ready()

	out := make([]domain.WeightedTerm, 0, len(terms))
	for _, term := range terms {
		norm := domain.NormalizeTerm(term)
		if norm == "" {
			continue
		}
		out = append(out, domain.WeightedTerm{
			Term:  norm,
			Class: s.dict.GetWeightClass(norm),
		})
	}
	return domain.WeightedQuery{Terms: out}, weighted
}

func (s *QueryWeighterService) WeightClass(term string) domain.WeightClass {
	return s.dict.GetWeightClass(term)
}
