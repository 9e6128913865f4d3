package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/storyforge/narrative-search/internal/core/domain"
)

type fakeWeighter struct {
	weighted bool
}

func (f *fakeWeighter) Weight(terms []string) (domain.WeightedQuery, bool) {
	out := make([]domain.WeightedTerm, 0, len(terms))
	for _, term := range terms {
		out = append(out, domain.WeightedTerm{Term: term, Class: domain.ClassD})
	}
	return domain.WeightedQuery{Terms: out}, f.weighted
}

func (f *fakeWeighter) WeightClass(string) domain.WeightClass { return domain.ClassD }

type fakeLexical struct {
	chunks []domain.ScoredChunk
	err    error
}

func (f *fakeLexical) Search(context.Context, domain.WeightedQuery, bool, int) ([]domain.ScoredChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.ScoredChunk, len(f.chunks))
	copy(out, f.chunks)
	return out, nil
}

type fakeVector struct {
	chunks []domain.ScoredChunk
	err    error
}

func (f *fakeVector) Search(context.Context, string, int) ([]domain.ScoredChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.ScoredChunk, len(f.chunks))
	copy(out, f.chunks)
	return out, nil
}

func TestSearchCombinesBothBackends(t *testing.T) {
	lexical := &fakeLexical{chunks: []domain.ScoredChunk{
		{ChunkID: "a", StoryID: "s1", ChunkIndex: 0, Text: "a", LexicalScore: 2.0},
		{ChunkID: "b", StoryID: "s1", ChunkIndex: 1, Text: "b", LexicalScore: 1.0},
	}}
	vector := &fakeVector{chunks: []domain.ScoredChunk{
		{ChunkID: "b", StoryID: "s1", ChunkIndex: 1, Text: "b", VectorScore: 0.9},
		{ChunkID: "c", StoryID: "s2", ChunkIndex: 0, Text: "c", VectorScore: 0.5},
	}}

	uc := NewHybridSearchUseCase(&fakeWeighter{weighted: true}, lexical, vector, WeightedSumCombiner(0.6, 0.4), 30, nil)
	results, weighted, err := uc.Search(context.Background(), "any query", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !weighted {
		t.Fatalf("expected weighted flag passthrough")
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// After min-max normalization: a=(1,0)=0.6, b=(0,1)=0.4, c=(0,0)=0.
	if results[0].ChunkID != "a" || results[1].ChunkID != "b" || results[2].ChunkID != "c" {
		t.Fatalf("unexpected order: %s, %s, %s", results[0].ChunkID, results[1].ChunkID, results[2].ChunkID)
	}
}

func TestSearchLexicalFailureDegradesToVector(t *testing.T) {
	lexical := &fakeLexical{err: errors.New("backend down")}
	vector := &fakeVector{chunks: []domain.ScoredChunk{
		{ChunkID: "c", StoryID: "s2", ChunkIndex: 0, VectorScore: 0.5},
	}}

	uc := NewHybridSearchUseCase(&fakeWeighter{}, lexical, vector, nil, 30, nil)
	results, _, err := uc.Search(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("Search() error = %v, single backend failure must degrade", err)
	}
	if len(results) != 1 || results[0].ChunkID != "c" {
		t.Fatalf("expected vector-only result, got %+v", results)
	}
}

func TestSearchBothBackendsFailing(t *testing.T) {
	uc := NewHybridSearchUseCase(
		&fakeWeighter{},
		&fakeLexical{err: errors.New("lexical down")},
		&fakeVector{err: errors.New("vector down")},
		nil, 30, nil,
	)
	if _, _, err := uc.Search(context.Background(), "query", 5); err == nil {
		t.Fatalf("expected error when both backends fail")
	}
}

func TestRankIsPureAndDeterministic(t *testing.T) {
	pairs := []domain.ScoredChunk{
		{ChunkID: "a", StoryID: "s1", LexicalScore: 0.2, VectorScore: 0.9},
		{ChunkID: "b", StoryID: "s1", LexicalScore: 0.8, VectorScore: 0.1},
	}
	uc := NewHybridSearchUseCase(&fakeWeighter{}, &fakeLexical{}, &fakeVector{}, WeightedSumCombiner(0.5, 0.5), 30, nil)

	first := uc.Rank(pairs)
	second := uc.Rank(pairs)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("ranking not deterministic: %+v vs %+v", first, second)
	}
	if pairs[0].Score != 0 {
		t.Fatalf("Rank must not mutate its input")
	}
}

func TestRankTieBreaksAreStable(t *testing.T) {
	pairs := []domain.ScoredChunk{
		{ChunkID: "z", StoryID: "s2", ChunkIndex: 0, LexicalScore: 0.5, VectorScore: 0.5},
		{ChunkID: "y", StoryID: "s1", ChunkIndex: 1, LexicalScore: 0.5, VectorScore: 0.5},
		{ChunkID: "x", StoryID: "s1", ChunkIndex: 0, LexicalScore: 0.5, VectorScore: 0.5},
	}
	uc := NewHybridSearchUseCase(&fakeWeighter{}, &fakeLexical{}, &fakeVector{}, nil, 30, nil)

	ranked := uc.Rank(pairs)
	if ranked[0].ChunkID != "x" || ranked[1].ChunkID != "y" || ranked[2].ChunkID != "z" {
		t.Fatalf("unexpected tie-break order: %s, %s, %s", ranked[0].ChunkID, ranked[1].ChunkID, ranked[2].ChunkID)
	}
}

func TestCombinerSanitizesInvalidScores(t *testing.T) {
	combine := WeightedSumCombiner(0.6, 0.4)
	if got := combine(-1, 0.5); got != 0.2 {
		t.Fatalf("negative lexical score must be treated as 0, got %v", got)
	}
}
