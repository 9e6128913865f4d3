package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/storyforge/narrative-search/internal/core/domain"
)

func TestAggregateCountsDocumentFrequency(t *testing.T) {
	corpus := &fakeCorpus{docs: map[string][]string{
		"c1": {"Gender", "gender", "alex"},
		"c2": {"alex", "story"},
		"c3": {"alex", "  story  "},
	}}

	agg := NewFrequencyAggregator(corpus)
	counts, total, err := agg.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	// Repeated occurrences inside one document count once.
	if counts["gender"] != 1 {
		t.Fatalf("df(gender) = %d, want 1", counts["gender"])
	}
	if counts["alex"] != 3 {
		t.Fatalf("df(alex) = %d, want 3", counts["alex"])
	}
	if counts["story"] != 2 {
		t.Fatalf("df(story) = %d, want 2", counts["story"])
	}
}

func TestAggregateCorpusFailureReturnsNoPartialMapping(t *testing.T) {
	corpus := &fakeCorpus{err: errors.New("connection refused")}

	agg := NewFrequencyAggregator(corpus)
	counts, _, err := agg.Aggregate(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrCorpusUnavailable) {
		t.Fatalf("expected ErrCorpusUnavailable, got %v", err)
	}
	if counts != nil {
		t.Fatalf("expected no partial mapping, got %v", counts)
	}
}

func TestComputeIDFNaturalLog(t *testing.T) {
	idf, err := ComputeIDF(map[string]int{"gender": 1, "alex": 3}, 3)
	if err != nil {
		t.Fatalf("ComputeIDF() error = %v", err)
	}
	if math.Abs(idf["gender"]-math.Log(3)) > 1e-12 {
		t.Fatalf("idf(gender) = %v, want ln(3)", idf["gender"])
	}
	if idf["alex"] != 0 {
		t.Fatalf("idf(alex) = %v, want 0 for a term in every document", idf["alex"])
	}
}

func TestComputeIDFEmptyCorpus(t *testing.T) {
	_, err := ComputeIDF(map[string]int{}, 0)
	if !domain.IsKind(err, domain.ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}
