package ports

import (
	"context"

	"github.com/storyforge/narrative-search/internal/core/domain"
)

// CorpusSource streams per-document distinct term sets for dictionary builds.
// Each document is yielded exactly once.
type CorpusSource interface {
	EachDocumentTerms(ctx context.Context, fn func(docID string, terms []string) error) error
}

// SnapshotStore persists the dictionary snapshot between processes.
// Load returns (nil, nil) when no snapshot exists.
type SnapshotStore interface {
	Load(ctx context.Context) (*domain.Snapshot, error)
	Save(ctx context.Context, snap *domain.Snapshot) error
}

// LexicalSearcher executes a weighted boolean query on the full-text engine.
// When weighted is false the adapter falls back to its unweighted form.
type LexicalSearcher interface {
	Search(ctx context.Context, query domain.WeightedQuery, weighted bool, limit int) ([]domain.ScoredChunk, error)
}

// VectorSearcher returns vector-similarity scored chunks for a raw query.
type VectorSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.ScoredChunk, error)
}

// CorpusEvents signals structural corpus changes between services.
type CorpusEvents interface {
	PublishCorpusChanged(ctx context.Context, reason string) error
	SubscribeCorpusChanged(ctx context.Context, handler func(context.Context, string) error) error
}
