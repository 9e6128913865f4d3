package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/storyforge/narrative-search/internal/core/domain"
	"github.com/storyforge/narrative-search/internal/infrastructure/resilience"
)

// Rank boosts per weight class. Rare terms dominate the lexical score.
var classBoosts = map[domain.WeightClass]float64{
	domain.ClassA: 4.0,
	domain.ClassB: 3.0,
	domain.ClassC: 2.0,
	domain.ClassD: 1.0,
}

// LexicalSearcher runs full-text search over narrative_chunks using the
// generated tsvector column.
type LexicalSearcher struct {
	db       *sql.DB
	executor *resilience.Executor
}

func NewLexicalSearcher(db *sql.DB, executor *resilience.Executor) *LexicalSearcher {
	return &LexicalSearcher{db: db, executor: executor}
}

// Search returns chunks matching any query term, ranked by ts_rank. When
// weighted is true each class group contributes its own boosted rank term;
// otherwise all terms share one unboosted disjunction.
func (s *LexicalSearcher) Search(
	ctx context.Context,
	query domain.WeightedQuery,
	weighted bool,
	limit int,
) ([]domain.ScoredChunk, error) {
	lexemes := sanitizeLexemes(query)
	if len(lexemes) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	sqlQuery, args := buildSearchQuery(query, lexemes, weighted, limit)

	var chunks []domain.ScoredChunk
	run := func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			return fmt.Errorf("query lexical search: %w", err)
		}
		defer rows.Close()

		chunks = chunks[:0]
		for rows.Next() {
			var chunk domain.ScoredChunk
			if err := rows.Scan(&chunk.ChunkID, &chunk.StoryID, &chunk.ChunkIndex, &chunk.Text, &chunk.LexicalScore); err != nil {
				return fmt.Errorf("scan lexical result: %w", err)
			}
			chunks = append(chunks, chunk)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate lexical results: %w", err)
		}
		return nil
	}

	if s.executor == nil {
		if err := run(ctx); err != nil {
			return nil, err
		}
		return chunks, nil
	}

	err := s.executor.Execute(ctx, "postgres.lexical_search", run, classifySearchError)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// buildSearchQuery assembles the rank expression. The WHERE clause always
// matches the full disjunction so boosting changes order, never recall.
func buildSearchQuery(
	query domain.WeightedQuery,
	lexemes map[string]string,
	weighted bool,
	limit int,
) (string, []any) {
	all := make([]string, 0, len(query.Terms))
	seen := make(map[string]struct{}, len(query.Terms))
	groups := make(map[domain.WeightClass][]string)
	for _, term := range query.Terms {
		lexeme, ok := lexemes[term.Term]
		if !ok {
			continue
		}
		if _, dup := seen[lexeme]; !dup {
			seen[lexeme] = struct{}{}
			all = append(all, lexeme)
		}
		groups[term.Class] = append(groups[term.Class], lexeme)
	}

	args := []any{strings.Join(all, " | ")}
	rankTerms := []string{"ts_rank(tsv, to_tsquery('simple', $1))"}

	if weighted {
		rankTerms = rankTerms[:0]
		for _, class := range []domain.WeightClass{domain.ClassA, domain.ClassB, domain.ClassC, domain.ClassD} {
			members := groups[class]
			if len(members) == 0 {
				continue
			}
			args = append(args, strings.Join(members, " | "))
			rankTerms = append(rankTerms,
				fmt.Sprintf("%.1f * ts_rank(tsv, to_tsquery('simple', $%d))", classBoosts[class], len(args)))
		}
	}

	args = append(args, limit)
	sqlQuery := fmt.Sprintf(`
SELECT id, story_id, chunk_index, content, %s AS score
FROM narrative_chunks
WHERE tsv @@ to_tsquery('simple', $1)
ORDER BY score DESC, story_id ASC, chunk_index ASC, id ASC
LIMIT $%d`, strings.Join(rankTerms, " + "), len(args))

	return sqlQuery, args
}

// sanitizeLexemes strips tsquery syntax out of user terms. Only lowercase
// alphanumeric runs survive; everything else would change query semantics.
func sanitizeLexemes(query domain.WeightedQuery) map[string]string {
	out := make(map[string]string, len(query.Terms))
	for _, term := range query.Terms {
		var b strings.Builder
		for _, r := range term.Term {
			r = unicode.ToLower(r)
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			out[term.Term] = b.String()
		}
	}
	return out
}

func classifySearchError(error) resilience.ErrorClassification {
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}
