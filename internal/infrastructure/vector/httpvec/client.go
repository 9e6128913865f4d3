package httpvec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/storyforge/narrative-search/internal/core/domain"
	"github.com/storyforge/narrative-search/internal/infrastructure/resilience"
)

// Client talks to the vector search sidecar over HTTP. The sidecar owns
// embeddings; this service only consumes ranked neighbors.
type Client struct {
	baseURL  string
	http     *http.Client
	executor *resilience.Executor
}

func NewClient(baseURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		executor: executor,
	}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResult struct {
	ChunkID    string  `json:"chunk_id"`
	StoryID    string  `json:"story_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.ScoredChunk, error) {
	if limit <= 0 {
		limit = 10
	}

	var chunks []domain.ScoredChunk
	run := func(ctx context.Context) error {
		out, err := c.search(ctx, query, limit)
		if err != nil {
			return err
		}
		chunks = out
		return nil
	}

	if c.executor == nil {
		if err := run(ctx); err != nil {
			return nil, err
		}
		return chunks, nil
	}
	if err := c.executor.Execute(ctx, "vector.search", run, classifyVectorError); err != nil {
		return nil, err
	}
	return chunks, nil
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]domain.ScoredChunk, error) {
	body, err := json.Marshal(searchRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("encode vector search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/vector-search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build vector search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "call vector search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("vector search status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, domain.WrapError(domain.ErrTemporary, "call vector search", err)
		}
		return nil, err
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode vector search response: %w", err)
	}

	chunks := make([]domain.ScoredChunk, 0, len(payload.Results))
	for _, result := range payload.Results {
		chunks = append(chunks, domain.ScoredChunk{
			ChunkID:     result.ChunkID,
			StoryID:     result.StoryID,
			ChunkIndex:  result.ChunkIndex,
			Text:        result.Text,
			VectorScore: result.Score,
		})
	}
	return chunks, nil
}

func classifyVectorError(err error) resilience.ErrorClassification {
	var netErr net.Error
	retryable := domain.IsKind(err, domain.ErrTemporary) ||
		errors.As(err, &netErr) ||
		errors.Is(err, io.ErrUnexpectedEOF)
	return resilience.ErrorClassification{Retryable: retryable, RecordFailure: true}
}
