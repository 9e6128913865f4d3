package domain

// ScoredChunk is one narrative chunk carrying its per-backend scores and the
// combined ranking score.
type ScoredChunk struct {
	ChunkID      string  `json:"chunk_id"`
	StoryID      string  `json:"story_id"`
	ChunkIndex   int     `json:"chunk_index"`
	Text         string  `json:"text"`
	LexicalScore float64 `json:"lexical_score"`
	VectorScore  float64 `json:"vector_score"`
	Score        float64 `json:"score"`
}
