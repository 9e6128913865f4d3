package domain

import "time"

// Snapshot is the complete term -> IDF mapping produced by one full corpus
// scan. It is immutable once published; rebuilds replace it wholesale.
type Snapshot struct {
	BuiltAt        time.Time
	TotalDocuments int
	IDF            map[string]float64
}

// Class resolves the weight class for an already-normalized term. Terms
// absent from the dictionary are common by definition.
func (s *Snapshot) Class(term string) WeightClass {
	if s == nil {
		return ClassD
	}
	idf, ok := s.IDF[term]
	if !ok {
		return ClassD
	}
	return ClassifyIDF(idf)
}

func (s *Snapshot) TermCount() int {
	if s == nil {
		return 0
	}
	return len(s.IDF)
}

// DictionaryState names the lifecycle state of the dictionary cache.
type DictionaryState string

const (
	StateUninitialized DictionaryState = "uninitialized"
	StateLoading       DictionaryState = "loading"
	StateRebuilding    DictionaryState = "rebuilding"
	StateReady         DictionaryState = "ready"
	StateDegraded      DictionaryState = "degraded"
)

// DictionaryStats is the diagnostic read model for operational tooling.
type DictionaryStats struct {
	State          DictionaryState `json:"state"`
	BuiltAt        time.Time       `json:"built_at"`
	Age            time.Duration   `json:"age"`
	TermCount      int             `json:"term_count"`
	TotalDocuments int             `json:"total_documents"`
}
