package domain

import "strings"

// WeightClass buckets a term by corpus rarity, highest-rarity first.
type WeightClass string

const (
	ClassA WeightClass = "A"
	ClassB WeightClass = "B"
	ClassC WeightClass = "C"
	ClassD WeightClass = "D"
)

// Classification thresholds over natural-log IDF. Comparison is strictly
// greater-than: a score exactly at a boundary falls into the class below.
const (
	classAThreshold = 2.5
	classBThreshold = 2.0
	classCThreshold = 1.0
)

// ClassifyIDF maps an IDF score to its weight class. Total and deterministic.
func ClassifyIDF(idf float64) WeightClass {
	switch {
	case idf > classAThreshold:
		return ClassA
	case idf > classBThreshold:
		return ClassB
	case idf > classCThreshold:
		return ClassC
	default:
		return ClassD
	}
}

// Rarity orders classes for comparisons; higher means rarer.
func (c WeightClass) Rarity() int {
	switch c {
	case ClassA:
		return 3
	case ClassB:
		return 2
	case ClassC:
		return 1
	default:
		return 0
	}
}

// NormalizeTerm applies the corpus-side term normalization: case folding and
// whitespace trimming. No stemming.
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

type WeightedTerm struct {
	Term  string      `json:"term"`
	Class WeightClass `json:"class"`
}

// WeightedQuery is the per-query rewrite of the input terms, in input order,
// one entry per input term including duplicates.
type WeightedQuery struct {
	Terms []WeightedTerm `json:"terms"`
}

// String renders the canonical conjunctive form: "gender:C & alex:D".
// Engine-specific rendering is owned by the search adapter.
func (q WeightedQuery) String() string {
	if len(q.Terms) == 0 {
		return ""
	}
	var b strings.Builder
	for i, t := range q.Terms {
		if i > 0 {
			b.WriteString(" & ")
		}
		b.WriteString(t.Term)
		b.WriteString(":")
		b.WriteString(string(t.Class))
	}
	return b.String()
}
