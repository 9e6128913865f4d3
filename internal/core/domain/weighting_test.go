package domain

import (
	"math"
	"testing"
)

func TestClassifyIDFThresholds(t *testing.T) {
	cases := []struct {
		idf  float64
		want WeightClass
	}{
		{idf: 6.9077, want: ClassA}, // 1-in-1000 rarity
		{idf: 2.51, want: ClassA},
		{idf: 2.5, want: ClassB}, // strict >, boundary falls down
		{idf: 2.01, want: ClassB},
		{idf: 2.0, want: ClassC},
		{idf: 1.0986, want: ClassC}, // ln(3/1)
		{idf: 1.0, want: ClassD},
		{idf: 0.5, want: ClassD},
		{idf: 0, want: ClassD},
	}
	for _, tc := range cases {
		if got := ClassifyIDF(tc.idf); got != tc.want {
			t.Fatalf("ClassifyIDF(%v) = %s, want %s", tc.idf, got, tc.want)
		}
	}
}

func TestClassifyIDFMonotonic(t *testing.T) {
	prev := ClassifyIDF(0)
	for idf := 0.0; idf <= 4.0; idf += 0.05 {
		cur := ClassifyIDF(idf)
		if cur.Rarity() < prev.Rarity() {
			t.Fatalf("rarity decreased at idf=%v: %s after %s", idf, cur, prev)
		}
		prev = cur
	}
}

func TestClassifyIDFOneInThousand(t *testing.T) {
	idf := math.Log(1000)
	if math.Abs(idf-6.9077) > 0.001 {
		t.Fatalf("ln(1000) = %v, expected ~6.9077", idf)
	}
	if got := ClassifyIDF(idf); got != ClassA {
		t.Fatalf("expected class A for 1-in-1000 term, got %s", got)
	}
}

func TestSnapshotClassUnknownTermIsCommon(t *testing.T) {
	snap := &Snapshot{IDF: map[string]float64{"gender": 1.0986}}
	if got := snap.Class("gender"); got != ClassC {
		t.Fatalf("expected C, got %s", got)
	}
	if got := snap.Class("unseen"); got != ClassD {
		t.Fatalf("expected D for unknown term, got %s", got)
	}
	var nilSnap *Snapshot
	if got := nilSnap.Class("anything"); got != ClassD {
		t.Fatalf("expected D on nil snapshot, got %s", got)
	}
}

func TestNormalizeTerm(t *testing.T) {
	if got := NormalizeTerm("  Alex\t"); got != "alex" {
		t.Fatalf("NormalizeTerm = %q", got)
	}
}

func TestWeightedQueryCanonicalForm(t *testing.T) {
	q := WeightedQuery{Terms: []WeightedTerm{
		{Term: "gender", Class: ClassC},
		{Term: "alex", Class: ClassD},
	}}
	if got := q.String(); got != "gender:C & alex:D" {
		t.Fatalf("canonical form = %q", got)
	}
	if got := (WeightedQuery{}).String(); got != "" {
		t.Fatalf("empty query form = %q", got)
	}
}

func TestWeightedQueryKeepsDuplicates(t *testing.T) {
	q := WeightedQuery{Terms: []WeightedTerm{
		{Term: "alex", Class: ClassD},
		{Term: "alex", Class: ClassD},
	}}
	if got := q.String(); got != "alex:D & alex:D" {
		t.Fatalf("duplicate rendering = %q", got)
	}
}
