package ranker

import (
	"math"
	"math/rand"
	"sort"
	"testing"
)

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	if err := w.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	got := w.Fuse(Components{Relevance: 1, Proximity: 1, Availability: 1, Quality: 1})
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("all-ones fuse = %v, want 1", got)
	}
	got = w.Fuse(Components{Relevance: 0.4, Proximity: 0.5, Availability: 1, Quality: 0.9})
	want := 0.5*0.4 + 0.2*0.5 + 0.2*1 + 0.1*0.9
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Fuse() = %v, want %v", got, want)
	}
}

func TestWeightsValidate(t *testing.T) {
	bad := []Weights{
		{Relevance: 0.5, Proximity: 0.5, Availability: 0.5},
		{Relevance: 1.2, Quality: -0.2},
	}
	for _, w := range bad {
		if err := w.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil", w)
		}
	}
}

func TestRankTopK(t *testing.T) {
	cands := []Candidate{
		{Position: 0, Score: 0.3},
		{Position: 1, Score: 0.9},
		{Position: 2, Score: 0.5},
		{Position: 3, Score: 0.9},
		{Position: 4, Score: 0.1},
	}
	got := Rank(cands, 3)
	wantPos := []int{1, 3, 2}
	if len(got) != len(wantPos) {
		t.Fatalf("len = %d", len(got))
	}
	for i, p := range wantPos {
		if got[i].Position != p {
			t.Errorf("rank %d = position %d, want %d", i, got[i].Position, p)
		}
	}
}

func TestRankEdgeCases(t *testing.T) {
	if got := Rank(nil, 5); len(got) != 0 {
		t.Errorf("Rank(nil) = %v", got)
	}
	cands := []Candidate{{Position: 0, Score: 1}, {Position: 1, Score: 2}}
	if got := Rank(cands, 10); len(got) != 2 || got[0].Position != 1 {
		t.Errorf("Rank(k>n) = %v", got)
	}
	if got := Rank(cands, 0); len(got) != 2 {
		t.Errorf("Rank(k=0) = %v", got)
	}
}

func TestRankMatchesStableSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := rng.Intn(40)
		cands := make([]Candidate, n)
		for i := range cands {
			// Few distinct values so ties are common.
			cands[i] = Candidate{Position: i, Score: float64(rng.Intn(5)) / 4}
		}
		want := append([]Candidate(nil), cands...)
		sort.SliceStable(want, func(i, j int) bool { return want[i].Score > want[j].Score })

		k := rng.Intn(n+2) + 1
		got := Rank(cands, k)
		if k > n {
			k = n
		}
		if len(got) != k {
			t.Fatalf("trial %d: len = %d, want %d", trial, len(got), k)
		}
		for i := range got {
			if got[i].Position != want[i].Position {
				t.Fatalf("trial %d rank %d: position %d, want %d", trial, i, got[i].Position, want[i].Position)
			}
		}
		for i := 1; i < len(got); i++ {
			if got[i].Score > got[i-1].Score {
				t.Fatalf("trial %d: not sorted at %d", trial, i)
			}
		}
	}
}
