// Package ranker fuses relevance and heuristic signals into one score and
// selects the top results.
package ranker

import (
	"container/heap"
	"fmt"
	"math"
)

// Weights are the fusion coefficients. They are process configuration, not
// per-request input.
type Weights struct {
	Relevance    float64
	Proximity    float64
	Availability float64
	Quality      float64
}

// DefaultWeights favours lexical relevance and splits the rest between
// distance, opening hours and rating.
func DefaultWeights() Weights {
	return Weights{
		Relevance:    0.50,
		Proximity:    0.20,
		Availability: 0.20,
		Quality:      0.10,
	}
}

// Validate requires non-negative weights summing to 1.
func (w Weights) Validate() error {
	if w.Relevance < 0 || w.Proximity < 0 || w.Availability < 0 || w.Quality < 0 {
		return fmt.Errorf("weights must not be negative: %+v", w)
	}
	if sum := w.Relevance + w.Proximity + w.Availability + w.Quality; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return nil
}

// Components are the per-signal scores of one record, each in [0,1].
type Components struct {
	Relevance    float64 `json:"tfidf"`
	Proximity    float64 `json:"distance"`
	Availability float64 `json:"open"`
	Quality      float64 `json:"rating"`
}

// Fuse returns the weighted sum of c.
func (w Weights) Fuse(c Components) float64 {
	return w.Relevance*c.Relevance +
		w.Proximity*c.Proximity +
		w.Availability*c.Availability +
		w.Quality*c.Quality
}

// Candidate is a scored record. Position is the record's place in catalog
// order and breaks score ties.
type Candidate struct {
	Position   int
	Components Components
	Score      float64
}

// Rank returns the k best candidates by descending score. Equal scores keep
// catalog order, so the result equals a stable descending sort truncated to
// k. A k of zero or less returns every candidate.
func Rank(candidates []Candidate, k int) []Candidate {
	if k <= 0 || k > len(candidates) {
		k = len(candidates)
	}
	if k == 0 {
		return []Candidate{}
	}
	h := make(candidateHeap, 0, k+1)
	for _, c := range candidates {
		if len(h) < k {
			heap.Push(&h, c)
			continue
		}
		if better(c, h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}
	result := make([]Candidate, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(Candidate)
	}
	return result
}

// better reports whether a ranks ahead of b.
func better(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Position < b.Position
}

// candidateHeap is a min-heap with the worst-ranked candidate at the root.
type candidateHeap []Candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool { return better(h[j], h[i]) }

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) {
	*h = append(*h, x.(Candidate))
}

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
