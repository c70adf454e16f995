package index

import (
	"math"
	"slices"
)

// Vocabulary is the fitted half of the index: every term seen in the
// corpus, numbered in sorted order, with its smoothed inverse document
// frequency.
type Vocabulary struct {
	terms    map[string]int
	sorted   []string
	idf      []float64
	docCount int
}

// Fit builds a vocabulary from tokenized documents. IDF uses the smoothed
// form ln((1+N)/(1+df)) + 1, so a term present in every document keeps a
// weight of 1.
func Fit(docs [][]string) *Vocabulary {
	df := make(map[string]int)
	for _, tokens := range docs {
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	sorted := make([]string, 0, len(df))
	for term := range df {
		sorted = append(sorted, term)
	}
	slices.Sort(sorted)

	n := float64(len(docs))
	v := &Vocabulary{
		terms:    make(map[string]int, len(sorted)),
		sorted:   sorted,
		idf:      make([]float64, len(sorted)),
		docCount: len(docs),
	}
	for id, term := range sorted {
		v.terms[term] = id
		v.idf[id] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v
}

// Transform weights raw term counts by IDF and scales the result to unit
// length. Terms outside the vocabulary are ignored; a document with no known
// terms yields the zero vector.
func (v *Vocabulary) Transform(tokens []string) Vector {
	counts := make(map[int]int, len(tokens))
	for _, tok := range tokens {
		if id, ok := v.terms[tok]; ok {
			counts[id]++
		}
	}
	if len(counts) == 0 {
		return Vector{}
	}

	vec := Vector{
		Terms:   make([]int, 0, len(counts)),
		Weights: make([]float64, 0, len(counts)),
	}
	for id := range counts {
		vec.Terms = append(vec.Terms, id)
	}
	slices.Sort(vec.Terms)

	var sumSq float64
	for _, id := range vec.Terms {
		w := float64(counts[id]) * v.idf[id]
		vec.Weights = append(vec.Weights, w)
		sumSq += w * w
	}
	norm := math.Sqrt(sumSq)
	for i := range vec.Weights {
		vec.Weights[i] /= norm
	}
	return vec
}

// Len returns the number of distinct terms.
func (v *Vocabulary) Len() int {
	return len(v.sorted)
}

// DocCount returns the number of documents the vocabulary was fitted on.
func (v *Vocabulary) DocCount() int {
	return v.docCount
}

// TermID returns the numeric id of term.
func (v *Vocabulary) TermID(term string) (int, bool) {
	id, ok := v.terms[term]
	return id, ok
}

// Term returns the term numbered id.
func (v *Vocabulary) Term(id int) string {
	return v.sorted[id]
}

// IDF returns the inverse document frequency of term.
func (v *Vocabulary) IDF(term string) (float64, bool) {
	id, ok := v.terms[term]
	if !ok {
		return 0, false
	}
	return v.idf[id], true
}
