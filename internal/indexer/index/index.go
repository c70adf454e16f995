// Package index implements the term relevance index: a TF-IDF vocabulary
// fitted on the catalog corpus, one unit-length vector per catalog row, and
// an inverted posting list used to answer cosine-similarity queries.
//
// An Index is immutable once built. A catalog change is handled by building
// a new Index, never by modifying an existing one.
package index

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/indexer/tokenizer"
)

type Index struct {
	vocab    *Vocabulary
	rows     []Vector
	ids      []string
	idToRow  map[string]int
	postings []PostingList
}

// Build fits a vocabulary on corpus and transforms every document. ids and
// corpus are parallel: row i is document corpus[i] of record ids[i].
func Build(ids []string, corpus []string) (*Index, error) {
	if len(ids) != len(corpus) {
		return nil, fmt.Errorf("building index: %d ids for %d documents", len(ids), len(corpus))
	}

	idToRow := make(map[string]int, len(ids))
	for row, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("building index: empty id at row %d", row)
		}
		if prev, dup := idToRow[id]; dup {
			return nil, fmt.Errorf("building index: duplicate id %q at rows %d and %d", id, prev, row)
		}
		idToRow[id] = row
	}

	tokenized := make([][]string, len(corpus))
	for i, doc := range corpus {
		tokenized[i] = tokenizer.Tokenize(doc)
	}
	vocab := Fit(tokenized)

	rows := make([]Vector, len(corpus))
	postings := make([]PostingList, vocab.Len())
	for row, tokens := range tokenized {
		vec := vocab.Transform(tokens)
		rows[row] = vec
		for k, term := range vec.Terms {
			postings[term] = append(postings[term], Posting{Row: row, Weight: vec.Weights[k]})
		}
	}

	return &Index{
		vocab:    vocab,
		rows:     rows,
		ids:      append([]string(nil), ids...),
		idToRow:  idToRow,
		postings: postings,
	}, nil
}

// Query returns the cosine similarity between text and every row, aligned to
// row order. Rows sharing no term with text score 0. An empty index returns
// an empty slice.
func (ix *Index) Query(text string) []float64 {
	scores := make([]float64, len(ix.rows))
	if len(ix.rows) == 0 {
		return scores
	}
	q := ix.vocab.Transform(tokenizer.Tokenize(text))
	for k, term := range q.Terms {
		qw := q.Weights[k]
		for _, p := range ix.postings[term] {
			scores[p.Row] += qw * p.Weight
		}
	}
	for i, s := range scores {
		if s > 1 {
			scores[i] = 1
		}
	}
	return scores
}

// Row returns the row holding record id.
func (ix *Index) Row(id string) (int, bool) {
	row, ok := ix.idToRow[id]
	return row, ok
}

// ID returns the record id stored at row.
func (ix *Index) ID(row int) string {
	return ix.ids[row]
}

// Vector returns the weight vector of row.
func (ix *Index) Vector(row int) Vector {
	return ix.rows[row]
}

// Postings returns the posting list of term, or nil when the term is not in
// the vocabulary.
func (ix *Index) Postings(term string) PostingList {
	id, ok := ix.vocab.TermID(term)
	if !ok {
		return nil
	}
	return ix.postings[id]
}

// Len returns the number of rows.
func (ix *Index) Len() int {
	return len(ix.rows)
}

func (ix *Index) Vocabulary() *Vocabulary {
	return ix.vocab
}
