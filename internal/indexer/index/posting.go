package index

import "math"

// Posting records the weight a term carries in one row.
type Posting struct {
	Row    int
	Weight float64
}

// PostingList holds a term's postings in ascending row order.
type PostingList []Posting

// Vector is a sparse term-weight vector with term ids in ascending order.
type Vector struct {
	Terms   []int
	Weights []float64
}

// IsZero reports whether the vector has no non-zero component.
func (v Vector) IsZero() bool {
	return len(v.Terms) == 0
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	var sum float64
	for _, w := range v.Weights {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Dot returns the inner product of two sparse vectors.
func (v Vector) Dot(o Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Terms) && j < len(o.Terms) {
		switch {
		case v.Terms[i] == o.Terms[j]:
			sum += v.Weights[i] * o.Weights[j]
			i++
			j++
		case v.Terms[i] < o.Terms[j]:
			i++
		default:
			j++
		}
	}
	return sum
}
