package text

import "math"

// TermVector is a sparse term-frequency vector with its cached L2 norm.
type TermVector struct {
	Counts map[string]float64
	Norm   float64
}

// NewTermVector builds a term-frequency vector from a list of terms.
func NewTermVector(terms []string) TermVector {
	counts := make(map[string]float64, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	var sum float64
	for _, c := range counts {
		sum += c * c
	}
	return TermVector{Counts: counts, Norm: math.Sqrt(sum)}
}

// VectorOf tokenizes s and returns its term-frequency vector.
func VectorOf(s string) TermVector {
	return NewTermVector(Tokenize(s))
}

// IsEmpty reports whether the vector has no terms.
func (v TermVector) IsEmpty() bool {
	return len(v.Counts) == 0 || v.Norm == 0
}

// Dot returns the dot product of two vectors.
func (v TermVector) Dot(o TermVector) float64 {
	small, large := v.Counts, o.Counts
	if len(small) > len(large) {
		small, large = large, small
	}
	var dot float64
	for term, c := range small {
		if oc, ok := large[term]; ok {
			dot += c * oc
		}
	}
	return dot
}
