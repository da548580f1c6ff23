// Package similarity computes term-frequency cosine similarity between text spans.
package similarity

import "github.com/Aman-CERP/meetprep/internal/text"

// Engine scores how similar two spans of text are. Both methods return a
// similarity in [0,1], 0 when either side is empty.
type Engine interface {
	Cosine(a, b string) float64

	// Vectors compares spans that were tokenized ahead of time.
	Vectors(a, b text.TermVector) float64
}

// TermFrequency is the default Engine: cosine over raw term-frequency vectors.
type TermFrequency struct{}

// New returns the default similarity engine.
func New() TermFrequency {
	return TermFrequency{}
}

// Cosine tokenizes both spans and compares their term-frequency vectors.
func (TermFrequency) Cosine(a, b string) float64 {
	return CosineVectors(text.VectorOf(a), text.VectorOf(b))
}

// Vectors compares two prebuilt vectors with CosineVectors.
func (TermFrequency) Vectors(a, b text.TermVector) float64 {
	return CosineVectors(a, b)
}

// CosineVectors compares two prebuilt vectors.
func CosineVectors(a, b text.TermVector) float64 {
	if a.IsEmpty() || b.IsEmpty() {
		return 0
	}
	sim := a.Dot(b) / (a.Norm * b.Norm)
	switch {
	case sim < 0:
		return 0
	case sim > 1:
		// float rounding on identical vectors
		return 1
	default:
		return sim
	}
}

var _ Engine = TermFrequency{}
