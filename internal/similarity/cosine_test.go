package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/meetprep/internal/text"
)

func TestCosine(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "Q3 Planning", b: "q3 planning", want: 1},
		{name: "disjoint", a: "budget review", b: "team offsite", want: 0},
		{name: "empty left", a: "", b: "anything here", want: 0},
		{name: "empty right", a: "anything here", b: "", want: 0},
		{name: "only stop words", a: "the and of", b: "the and of", want: 0},
		{name: "partial overlap", a: "Q3 Planning", b: "Q3 Planning Retro", want: 2 / (1.4142135623730951 * 1.7320508075688772)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, e.Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosine_Symmetric(t *testing.T) {
	e := New()
	a := "roadmap planning for the quarter"
	b := "quarterly roadmap retro notes"

	assert.InDelta(t, e.Cosine(a, b), e.Cosine(b, a), 1e-12)
}

func TestCosineVectors_InRange(t *testing.T) {
	inputs := []string{"", "a", "plan plan plan", "plan roadmap", "roadmap", "Q3 Q3 planning retro"}
	for _, a := range inputs {
		for _, b := range inputs {
			got := CosineVectors(text.VectorOf(a), text.VectorOf(b))
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		}
	}
}

func TestTermFrequency_VectorsMatchesCosine(t *testing.T) {
	var e Engine = New()
	a, b := "Q3 roadmap planning", "planning the roadmap"

	assert.InDelta(t, e.Cosine(a, b), e.Vectors(text.VectorOf(a), text.VectorOf(b)), 1e-12)
}
