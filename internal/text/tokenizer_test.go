package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "lowercases", input: "Q3 Planning", want: []string{"q3", "planning"}},
		{name: "splits punctuation", input: "road-map, retro/notes!", want: []string{"road", "map", "retro", "notes"}},
		{name: "drops single characters", input: "a b cd", want: []string{"cd"}},
		{name: "keeps stop words", input: "the plan", want: []string{"the", "plan"}},
		{name: "unicode letters", input: "Café Zürich", want: []string{"café", "zürich"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, tok := range Scan(tt.input) {
				got = append(got, tok.Term)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScan_Offsets(t *testing.T) {
	// Given: text with mixed case and punctuation
	input := "Hello, World"

	// When: scanning
	tokens := Scan(input)

	// Then: offsets point back into the original text
	require.Len(t, tokens, 2)
	assert.Equal(t, "Hello", input[tokens[0].Start:tokens[0].End])
	assert.Equal(t, "World", input[tokens[1].Start:tokens[1].End])
}

func TestTokenize_RemovesStopWords(t *testing.T) {
	assert.Equal(t, []string{"review", "roadmap"}, Tokenize("Review the roadmap with them"))
}

func TestTokenizeLimit(t *testing.T) {
	assert.Equal(t, []string{"one", "two"}, TokenizeLimit("one two three", 2))
	assert.Equal(t, []string{"one", "two", "three"}, TokenizeLimit("one two three", 0))
}

func TestTermVector(t *testing.T) {
	v := NewTermVector([]string{"plan", "plan", "roadmap"})

	assert.Equal(t, 2.0, v.Counts["plan"])
	assert.InDelta(t, 2.2360679, v.Norm, 1e-6)
	assert.False(t, v.IsEmpty())
	assert.True(t, VectorOf("the and of").IsEmpty())
	assert.Equal(t, 2.0, v.Dot(NewTermVector([]string{"plan"})))
}
