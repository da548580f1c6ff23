package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoteTokenizer(t *testing.T) {
	tokens := (&noteTokenizer{}).Tokenize([]byte("Q3 Planning: the Roadmap"))

	var terms []string
	for _, tok := range tokens {
		terms = append(terms, string(tok.Term))
	}
	assert.Equal(t, []string{"q3", "planning", "the", "roadmap"}, terms)
	assert.Equal(t, 1, tokens[0].Position)
	assert.Equal(t, 3, tokens[1].Start)
	assert.Equal(t, 11, tokens[1].End)

	filtered := (&stopFilter{}).Filter(tokens)
	assert.Len(t, filtered, 3)
}
