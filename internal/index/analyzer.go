package index

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/Aman-CERP/meetprep/internal/text"
)

const (
	// TokenizerName is the registered tokenizer shared with the similarity engine.
	TokenizerName = "meetprep_tokenizer"

	// StopFilterName is the registered English stop word filter.
	StopFilterName = "meetprep_stop"

	// AnalyzerName is the custom analyzer used by every indexed field.
	AnalyzerName = "meetprep_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(TokenizerName, tokenizerConstructor)
	_ = registry.RegisterTokenFilter(StopFilterName, stopFilterConstructor)
}

func tokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &noteTokenizer{}, nil
}

// noteTokenizer adapts text.Scan to bleve. Scan already lowercases and
// reports byte offsets, so no position search is needed.
type noteTokenizer struct{}

func (t *noteTokenizer) Tokenize(input []byte) analysis.TokenStream {
	tokens := text.Scan(string(input))

	result := make(analysis.TokenStream, 0, len(tokens))
	for i, tok := range tokens {
		result = append(result, &analysis.Token{
			Term:     []byte(tok.Term),
			Start:    tok.Start,
			End:      tok.End,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return result
}

func stopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &stopFilter{}, nil
}

type stopFilter struct{}

func (f *stopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		if !text.IsStopWord(string(token.Term)) {
			result = append(result, token)
		}
	}
	return result
}
