// Package text provides the tokenizer and term-vector helpers shared by the
// token index and the similarity engine.
package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTokenLength is the shortest token kept by Scan.
const MinTokenLength = 2

// Token is a single lowercased term with its byte offsets in the source text.
type Token struct {
	Term  string
	Start int
	End   int
}

// Scan splits s on non-alphanumeric runes and lowercases every run.
// Runs shorter than MinTokenLength are dropped. Stop words are kept.
func Scan(s string) []Token {
	var tokens []Token
	start := -1
	for i, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = appendToken(tokens, s, start, i)
			start = -1
		}
	}
	if start >= 0 {
		tokens = appendToken(tokens, s, start, len(s))
	}
	return tokens
}

func appendToken(tokens []Token, s string, start, end int) []Token {
	if utf8.RuneCountInString(s[start:end]) < MinTokenLength {
		return tokens
	}
	return append(tokens, Token{
		Term:  strings.ToLower(s[start:end]),
		Start: start,
		End:   end,
	})
}

// Tokenize returns the lowercased terms of s with stop words removed.
func Tokenize(s string) []string {
	scanned := Scan(s)
	terms := make([]string, 0, len(scanned))
	for _, tok := range scanned {
		if IsStopWord(tok.Term) {
			continue
		}
		terms = append(terms, tok.Term)
	}
	return terms
}

// TokenizeLimit is Tokenize truncated to the first limit terms.
// A non-positive limit means no truncation.
func TokenizeLimit(s string, limit int) []string {
	terms := Tokenize(s)
	if limit > 0 && len(terms) > limit {
		return terms[:limit]
	}
	return terms
}

// IsStopWord reports whether the lowercased term is an English stop word.
func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}

var stopWords = buildStopWords(
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
	"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these",
	"those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into",
	"about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own",
	"same", "too", "very", "can", "will", "just", "should", "now", "we", "our", "you", "your", "he", "she",
	"they", "them", "their", "his", "her", "me", "my", "do", "does", "did", "not", "no", "all", "any",
	"have", "has", "had", "what", "which", "who", "whom", "how", "when", "where", "why",
)

func buildStopWords(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
