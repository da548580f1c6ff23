package rank

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// span is a half-open byte range in a document body.
type span struct {
	start, end int
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

// Snippets extracts up to maxSnippets non-overlapping excerpts of body, each
// at most maxLen bytes, centered on the first occurrence of each term.
// terms are ordered by priority and match regardless of case. A whole sentence is used when
// it fits, otherwise a word-aligned window around the match. When no term
// occurs in body the result is the leading excerpt of body.
func Snippets(body string, terms []string, maxSnippets, maxLen int) []string {
	if strings.TrimSpace(body) == "" || maxSnippets <= 0 || maxLen <= 0 {
		return nil
	}

	var taken []span
	var out []string
	for _, term := range terms {
		if len(out) >= maxSnippets {
			break
		}
		if term == "" {
			continue
		}
		for _, at := range occurrences(body, term) {
			sp := excerpt(body, at, maxLen)
			if sp.end <= sp.start || overlapsAny(sp, taken) {
				continue
			}
			snippet := collapse(body[sp.start:sp.end])
			if snippet == "" {
				continue
			}
			taken = append(taken, sp)
			out = append(out, snippet)
			break
		}
	}

	if len(out) == 0 {
		if lead := leading(body, maxLen); lead != "" {
			out = append(out, lead)
		}
	}
	return out
}

// occurrences returns every word-bounded, case-insensitive match of term in
// body. Spans are byte offsets into body.
func occurrences(body, term string) []span {
	var found []span
	for start := 0; start < len(body); {
		if n := prefixFold(body[start:], term); n > 0 {
			end := start + n
			if wordBoundaryBefore(body, start) && wordBoundaryAfter(body, end) {
				found = append(found, span{start: start, end: end})
			}
		}
		_, size := utf8.DecodeRuneInString(body[start:])
		start += size
	}
	return found
}

// prefixFold returns the byte length of the prefix of s that equals term
// ignoring case, or 0 when s does not start with term.
func prefixFold(s, term string) int {
	i := 0
	for _, tr := range term {
		if i >= len(s) {
			return 0
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r != tr && unicode.ToLower(r) != unicode.ToLower(tr) {
			return 0
		}
		i += size
	}
	return i
}

func wordBoundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func wordBoundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// excerpt returns the sentence around at when it fits in maxLen, otherwise
// a word-aligned window centered on at.
func excerpt(body string, at span, maxLen int) span {
	if s, ok := sentence(body, at, maxLen); ok {
		return s
	}
	return window(body, at, maxLen)
}

// sentence finds the sentence containing at. Sentences end at '.', '!' or
// '?' followed by whitespace, or at a newline. Scanning stops after maxLen
// bytes in either direction.
func sentence(body string, at span, maxLen int) (span, bool) {
	start, opened := at.start, false
	for at.end-start <= maxLen {
		if start == 0 {
			opened = true
			break
		}
		c := body[start-1]
		if c == '\n' || (isTerminator(c) && isSpace(body[start])) {
			opened = true
			break
		}
		start--
	}
	end, closed := at.end, false
	for end-start <= maxLen {
		if end == len(body) {
			closed = true
			break
		}
		c := body[end]
		if c == '\n' {
			closed = true
			break
		}
		end++
		if isTerminator(c) && (end == len(body) || isSpace(body[end])) {
			closed = true
			break
		}
	}
	if !opened || !closed {
		return span{}, false
	}

	for start < end && isSpace(body[start]) {
		start++
	}
	for end > start && isSpace(body[end-1]) {
		end--
	}
	if end-start > maxLen {
		return span{}, false
	}
	return span{start: start, end: end}, true
}

// window centers a maxLen byte range on at and shrinks it to whole words.
func window(body string, at span, maxLen int) span {
	center := (at.start + at.end) / 2
	start := center - maxLen/2
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	if end > len(body) {
		end = len(body)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}

	if start > 0 && !isSpace(body[start-1]) {
		if i := strings.IndexAny(body[start:end], " \t\r\n"); i >= 0 && start+i < at.start {
			start += i + 1
		}
	}
	if end < len(body) && !isSpace(body[end]) {
		if i := strings.LastIndexAny(body[start:end], " \t\r\n"); i >= 0 && start+i >= at.end {
			end = start + i
		}
	}
	for start < end && !utf8.RuneStart(body[start]) {
		start++
	}
	for end < len(body) && end > start && !utf8.RuneStart(body[end]) {
		end--
	}
	return span{start: start, end: end}
}

// leading returns the first words of body that fit in maxLen.
func leading(body string, maxLen int) string {
	var sb strings.Builder
	for _, word := range strings.Fields(body) {
		need := len(word)
		if sb.Len() > 0 {
			need++
		}
		if sb.Len()+need > maxLen {
			if sb.Len() == 0 {
				sb.WriteString(truncateRunes(word, maxLen))
			}
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(word)
	}
	return sb.String()
}

func truncateRunes(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	end := maxLen
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func overlapsAny(s span, taken []span) bool {
	for _, t := range taken {
		if s.overlaps(t) {
			return true
		}
	}
	return false
}

func isTerminator(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
