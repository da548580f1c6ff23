// Package match computes the per-document relevance signals for a meeting.
package match

import (
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/meetprep/internal/text"
)

// QueryContext describes an upcoming meeting.
type QueryContext struct {
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
	Topics      []string  `json:"topics,omitempty"`
	MeetingTime time.Time `json:"meeting_time,omitempty"`
}

// IsEmpty reports whether every text field is blank.
func (q QueryContext) IsEmpty() bool {
	if strings.TrimSpace(q.Title) != "" || strings.TrimSpace(q.Description) != "" {
		return false
	}
	for _, a := range q.Attendees {
		if strings.TrimSpace(a) != "" {
			return false
		}
	}
	for _, t := range q.Topics {
		if normalizeTag(t) != "" {
			return false
		}
	}
	return true
}

// Key is a stable string identifying the query for caching.
func (q QueryContext) Key() string {
	var sb strings.Builder
	sb.WriteString(q.Title)
	sb.WriteByte(0)
	sb.WriteString(q.Description)
	sb.WriteByte(0)
	sb.WriteString(strings.Join(q.Attendees, "\x1f"))
	sb.WriteByte(0)
	sb.WriteString(strings.Join(q.Topics, "\x1f"))
	sb.WriteByte(0)
	if !q.MeetingTime.IsZero() {
		sb.WriteString(q.MeetingTime.UTC().Format(time.RFC3339Nano))
	}
	return sb.String()
}

// PreparedQuery is a QueryContext tokenized once per request.
type PreparedQuery struct {
	Context QueryContext

	// LexicalText is title, description, attendees and topics joined for
	// the token index.
	LexicalText string

	TitleVec   text.TermVector
	ContentVec text.TermVector

	// Topics and Attendees are lowercased, trimmed and deduplicated.
	Topics    []string
	Attendees []string

	// MeetingTime is the resolved meeting time, now when unset.
	MeetingTime time.Time

	// SnippetTerms are lowercased terms to center snippets on, highest
	// priority first.
	SnippetTerms []string
}

// Prepare tokenizes q. now stands in for a zero meeting time.
func Prepare(q QueryContext, now time.Time) PreparedQuery {
	p := PreparedQuery{
		Context:     q,
		Topics:      normalizeTopics(q.Topics),
		Attendees:   normalizeNames(q.Attendees),
		MeetingTime: q.MeetingTime,
	}
	if p.MeetingTime.IsZero() {
		p.MeetingTime = now
	}

	topicText := strings.Join(q.Topics, " ")
	p.LexicalText = strings.Join([]string{q.Title, q.Description, strings.Join(q.Attendees, " "), topicText}, " ")
	p.TitleVec = text.VectorOf(q.Title)
	p.ContentVec = text.VectorOf(strings.Join([]string{q.Title, q.Description, topicText}, " "))
	p.SnippetTerms = snippetTerms(p, q)
	return p
}

// snippetTerms orders terms by how much they say about the meeting:
// attendee names and topics, then title terms, then description terms.
// Longer terms come first inside each group.
func snippetTerms(p PreparedQuery, q QueryContext) []string {
	seen := make(map[string]struct{})
	var out []string
	group := func(terms []string) {
		var g []string
		for _, t := range terms {
			if _, ok := seen[t]; ok || t == "" {
				continue
			}
			seen[t] = struct{}{}
			g = append(g, t)
		}
		sort.SliceStable(g, func(i, j int) bool { return len(g[i]) > len(g[j]) })
		out = append(out, g...)
	}

	first := append(append([]string(nil), p.Attendees...), p.Topics...)
	group(first)
	group(text.Tokenize(q.Title))
	group(text.Tokenize(q.Description))
	return out
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#")))
}

func normalizeTopics(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	var out []string
	for _, t := range topics {
		t = normalizeTag(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func normalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, n := range names {
		n = strings.ToLower(strings.Join(strings.Fields(n), " "))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ParseMeetingTime accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date,
// read as UTC midnight.
func ParseMeetingTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
