package match

import (
	"context"
	"math"
	"strings"

	"github.com/Aman-CERP/meetprep/internal/corpus"
	"github.com/Aman-CERP/meetprep/internal/index"
	"github.com/Aman-CERP/meetprep/internal/similarity"
	"github.com/Aman-CERP/meetprep/internal/text"
)

const (
	// DefaultHalfLifeDays is the recency decay constant.
	DefaultHalfLifeDays = 30.0

	// DefaultContentTokenLimit bounds how much of a body the content
	// signal reads.
	DefaultContentTokenLimit = 500
)

// Config tunes the matcher.
type Config struct {
	HalfLifeDays      float64
	ContentTokenLimit int
}

// DefaultConfig returns the default matcher configuration.
func DefaultConfig() Config {
	return Config{
		HalfLifeDays:      DefaultHalfLifeDays,
		ContentTokenLimit: DefaultContentTokenLimit,
	}
}

// WithDefaults replaces non-positive values with defaults.
func (c Config) WithDefaults() Config {
	if c.HalfLifeDays <= 0 || math.IsNaN(c.HalfLifeDays) || math.IsInf(c.HalfLifeDays, 0) {
		c.HalfLifeDays = DefaultHalfLifeDays
	}
	if c.ContentTokenLimit <= 0 {
		c.ContentTokenLimit = DefaultContentTokenLimit
	}
	return c
}

// Entry is a document with everything the matcher needs precomputed.
// Entries are built once per document revision and shared by index versions.
type Entry struct {
	Doc *corpus.Document

	TitleVec text.TermVector
	BodyVec  text.TermVector

	lowerTitle string
	lowerBody  string
	tags       map[string]struct{}
	attendees  map[string]struct{}
}

// NewEntry precomputes the matcher inputs for doc.
func NewEntry(doc *corpus.Document, contentTokenLimit int) *Entry {
	e := &Entry{
		Doc:        doc,
		TitleVec:   text.VectorOf(doc.Title),
		BodyVec:    text.NewTermVector(text.TokenizeLimit(doc.Body, contentTokenLimit)),
		lowerTitle: strings.ToLower(doc.Title),
		lowerBody:  strings.ToLower(doc.Body),
		tags:       make(map[string]struct{}, len(doc.Tags)),
		attendees:  make(map[string]struct{}, len(doc.Attendees)),
	}
	for _, t := range doc.Tags {
		if t = normalizeTag(t); t != "" {
			e.tags[t] = struct{}{}
		}
	}
	for _, a := range normalizeNames(doc.Attendees) {
		e.attendees[a] = struct{}{}
	}
	return e
}

// Matcher computes relevance signals. It is safe for concurrent use.
type Matcher struct {
	cfg Config
	sim similarity.Engine
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithSimilarity replaces the engine behind the title and content signals.
func WithSimilarity(e similarity.Engine) Option {
	return func(m *Matcher) {
		if e != nil {
			m.sim = e
		}
	}
}

// New creates a matcher. Title and content similarity default to
// term-frequency cosine.
func New(cfg Config, opts ...Option) *Matcher {
	m := &Matcher{cfg: cfg.WithDefaults(), sim: similarity.New()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the effective configuration.
func (m *Matcher) Config() Config {
	return m.cfg
}

// NewEntry builds an entry using the matcher's content token limit.
func (m *Matcher) NewEntry(doc *corpus.Document) *Entry {
	return NewEntry(doc, m.cfg.ContentTokenLimit)
}

// Lexical queries idx with the meeting text and rescales every hit by the
// top score, so the best lexical match gets 1. Documents without a hit are
// absent from the map.
func (m *Matcher) Lexical(ctx context.Context, idx index.TokenIndex, q PreparedQuery) (map[string]float64, error) {
	hits, err := idx.Query(ctx, q.LexicalText, index.AllFields, 0)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]float64, len(hits))
	if len(hits) == 0 || hits[0].Score <= 0 {
		return scores, nil
	}
	top := hits[0].Score
	for _, h := range hits {
		scores[h.DocID] = clamp01(h.Score / top)
	}
	return scores, nil
}

// Signals computes the six signals for one document. lexical is the value
// from Lexical, 0 when the document had no hit. It never fails.
func (m *Matcher) Signals(q PreparedQuery, e *Entry, lexical float64) Signals {
	return Signals{
		Lexical:   clamp01(lexical),
		Title:     clamp01(m.sim.Vectors(q.TitleVec, e.TitleVec)),
		Content:   clamp01(m.sim.Vectors(q.ContentVec, e.BodyVec)),
		Tags:      tagsSignal(q, e),
		Attendees: attendeesSignal(q, e),
		Recency:   m.recency(q, e),
	}
}

// tagsSignal is the fraction of meeting topics found among document tags.
func tagsSignal(q PreparedQuery, e *Entry) float64 {
	if len(q.Topics) == 0 || len(e.tags) == 0 {
		return 0
	}
	hits := 0
	for _, t := range q.Topics {
		if _, ok := e.tags[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(q.Topics))
}

// attendeesSignal is the fraction of attendees named in the body, the
// title or the front-matter attendee list.
func attendeesSignal(q PreparedQuery, e *Entry) float64 {
	if len(q.Attendees) == 0 {
		return 0
	}
	hits := 0
	for _, name := range q.Attendees {
		if _, ok := e.attendees[name]; ok {
			hits++
			continue
		}
		if strings.Contains(e.lowerBody, name) || strings.Contains(e.lowerTitle, name) {
			hits++
		}
	}
	return float64(hits) / float64(len(q.Attendees))
}

func (m *Matcher) recency(q PreparedQuery, e *Entry) float64 {
	if e.Doc.ModifiedAt.IsZero() {
		return 0
	}
	days := math.Abs(q.MeetingTime.Sub(e.Doc.ModifiedAt).Hours()) / 24
	return clamp01(math.Exp(-days / m.cfg.HalfLifeDays))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
