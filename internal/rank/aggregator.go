// Package rank combines relevance signals into one composite score, filters
// and orders the candidates, and extracts explanatory snippets.
package rank

import (
	"math"
	"sort"
	"time"

	"github.com/Aman-CERP/meetprep/internal/corpus"
	"github.com/Aman-CERP/meetprep/internal/match"
)

// Defaults for Config.
const (
	DefaultThreshold      = 0.15
	DefaultFieldThreshold = 0.1
	DefaultTopK           = 10
	DefaultSnippetLength  = 150
	DefaultMaxSnippets    = 3
)

// Config controls filtering, truncation and snippet extraction.
type Config struct {
	// Threshold is the lowest composite score kept.
	Threshold float64

	// FieldThreshold is the value a signal must exceed to be listed in
	// MatchedFields.
	FieldThreshold float64

	TopK          int
	SnippetLength int
	MaxSnippets   int
}

// DefaultConfig returns the default ranking configuration.
func DefaultConfig() Config {
	return Config{
		Threshold:      DefaultThreshold,
		FieldThreshold: DefaultFieldThreshold,
		TopK:           DefaultTopK,
		SnippetLength:  DefaultSnippetLength,
		MaxSnippets:    DefaultMaxSnippets,
	}
}

// WithDefaults fills unset or invalid fields.
func (c Config) WithDefaults() Config {
	if c.Threshold < 0 || math.IsNaN(c.Threshold) {
		c.Threshold = DefaultThreshold
	}
	if c.FieldThreshold < 0 || math.IsNaN(c.FieldThreshold) {
		c.FieldThreshold = DefaultFieldThreshold
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.SnippetLength <= 0 {
		c.SnippetLength = DefaultSnippetLength
	}
	if c.MaxSnippets <= 0 {
		c.MaxSnippets = DefaultMaxSnippets
	}
	return c
}

// Candidate is a document with its computed signals.
type Candidate struct {
	Entry   *match.Entry
	Signals match.Signals
}

// ContextMatch is one ranked result.
type ContextMatch struct {
	Document       *corpus.Document   `json:"-"`
	DocumentID     string             `json:"document_id"`
	Title          string             `json:"title"`
	RelevanceScore float64            `json:"relevance_score"`
	MatchedFields  []match.SignalName `json:"matched_fields"`
	Signals        match.Signals      `json:"signals"`
	Snippets       []string           `json:"snippets"`
	ComputedAt     time.Time          `json:"computed_at"`
}

// Aggregator scores and ranks candidates. It is safe for concurrent use.
type Aggregator struct {
	cfg Config
	now func() time.Time
}

// NewAggregator creates an aggregator.
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg.WithDefaults(), now: time.Now}
}

// Config returns the effective configuration.
func (a *Aggregator) Config() Config {
	return a.cfg
}

// Composite is the weighted mean of the signals, or the plain mean when
// every weight is 0. The result is clamped to [0,1].
func Composite(s match.Signals, w WeightConfig) float64 {
	w = w.Sanitize()
	total := w.Sum()
	var score float64
	if total <= 0 || math.IsInf(total, 0) {
		for _, name := range match.SignalNames {
			score += s.Get(name)
		}
		score /= float64(len(match.SignalNames))
	} else {
		for _, name := range match.SignalNames {
			score += w.Get(name) * s.Get(name)
		}
		score /= total
	}
	switch {
	case math.IsNaN(score) || score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

// Rank scores every candidate with w, drops those under the threshold,
// orders the rest by score then document ID, and keeps the top K. Snippets
// are extracted only for the kept matches, centered on q's snippet terms.
func (a *Aggregator) Rank(candidates []Candidate, w WeightConfig, q match.PreparedQuery) []ContextMatch {
	type scored struct {
		c     Candidate
		score float64
	}
	kept := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if c.Entry == nil || c.Entry.Doc == nil {
			continue
		}
		score := Composite(c.Signals, w)
		if score < a.cfg.Threshold {
			continue
		}
		kept = append(kept, scored{c: c, score: score})
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return kept[i].c.Entry.Doc.ID < kept[j].c.Entry.Doc.ID
	})
	if len(kept) > a.cfg.TopK {
		kept = kept[:a.cfg.TopK]
	}

	now := a.now()
	matches := make([]ContextMatch, 0, len(kept))
	for _, k := range kept {
		doc := k.c.Entry.Doc
		matches = append(matches, ContextMatch{
			Document:       doc,
			DocumentID:     doc.ID,
			Title:          doc.Title,
			RelevanceScore: k.score,
			MatchedFields:  k.c.Signals.Above(a.cfg.FieldThreshold),
			Signals:        k.c.Signals,
			Snippets:       Snippets(doc.Body, q.SnippetTerms, a.cfg.MaxSnippets, a.cfg.SnippetLength),
			ComputedAt:     now,
		})
	}
	return matches
}
