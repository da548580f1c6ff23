package rank

import (
	"fmt"
	"math"

	"github.com/Aman-CERP/meetprep/internal/match"
)

// WeightConfig sets the relative importance of the six relevance signals.
// The shape is fixed: one field per signal.
type WeightConfig struct {
	Title        float64 `yaml:"title" json:"title"`
	Content      float64 `yaml:"content" json:"content"`
	Tags         float64 `yaml:"tags" json:"tags"`
	Attendees    float64 `yaml:"attendees" json:"attendees"`
	LexicalBonus float64 `yaml:"lexical_bonus" json:"lexical_bonus"`
	RecencyBonus float64 `yaml:"recency_bonus" json:"recency_bonus"`
}

// DefaultWeights returns the default signal weights.
func DefaultWeights() WeightConfig {
	return WeightConfig{
		Title:        0.25,
		Content:      0.30,
		Tags:         0.15,
		Attendees:    0.15,
		LexicalBonus: 0.10,
		RecencyBonus: 0.05,
	}
}

// Sanitize clamps negative, NaN and infinite weights to 0.
func (w WeightConfig) Sanitize() WeightConfig {
	w.Title = clampWeight(w.Title)
	w.Content = clampWeight(w.Content)
	w.Tags = clampWeight(w.Tags)
	w.Attendees = clampWeight(w.Attendees)
	w.LexicalBonus = clampWeight(w.LexicalBonus)
	w.RecencyBonus = clampWeight(w.RecencyBonus)
	return w
}

// Get returns the weight applied to the named signal.
func (w WeightConfig) Get(name match.SignalName) float64 {
	switch name {
	case match.SignalLexical:
		return w.LexicalBonus
	case match.SignalTitle:
		return w.Title
	case match.SignalContent:
		return w.Content
	case match.SignalTags:
		return w.Tags
	case match.SignalAttendees:
		return w.Attendees
	case match.SignalRecency:
		return w.RecencyBonus
	default:
		return 0
	}
}

// Sum is the total of all weights.
func (w WeightConfig) Sum() float64 {
	return w.Title + w.Content + w.Tags + w.Attendees + w.LexicalBonus + w.RecencyBonus
}

// Key identifies the weights for result caching.
func (w WeightConfig) Key() string {
	return fmt.Sprintf("%g/%g/%g/%g/%g/%g",
		w.Title, w.Content, w.Tags, w.Attendees, w.LexicalBonus, w.RecencyBonus)
}

func clampWeight(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
