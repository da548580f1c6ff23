package match

// SignalName names one of the six relevance signals.
type SignalName string

const (
	SignalLexical   SignalName = "lexical"
	SignalTitle     SignalName = "title"
	SignalContent   SignalName = "content"
	SignalTags      SignalName = "tags"
	SignalAttendees SignalName = "attendees"
	SignalRecency   SignalName = "recency"
)

// SignalNames lists the signals in their fixed reporting order.
var SignalNames = []SignalName{
	SignalLexical, SignalTitle, SignalContent, SignalTags, SignalAttendees, SignalRecency,
}

// Signals holds one document's normalized signal values, each in [0,1].
type Signals struct {
	Lexical   float64 `json:"lexical"`
	Title     float64 `json:"title"`
	Content   float64 `json:"content"`
	Tags      float64 `json:"tags"`
	Attendees float64 `json:"attendees"`
	Recency   float64 `json:"recency"`
}

// Get returns the value of the named signal, 0 for unknown names.
func (s Signals) Get(name SignalName) float64 {
	switch name {
	case SignalLexical:
		return s.Lexical
	case SignalTitle:
		return s.Title
	case SignalContent:
		return s.Content
	case SignalTags:
		return s.Tags
	case SignalAttendees:
		return s.Attendees
	case SignalRecency:
		return s.Recency
	default:
		return 0
	}
}

// Above returns the signals whose value exceeds threshold, in fixed order.
func (s Signals) Above(threshold float64) []SignalName {
	var out []SignalName
	for _, name := range SignalNames {
		if s.Get(name) > threshold {
			out = append(out, name)
		}
	}
	return out
}
