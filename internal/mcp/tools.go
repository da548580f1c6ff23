package mcp

import (
	"strings"
	"time"

	"github.com/Aman-CERP/meetprep/internal/async"
	"github.com/Aman-CERP/meetprep/internal/engine"
	"github.com/Aman-CERP/meetprep/internal/match"
)

// MeetingContextInput is the input schema for the meeting_context tool.
type MeetingContextInput struct {
	Title       string   `json:"title,omitempty" yaml:"title,omitempty" jsonschema:"meeting title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" jsonschema:"meeting description or agenda"`
	Attendees   []string `json:"attendees,omitempty" yaml:"attendees,omitempty" jsonschema:"attendee names"`
	Topics      []string `json:"topics,omitempty" yaml:"topics,omitempty" jsonschema:"explicit topics or tags for the meeting"`
	MeetingTime string   `json:"meeting_time,omitempty" yaml:"meeting_time,omitempty" jsonschema:"meeting start as RFC 3339 or YYYY-MM-DD, default now"`
	TopK        int      `json:"top_k,omitempty" yaml:"top_k,omitempty" jsonschema:"maximum number of matches, at most the configured top_k"`
}

// MeetingContextOutput is the output schema for the meeting_context tool.
type MeetingContextOutput struct {
	Matches       []MatchOutput `json:"matches" jsonschema:"relevant notes, best first"`
	IndexNotReady bool          `json:"index_not_ready" jsonschema:"true while the first index build is still running"`
	VersionSeq    uint64        `json:"version_seq" jsonschema:"index version that answered the query"`
}

// MatchOutput is one relevant note.
type MatchOutput struct {
	DocumentID     string        `json:"document_id" jsonschema:"note identifier, its path relative to the corpus root"`
	Title          string        `json:"title" jsonschema:"note title"`
	RelevanceScore float64       `json:"relevance_score" jsonschema:"composite relevance between 0 and 1"`
	MatchedFields  []string      `json:"matched_fields" jsonschema:"signals that contributed to the match"`
	Signals        match.Signals `json:"signals" jsonschema:"individual signal values between 0 and 1"`
	Snippets       []string      `json:"snippets" jsonschema:"short excerpts around matched terms"`
}

// IndexStatusInput is the input schema for the index_status tool.
type IndexStatusInput struct{}

// IndexStatusOutput is the output schema for the index_status tool.
type IndexStatusOutput struct {
	State          string  `json:"state" jsonschema:"idle, scanning, indexing, ready or error"`
	Serving        bool    `json:"serving" jsonschema:"true once a version is published"`
	DocumentCount  int     `json:"document_count" jsonschema:"documents in the published version"`
	VersionSeq     uint64  `json:"version_seq" jsonschema:"published version number"`
	Current        int     `json:"current" jsonschema:"documents processed in the running build"`
	Total          int     `json:"total" jsonschema:"documents to process in the running build"`
	ProgressPct    float64 `json:"progress_pct" jsonschema:"build progress percentage"`
	ElapsedSeconds float64 `json:"elapsed_seconds" jsonschema:"duration of the last or running build"`
	LastError      string  `json:"last_error,omitempty" jsonschema:"most recent build error"`
	RootPath       string  `json:"root_path" jsonschema:"corpus root directory"`
	UpdatedAt      string  `json:"updated_at" jsonschema:"time of the last state change"`
}

// QueryContext validates the input and converts it for the engine.
func (in MeetingContextInput) QueryContext() (match.QueryContext, error) {
	q := match.QueryContext{
		Title:       in.Title,
		Description: in.Description,
		Attendees:   in.Attendees,
		Topics:      in.Topics,
	}
	if q.IsEmpty() {
		return q, NewInvalidParamsError("at least one of title, description, attendees or topics is required")
	}
	if in.TopK < 0 {
		return q, NewInvalidParamsError("top_k must not be negative")
	}
	if s := strings.TrimSpace(in.MeetingTime); s != "" {
		t, err := match.ParseMeetingTime(s)
		if err != nil {
			return q, NewInvalidParamsError("meeting_time must be RFC 3339 or YYYY-MM-DD")
		}
		q.MeetingTime = t
	}
	return q, nil
}

// ToMeetingContextOutput converts an engine result, keeping at most topK
// matches when topK is positive.
func ToMeetingContextOutput(res engine.Result, topK int) MeetingContextOutput {
	matches := res.Matches
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	out := MeetingContextOutput{
		Matches:       make([]MatchOutput, 0, len(matches)),
		IndexNotReady: res.IndexNotReady,
		VersionSeq:    res.VersionSeq,
	}
	for _, m := range matches {
		fields := make([]string, len(m.MatchedFields))
		for i, f := range m.MatchedFields {
			fields[i] = string(f)
		}
		snippets := m.Snippets
		if snippets == nil {
			snippets = []string{}
		}
		out.Matches = append(out.Matches, MatchOutput{
			DocumentID:     m.DocumentID,
			Title:          m.Title,
			RelevanceScore: m.RelevanceScore,
			MatchedFields:  fields,
			Signals:        m.Signals,
			Snippets:       snippets,
		})
	}
	return out
}

// ToIndexStatusOutput converts a status snapshot.
func ToIndexStatusOutput(s async.StatusSnapshot, root string) *IndexStatusOutput {
	out := &IndexStatusOutput{
		State:          string(s.State),
		Serving:        s.Serving,
		DocumentCount:  s.DocumentCount,
		VersionSeq:     s.VersionSeq,
		Current:        s.Current,
		Total:          s.Total,
		ProgressPct:    s.ProgressPct,
		ElapsedSeconds: s.Elapsed.Seconds(),
		LastError:      s.LastError,
		RootPath:       root,
	}
	if !s.UpdatedAt.IsZero() {
		out.UpdatedAt = s.UpdatedAt.Format(time.RFC3339)
	}
	return out
}
