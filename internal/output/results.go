package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/meetprep/internal/async"
	"github.com/Aman-CERP/meetprep/internal/engine"
	"github.com/Aman-CERP/meetprep/internal/match"
)

// Matches prints a query result as a numbered list with scores, the fields
// that matched and any snippets.
func (w *Writer) Matches(res engine.Result) {
	switch {
	case res.IndexNotReady:
		w.Warningf("Index is still building; no results yet")
		return
	case len(res.Matches) == 0:
		w.Status("🔍", "No relevant notes found")
		return
	}

	w.Status("", w.styles.Dim.Render(fmt.Sprintf("%d match(es) from index version %d", len(res.Matches), res.VersionSeq)))
	w.Newline()
	for i, m := range res.Matches {
		title := m.Title
		if title == "" {
			title = m.DocumentID
		}
		_, _ = fmt.Fprintf(w.out, "%2d. %s  %s\n", i+1,
			w.styles.Header.Render(title),
			w.styles.Score.Render(fmt.Sprintf("%.3f", m.RelevanceScore)))
		_, _ = fmt.Fprintf(w.out, "    %s %s\n", w.styles.Label.Render("id:"), m.DocumentID)
		if len(m.MatchedFields) > 0 {
			_, _ = fmt.Fprintf(w.out, "    %s %s\n", w.styles.Label.Render("matched:"), joinFields(m.MatchedFields))
		}
		for _, s := range m.Snippets {
			_, _ = fmt.Fprintln(w.out, w.styles.Snippet.Render("“"+s+"”"))
		}
		w.Newline()
	}
}

// IndexStatus prints a status snapshot.
func (w *Writer) IndexStatus(s async.StatusSnapshot) {
	label := func(k string) string { return w.styles.Label.Render(fmt.Sprintf("%-10s", k)) }

	state := string(s.State)
	switch s.State {
	case async.StateReady:
		state = w.styles.Success.Render(state)
	case async.StateError:
		state = w.styles.Error.Render(state)
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", label("state"), state)
	if s.State == async.StateIndexing && s.Total > 0 {
		_, _ = fmt.Fprintf(w.out, "%s %d/%d (%.0f%%)\n", label("progress"), s.Current, s.Total, s.ProgressPct)
	}
	_, _ = fmt.Fprintf(w.out, "%s %d\n", label("documents"), s.DocumentCount)
	_, _ = fmt.Fprintf(w.out, "%s %d\n", label("version"), s.VersionSeq)
	_, _ = fmt.Fprintf(w.out, "%s %t\n", label("serving"), s.Serving)
	if s.Elapsed > 0 {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", label("elapsed"), s.Elapsed.Round(time.Millisecond))
	}
	if s.LastError != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", label("error"), w.styles.Error.Render(s.LastError))
	}
}

func joinFields(fields []match.SignalName) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
