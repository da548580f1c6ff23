package mcp

import (
	"fmt"
	"strings"
)

// FormatMeetingContext renders meeting_context output as markdown.
func FormatMeetingContext(title string, out MeetingContextOutput) string {
	if out.IndexNotReady {
		return "## Index Building\n\nThe notes index is still being built. Please try again in a moment."
	}
	if len(out.Matches) == 0 {
		if title != "" {
			return fmt.Sprintf("No relevant notes found for \"%s\"", title)
		}
		return "No relevant notes found"
	}

	var sb strings.Builder
	if title != "" {
		sb.WriteString(fmt.Sprintf("## Notes for \"%s\"\n\n", title))
	} else {
		sb.WriteString("## Relevant Notes\n\n")
	}
	sb.WriteString(fmt.Sprintf("Found %d note", len(out.Matches)))
	if len(out.Matches) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, m := range out.Matches {
		name := m.Title
		if name == "" {
			name = m.DocumentID
		}
		sb.WriteString(fmt.Sprintf("### %d. %s\n\n", i+1, name))
		sb.WriteString(fmt.Sprintf("**File:** `%s` | **Score:** %.2f\n", m.DocumentID, m.RelevanceScore))
		if len(m.MatchedFields) > 0 {
			sb.WriteString(fmt.Sprintf("**Matched:** %s\n", strings.Join(m.MatchedFields, ", ")))
		}
		sb.WriteString("\n")
		for _, s := range m.Snippets {
			sb.WriteString("> " + s + "\n")
		}
		if len(m.Snippets) > 0 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
