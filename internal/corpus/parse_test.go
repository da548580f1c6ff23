package corpus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FrontMatter(t *testing.T) {
	// Given: a note with a full front matter block
	data := []byte(`---
title: Q3 Planning
tags: [roadmap, "#Planning"]
attendees:
  - Alice Smith
  - " Bob Jones "
links: Weekly Sync, other.md
created: 2024-06-01
---
# Ignored heading

We agreed on the roadmap. See [[Budget 2024|the budget]] and [retro](../retro/q2.md).
`)
	mod := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

	// When: parsing
	doc, err := Parse("meetings/q3.md", data, mod)

	// Then: metadata comes from the front matter and the body excludes it
	require.NoError(t, err)
	assert.Equal(t, "meetings/q3.md", doc.ID)
	assert.Equal(t, "Q3 Planning", doc.Title)
	assert.Equal(t, []string{"roadmap", "Planning"}, doc.Tags)
	assert.Equal(t, []string{"Alice Smith", "Bob Jones"}, doc.Attendees)
	assert.Equal(t, []string{"Weekly Sync.md", "other.md", "Budget 2024.md", "retro/q2.md"}, doc.Links)
	assert.Equal(t, 2024, doc.CreatedAt.Year())
	assert.Equal(t, time.June, doc.CreatedAt.Month())
	assert.Equal(t, mod, doc.ModifiedAt)
	assert.Equal(t, int64(len(data)), doc.Size)
	assert.NotContains(t, doc.Body, "attendees:")
	assert.Contains(t, doc.Body, "We agreed on the roadmap.")
}

func TestParse_TitleFallbacks(t *testing.T) {
	mod := time.Now()

	tests := []struct {
		name  string
		id    string
		data  string
		title string
	}{
		{name: "heading", id: "a.md", data: "intro\n# Team Offsite\nbody", title: "Team Offsite"},
		{name: "file name", id: "notes/weekly-sync.md", data: "no heading here", title: "weekly-sync"},
		{name: "sub heading is not a title", id: "b.txt", data: "## Details\ntext", title: "b"},
		{name: "unterminated front matter is body", id: "c.md", data: "---\ntitle: x\n# Real", title: "Real"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.id, []byte(tt.data), mod)
			require.NoError(t, err)
			assert.Equal(t, tt.title, doc.Title)
			assert.Equal(t, mod, doc.CreatedAt)
		})
	}
}

func TestParse_InlineTagsMerged(t *testing.T) {
	doc, err := Parse("n.md", []byte("---\ntags: roadmap\n---\nDiscussed #Roadmap and #hiring/q3 today.\n# Heading"), time.Now())

	require.NoError(t, err)
	assert.Equal(t, []string{"roadmap", "hiring/q3"}, doc.Tags)
}

func TestParse_InvalidFrontMatter(t *testing.T) {
	// Given: a note whose YAML block does not decode
	data := []byte("---\ntags: {broken\n---\nbody")

	// When: parsing
	_, err := Parse("bad.md", data, time.Now())

	// Then: the error is reported for the caller to skip the file
	require.Error(t, err)
	assert.Contains(t, err.Error(), "front matter")
}

func TestParse_EmptyBody(t *testing.T) {
	doc, err := Parse("empty.md", []byte("---\ntitle: Empty\n---\n"), time.Now())

	require.NoError(t, err)
	assert.Equal(t, "Empty", doc.Title)
	assert.Equal(t, "", doc.Body)
	assert.Empty(t, doc.Tags)
}

func TestDocument_SameRevision(t *testing.T) {
	mod := time.Now()
	a := &Document{ID: "a.md", Title: "A", Size: 10, ModifiedAt: mod}
	b := &Document{ID: "a.md", Title: "A", Size: 10, ModifiedAt: mod}
	c := &Document{ID: "a.md", Title: "A", Size: 11, ModifiedAt: mod}
	// same metadata, edited content
	d := &Document{ID: "a.md", Title: "A", Size: 10, ModifiedAt: mod, Body: "new body"}
	e := &Document{ID: "a.md", Title: "A", Size: 10, ModifiedAt: mod, Tags: []string{"retro"}}

	assert.True(t, a.SameRevision(a))
	assert.True(t, a.SameRevision(b))
	assert.False(t, a.SameRevision(c))
	assert.False(t, a.SameRevision(d))
	assert.False(t, a.SameRevision(e))
	assert.False(t, a.SameRevision(nil))
}
