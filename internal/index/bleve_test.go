package index

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/meetprep/internal/corpus"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func doc(id, title, body string, tags ...string) *corpus.Document {
	return &corpus.Document{ID: id, Title: title, Body: body, Tags: tags}
}

func TestBleveIndex_AddAndQuery(t *testing.T) {
	// Given: an index with three notes
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.AddBatch(ctx, []*corpus.Document{
		doc("a.md", "Q3 Planning", "roadmap review for the quarter", "roadmap"),
		doc("b.md", "Unrelated notes", "grocery list and errands"),
		doc("c.md", "Q3 Planning Retro", "what went well with planning", "roadmap", "retro"),
	}))
	assert.Equal(t, 3, idx.Count())

	// When: querying across every field
	hits, err := idx.Query(ctx, "Q3 Planning roadmap", AllFields, 10)

	// Then: the matching notes come back, best first
	require.NoError(t, err)
	require.Len(t, hits, 2)
	ids := []string{hits[0].DocID, hits[1].DocID}
	assert.ElementsMatch(t, []string{"a.md", "c.md"}, ids)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	assert.Contains(t, hits[0].MatchedTerms, "q3")
}

func TestBleveIndex_Query_FieldRestriction(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.AddBatch(ctx, []*corpus.Document{
		doc("title.md", "Budget", "nothing here"),
		doc("body.md", "Misc", "the budget was discussed"),
	}))

	hits, err := idx.Query(ctx, "budget", []Field{FieldTitle}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "title.md", hits[0].DocID)
	assert.Equal(t, []string{"budget"}, hits[0].MatchedTerms)
}

func TestBleveIndex_Query_TitleBoostOutranksContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.AddBatch(ctx, []*corpus.Document{
		doc("in-title.md", "Hiring plan", "notes about the team"),
		doc("in-body.md", "Team notes", "notes about the hiring"),
	}))

	hits, err := idx.Query(ctx, "hiring", AllFields, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "in-title.md", hits[0].DocID)
}

func TestBleveIndex_Query_TiesOrderedByID(t *testing.T) {
	// Given: identical documents under different IDs
	idx := newTestIndex(t)
	ctx := context.Background()
	for _, id := range []string{"z.md", "m.md", "a.md"} {
		require.NoError(t, idx.Add(ctx, doc(id, "Standup", "daily standup")))
	}

	// When: querying
	hits, err := idx.Query(ctx, "standup", AllFields, 0)

	// Then: equal scores fall back to ID order
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "a.md", hits[0].DocID)
	assert.Equal(t, "m.md", hits[1].DocID)
	assert.Equal(t, "z.md", hits[2].DocID)
}

func TestBleveIndex_Query_EmptyOrStopWordsOnly(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, doc("a.md", "The plan", "and the rest")))

	for _, q := range []string{"", "   ", "the and of", "a"} {
		hits, err := idx.Query(ctx, q, AllFields, 10)
		require.NoError(t, err)
		assert.Empty(t, hits, "query %q", q)
	}
}

func TestBleveIndex_UpdateReplaces(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, doc("a.md", "Old title", "old body")))

	require.NoError(t, idx.Update(ctx, doc("a.md", "New title", "fresh body")))

	assert.Equal(t, 1, idx.Count())
	hits, err := idx.Query(ctx, "old", AllFields, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = idx.Query(ctx, "fresh", AllFields, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestBleveIndex_AddThenRemove_Idempotent(t *testing.T) {
	// Given: a baseline corpus and its results
	idx := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.AddBatch(ctx, []*corpus.Document{
		doc("a.md", "Q3 Planning", "roadmap review", "roadmap"),
		doc("b.md", "Retro", "planning retro notes", "retro"),
	}))
	before, err := idx.Query(ctx, "planning roadmap", AllFields, 0)
	require.NoError(t, err)

	// When: a document is added and immediately removed
	require.NoError(t, idx.Add(ctx, doc("d.md", "Planning roadmap", "planning roadmap planning")))
	require.NoError(t, idx.Remove(ctx, "d.md"))

	// Then: results are the same as never having added it
	after, err := idx.Query(ctx, "planning roadmap", AllFields, 0)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].DocID, after[i].DocID)
		assert.InDelta(t, before[i].Score, after[i].Score, 1e-9)
	}
	assert.Equal(t, 2, idx.Count())
}

func TestBleveIndex_RemoveUnknownIsNoop(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Remove(context.Background(), "missing.md"))
	require.NoError(t, idx.RemoveBatch(context.Background(), nil))
	assert.Equal(t, 0, idx.Count())
}

func TestBleveIndex_SkipsDocumentsWithoutID(t *testing.T) {
	idx := newTestIndex(t)

	err := idx.AddBatch(context.Background(), []*corpus.Document{nil, doc("", "x", "y"), doc("ok.md", "ok", "ok")})

	require.NoError(t, err)
	assert.Equal(t, 1, idx.Count())
}

func TestBleveIndex_Closed(t *testing.T) {
	idx, err := NewBleveIndex()
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	assert.Error(t, idx.Add(context.Background(), doc("a.md", "a", "a")))
	_, err = idx.Query(context.Background(), "alpha", AllFields, 1)
	assert.Error(t, err)
	assert.Equal(t, 0, idx.Count())
}

func TestBleveIndex_CancelledContext(t *testing.T) {
	idx := newTestIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, idx.Add(ctx, doc("a.md", "a", "a")), context.Canceled)
}

// synthetic builds n notes of roughly 2KB each.
func synthetic(n int) []*corpus.Document {
	words := strings.Fields("roadmap budget hiring retro planning launch customer design review metrics " +
		"incident onboarding quarterly strategy partner pricing security compliance migration sprint")
	docs := make([]*corpus.Document, n)
	for i := 0; i < n; i++ {
		var sb strings.Builder
		for sb.Len() < 2000 {
			sb.WriteString(words[(i*7+sb.Len())%len(words)])
			sb.WriteString(" notes ")
		}
		docs[i] = &corpus.Document{
			ID:         fmt.Sprintf("notes/%04d.md", i),
			Title:      fmt.Sprintf("%s sync %d", words[i%len(words)], i),
			Body:       sb.String(),
			Tags:       []string{words[(i+3)%len(words)]},
			ModifiedAt: time.Now(),
		}
	}
	return docs
}

func TestBleveIndex_ThousandDocumentBuild(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping build timing in short mode")
	}

	// Given: 1000 synthetic ~2KB notes
	idx := newTestIndex(t)
	ctx := context.Background()
	docs := synthetic(1000)

	// When: indexing in batches of 10
	start := time.Now()
	for i := 0; i < len(docs); i += 10 {
		require.NoError(t, idx.AddBatch(ctx, docs[i:i+10]))
	}
	elapsed := time.Since(start)

	// Then: the build finishes well inside the ceiling
	assert.Equal(t, 1000, idx.Count())
	assert.Less(t, elapsed, 10*time.Second)

	// And: a single incremental update stays fast
	start = time.Now()
	require.NoError(t, idx.Update(ctx, doc("notes/0001.md", "Edited", "edited body")))
	assert.Less(t, time.Since(start), time.Second)
}
