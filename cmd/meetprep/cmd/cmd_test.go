package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
	"github.com/Aman-CERP/meetprep/internal/lock"
	"github.com/Aman-CERP/meetprep/pkg/version"
)

// isolate points home and config lookups at temp dirs.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

// newCorpus writes two valid notes and one with broken front matter.
func newCorpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"planning/q3.md": `---
title: Q3 Planning
tags: [planning, roadmap]
attendees: [Alice Smith]
---
Roadmap review for Q3. The hiring plan was discussed with Alice.
`,
		"notes/lunch.md": "# Lunch menu\n\nPizza on Friday.\n",
		"broken.md":      "---\ntitle: [unclosed\n---\nbody\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", out)

	out, err = run(t, "version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info["version"])
}

func TestIndexCmd_ReportsCountsAndSkips(t *testing.T) {
	// Given: a corpus with one unreadable note
	isolate(t)
	root := newCorpus(t)

	// When: indexing with skipped files listed
	out, err := run(t, "index", root, "-v")

	// Then: the two good notes are indexed and the broken one is named
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 notes")
	assert.Contains(t, out, "Skipped 1 files")
	assert.Contains(t, out, "broken.md")
}

func TestIndexCmd_Progress(t *testing.T) {
	isolate(t)
	root := newCorpus(t)

	out, err := run(t, "index", root, "--progress")

	require.NoError(t, err)
	assert.Contains(t, out, "[scanning] listing notes")
	assert.Contains(t, out, "[indexing] 2/2")
	assert.Contains(t, out, "Indexed 2 notes")
}

func TestIndexCmd_MissingDirectory(t *testing.T) {
	isolate(t)

	_, err := run(t, "index", filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
	assert.Equal(t, meeterrors.ErrCodeCorpusUnavailable, meeterrors.GetCode(err))
}

func TestQueryCmd_JSON(t *testing.T) {
	// Given: the Q3 planning corpus
	isolate(t)
	root := newCorpus(t)

	// When: querying for the Q3 planning meeting
	out, err := run(t, "query", root,
		"--title", "Q3 Planning",
		"--topic", "roadmap",
		"--attendee", "Alice Smith",
		"--format", "json")
	require.NoError(t, err)

	// Then: only the planning note clears the threshold
	var res struct {
		Matches []struct {
			DocumentID     string   `json:"document_id"`
			RelevanceScore float64  `json:"relevance_score"`
			MatchedFields  []string `json:"matched_fields"`
		} `json:"matches"`
		IndexNotReady bool   `json:"index_not_ready"`
		VersionSeq    uint64 `json:"version_seq"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.IndexNotReady)
	assert.Equal(t, uint64(1), res.VersionSeq)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "planning/q3.md", res.Matches[0].DocumentID)
	assert.Contains(t, res.Matches[0].MatchedFields, "title")
	assert.GreaterOrEqual(t, res.Matches[0].RelevanceScore, 0.15)
}

func TestQueryCmd_Text(t *testing.T) {
	isolate(t)
	root := newCorpus(t)

	out, err := run(t, "query", root, "--title", "Q3 Planning", "--at", "2026-03-02")

	require.NoError(t, err)
	assert.Contains(t, out, "Q3 Planning")
	assert.Contains(t, out, "id: planning/q3.md")
}

func TestQueryCmd_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no meeting fields", []string{"query"}},
		{"bad format", []string{"query", "--title", "x", "--format", "xml"}},
		{"bad time", []string{"query", "--title", "x", "--at", "soon"}},
		{"negative top-k", []string{"query", "--title", "x", "--top-k", "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)

			_, err := run(t, tt.args...)

			require.Error(t, err)
			assert.Equal(t, meeterrors.ErrCodeInvalidQuery, meeterrors.GetCode(err))
		})
	}
}

func TestStatusCmd_JSON(t *testing.T) {
	isolate(t)
	root := newCorpus(t)

	out, err := run(t, "status", root, "--json")
	require.NoError(t, err)

	var report statusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "ready", string(report.Index.State))
	assert.Equal(t, 2, report.Index.DocumentCount)
	assert.True(t, report.Index.Serving)
	assert.Equal(t, 1, report.Skipped)
	assert.False(t, report.ServerRunning)
}

func TestStatusCmd_DetectsRunningServer(t *testing.T) {
	// Given: another holder of the corpus lock
	isolate(t)
	root := newCorpus(t)
	lk, err := lock.ForCorpus(lockDir(), root)
	require.NoError(t, err)
	require.NoError(t, lk.Acquire())
	defer func() { _ = lk.Release() }()

	// When: asking for status
	out, err := run(t, "status", root)

	// Then: the running server is reported
	require.NoError(t, err)
	assert.Contains(t, out, "server is running")
	assert.Contains(t, out, "ready")
}

func TestServeCmd_LockHeld(t *testing.T) {
	isolate(t)
	root := newCorpus(t)
	lk, err := lock.ForCorpus(lockDir(), root)
	require.NoError(t, err)
	require.NoError(t, lk.Acquire())
	defer func() { _ = lk.Release() }()

	_, err = run(t, "serve", root)

	require.Error(t, err)
	assert.Equal(t, meeterrors.ErrCodeLockHeld, meeterrors.GetCode(err))
}

func TestServeCmd_UnknownTransport(t *testing.T) {
	isolate(t)
	root := newCorpus(t)

	_, err := run(t, "serve", root, "--transport", "sse")

	assert.ErrorContains(t, err, "unknown transport")
}

func TestConfigShow_MergesCorpusConfig(t *testing.T) {
	isolate(t)
	root := newCorpus(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".meetprep.yaml"), []byte("matching:\n  top_k: 4\n"), 0o644))

	out, err := run(t, "config", "show", root)

	require.NoError(t, err)
	assert.Contains(t, out, "top_k: 4")
	assert.Contains(t, out, "title: 0.25")
}

func TestConfigInit(t *testing.T) {
	isolate(t)

	out, err := run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	_, err = run(t, "config", "init")
	assert.Error(t, err)

	out, err = run(t, "config", "init", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Previous config saved to")

	path, err := run(t, "config", "path")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Clean(path[:len(path)-1]))
}

func TestConfigInit_Corpus(t *testing.T) {
	isolate(t)
	root := t.TempDir()

	out, err := run(t, "config", "init", "--corpus", root)
	require.NoError(t, err)
	assert.Contains(t, out, ".meetprep.yaml")
	assert.FileExists(t, filepath.Join(root, ".meetprep.yaml"))

	_, err = run(t, "config", "init", "--corpus", root)
	assert.Error(t, err)

	_, err = run(t, "config", "init", "--corpus", filepath.Join(root, "missing"))
	require.Error(t, err)
	assert.Equal(t, meeterrors.ErrCodeCorpusUnavailable, meeterrors.GetCode(err))
}

func TestRootCmd_ProfilesWritten(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	heap := filepath.Join(dir, "heap.prof")

	_, err := run(t, "--profile-mem", heap, "version", "--short")

	require.NoError(t, err)
	assert.FileExists(t, heap)
}

func TestValidateCmd(t *testing.T) {
	isolate(t)
	root := newCorpus(t)
	queries := filepath.Join(t.TempDir(), "queries.yaml")
	require.NoError(t, os.WriteFile(queries, []byte(`relevance:
  - id: R1
    name: planning
    meeting:
      title: Q3 Planning
    expected: [planning/q3.md]
    within: 1
negative:
  - id: N1
    meeting:
      title: Q3 Planning
    absent: [notes/lunch.md]
`), 0o644))

	out, err := run(t, "validate", root, "--queries", queries, "--defaults")
	require.NoError(t, err)
	assert.Contains(t, out, "Relevance: 1/1 passed")
	assert.Contains(t, out, "Negative: 1/1 passed")

	out, err = run(t, "validate", root, "--queries", queries, "--json")
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.EqualValues(t, 1, report["relevance_pass"])
	assert.EqualValues(t, 2, report["documents"])
}

func TestValidateCmd_Failure(t *testing.T) {
	isolate(t)
	root := newCorpus(t)
	queries := filepath.Join(t.TempDir(), "queries.yaml")
	require.NoError(t, os.WriteFile(queries, []byte(`relevance:
  - id: R1
    meeting:
      title: Q3 Planning
    expected: [notes/lunch.md]
`), 0o644))

	out, err := run(t, "validate", root, "--queries", queries)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 cases failed")
	assert.Contains(t, out, "missing notes/lunch.md")

	_, err = run(t, "validate", root)
	assert.Error(t, err)
}
