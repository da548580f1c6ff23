package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_WithDefaults(t *testing.T) {
	assert.Equal(t, DefaultOptions(), Options{}.WithDefaults())

	o := Options{DebounceWindow: time.Second, PollInterval: -1, Polling: true}.WithDefaults()
	assert.Equal(t, time.Second, o.DebounceWindow)
	assert.Equal(t, DefaultOptions().PollInterval, o.PollInterval)
	assert.True(t, o.Polling)
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "modified", Modified.String())
	assert.Equal(t, "removed", Removed.String())
	assert.Equal(t, "moved", Moved.String())
	assert.Equal(t, "rescan", Rescan.String())
	assert.Equal(t, "unknown", Op(0).String())
}

func TestPathFilter_Skip(t *testing.T) {
	f := newPathFilter([]string{"md", ".TXT"})
	tests := []struct {
		rel  string
		dir  bool
		want bool
	}{
		{"note.md", false, false},
		{"sub/NOTE.MD", false, false},
		{"todo.txt", false, false},
		{"image.png", false, true},
		{"sub", true, false},
		{".git", true, true},
		{".obsidian/workspace.md", false, true},
		{"sub/.draft.md", false, true},
		{".", true, true},
		{"", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, f.skip(tt.rel, tt.dir))
		})
	}

	assert.False(t, newPathFilter(nil).skip("image.png", false))
}

// startWatcher runs a watcher over dir for the rest of the test.
func startWatcher(t *testing.T, dir string, opts Options) *Watcher {
	t.Helper()
	w, err := New(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Close()
	})
	go func() { _ = w.Run(ctx, dir) }()

	time.Sleep(100 * time.Millisecond)
	return w
}

// waitForEvent drains batches until match succeeds or timeout passes.
func waitForEvent(t *testing.T, w *Watcher, timeout time.Duration, match func(Event) bool) bool {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case batch, ok := <-w.Batches():
			if !ok {
				return false
			}
			for _, e := range batch {
				if match(e) {
					return true
				}
			}
		case <-deadline:
			return false
		}
	}
}

func TestWatcher_ReportsNoteChanges(t *testing.T) {
	for _, polling := range []bool{false, true} {
		name := "fsnotify"
		if polling {
			name = "polling"
		}
		t.Run(name, func(t *testing.T) {
			// Given: a watched corpus directory with one note
			dir := t.TempDir()
			old := filepath.Join(dir, "old.md")
			require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
			w := startWatcher(t, dir, Options{
				DebounceWindow: 30 * time.Millisecond,
				PollInterval:   30 * time.Millisecond,
				Extensions:     []string{".md"},
				Polling:        polling,
			})
			if polling {
				assert.Equal(t, "polling", w.Mode())
			}

			// When: a note is added
			require.NoError(t, os.WriteFile(filepath.Join(dir, "new.md"), []byte("new"), 0o644))

			// Then: it is reported as created
			assert.True(t, waitForEvent(t, w, 3*time.Second, func(e Event) bool {
				return e.Path == "new.md" && e.Op == Created
			}))

			// When: the old note is deleted
			require.NoError(t, os.Remove(old))

			// Then: it is reported as removed
			assert.True(t, waitForEvent(t, w, 3*time.Second, func(e Event) bool {
				return e.Path == "old.md" && e.Op == Removed
			}))
		})
	}
}

func TestWatcher_FiltersOtherFilesAndHiddenPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".trash"), 0o755))
	w := startWatcher(t, dir, Options{DebounceWindow: 30 * time.Millisecond, Extensions: []string{".md"}})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.png"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".trash", "deleted.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kept.md"), []byte("x"), 0o644))

	var got []string
	require.True(t, waitForEvent(t, w, 3*time.Second, func(e Event) bool {
		got = append(got, e.Path)
		return e.Path == "kept.md"
	}))
	assert.NotContains(t, got, "photo.png")
	assert.NotContains(t, got, ".trash/deleted.md")
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir, Options{DebounceWindow: 30 * time.Millisecond, Extensions: []string{".md"}})

	sub := filepath.Join(dir, "meetings")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.True(t, waitForEvent(t, w, 3*time.Second, func(e Event) bool {
		return e.Path == "meetings" && e.Dir
	}))

	require.NoError(t, os.WriteFile(filepath.Join(sub, "standup.md"), []byte("x"), 0o644))
	assert.True(t, waitForEvent(t, w, 3*time.Second, func(e Event) bool {
		return e.Path == "meetings/standup.md"
	}))
}

func TestWatcher_CloseClosesChannels(t *testing.T) {
	w, err := New(Options{Polling: true})
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Batches()
	assert.False(t, ok)
	_, ok = <-w.Errors()
	assert.False(t, ok)
	assert.Equal(t, uint64(0), w.Dropped())
}

func TestWatcher_DroppedBatchesTriggerRescan(t *testing.T) {
	// Given: a watcher whose consumer has fallen behind
	w, err := New(Options{Polling: true, BatchBuffer: 1, DebounceWindow: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	first := []Event{{Path: "a.md", Op: Created}}
	w.deliver(first)
	w.deliver([]Event{{Path: "b.md", Op: Created}})
	require.Equal(t, uint64(1), w.Dropped())

	// When: the consumer catches up
	assert.Equal(t, first, <-w.Batches())

	// Then: a rescan replaces the lost batch
	select {
	case batch := <-w.Batches():
		require.Len(t, batch, 1)
		assert.Equal(t, Rescan, batch[0].Op)
		assert.True(t, batch[0].Dir)
		assert.Equal(t, ".", batch[0].Path)
	case <-time.After(3 * time.Second):
		t.Fatal("no rescan after dropped batch")
	}
}

func TestWatcher_RunReturnsWhenContextEnds(t *testing.T) {
	w, err := New(Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, t.TempDir()) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	_, ok := <-w.Batches()
	assert.False(t, ok)
}

func TestWatcher_RunMissingRoot(t *testing.T) {
	w, err := New(Options{})
	require.NoError(t, err)

	err = w.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
