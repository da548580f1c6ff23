package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// pollSource detects changes by diffing directory scans.
type pollSource struct {
	interval time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
}

func newPollSource(interval time.Duration) *pollSource {
	return &pollSource{interval: interval, stopCh: make(chan struct{})}
}

func (p *pollSource) mode() string { return "polling" }

func (p *pollSource) close() error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	return nil
}

func (p *pollSource) run(ctx context.Context, root string, emit func(Event), fail func(error)) error {
	prev, err := scan(root)
	if err != nil {
		return fmt.Errorf("initial scan of %s: %w", root, err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case now := <-ticker.C:
			cur, err := scan(root)
			if err != nil {
				fail(fmt.Errorf("scan %s: %w", root, err))
				continue
			}
			for _, ev := range diff(prev, cur, now) {
				emit(ev)
			}
			prev = cur
		}
	}
}

type fileState struct {
	mod  time.Time
	size int64
	dir  bool
}

// snapshot maps slash-separated relative paths to their state.
type snapshot map[string]fileState

// scan records every visible path under root. Only an unreadable root is
// an error.
func scan(root string) (snapshot, error) {
	snap := make(snapshot)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if hidden(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		snap[rel] = fileState{mod: info.ModTime(), size: info.Size(), dir: d.IsDir()}
		return nil
	})
	return snap, err
}

// diff lists what changed between two scans, sorted by path. Directories
// report creation and removal only.
func diff(prev, cur snapshot, at time.Time) []Event {
	var out []Event
	for rel, st := range cur {
		old, ok := prev[rel]
		switch {
		case !ok:
			out = append(out, Event{Path: rel, Op: Created, Dir: st.dir, At: at})
		case !st.dir && (!old.mod.Equal(st.mod) || old.size != st.size):
			out = append(out, Event{Path: rel, Op: Modified, At: at})
		}
	}
	for rel, st := range prev {
		if _, ok := cur[rel]; !ok {
			out = append(out, Event{Path: rel, Op: Removed, Dir: st.dir, At: at})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
