package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// notifySource watches every visible directory under the root with
// fsnotify, adding new directories as they appear.
type notifySource struct {
	fsw  *fsnotify.Watcher
	root string

	mu   sync.Mutex
	dirs map[string]struct{}
}

func newNotifySource() (*notifySource, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &notifySource{fsw: fsw, dirs: make(map[string]struct{})}, nil
}

func (n *notifySource) mode() string { return "fsnotify" }

func (n *notifySource) close() error {
	return n.fsw.Close()
}

func (n *notifySource) run(ctx context.Context, root string, emit func(Event), fail func(error)) error {
	n.root = root
	if err := n.addTree(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fe, ok := <-n.fsw.Events:
			if !ok {
				return nil
			}
			if ev, ok := n.translate(fe); ok {
				emit(ev)
			}
		case err, ok := <-n.fsw.Errors:
			if !ok {
				return nil
			}
			fail(err)
		}
	}
}

// translate maps an fsnotify event to an Event. Chmod-only events and
// paths outside the root are dropped. A new directory is watched before
// its event is returned.
func (n *notifySource) translate(fe fsnotify.Event) (Event, bool) {
	rel, err := filepath.Rel(n.root, fe.Name)
	if err != nil || rel == "." {
		return Event{}, false
	}

	dir := false
	if info, err := os.Stat(fe.Name); err == nil {
		dir = info.IsDir()
	} else {
		// already gone; only a watched directory remembers what it was
		n.mu.Lock()
		_, dir = n.dirs[fe.Name]
		delete(n.dirs, fe.Name)
		n.mu.Unlock()
	}

	ev := Event{Path: filepath.ToSlash(rel), Dir: dir, At: time.Now()}
	switch {
	case fe.Has(fsnotify.Create):
		ev.Op = Created
		if dir && !hidden(ev.Path) {
			// files written before the watch landed are caught by the
			// directory event, which triggers a rescan downstream
			_ = n.addTree(fe.Name)
		}
	case fe.Has(fsnotify.Write):
		ev.Op = Modified
	case fe.Has(fsnotify.Remove):
		ev.Op = Removed
	case fe.Has(fsnotify.Rename):
		ev.Op = Moved
	default:
		return Event{}, false
	}
	return ev, true
}

// addTree watches dir and every visible directory below it.
func (n *notifySource) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, _ := filepath.Rel(n.root, p); rel != "." && hidden(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if err := n.fsw.Add(p); err != nil {
			return err
		}
		n.mu.Lock()
		n.dirs[p] = struct{}{}
		n.mu.Unlock()
		return nil
	})
}
