package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Op is the kind of change reported for a path.
type Op uint8

const (
	Created Op = iota + 1
	Modified
	Removed
	// Moved means the path was renamed away. A new name, if it stays in the
	// corpus, arrives as a separate Created event.
	Moved
	// Rescan follows batches that were dropped; the consumer should re-list
	// the whole tree. Its Path is "." and Dir is set.
	Rescan
)

func (op Op) String() string {
	switch op {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	case Moved:
		return "moved"
	case Rescan:
		return "rescan"
	default:
		return "unknown"
	}
}

// Event is one change under the watched root.
type Event struct {
	// Path is slash-separated and relative to the root.
	Path string
	Op   Op
	Dir  bool
	At   time.Time
}

// Options configures a Watcher. Zero values take the defaults.
type Options struct {
	// DebounceWindow is how long a path must stay quiet before its
	// coalesced event is delivered.
	DebounceWindow time.Duration

	// PollInterval is the scan period when polling.
	PollInterval time.Duration

	// BatchBuffer is how many undelivered batches may queue before new
	// ones are dropped.
	BatchBuffer int

	// Extensions limits file events to these extensions. Empty means every
	// file. Directory events are always reported.
	Extensions []string

	// Polling skips fsnotify.
	Polling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow: 200 * time.Millisecond,
		PollInterval:   5 * time.Second,
		BatchBuffer:    64,
	}
}

// WithDefaults fills zero fields.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = d.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.BatchBuffer <= 0 {
		o.BatchBuffer = d.BatchBuffer
	}
	return o
}

// source produces raw, unfiltered events for a root until ctx ends or it
// is closed.
type source interface {
	run(ctx context.Context, root string, emit func(Event), fail func(error)) error
	close() error
	mode() string
}

// Watcher delivers coalesced batches of corpus changes.
type Watcher struct {
	opts   Options
	accept pathFilter
	src    source
	merge  *coalescer

	mu      sync.RWMutex
	closed  bool
	batches chan []Event
	errs    chan error
	dropped atomic.Uint64

	resyncing atomic.Bool
}

// New creates a watcher. It falls back to polling when fsnotify cannot be
// initialised.
func New(opts Options) (*Watcher, error) {
	opts = opts.WithDefaults()
	w := &Watcher{
		opts:    opts,
		accept:  newPathFilter(opts.Extensions),
		batches: make(chan []Event, opts.BatchBuffer),
		errs:    make(chan error, 8),
	}
	w.merge = newCoalescer(opts.DebounceWindow, w.deliver)

	if !opts.Polling {
		src, err := newNotifySource()
		if err == nil {
			w.src = src
			return w, nil
		}
		slog.Warn("fsnotify_unavailable", slog.String("error", err.Error()))
	}
	w.src = newPollSource(opts.PollInterval)
	return w, nil
}

// Run watches root recursively. It blocks until ctx ends or Close is
// called, then closes the watcher.
func (w *Watcher) Run(ctx context.Context, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve watch root: %w", err)
	}
	defer w.Close()

	slog.Debug("watch_started", slog.String("root", abs), slog.String("mode", w.src.mode()))
	err = w.src.run(ctx, abs, w.observe, w.fail)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Close stops watching and closes both channels. Safe to call repeatedly.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.merge.stop()
	err := w.src.close()

	w.mu.Lock()
	close(w.batches)
	close(w.errs)
	w.mu.Unlock()
	return err
}

// Batches returns coalesced event batches, oldest path first.
func (w *Watcher) Batches() <-chan []Event {
	return w.batches
}

// Errors returns non-fatal errors from the underlying source.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Mode is "fsnotify" or "polling".
func (w *Watcher) Mode() string {
	return w.src.mode()
}

// Dropped counts batches discarded because nobody was reading. Each run of
// drops is followed by a Rescan event once the consumer catches up.
func (w *Watcher) Dropped() uint64 {
	return w.dropped.Load()
}

func (w *Watcher) observe(ev Event) {
	if w.accept.skip(ev.Path, ev.Dir) {
		return
	}
	w.merge.add(ev)
}

func (w *Watcher) deliver(batch []Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.batches <- batch:
	default:
		n := w.dropped.Add(1)
		slog.Warn("watch_batch_dropped", slog.Int("events", len(batch)), slog.Uint64("dropped_total", n))
		if w.resyncing.CompareAndSwap(false, true) {
			go w.resync()
		}
	}
}

// resync offers a Rescan event every debounce window until the consumer
// takes it. Drops that happen before the flag is cleared are covered by
// another round.
func (w *Watcher) resync() {
	t := time.NewTicker(w.opts.DebounceWindow)
	defer t.Stop()
	for range t.C {
		seen := w.dropped.Load()
		sent, closed := w.offer([]Event{{Path: ".", Op: Rescan, Dir: true, At: time.Now()}})
		if closed {
			w.resyncing.Store(false)
			return
		}
		if !sent {
			continue
		}
		w.resyncing.Store(false)
		if w.dropped.Load() == seen || !w.resyncing.CompareAndSwap(false, true) {
			return
		}
	}
}

// offer is a non-blocking send that reports whether the watcher is closed.
func (w *Watcher) offer(batch []Event) (sent, closed bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false, true
	}
	select {
	case w.batches <- batch:
		return true, false
	default:
		return false, false
	}
}

func (w *Watcher) fail(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.errs <- err:
	default:
	}
}

// pathFilter keeps corpus files and visible directories.
type pathFilter struct {
	exts map[string]struct{}
}

func newPathFilter(extensions []string) pathFilter {
	if len(extensions) == 0 {
		return pathFilter{}
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	return pathFilter{exts: exts}
}

func (f pathFilter) skip(rel string, dir bool) bool {
	if rel == "" || rel == "." || hidden(rel) {
		return true
	}
	if dir || f.exts == nil {
		return false
	}
	_, ok := f.exts[strings.ToLower(path.Ext(rel))]
	return !ok
}

// hidden reports whether any segment of rel starts with a dot.
func hidden(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if len(seg) > 1 && seg[0] == '.' && seg != ".." {
			return true
		}
	}
	return false
}
