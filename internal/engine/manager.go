// Package engine owns the index lifecycle: it builds token index versions in
// the background from a document source, publishes them atomically, and
// serves meeting-context queries from the latest published version.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/meetprep/internal/async"
	"github.com/Aman-CERP/meetprep/internal/corpus"
	"github.com/Aman-CERP/meetprep/internal/index"
	"github.com/Aman-CERP/meetprep/internal/match"
	"github.com/Aman-CERP/meetprep/internal/rank"
)

// request is one unit of work for the worker. Requests are applied in
// arrival order.
type request struct {
	rebuild bool
	changes []corpus.Change
}

// Manager builds and serves index versions. Queries are lock-free; a single
// worker goroutine owns all index construction.
type Manager struct {
	source  corpus.Source
	cfg     Config
	matcher *match.Matcher
	ranker  *rank.Aggregator

	weights atomic.Pointer[rank.WeightConfig]
	current atomic.Pointer[Version]
	cache   *lru.Cache[string, Result]

	tracker *async.Tracker
	runner  *async.Runner

	now      func() time.Time
	newIndex func() (index.TokenIndex, error)

	mu     sync.Mutex
	queue  []request
	signal chan struct{}

	errMu   sync.Mutex
	lastErr error

	readyOnce sync.Once
	ready     chan struct{}

	stopOnce sync.Once

	// Worker-owned state.
	slots       [2]*slot
	active      int
	seq         uint64
	target      map[string]*corpus.Document
	needRebuild bool
}

// New creates a manager over source. Call Start to begin building.
func New(source corpus.Source, cfg Config, opts ...Option) *Manager {
	cfg = cfg.WithDefaults()
	m := &Manager{
		source:  source,
		cfg:     cfg,
		matcher: match.New(cfg.Matching),
		ranker:  rank.NewAggregator(cfg.Ranking),
		tracker: async.NewTracker(),
		now:     time.Now,
		newIndex: func() (index.TokenIndex, error) {
			return index.NewBleveIndex()
		},
		queue:  []request{{rebuild: true}},
		signal: make(chan struct{}, 1),
		ready:  make(chan struct{}),
		active: -1,
		target: make(map[string]*corpus.Document),
	}
	w := cfg.Weights
	m.weights.Store(&w)
	if cfg.CacheSize > 0 {
		m.cache, _ = lru.New[string, Result](cfg.CacheSize)
	}
	for _, opt := range opts {
		opt(m)
	}
	m.runner = async.NewRunner(m.tracker, m.run)
	m.signal <- struct{}{}
	return m
}

// Start launches the background worker. The first build begins immediately.
func (m *Manager) Start(ctx context.Context) {
	m.runner.Start(ctx)
}

// Stop halts the worker, withdraws the published version and releases both
// indexes. Queries after Stop report the index as not ready.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.runner.Stop()

		if v := m.current.Swap(nil); v != nil {
			v.retire()
			<-v.drained
		}
		for _, s := range m.slots {
			if s == nil {
				continue
			}
			if s.retired != nil {
				<-s.retired.drained
			}
			if err := s.idx.Close(); err != nil {
				slog.Warn("index_close_failed", slog.String("slot", s.name), slog.String("error", err.Error()))
			}
		}
		if m.cache != nil {
			m.cache.Purge()
		}
	})
}

// Status returns the current lifecycle state. It never blocks on a build.
func (m *Manager) Status() async.StatusSnapshot {
	return m.tracker.Snapshot()
}

// Subscribe streams status changes, starting with the current state.
func (m *Manager) Subscribe() (<-chan async.StatusSnapshot, func()) {
	return m.tracker.Subscribe()
}

// Rebuild requests a full re-enumeration of the source.
func (m *Manager) Rebuild() {
	m.enqueue(request{rebuild: true})
}

// Notify queues corpus changes. They are applied in call order.
func (m *Manager) Notify(changes ...corpus.Change) {
	if len(changes) == 0 {
		return
	}
	m.enqueue(request{changes: append([]corpus.Change(nil), changes...)})
}

// WaitReady blocks until a version is published. It returns the build error
// when a build fails while nothing is being served.
func (m *Manager) WaitReady(ctx context.Context) error {
	ch, cancel := m.tracker.Subscribe()
	defer cancel()

	for {
		select {
		case <-m.ready:
			return nil
		case snap, ok := <-ch:
			if !ok {
				return ctx.Err()
			}
			if snap.Serving {
				return nil
			}
			if snap.State == async.StateError {
				if err := m.LastError(); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// LastError returns the error of the most recent failed build, nil once a
// later build succeeds.
func (m *Manager) LastError() error {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	return m.lastErr
}

// SetWeights replaces the weights used by later queries. Invalid values are
// clamped to 0.
func (m *Manager) SetWeights(w rank.WeightConfig) {
	w = w.Sanitize()
	m.weights.Store(&w)
}

// Weights returns the weights in effect.
func (m *Manager) Weights() rank.WeightConfig {
	return *m.weights.Load()
}

// Version returns the published version number, 0 before the first build.
func (m *Manager) Version() uint64 {
	if v := m.current.Load(); v != nil {
		return v.seq
	}
	return 0
}

func (m *Manager) enqueue(r request) {
	m.mu.Lock()
	m.queue = append(m.queue, r)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// take removes and returns every queued request.
func (m *Manager) take() []request {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := m.queue
	m.queue = nil
	return reqs
}

func (m *Manager) pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue) > 0
}

// acquire returns the published version with a reference held, or nil.
// The recheck after incrementing guarantees the version was still current
// when the reference was taken.
func (m *Manager) acquire() *Version {
	for {
		v := m.current.Load()
		if v == nil {
			return nil
		}
		v.refs.Add(1)
		if m.current.Load() == v {
			return v
		}
		v.release()
	}
}

func (m *Manager) setLastError(err error) {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	m.lastErr = err
}
