package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/Aman-CERP/meetprep/internal/async"
	"github.com/Aman-CERP/meetprep/internal/corpus"
	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
	"github.com/Aman-CERP/meetprep/internal/match"
	"github.com/Aman-CERP/meetprep/internal/metrics"
)

// run is the worker loop hosted by the async runner.
func (m *Manager) run(ctx context.Context, tracker *async.Tracker) error {
	if m.cfg.Watch {
		m.watch(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.signal:
		}
		if err := m.build(ctx, tracker); err != nil {
			return err
		}
	}
}

// watch forwards source change events to Notify until ctx ends.
func (m *Manager) watch(ctx context.Context) {
	w, ok := m.source.(corpus.Watchable)
	if !ok {
		slog.Debug("watch_unsupported")
		return
	}
	ch, err := w.Watch(ctx)
	if err != nil {
		slog.Warn("watch_failed", meeterrors.LogAttrs(err)...)
		return
	}
	go func() {
		for batch := range ch {
			m.Notify(batch...)
		}
	}()
}

// build drains the request queue into the target set, brings the standby
// index up to date and publishes it. New requests arriving mid-build are
// merged and the build continues on the same standby.
func (m *Manager) build(ctx context.Context, tracker *async.Tracker) error {
	if !m.pending() {
		return nil
	}

	start := time.Now()
	tracker.SetScanning()
	deadline := &softDeadline{limit: m.cfg.SoftDeadline, start: start}

	for {
		if err := m.merge(ctx, m.take()); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.fail(tracker, err)
			return nil
		}

		st, err := m.standby(ctx)
		if err != nil {
			if ctx.Err() == nil {
				m.fail(tracker, err)
			}
			return nil
		}
		done, err := m.syncSlot(ctx, st, tracker, deadline)
		if err != nil {
			if ctx.Err() != nil {
				metrics.BuildsTotal.WithLabelValues("abandoned").Inc()
				return nil
			}
			m.resetSlot(st)
			m.fail(tracker, err)
			return nil
		}
		if !done {
			tracker.SetScanning()
			continue
		}

		m.publish(st, tracker, start)
		m.warm(ctx)
		return nil
	}
}

// merge applies requests to the target set in arrival order.
func (m *Manager) merge(ctx context.Context, reqs []request) error {
	for _, r := range reqs {
		if r.rebuild || m.needRebuild {
			if err := m.relist(ctx); err != nil {
				return err
			}
			if r.rebuild {
				continue
			}
		}
		for _, c := range r.changes {
			if c.Kind == corpus.ChangeRescan {
				if err := m.relist(ctx); err != nil {
					return err
				}
				continue
			}
			m.applyChange(ctx, c)
		}
	}
	return nil
}

// relist replaces the target set with a fresh enumeration of the source.
// Unchanged documents keep their previous pointer so the diff skips them.
func (m *Manager) relist(ctx context.Context) error {
	docs, err := meeterrors.RetryWithResult(ctx, m.cfg.Retry, func() ([]*corpus.Document, error) {
		return m.source.List(ctx)
	})
	if err != nil {
		m.needRebuild = true
		return err
	}
	if r, ok := m.source.(corpus.Reporter); ok {
		if skipped := len(r.LastReport().Skipped); skipped > 0 {
			metrics.DocumentsSkippedTotal.Add(float64(skipped))
		}
	}

	target := make(map[string]*corpus.Document, len(docs))
	for _, d := range docs {
		if d == nil || d.ID == "" {
			continue
		}
		if prev, ok := m.target[d.ID]; ok && prev.SameRevision(d) {
			d = prev
		}
		target[d.ID] = d
	}
	m.target = target
	m.needRebuild = false
	slog.Debug("corpus_listed", slog.Int("documents", len(target)))
	return nil
}

func (m *Manager) applyChange(ctx context.Context, c corpus.Change) {
	switch c.Kind {
	case corpus.ChangeRemoved:
		delete(m.target, c.ID)
	case corpus.ChangeAdded, corpus.ChangeModified:
		doc := c.Document
		if doc == nil {
			loaded, err := m.source.Load(ctx, c.ID)
			if err != nil {
				slog.Warn("document_skipped", meeterrors.LogAttrs(err)...)
				delete(m.target, c.ID)
				return
			}
			doc = loaded
		}
		if doc.ID == "" {
			return
		}
		m.target[doc.ID] = doc
	}
}

// standby returns the slot that is not being served, creating it on first
// use and waiting for readers of its last version to finish.
func (m *Manager) standby(ctx context.Context) (*slot, error) {
	i := 0
	if m.active >= 0 {
		i = 1 - m.active
	}
	if m.slots[i] == nil {
		idx, err := m.newIndex()
		if err != nil {
			return nil, err
		}
		name := "left"
		if i == 1 {
			name = "right"
		}
		m.slots[i] = &slot{name: name, idx: idx, entries: make(map[string]*match.Entry)}
	}
	s := m.slots[i]
	if s.retired != nil {
		select {
		case <-s.retired.drained:
			s.retired = nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s, nil
}

// syncSlot applies the difference between the slot's documents and the
// target set in batches. It returns false when new requests arrived before
// it finished. Documents are compared by pointer identity.
func (m *Manager) syncSlot(ctx context.Context, s *slot, tracker *async.Tracker, deadline *softDeadline) (bool, error) {
	var removes []string
	for id := range s.entries {
		if _, ok := m.target[id]; !ok {
			removes = append(removes, id)
		}
	}
	var upserts []*corpus.Document
	for id, doc := range m.target {
		if e, ok := s.entries[id]; !ok || e.Doc != doc {
			upserts = append(upserts, doc)
		}
	}
	sort.Strings(removes)
	sort.Slice(upserts, func(i, j int) bool { return upserts[i].ID < upserts[j].ID })

	total := len(removes) + len(upserts)
	done := 0
	report := func() {
		if tracker != nil {
			tracker.SetIndexing(done, total)
		}
	}
	report()

	for start := 0; start < len(removes); start += m.cfg.BatchSize {
		batch := removes[start:min(start+m.cfg.BatchSize, len(removes))]
		if err := s.idx.RemoveBatch(ctx, batch); err != nil {
			return false, err
		}
		for _, id := range batch {
			delete(s.entries, id)
		}
		done += len(batch)
		report()
		if stop, err := m.yield(ctx, deadline, done, total); stop || err != nil {
			return false, err
		}
	}

	for start := 0; start < len(upserts); start += m.cfg.BatchSize {
		batch := upserts[start:min(start+m.cfg.BatchSize, len(upserts))]
		if err := s.idx.AddBatch(ctx, batch); err != nil {
			return false, err
		}
		for _, doc := range batch {
			s.entries[doc.ID] = m.entryFor(s, doc)
		}
		done += len(batch)
		report()
		if stop, err := m.yield(ctx, deadline, done, total); stop || err != nil {
			return false, err
		}
	}
	return true, nil
}

// yield runs between batches: it reports cancellation, checks the soft
// deadline and whether new requests are waiting, then yields the processor.
func (m *Manager) yield(ctx context.Context, deadline *softDeadline, done, total int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return true, err
	}
	if deadline != nil {
		deadline.check(done, total)
	}
	if m.pending() {
		return true, nil
	}
	runtime.Gosched()
	return false, nil
}

// entryFor reuses the other slot's entry for the same document revision.
func (m *Manager) entryFor(s *slot, doc *corpus.Document) *match.Entry {
	for _, other := range m.slots {
		if other == nil || other == s {
			continue
		}
		if e, ok := other.entries[doc.ID]; ok && e.Doc == doc {
			return e
		}
	}
	return m.matcher.NewEntry(doc)
}

// publish swaps in a version built from s. The previous version becomes the
// standby once its readers drain.
func (m *Manager) publish(s *slot, tracker *async.Tracker, start time.Time) {
	m.seq++
	v := newVersion(m.seq, s, m.now())
	old := m.current.Swap(v)
	if old != nil {
		old.retire()
		old.slot.retired = old
	}
	for i, candidate := range m.slots {
		if candidate == s {
			m.active = i
		}
	}
	if m.cache != nil {
		m.cache.Purge()
	}

	m.setLastError(nil)
	tracker.SetReady(v.Len(), v.seq)
	m.readyOnce.Do(func() { close(m.ready) })

	elapsed := time.Since(start)
	metrics.BuildsTotal.WithLabelValues("published").Inc()
	metrics.BuildDuration.Observe(elapsed.Seconds())
	metrics.DocumentsIndexed.Set(float64(v.Len()))
	metrics.IndexVersion.Set(float64(v.seq))
	slog.Info("index_published",
		slog.Uint64("version", v.seq),
		slog.String("slot", s.name),
		slog.Int("documents", v.Len()),
		slog.Duration("elapsed", elapsed))
}

// warm brings the new standby up to the target set so the next change only
// touches the documents it names. It stops as soon as a request arrives.
func (m *Manager) warm(ctx context.Context) {
	if m.pending() {
		return
	}
	st, err := m.standby(ctx)
	if err != nil {
		return
	}
	if _, err := m.syncSlot(ctx, st, nil, nil); err != nil && ctx.Err() == nil {
		slog.Warn("standby_warm_failed", slog.String("slot", st.name), slog.String("error", err.Error()))
		m.resetSlot(st)
	}
}

// resetSlot discards a standby whose index may no longer match its entries.
func (m *Manager) resetSlot(s *slot) {
	for i, candidate := range m.slots {
		if candidate != s {
			continue
		}
		if err := s.idx.Close(); err != nil {
			slog.Debug("index_close_failed", slog.String("slot", s.name), slog.String("error", err.Error()))
		}
		m.slots[i] = nil
	}
}

// fail records a systemic build failure. The published version, if any,
// keeps serving.
func (m *Manager) fail(tracker *async.Tracker, err error) {
	m.needRebuild = true
	m.setLastError(err)
	tracker.SetError(err)
	metrics.BuildsTotal.WithLabelValues("failed").Inc()
	slog.Error("index_build_failed", meeterrors.LogAttrs(err)...)
}

// softDeadline warns once when a build overruns its nominal time.
type softDeadline struct {
	limit  time.Duration
	start  time.Time
	warned bool
}

func (d *softDeadline) check(done, total int) {
	if d.warned || d.limit <= 0 {
		return
	}
	if elapsed := time.Since(d.start); elapsed > d.limit {
		d.warned = true
		slog.Warn("index_build_slow",
			slog.Duration("elapsed", elapsed),
			slog.Duration("soft_deadline", d.limit),
			slog.String("progress", fmt.Sprintf("%d/%d", done, total)))
	}
}
