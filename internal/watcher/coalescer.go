package watcher

import (
	"sort"
	"sync"
	"time"
)

// coalescer merges events per path and delivers them once no new event has
// arrived for the window. A delivered batch is ordered by when each path was
// first seen so it can be applied in arrival order.
type coalescer struct {
	window  time.Duration
	deliver func([]Event)

	mu      sync.Mutex
	pending map[string]*pendingPath
	seq     uint64
	timer   *time.Timer
	stopped bool
}

type pendingPath struct {
	ev    Event
	first Op
	seq   uint64
}

func newCoalescer(window time.Duration, deliver func([]Event)) *coalescer {
	return &coalescer{
		window:  window,
		deliver: deliver,
		pending: make(map[string]*pendingPath),
	}
}

func (c *coalescer) add(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	if p, ok := c.pending[ev.Path]; ok {
		merged, keep := combine(p.first, p.ev, ev)
		if keep {
			p.ev = merged
		} else {
			delete(c.pending, ev.Path)
		}
	} else {
		c.seq++
		c.pending[ev.Path] = &pendingPath{ev: ev, first: ev.Op, seq: c.seq}
	}

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.window, c.flush)
}

// combine folds next into the pending event for a path whose first op in
// this window was first. keep is false when the two cancel out.
//
//	created  + modified      = created
//	created  + removed/moved = nothing
//	removed  + created       = modified (the file was replaced)
//	anything else            = the later event
func combine(first Op, prev, next Event) (Event, bool) {
	switch first {
	case Created:
		switch next.Op {
		case Modified:
			prev.At = next.At
			return prev, true
		case Removed, Moved:
			return Event{}, false
		}
	case Removed, Moved:
		if next.Op == Created || next.Op == Modified {
			next.Op = Modified
			return next, true
		}
	}
	return next, true
}

func (c *coalescer) flush() {
	c.mu.Lock()
	if c.stopped || len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	ordered := make([]*pendingPath, 0, len(c.pending))
	for _, p := range c.pending {
		ordered = append(ordered, p)
	}
	c.pending = make(map[string]*pendingPath)
	c.mu.Unlock()

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })
	batch := make([]Event, len(ordered))
	for i, p := range ordered {
		batch[i] = p.ev
	}
	c.deliver(batch)
}

func (c *coalescer) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
	}
}
