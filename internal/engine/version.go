package engine

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aman-CERP/meetprep/internal/index"
	"github.com/Aman-CERP/meetprep/internal/match"
)

// slot is one of the two token indexes the worker alternates between.
// Only the worker goroutine touches entries or mutates idx.
type slot struct {
	name    string
	idx     index.TokenIndex
	entries map[string]*match.Entry

	// retired is the last version published from this slot. The slot may
	// only be mutated once it has drained.
	retired *Version
}

// Version is an immutable, published snapshot: one token index plus the
// documents it was built from.
type Version struct {
	seq     uint64
	slot    *slot
	idx     index.TokenIndex
	entries map[string]*match.Entry
	ids     []string
	builtAt time.Time

	refs        atomic.Int64
	retiredFlag atomic.Bool
	drained     chan struct{}
	drainOnce   sync.Once
}

func newVersion(seq uint64, s *slot, builtAt time.Time) *Version {
	entries := make(map[string]*match.Entry, len(s.entries))
	ids := make([]string, 0, len(s.entries))
	for id, e := range s.entries {
		entries[id] = e
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &Version{
		seq:     seq,
		slot:    s,
		idx:     s.idx,
		entries: entries,
		ids:     ids,
		builtAt: builtAt,
		drained: make(chan struct{}),
	}
}

// Seq is the version sequence number, starting at 1.
func (v *Version) Seq() uint64 { return v.seq }

// Len is the number of documents in the version.
func (v *Version) Len() int { return len(v.ids) }

// BuiltAt is when the version was published.
func (v *Version) BuiltAt() time.Time { return v.builtAt }

// release drops a reference taken by Manager.acquire.
func (v *Version) release() {
	if v.refs.Add(-1) == 0 && v.retiredFlag.Load() {
		v.markDrained()
	}
}

// retire marks the version as replaced. drained closes once every reader
// has released it.
func (v *Version) retire() {
	v.retiredFlag.Store(true)
	if v.refs.Load() == 0 {
		v.markDrained()
	}
}

func (v *Version) markDrained() {
	v.drainOnce.Do(func() { close(v.drained) })
}
