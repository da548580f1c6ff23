// Package async tracks the observable state of background index builds and
// hosts the goroutine that runs them.
package async

import (
	"sync"
	"time"
)

// State is the lifecycle state of the index.
type State string

const (
	// StateIdle means no build has started yet.
	StateIdle State = "idle"
	// StateScanning means the corpus is being enumerated or a change is being merged.
	StateScanning State = "scanning"
	// StateIndexing means documents are being written to the standby index.
	StateIndexing State = "indexing"
	// StateReady means the latest requested corpus state is published.
	StateReady State = "ready"
	// StateError means the last build failed systemically. A previously
	// published version may still be serving.
	StateError State = "error"
)

// StatusSnapshot is an immutable copy of the tracker state.
type StatusSnapshot struct {
	State         State         `json:"state"`
	Current       int           `json:"current"`
	Total         int           `json:"total"`
	ProgressPct   float64       `json:"progress_pct"`
	LastError     string        `json:"last_error,omitempty"`
	DocumentCount int           `json:"document_count"`
	VersionSeq    uint64        `json:"version_seq"`
	Serving       bool          `json:"serving"`
	Elapsed       time.Duration `json:"elapsed_ns"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// subscriberBuffer bounds each subscriber channel. When full, the oldest
// snapshot is dropped so the newest state is always delivered.
const subscriberBuffer = 64

// Tracker provides thread-safe tracking of the index lifecycle.
type Tracker struct {
	mu sync.RWMutex

	state         State
	current       int
	total         int
	lastError     string
	documentCount int
	versionSeq    uint64
	serving       bool
	buildStart    time.Time
	lastBuild     time.Duration
	updatedAt     time.Time

	subs map[int]chan StatusSnapshot
	next int
}

// NewTracker creates a tracker in the idle state.
func NewTracker() *Tracker {
	return &Tracker{
		state:     StateIdle,
		updatedAt: time.Now(),
		subs:      make(map[int]chan StatusSnapshot),
	}
}

// SetScanning enters the scanning state. Re-entrant: a scan during an
// in-flight build keeps the original build start time.
func (t *Tracker) SetScanning() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateScanning && t.state != StateIndexing {
		t.buildStart = time.Now()
	}
	t.state = StateScanning
	t.current = 0
	t.total = 0
	t.changed()
}

// SetIndexing reports batch progress on the standby index.
func (t *Tracker) SetIndexing(current, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.buildStart.IsZero() {
		t.buildStart = time.Now()
	}
	t.state = StateIndexing
	t.current = current
	t.total = total
	t.changed()
}

// SetReady records a published version.
func (t *Tracker) SetReady(documentCount int, versionSeq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = StateReady
	t.current = t.total
	t.documentCount = documentCount
	t.versionSeq = versionSeq
	t.serving = true
	t.lastError = ""
	if !t.buildStart.IsZero() {
		t.lastBuild = time.Since(t.buildStart)
	}
	t.buildStart = time.Time{}
	t.changed()
}

// SetError marks the build as failed. The serving flag is left alone so
// consumers can tell stale-but-available from never-built.
func (t *Tracker) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = StateError
	if err != nil {
		t.lastError = err.Error()
	}
	if !t.buildStart.IsZero() {
		t.lastBuild = time.Since(t.buildStart)
	}
	t.buildStart = time.Time{}
	t.changed()
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Snapshot returns an immutable copy of the current state.
func (t *Tracker) Snapshot() StatusSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() StatusSnapshot {
	var pct float64
	if t.total > 0 {
		pct = float64(t.current) / float64(t.total) * 100.0
	}
	elapsed := t.lastBuild
	if !t.buildStart.IsZero() {
		elapsed = time.Since(t.buildStart)
	}

	return StatusSnapshot{
		State:         t.state,
		Current:       t.current,
		Total:         t.total,
		ProgressPct:   pct,
		LastError:     t.lastError,
		DocumentCount: t.documentCount,
		VersionSeq:    t.versionSeq,
		Serving:       t.serving,
		Elapsed:       elapsed,
		UpdatedAt:     t.updatedAt,
	}
}

// Subscribe returns a channel receiving a snapshot after every change,
// starting with the current one, and a function that ends the subscription.
func (t *Tracker) Subscribe() (<-chan StatusSnapshot, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan StatusSnapshot, subscriberBuffer)
	id := t.next
	t.next++
	t.subs[id] = ch
	ch <- t.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			close(ch)
		})
	}
}

// changed must be called with t.mu held for writing.
func (t *Tracker) changed() {
	t.updatedAt = time.Now()
	if len(t.subs) == 0 {
		return
	}
	snap := t.snapshotLocked()
	for _, ch := range t.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
