package corpus

import (
	"context"
	"fmt"
	"sort"
	"sync"

	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
)

// MemorySource is an in-memory Source for embedding and tests.
// Put and Delete are delivered to watchers in call order.
type MemorySource struct {
	mu       sync.Mutex
	docs     map[string]*Document
	failure  error
	watchers []*changeQueue
}

var (
	_ Source    = (*MemorySource)(nil)
	_ Watchable = (*MemorySource)(nil)
)

// NewMemorySource returns a source holding docs.
func NewMemorySource(docs ...*Document) *MemorySource {
	m := &MemorySource{docs: make(map[string]*Document, len(docs))}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return m
}

// List returns every document ordered by ID.
func (m *MemorySource) List(ctx context.Context) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failure != nil {
		return nil, meeterrors.CorpusUnavailableError("memory", m.failure)
	}
	out := make([]*Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Load returns one document.
func (m *MemorySource) Load(_ context.Context, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[id]
	if !ok {
		return nil, meeterrors.DocumentReadError(id, fmt.Errorf("not found"))
	}
	return d, nil
}

// Put adds or replaces a document.
func (m *MemorySource) Put(doc *Document) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kind := ChangeAdded
	if _, ok := m.docs[doc.ID]; ok {
		kind = ChangeModified
	}
	m.docs[doc.ID] = doc
	m.publish(Change{Kind: kind, ID: doc.ID, Document: doc})
}

// Delete removes a document. Deleting an unknown ID is a no-op.
func (m *MemorySource) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return
	}
	delete(m.docs, id)
	m.publish(Change{Kind: ChangeRemoved, ID: id})
}

// SetFailure makes List fail as if the corpus root were unreachable.
// A nil error restores normal operation.
func (m *MemorySource) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// Len returns the number of documents.
func (m *MemorySource) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// Watch streams every later Put and Delete until ctx ends.
func (m *MemorySource) Watch(ctx context.Context) (<-chan []Change, error) {
	q := newChangeQueue()

	m.mu.Lock()
	m.watchers = append(m.watchers, q)
	m.mu.Unlock()

	out := make(chan []Change)
	go func() {
		defer close(out)
		defer m.unwatch(q)
		for {
			batch, ok := q.next(ctx)
			if !ok {
				return
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// publish must be called with m.mu held.
func (m *MemorySource) publish(c Change) {
	for _, q := range m.watchers {
		q.push(c)
	}
}

func (m *MemorySource) unwatch(q *changeQueue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.watchers {
		if w == q {
			m.watchers = append(m.watchers[:i], m.watchers[i+1:]...)
			return
		}
	}
}

// changeQueue is an unbounded FIFO so publishers never block.
type changeQueue struct {
	mu      sync.Mutex
	pending []Change
	signal  chan struct{}
}

func newChangeQueue() *changeQueue {
	return &changeQueue{signal: make(chan struct{}, 1)}
}

func (q *changeQueue) push(c Change) {
	q.mu.Lock()
	q.pending = append(q.pending, c)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// next blocks until changes are pending and returns all of them.
func (q *changeQueue) next(ctx context.Context) ([]Change, bool) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			batch := q.pending
			q.pending = nil
			q.mu.Unlock()
			return batch, true
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-ctx.Done():
			return nil, false
		}
	}
}
