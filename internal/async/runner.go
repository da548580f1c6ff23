package async

import (
	"context"
	"sync"
)

// RunFunc is the long-running work hosted by a Runner.
type RunFunc func(ctx context.Context, tracker *Tracker) error

// Runner runs a RunFunc in a background goroutine with lifecycle control.
type Runner struct {
	tracker *Tracker
	fn      RunFunc

	stopCh chan struct{}
	doneCh chan struct{}

	mu       sync.Mutex
	started  bool
	running  bool
	stopOnce sync.Once
	err      error
}

// NewRunner creates a runner reporting to tracker.
func NewRunner(tracker *Tracker, fn RunFunc) *Runner {
	return &Runner{
		tracker: tracker,
		fn:      fn,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Tracker returns the status tracker for this runner.
func (r *Runner) Tracker() *Tracker {
	return r.tracker
}

// IsRunning returns true while the RunFunc has not returned.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start launches the RunFunc. It is non-blocking and only starts once.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.running = true
	r.mu.Unlock()

	go r.run(ctx)
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.doneCh)
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	// merged context that respects both parent and Stop
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if r.fn == nil {
		return
	}
	if err := r.fn(ctx, r.tracker); err != nil && ctx.Err() == nil {
		r.tracker.SetError(err)
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
	}
}

// Stop signals the RunFunc to stop and waits for it to return.
// Safe to call multiple times and before Start.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })

	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if started {
		<-r.doneCh
	}
}

// Wait blocks until the RunFunc returns and reports its error.
func (r *Runner) Wait() error {
	<-r.doneCh
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
