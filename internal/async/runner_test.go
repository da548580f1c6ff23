package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Start_RunsInGoroutine(t *testing.T) {
	// Given: a runner with a quick task
	var started atomic.Bool
	r := NewRunner(NewTracker(), func(ctx context.Context, tr *Tracker) error {
		started.Store(true)
		tr.SetReady(0, 1)
		return nil
	})

	// When: starting it
	r.Start(context.Background())

	// Then: it completes in the background
	require.NoError(t, r.Wait())
	assert.True(t, started.Load())
	assert.False(t, r.IsRunning())
	assert.Equal(t, StateReady, r.Tracker().State())
}

func TestRunner_Stop_CancelsContext(t *testing.T) {
	// Given: a runner blocked until cancelled
	r := NewRunner(NewTracker(), func(ctx context.Context, _ *Tracker) error {
		<-ctx.Done()
		return ctx.Err()
	})
	r.Start(context.Background())
	assert.True(t, r.IsRunning())

	// When: stopping
	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	// Then: Stop returns and cancellation is not recorded as an error
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	assert.NoError(t, r.Wait())
	assert.Equal(t, StateIdle, r.Tracker().State())
}

func TestRunner_ParentContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(NewTracker(), func(ctx context.Context, _ *Tracker) error {
		<-ctx.Done()
		return nil
	})
	r.Start(ctx)
	cancel()

	select {
	case <-waitChan(r):
	case <-time.After(time.Second):
		t.Fatal("runner did not exit after parent cancel")
	}
}

func TestRunner_Error_SetsTracker(t *testing.T) {
	r := NewRunner(NewTracker(), func(context.Context, *Tracker) error {
		return errors.New("boom")
	})
	r.Start(context.Background())

	err := r.Wait()
	require.EqualError(t, err, "boom")
	snap := r.Tracker().Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, "boom", snap.LastError)
}

func TestRunner_Start_Idempotent(t *testing.T) {
	var runs atomic.Int32
	release := make(chan struct{})
	r := NewRunner(NewTracker(), func(context.Context, *Tracker) error {
		runs.Add(1)
		<-release
		return nil
	})

	r.Start(context.Background())
	r.Start(context.Background())
	close(release)
	require.NoError(t, r.Wait())

	assert.Equal(t, int32(1), runs.Load())
}

func TestRunner_StopBeforeStart(t *testing.T) {
	r := NewRunner(NewTracker(), nil)
	r.Stop()
	r.Stop()
	assert.False(t, r.IsRunning())
}

func waitChan(r *Runner) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		_ = r.Wait()
		close(ch)
	}()
	return ch
}
