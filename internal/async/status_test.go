package async

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracker_StartsIdle(t *testing.T) {
	tr := NewTracker()

	snap := tr.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.Serving)
	assert.Zero(t, snap.VersionSeq)
}

func TestTracker_Lifecycle(t *testing.T) {
	// Given: a fresh tracker
	tr := NewTracker()

	// When: a build scans, indexes and publishes
	tr.SetScanning()
	assert.Equal(t, StateScanning, tr.State())

	tr.SetIndexing(5, 20)
	snap := tr.Snapshot()
	assert.Equal(t, StateIndexing, snap.State)
	assert.Equal(t, 5, snap.Current)
	assert.Equal(t, 20, snap.Total)
	assert.InDelta(t, 25.0, snap.ProgressPct, 0.001)

	tr.SetReady(20, 1)

	// Then: the snapshot reports the published version
	snap = tr.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, 20, snap.Current)
	assert.Equal(t, 20, snap.DocumentCount)
	assert.Equal(t, uint64(1), snap.VersionSeq)
	assert.True(t, snap.Serving)
}

func TestTracker_ErrorKeepsServingFlag(t *testing.T) {
	// Given: a tracker with a published version
	tr := NewTracker()
	tr.SetReady(3, 1)

	// When: a later build fails
	tr.SetScanning()
	tr.SetError(errors.New("corpus root missing"))

	// Then: the error is exposed and the old version is still serving
	snap := tr.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, "corpus root missing", snap.LastError)
	assert.True(t, snap.Serving)
	assert.Equal(t, uint64(1), snap.VersionSeq)

	// And: the next successful build clears it
	tr.SetReady(4, 2)
	assert.Empty(t, tr.Snapshot().LastError)
}

func TestTracker_ScanningIsReentrant(t *testing.T) {
	tr := NewTracker()
	tr.SetScanning()
	tr.SetIndexing(1, 10)
	time.Sleep(10 * time.Millisecond)

	// When: a corpus change re-enters scanning mid-build
	tr.SetScanning()

	// Then: elapsed time still counts from the original start
	snap := tr.Snapshot()
	assert.Equal(t, StateScanning, snap.State)
	assert.GreaterOrEqual(t, snap.Elapsed, 10*time.Millisecond)
	assert.Zero(t, snap.Total)
}

func TestTracker_Subscribe(t *testing.T) {
	// Given: a subscriber
	tr := NewTracker()
	ch, cancel := tr.Subscribe()
	defer cancel()

	// Then: it receives the current state first
	first := <-ch
	assert.Equal(t, StateIdle, first.State)

	// When: the state changes
	tr.SetScanning()
	tr.SetIndexing(1, 2)
	tr.SetReady(2, 1)

	// Then: every transition is delivered in order
	var states []State
	for i := 0; i < 3; i++ {
		select {
		case s := <-ch:
			states = append(states, s.State)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for status")
		}
	}
	assert.Equal(t, []State{StateScanning, StateIndexing, StateReady}, states)
}

func TestTracker_Subscribe_SlowConsumerSeesLatest(t *testing.T) {
	tr := NewTracker()
	ch, cancel := tr.Subscribe()
	defer cancel()

	// When: far more updates than the buffer holds arrive unread
	for i := 0; i < subscriberBuffer*2; i++ {
		tr.SetIndexing(i, subscriberBuffer*2)
	}
	tr.SetReady(1, 7)

	// Then: the newest snapshot is the last one buffered
	var last StatusSnapshot
	for len(ch) > 0 {
		last = <-ch
	}
	assert.Equal(t, StateReady, last.State)
	assert.Equal(t, uint64(7), last.VersionSeq)
}

func TestTracker_Unsubscribe_ClosesChannel(t *testing.T) {
	tr := NewTracker()
	ch, cancel := tr.Subscribe()
	<-ch

	cancel()
	cancel()
	tr.SetScanning()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestTracker_ThreadSafe(t *testing.T) {
	tr := NewTracker()
	ch, cancel := tr.Subscribe()
	defer cancel()
	go func() {
		for range ch {
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.SetIndexing(j, 100)
				_ = tr.Snapshot()
			}
			tr.SetReady(i, uint64(i))
		}(i)
	}
	wg.Wait()

	require.Equal(t, StateReady, tr.State())
}
