package core

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockoutWithoutVictimIsNoop(t *testing.T) {
	l := NewLockout()
	l.Acquire()
	assert.Equal(t, LockoutRunning, l.State())
	l.Release()
	assert.False(t, l.Checkpoint())
}

func TestLockoutCheckpointWithoutRequest(t *testing.T) {
	l := NewLockout()
	l.RegisterVictim()
	assert.False(t, l.Checkpoint())
	assert.Equal(t, LockoutRunning, l.State())
}

func TestLockoutRendezvous(t *testing.T) {
	l := NewLockout()
	l.RegisterVictim()

	var (
		iterations atomic.Int64
		parks      atomic.Int64
		stop       atomic.Bool
		done       = make(chan struct{})
	)
	go func() {
		defer close(done)
		for !stop.Load() {
			if l.Checkpoint() {
				parks.Add(1)
				continue
			}
			iterations.Add(1)
			spinYield()
		}
	}()

	for i := 0; i < 20; i++ {
		l.Acquire()
		require.Equal(t, LockoutParked, l.State(), "acquire must return only once the victim is parked")

		// While parked the victim makes no progress.
		before := iterations.Load()
		time.Sleep(2 * time.Millisecond)
		require.Equal(t, before, iterations.Load(), "victim ran during the lockout window")

		l.Release()
		require.Equal(t, LockoutRunning, l.State())
	}

	stop.Store(true)
	<-done
	assert.Equal(t, int64(20), parks.Load())
}

func TestLockoutDoubleAcquirePanics(t *testing.T) {
	l := NewLockout()
	l.RegisterVictim()
	atomic.StoreUint32(&l.state, uint32(LockoutRequested))
	assert.Panics(t, func() { l.Acquire() })
}

func TestParkVictimHoldsUntilRelease(t *testing.T) {
	state := uint32(LockoutRequested)
	returned := make(chan struct{})
	go func() {
		parkVictim(&state)
		close(returned)
	}()

	for atomic.LoadUint32(&state) != uint32(LockoutParked) {
		spinYield()
	}
	select {
	case <-returned:
		t.Fatal("victim left before release")
	case <-time.After(2 * time.Millisecond):
	}

	require.True(t, atomic.CompareAndSwapUint32(&state, uint32(LockoutParked), uint32(LockoutRunning)))
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("victim still parked after release")
	}
}
