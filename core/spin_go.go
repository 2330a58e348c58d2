//go:build !tinygo

package core

import (
	"runtime"
	"sync/atomic"
)

// spinYield gives other goroutines a chance to run while spinning on an
// atomic flag.
func spinYield() {
	runtime.Gosched()
}

// parkVictim acknowledges a requested lockout and waits for the release.
// Only the victim moves the state from Requested to Parked.
func parkVictim(state *uint32) {
	atomic.StoreUint32(state, uint32(LockoutParked))
	for atomic.LoadUint32(state) == uint32(LockoutParked) {
		spinYield()
	}
}
