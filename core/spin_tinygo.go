//go:build tinygo

package core

import "runtime/volatile"

// spinYield is a plain busy-wait on target. The spinning side of a lockout
// may run with interrupts masked, so it must not enter the scheduler.
func spinYield() {
}

// parkVictim acknowledges a requested lockout and waits for the release.
// It is placed in RAM and uses only volatile loads and stores, so the parked
// core fetches nothing from flash while the other core erases and programs
// it. Only the victim moves the state from Requested to Parked.
//
//go:section .ramfuncs
//go:noinline
func parkVictim(state *uint32) {
	volatile.StoreUint32(state, uint32(LockoutParked))
	for volatile.LoadUint32(state) == uint32(LockoutParked) {
	}
}
