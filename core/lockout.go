package core

import "sync/atomic"

// LockoutState is the phase of the flash-write rendezvous.
type LockoutState uint32

const (
	// LockoutRunning: the victim context executes normally.
	LockoutRunning LockoutState = iota
	// LockoutRequested: the writer asked the victim to park and is waiting.
	LockoutRequested
	// LockoutParked: the victim acknowledged and is spinning until release.
	LockoutParked
)

func (s LockoutState) String() string {
	switch s {
	case LockoutRunning:
		return "running"
	case LockoutRequested:
		return "requested"
	case LockoutParked:
		return "parked"
	}
	return "lockout(" + itoa(int(s)) + ")"
}

// Lockout parks the real-time context while the other context erases and
// programs flash. The handshake has three steps:
//
//	writer: Acquire  -> Requested, then wait for Parked
//	victim: Checkpoint observes Requested -> Parked, then wait for Running
//	writer: Release  -> Running
//
// Acquire only returns once the victim is parked, and the victim only
// leaves Checkpoint after Release. Before a victim registers there is nobody
// to park and Acquire/Release do nothing.
type Lockout struct {
	state   uint32 // LockoutState, shared with the parked context
	victim  atomic.Bool
	engaged atomic.Bool
}

// NewLockout returns a lockout with no registered victim.
func NewLockout() *Lockout {
	return &Lockout{}
}

// RegisterVictim marks the calling context as the one to park. It must be
// called by the victim before it starts calling Checkpoint.
func (l *Lockout) RegisterVictim() {
	l.victim.Store(true)
}

// State returns the current handshake phase.
func (l *Lockout) State() LockoutState {
	return LockoutState(atomic.LoadUint32(&l.state))
}

// Acquire blocks until the victim is parked.
func (l *Lockout) Acquire() {
	if !l.victim.Load() {
		return
	}
	if !atomic.CompareAndSwapUint32(&l.state, uint32(LockoutRunning), uint32(LockoutRequested)) {
		panic("lockout: acquire while already held")
	}
	l.engaged.Store(true)
	for l.State() != LockoutParked {
		spinYield()
	}
	RecordEvent(EvtLockout, uint32(LockoutParked), 0, 0)
}

// Release lets the parked victim resume.
func (l *Lockout) Release() {
	if !l.engaged.Load() {
		return
	}
	l.engaged.Store(false)
	if !atomic.CompareAndSwapUint32(&l.state, uint32(LockoutParked), uint32(LockoutRunning)) {
		panic("lockout: release without a parked victim")
	}
	RecordEvent(EvtLockout, uint32(LockoutRunning), 0, 0)
}

// Checkpoint is called by the victim once per loop iteration. If a lockout
// is pending it masks interrupts, acknowledges, spins until released and
// returns true. The acknowledgement and the spin both happen inside
// parkVictim, which on target executes from RAM.
func (l *Lockout) Checkpoint() bool {
	if l.State() != LockoutRequested {
		return false
	}
	state := disableInterrupts()
	parkVictim(&l.state)
	restoreInterrupts(state)
	return true
}
