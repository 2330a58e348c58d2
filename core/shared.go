package core

import (
	"sync"
	"sync/atomic"
)

// SharedControlState is the data exchanged between the interactive context
// and the real-time context. Every field has its own atomic or lock-guarded
// access path; nothing is observable half-written.
//
// Writers:
//   - mode: either context, serialized through Dispatch (compare-and-swap)
//   - params, targetDepth, moveDown, motion: interactive context
//   - sparking: real-time context
//
// The rezero choice is part of the mode word, so it is published in the
// same store that enters Burn.
type SharedControlState struct {
	mode        atomic.Uint32
	targetDepth atomic.Uint32
	moveDown    atomic.Bool
	motion      atomic.Bool
	sparking    atomic.Bool

	mu     sync.Mutex
	params MachineParameters
}

// NewSharedControlState returns a state in Jog with default parameters.
func NewSharedControlState() *SharedControlState {
	s := &SharedControlState{}
	s.mode.Store(ModeJog.pack() | rezeroFlag)
	s.moveDown.Store(true)
	s.SetParams(DefaultParameters())
	return s
}

// rezeroFlag marks a mode word whose burn was confirmed with Up.
const rezeroFlag uint32 = 1 << 16

// Mode returns the active operating mode.
func (s *SharedControlState) Mode() Mode {
	return unpackMode(s.mode.Load() &^ rezeroFlag)
}

// ModeAndRezero returns the mode and the rezero choice from a single load.
func (s *SharedControlState) ModeAndRezero() (Mode, bool) {
	v := s.mode.Load()
	return unpackMode(v &^ rezeroFlag), v&rezeroFlag != 0
}

// Dispatch feeds ev to the state machine and stores the resulting mode.
// Concurrent dispatches from both contexts are serialized; none is lost.
// It returns the mode after the event and whether it changed.
func (s *SharedControlState) Dispatch(ev Event) (Mode, bool) {
	for {
		cur := s.mode.Load()
		from := unpackMode(cur &^ rezeroFlag)
		to := Apply(from, ev)
		if to == from {
			return from, false
		}
		next := to.pack() | cur&rezeroFlag
		switch ev {
		case EventConfirmUp:
			next |= rezeroFlag
		case EventConfirmDown:
			next &^= rezeroFlag
		}
		if !s.mode.CompareAndSwap(cur, next) {
			continue
		}

		if from == ModeJog {
			s.motion.Store(false)
		}
		RecordEvent(EvtModeChange, uint32(ev), from.pack(), to.pack())
		return to, true
	}
}

// SetMotion publishes the jog intent. Motion is only recorded while in Jog.
func (s *SharedControlState) SetMotion(requested, down bool) {
	s.moveDown.Store(down)
	s.motion.Store(requested && s.Mode() == ModeJog)
}

// MotionRequested reports whether the axis should step. It is false in every
// mode other than Jog.
func (s *SharedControlState) MotionRequested() bool {
	return s.motion.Load() && s.Mode() == ModeJog
}

// MoveDown returns the requested jog direction.
func (s *SharedControlState) MoveDown() bool {
	return s.moveDown.Load()
}

// setSparking records the latest spark sensor level.
func (s *SharedControlState) setSparking(v bool) {
	s.sparking.Store(v)
}

// Sparking returns the last spark sensor level seen by the real-time context.
func (s *SharedControlState) Sparking() bool {
	return s.sparking.Load()
}

// RezeroOnBurnStart reports the choice made when confirming PreBurn.
func (s *SharedControlState) RezeroOnBurnStart() bool {
	return s.mode.Load()&rezeroFlag != 0
}

// TargetDepth returns the depth composed from the current digits.
func (s *SharedControlState) TargetDepth() Depth {
	return Depth(s.targetDepth.Load())
}

// Params returns a copy of the current parameters.
func (s *SharedControlState) Params() MachineParameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// SetParams replaces the parameters, used at boot after loading settings.
func (s *SharedControlState) SetParams(p MachineParameters) {
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
	s.targetDepth.Store(uint32(p.TargetDepth()))
}

// UpdateParams runs edit on the parameters under the lock and republishes
// the target depth. It returns what edit returned.
func (s *SharedControlState) UpdateParams(edit func(p *MachineParameters) bool) bool {
	s.mu.Lock()
	changed := edit(&s.params)
	depth := s.params.TargetDepth()
	s.mu.Unlock()
	if changed {
		s.targetDepth.Store(uint32(depth))
	}
	return changed
}
