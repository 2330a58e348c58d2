//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks interrupts on the calling core and returns the
// previous state. Nothing running under it may touch flash-resident handlers.
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
