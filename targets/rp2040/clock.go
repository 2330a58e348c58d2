//go:build rp2040

package main

import (
	"runtime/volatile"
	"time"
	"unsafe"
)

// RP2040 timer peripheral, a free-running 64-bit microsecond counter
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24 // Raw timer high word
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// Sleeps shorter than this busy-wait on the hardware counter instead of
// going through the scheduler.
const spinThreshold = time.Millisecond

// hwClock implements core.Clock on the hardware timer. It is safe to use
// from both cores.
type hwClock struct{}

// uptime reads the full 64-bit counter
func uptime() uint64 {
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()

		// Retry if the low word rolled over during the read
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

func (hwClock) Now() time.Duration {
	return time.Duration(uptime()) * time.Microsecond
}

func (c hwClock) Sleep(d time.Duration) {
	if d >= spinThreshold {
		time.Sleep(d)
		return
	}
	end := uptime() + uint64(d/time.Microsecond)
	for uptime() < end {
	}
}
