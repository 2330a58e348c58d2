package core

import (
	"sync"
	"time"
)

// Clock is the monotonic time source of a control loop. Now is measured from
// boot; Sleep suspends the calling context.
type Clock interface {
	Now() time.Duration
	Sleep(d time.Duration)
}

// ManualClock is a simulated clock: Sleep advances time instead of blocking.
// It is safe for use from several goroutines.
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

// Now returns the simulated time
func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the simulated time by d
func (c *ManualClock) Sleep(d time.Duration) {
	c.Advance(d)
}

// Advance moves the simulated time forward by d
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// Timing holds the fixed cadences of both control loops.
type Timing struct {
	StepPulse      time.Duration // step line assert time
	StepSpacing    time.Duration // minimum gap after each step pulse
	RTIdle         time.Duration // real-time sleep in Jog without motion
	RTBusy         time.Duration // real-time sleep in the other modes
	UIPeriod       time.Duration // interactive loop period
	RepeatDelay    time.Duration // held button: first to second tick
	RepeatInterval time.Duration // held button: later ticks
}

// DefaultTiming returns the cadences the machine was tuned with.
func DefaultTiming() Timing {
	return Timing{
		StepPulse:      10 * time.Microsecond,
		StepSpacing:    200 * time.Microsecond,
		RTIdle:         5 * time.Millisecond,
		RTBusy:         10 * time.Millisecond,
		UIPeriod:       20 * time.Millisecond,
		RepeatDelay:    150 * time.Millisecond,
		RepeatInterval: 150 * time.Millisecond,
	}
}
