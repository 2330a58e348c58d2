package core

import "time"

// Button is one of the four logical operator buttons.
type Button uint8

const (
	ButtonUp Button = iota
	ButtonDown
	ButtonNext
	ButtonPrev
)

func (b Button) String() string {
	switch b {
	case ButtonUp:
		return "up"
	case ButtonDown:
		return "down"
	case ButtonNext:
		return "next"
	case ButtonPrev:
		return "prev"
	}
	return "button(" + itoa(int(b)) + ")"
}

// ButtonEvent is a debounced press or release edge from the GPIO layer.
type ButtonEvent struct {
	Button  Button
	Pressed bool
}

// ButtonIntent tracks a held button and synthesizes repeat ticks for it.
// The first tick fires as soon as the button is pressed, the second after
// the initial delay, then one per repeat interval until release.
type ButtonIntent struct {
	held       bool
	suppressed bool
	repeats    uint32
	next       time.Duration
}

// Set records a press or release edge at time now.
func (b *ButtonIntent) Set(pressed bool, now time.Duration) {
	if pressed == b.held {
		return
	}
	b.held = pressed
	b.suppressed = false
	b.repeats = 0
	b.next = now
}

// Held reports whether the button is currently down.
func (b *ButtonIntent) Held() bool {
	return b.held
}

// Active reports whether the button is held and not suppressed.
func (b *ButtonIntent) Active() bool {
	return b.held && !b.suppressed
}

// Reset forgets the button, as if it was released.
func (b *ButtonIntent) Reset() {
	*b = ButtonIntent{}
}

// Suppress stops a held button from producing ticks until it is released
// and pressed again. Held is unaffected.
func (b *ButtonIntent) Suppress() {
	if b.held {
		b.suppressed = true
	}
}

// TryUse consumes one tick if one is due.
func (b *ButtonIntent) TryUse(now, delay, interval time.Duration) bool {
	if !b.held || b.suppressed || now < b.next {
		return false
	}
	step := interval
	if b.repeats == 0 {
		step = delay
	}
	// Ticks that were not consumed (the button was held on a screen that
	// does not use it) are dropped rather than delivered as a burst.
	if now-b.next >= step {
		b.next = now
	}
	b.next += step
	b.repeats++
	return true
}

// DebounceTimeout is how long a level must be stable before it is reported.
const DebounceTimeout = 10 * time.Millisecond

// ButtonDebouncer turns raw button levels into press and release edges. A
// change is reported once the new level has been stable for the timeout.
type ButtonDebouncer struct {
	timeout  time.Duration
	pressed  [4]bool
	pending  [4]bool
	changeAt [4]time.Duration
}

// NewButtonDebouncer returns a debouncer with every button released.
func NewButtonDebouncer(timeout time.Duration) *ButtonDebouncer {
	return &ButtonDebouncer{timeout: timeout}
}

// Sample feeds the raw level of b at time now and reports an edge when one
// becomes stable.
func (d *ButtonDebouncer) Sample(b Button, pressed bool, now time.Duration) (ButtonEvent, bool) {
	if pressed != d.pending[b] {
		d.pending[b] = pressed
		d.changeAt[b] = now
	}
	if d.pending[b] == d.pressed[b] || now-d.changeAt[b] < d.timeout {
		return ButtonEvent{}, false
	}
	d.pressed[b] = d.pending[b]
	return ButtonEvent{Button: b, Pressed: d.pressed[b]}, true
}

// PollButtons samples the button inputs (active low, pulled up) every
// period and sends debounced edges to events. It never returns.
func PollButtons(gpio GPIODriver, pins [4]GPIOPin, clock Clock, period time.Duration, events chan<- ButtonEvent) {
	d := NewButtonDebouncer(DebounceTimeout)
	for {
		now := clock.Now()
		for b, pin := range pins {
			if ev, ok := d.Sample(Button(b), !gpio.ReadPin(pin), now); ok {
				events <- ev
			}
		}
		clock.Sleep(period)
	}
}
