package core

import (
	"errors"
	"sync"
)

var ErrPinNotOutput = errors.New("gpio: pin is not configured as output")

// MemGPIO is a GPIODriver backed by memory, used by the simulator and tests.
// Inputs are driven with Drive; rising edges are counted per output pin.
type MemGPIO struct {
	mu      sync.Mutex
	levels  map[GPIOPin]bool
	outputs map[GPIOPin]bool
	rising  map[GPIOPin]int
}

// NewMemGPIO returns a driver with every pin low and unconfigured.
func NewMemGPIO() *MemGPIO {
	return &MemGPIO{
		levels:  make(map[GPIOPin]bool),
		outputs: make(map[GPIOPin]bool),
		rising:  make(map[GPIOPin]int),
	}
}

func (g *MemGPIO) ConfigureOutput(pin GPIOPin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outputs[pin] = true
	return nil
}

func (g *MemGPIO) ConfigureInputPullUp(pin GPIOPin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outputs[pin] = false
	g.levels[pin] = true
	return nil
}

func (g *MemGPIO) ConfigureInputPullDown(pin GPIOPin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outputs[pin] = false
	g.levels[pin] = false
	return nil
}

func (g *MemGPIO) SetPin(pin GPIOPin, value bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.outputs[pin] {
		return ErrPinNotOutput
	}
	if value && !g.levels[pin] {
		g.rising[pin]++
	}
	g.levels[pin] = value
	return nil
}

func (g *MemGPIO) ReadPin(pin GPIOPin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.levels[pin]
}

// Drive sets the level of an input pin from outside.
func (g *MemGPIO) Drive(pin GPIOPin, value bool) {
	g.mu.Lock()
	g.levels[pin] = value
	g.mu.Unlock()
}

// RisingEdges returns how many low-to-high transitions an output made.
func (g *MemGPIO) RisingEdges(pin GPIOPin) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rising[pin]
}
