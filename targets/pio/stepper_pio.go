//go:build rp2040

// Package pio generates axis step pulses with an RP2040 PIO state machine,
// so the pulse width does not depend on the real-time loop's timing.
package pio

import (
	"machine"
	"time"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// The state machine runs at 1 MHz so one delay cycle is one microsecond.
const smFrequency = 1000000

// maxPulseCycles is the longest pulse one SET instruction can hold
const maxPulseCycles = 32

const stepperPIOOrigin = 0

// buildStepperProgram emits one pulse per FIFO word. Bit 0 of the word is
// the direction level.
//
//	pull block
//	out pins, 1            ; direction
//	set pins, on [width-1] ; step asserted
//	set pins, off
func buildStepperProgram(cycles uint8, invertStep bool) []uint16 {
	on, off := uint8(1), uint8(0)
	if invertStep {
		on, off = off, on
	}
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		asm.Pull(false, true).Encode(),
		asm.Out(rp2pio.OutDestPins, 1).Encode(),
		asm.Set(rp2pio.SetDestPins, on).Delay(cycles - 1).Encode(),
		asm.Set(rp2pio.SetDestPins, off).Encode(),
	}
}

// Backend implements core.StepperBackend on a PIO state machine
type Backend struct {
	pio        *rp2pio.PIO
	sm         rp2pio.StateMachine
	stepPin    machine.Pin
	dirPin     machine.Pin
	pulse      time.Duration
	invertStep bool
	invertDir  bool
	down       bool
}

// NewBackend claims a free state machine on PIO0 or PIO1. It returns false
// when none is left.
func NewBackend(pulse time.Duration) (*Backend, bool) {
	for _, block := range []*rp2pio.PIO{rp2pio.PIO0, rp2pio.PIO1} {
		for smNum := uint8(0); smNum < 4; smNum++ {
			sm := block.StateMachine(smNum)
			if sm.TryClaim() {
				return &Backend{pio: block, sm: sm, pulse: pulse}, true
			}
		}
	}
	return nil, false
}

// pulseCycles converts the pulse width to state machine cycles
func pulseCycles(pulse time.Duration) uint8 {
	cycles := pulse / (time.Second / smFrequency)
	switch {
	case cycles < 1:
		return 1
	case cycles > maxPulseCycles:
		return maxPulseCycles
	}
	return uint8(cycles)
}

// Init loads the program and hands both pins to the state machine
func (b *Backend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	b.stepPin = machine.Pin(stepPin)
	b.dirPin = machine.Pin(dirPin)
	b.invertStep = invertStep
	b.invertDir = invertDir

	program := buildStepperProgram(pulseCycles(b.pulse), invertStep)
	offset, err := b.pio.AddProgram(program, stepperPIOOrigin)
	if err != nil {
		return err
	}

	b.stepPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})
	b.dirPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(b.stepPin, 1)
	cfg.SetOutPins(b.dirPin, 1)
	// Shift right, explicit PULL
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(uint16(machine.CPUFrequency()/smFrequency), 0)

	// Pin directions must be set after Init
	b.sm.Init(offset, cfg)
	b.sm.SetPindirsConsecutive(b.stepPin, 1, true)
	b.sm.SetPindirsConsecutive(b.dirPin, 1, true)
	b.sm.SetPinsConsecutive(b.stepPin, 1, invertStep)
	b.sm.SetPinsConsecutive(b.dirPin, 1, invertDir)

	b.sm.SetEnabled(true)
	return nil
}

// Step queues one pulse with the current direction. It only blocks while
// the FIFO is full.
func (b *Backend) Step() {
	var cmd uint32
	if b.down != b.invertDir {
		cmd = 1
	}
	for b.sm.IsTxFIFOFull() {
	}
	b.sm.TxPut(cmd)
}

// SetDirection sets the direction used by the following steps
func (b *Backend) SetDirection(down bool) {
	b.down = down
}

// Stop drops queued pulses and restarts the program
func (b *Backend) Stop() {
	b.sm.SetEnabled(false)
	b.sm.ClearFIFOs()
	b.sm.Restart()
	b.sm.SetEnabled(true)
}

// GetName returns the backend name
func (b *Backend) GetName() string {
	return "PIO"
}
