//go:build rp2040

package main

import (
	"machine"
	"time"

	"sparkedm/core"
)

// pwmMax is the duty cycle resolution exposed to core
const pwmMax = 1000

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
	SetPeriod(period uint64) error
}

// RP2040PWMDriver implements core.PWMDriver on the 8 PWM slices.
// GPIO N belongs to slice (N>>1)&7, channel A for even pins and B for odd.
type RP2040PWMDriver struct {
	// Configured period per slice in nanoseconds
	slices map[uint8]uint64

	// Pin to channel mapping
	channels map[uint32]uint8
}

// NewRP2040PWMDriver creates a new RP2040 PWM driver
func NewRP2040PWMDriver() *RP2040PWMDriver {
	return &RP2040PWMDriver{
		slices:   make(map[uint8]uint64),
		channels: make(map[uint32]uint8),
	}
}

// GetMaxValue returns the full-on duty value
func (d *RP2040PWMDriver) GetMaxValue() uint32 {
	return pwmMax
}

// ConfigurePWM routes pin to its slice and sets the slice period. Both
// channels of a slice share the period.
func (d *RP2040PWMDriver) ConfigurePWM(pin core.PWMPin, period time.Duration) error {
	pinNum := uint32(pin)
	sliceNum := uint8((pinNum >> 1) & 0x7)
	pwm := slicePeripheral(sliceNum)
	ns := uint64(period.Nanoseconds())

	if existing, ok := d.slices[sliceNum]; ok {
		if existing != ns {
			if err := pwm.SetPeriod(ns); err != nil {
				return err
			}
			d.slices[sliceNum] = ns
		}
	} else {
		if err := pwm.Configure(machine.PWMConfig{Period: ns}); err != nil {
			return err
		}
		d.slices[sliceNum] = ns
	}

	channel, err := pwm.Channel(machine.Pin(pinNum))
	if err != nil {
		return err
	}
	d.channels[pinNum] = channel
	pwm.Set(channel, 0)
	return nil
}

// SetDutyCycle sets the duty from 0 (off) to pwmMax (fully on)
func (d *RP2040PWMDriver) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	pinNum := uint32(pin)
	channel, exists := d.channels[pinNum]
	if !exists {
		return errPWMNotConfigured
	}
	pwm := slicePeripheral(uint8((pinNum >> 1) & 0x7))

	// Scale to the hardware counter, 64-bit to avoid overflow
	duty := uint64(value) * uint64(pwm.Top()) / pwmMax
	pwm.Set(channel, uint32(duty))
	return nil
}

// DisablePWM holds the output low and forgets the channel
func (d *RP2040PWMDriver) DisablePWM(pin core.PWMPin) error {
	pinNum := uint32(pin)
	channel, exists := d.channels[pinNum]
	if !exists {
		return nil
	}
	// TinyGo has no way to release the pin from the slice; duty 0 keeps it low
	slicePeripheral(uint8((pinNum >> 1) & 0x7)).Set(channel, 0)
	delete(d.channels, pinNum)
	return nil
}

// slicePeripheral returns PWM0..PWM7
func slicePeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	case 7:
		return machine.PWM7
	}
	return machine.PWM0
}
