//go:build rp2040

package main

import (
	"machine"

	"sparkedm/core"
)

// RPGPIODriver implements core.GPIODriver with TinyGo's machine.Pin
type RPGPIODriver struct {
	// Configured pins, keyed by GPIO number
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

func (d *RPGPIODriver) configure(pin core.GPIOPin, mode machine.PinMode) error {
	if _, exists := d.configuredPins[pin]; exists {
		return nil
	}
	if pin > 29 {
		return errInvalidPin
	}
	// RP2040 pins map directly to GPIO numbers
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: mode})
	d.configuredPins[pin] = machinePin
	return nil
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinOutput)
}

func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPullup)
}

func (d *RPGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPulldown)
}

// SetPin drives a configured output
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return core.ErrPinNotOutput
	}
	machinePin.Set(value)
	return nil
}

// ReadPin samples a pin. Unconfigured pins read low.
func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return false
	}
	return machinePin.Get()
}
