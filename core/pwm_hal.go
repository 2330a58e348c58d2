package core

import "time"

// PWMPin identifies a hardware pin capable of PWM output
type PWMPin uint32

// PWMValue is the duty cycle value (0 to GetMaxValue)
type PWMValue uint32

// PWMDriver is the abstract PWM interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type PWMDriver interface {
	// ConfigurePWM configures a pin for hardware PWM output with the given period
	ConfigurePWM(pin PWMPin, period time.Duration) error

	// SetDutyCycle sets the PWM duty cycle for a pin
	// value: 0 (fully off) to GetMaxValue() (fully on)
	SetDutyCycle(pin PWMPin, value PWMValue) error

	// GetMaxValue returns the maximum PWM value (e.g., 255 for 8-bit)
	GetMaxValue() uint32

	// DisablePWM stops PWM output on a pin, leaving it low
	DisablePWM(pin PWMPin) error
}
