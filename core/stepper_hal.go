package core

// StepperBackend defines the hardware abstraction for the axis stepper driver.
// Implementations can use GPIO, PIO, or other methods.
type StepperBackend interface {
	// Init initializes the stepper hardware
	// stepPin: GPIO pin for step pulses
	// dirPin: GPIO pin for direction signal
	// invertStep: invert step pin polarity
	// invertDir: invert direction pin polarity
	Init(stepPin, dirPin uint8, invertStep, invertDir bool) error

	// Step generates a single step pulse.
	// The pulse is asserted for the backend's configured width before returning.
	Step()

	// SetDirection sets the direction output
	// down: true moves the electrode toward the workpiece
	SetDirection(down bool)

	// Stop returns the step line to idle
	Stop()

	// GetName returns backend implementation name
	GetName() string
}
