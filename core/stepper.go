package core

// Axis stepper output: a portable GPIO step backend, A4988 microstep
// selection and the spark pulse output.

import (
	"errors"
	"time"
)

var ErrUnsupportedMicrostep = errors.New("stepper: unsupported microstep rate")

// StepperPins are the driver control lines of the axis.
type StepperPins struct {
	Step   GPIOPin
	Dir    GPIOPin
	Enable GPIOPin // NoPin when the driver is always enabled
	MS1    GPIOPin
	MS2    GPIOPin
	MS3    GPIOPin
}

// GPIOStepper implements StepperBackend with direct GPIO writes. The step
// line is held high for the pulse width using the loop clock.
type GPIOStepper struct {
	gpio       GPIODriver
	clock      Clock
	pulse      time.Duration
	stepPin    GPIOPin
	dirPin     GPIOPin
	invertStep bool
	invertDir  bool
	down       bool
	steps      uint64
}

// NewGPIOStepper creates a GPIO-based stepper backend
func NewGPIOStepper(gpio GPIODriver, clock Clock, pulse time.Duration) *GPIOStepper {
	return &GPIOStepper{gpio: gpio, clock: clock, pulse: pulse}
}

// Init configures the step and direction pins as outputs
func (s *GPIOStepper) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	s.stepPin = GPIOPin(stepPin)
	s.dirPin = GPIOPin(dirPin)
	s.invertStep = invertStep
	s.invertDir = invertDir

	if err := s.gpio.ConfigureOutput(s.stepPin); err != nil {
		return err
	}
	if err := s.gpio.ConfigureOutput(s.dirPin); err != nil {
		return err
	}
	s.Stop()
	s.SetDirection(s.down)
	return nil
}

// Step asserts the step line for the pulse width
func (s *GPIOStepper) Step() {
	s.gpio.SetPin(s.stepPin, !s.invertStep)
	s.clock.Sleep(s.pulse)
	s.gpio.SetPin(s.stepPin, s.invertStep)
	s.steps++
}

// SetDirection sets the direction output
func (s *GPIOStepper) SetDirection(down bool) {
	s.down = down
	s.gpio.SetPin(s.dirPin, down != s.invertDir)
}

// Stop leaves the step line idle
func (s *GPIOStepper) Stop() {
	s.gpio.SetPin(s.stepPin, s.invertStep)
}

// GetName returns the backend name
func (s *GPIOStepper) GetName() string {
	return "GPIO"
}

// Steps returns the number of pulses emitted
func (s *GPIOStepper) Steps() uint64 {
	return s.steps
}

// ConfigureMicrostep drives the A4988 MS1..MS3 lines for the given rate.
func ConfigureMicrostep(gpio GPIODriver, pins StepperPins, rate uint16) error {
	var ms1, ms2, ms3 bool
	switch rate {
	case 1:
	case 2:
		ms1 = true
	case 4:
		ms2 = true
	case 8:
		ms1, ms2 = true, true
	case 16:
		ms1, ms2, ms3 = true, true, true
	default:
		return ErrUnsupportedMicrostep
	}

	for _, p := range []struct {
		pin GPIOPin
		val bool
	}{{pins.MS1, ms1}, {pins.MS2, ms2}, {pins.MS3, ms3}} {
		if p.pin == NoPin {
			continue
		}
		if err := gpio.ConfigureOutput(p.pin); err != nil {
			return err
		}
		if err := gpio.SetPin(p.pin, p.val); err != nil {
			return err
		}
	}
	return nil
}

// EnableStepper asserts the (active low) driver enable line if one is wired.
func EnableStepper(gpio GPIODriver, pins StepperPins, enabled bool) error {
	if pins.Enable == NoPin {
		return nil
	}
	if err := gpio.ConfigureOutput(pins.Enable); err != nil {
		return err
	}
	return gpio.SetPin(pins.Enable, !enabled)
}

// SparkOutput gates the spark pulse generator.
type SparkOutput interface {
	Enable(p MachineParameters) error
	Disable() error
}

// PWMSpark generates the spark pulse train on a PWM pin: the period is
// on+off time and the duty cycle on/(on+off).
type PWMSpark struct {
	pwm PWMDriver
	pin PWMPin
}

// NewPWMSpark returns a spark output on pin.
func NewPWMSpark(pwm PWMDriver, pin PWMPin) *PWMSpark {
	return &PWMSpark{pwm: pwm, pin: pin}
}

// Enable starts pulsing with the timing of p
func (s *PWMSpark) Enable(p MachineParameters) error {
	period := uint32(p.OnMicros) + uint32(p.OffMicros)
	if period == 0 {
		return s.Disable()
	}
	if err := s.pwm.ConfigurePWM(s.pin, time.Duration(period)*time.Microsecond); err != nil {
		return err
	}
	duty := uint32(p.OnMicros) * s.pwm.GetMaxValue() / period
	return s.pwm.SetDutyCycle(s.pin, PWMValue(duty))
}

// Disable stops pulsing
func (s *PWMSpark) Disable() error {
	return s.pwm.DisablePWM(s.pin)
}
