package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemGPIORejectsWriteToInput(t *testing.T) {
	g := NewMemGPIO()
	require.NoError(t, g.ConfigureInputPullUp(5))
	assert.True(t, g.ReadPin(5))
	assert.ErrorIs(t, g.SetPin(5, false), ErrPinNotOutput)

	g.Drive(5, false)
	assert.False(t, g.ReadPin(5))
}

func TestMemGPIOCountsRisingEdges(t *testing.T) {
	g := NewMemGPIO()
	require.NoError(t, g.ConfigureOutput(1))
	for _, v := range []bool{true, true, false, true, false, false, true} {
		require.NoError(t, g.SetPin(1, v))
	}
	assert.Equal(t, 3, g.RisingEdges(1))
}

func TestGPIOStepperInvertedLines(t *testing.T) {
	g := NewMemGPIO()
	clock := &ManualClock{}
	s := NewGPIOStepper(g, clock, 5*time.Microsecond)
	require.NoError(t, s.Init(2, 3, true, true))
	assert.True(t, g.ReadPin(2), "inverted step idles high")
	assert.True(t, g.ReadPin(3))

	s.SetDirection(true)
	assert.False(t, g.ReadPin(3))

	s.Step()
	s.Step()
	assert.True(t, g.ReadPin(2))
	assert.Equal(t, uint64(2), s.Steps())
	assert.Equal(t, 10*time.Microsecond, clock.Now())
	assert.Equal(t, "GPIO", s.GetName())
}

func TestConfigureMicrostep(t *testing.T) {
	pins := StepperPins{Step: 2, Dir: 3, Enable: NoPin, MS1: 4, MS2: 5, MS3: 6}
	for rate, want := range map[uint16][3]bool{
		1:  {false, false, false},
		2:  {true, false, false},
		4:  {false, true, false},
		8:  {true, true, false},
		16: {true, true, true},
	} {
		g := NewMemGPIO()
		require.NoError(t, ConfigureMicrostep(g, pins, rate))
		got := [3]bool{g.ReadPin(4), g.ReadPin(5), g.ReadPin(6)}
		assert.Equal(t, want, got, "rate %d", rate)
	}

	assert.ErrorIs(t, ConfigureMicrostep(NewMemGPIO(), pins, 32), ErrUnsupportedMicrostep)
}

func TestConfigureMicrostepSkipsUnwiredPins(t *testing.T) {
	g := NewMemGPIO()
	pins := StepperPins{MS1: 4, MS2: NoPin, MS3: NoPin}
	require.NoError(t, ConfigureMicrostep(g, pins, 16))
	assert.True(t, g.ReadPin(4))
}

func TestEnableStepperActiveLow(t *testing.T) {
	g := NewMemGPIO()
	pins := StepperPins{Enable: 8}
	require.NoError(t, EnableStepper(g, pins, true))
	assert.False(t, g.ReadPin(8))
	require.NoError(t, EnableStepper(g, pins, false))
	assert.True(t, g.ReadPin(8))

	assert.NoError(t, EnableStepper(g, StepperPins{Enable: NoPin}, true))
}

type fakePWM struct {
	period  map[PWMPin]int64
	duty    map[PWMPin]PWMValue
	enabled map[PWMPin]bool
}

func newFakePWM() *fakePWM {
	return &fakePWM{
		period:  make(map[PWMPin]int64),
		duty:    make(map[PWMPin]PWMValue),
		enabled: make(map[PWMPin]bool),
	}
}

func (p *fakePWM) ConfigurePWM(pin PWMPin, period time.Duration) error {
	p.period[pin] = int64(period)
	p.enabled[pin] = true
	return nil
}

func (p *fakePWM) SetDutyCycle(pin PWMPin, value PWMValue) error {
	p.duty[pin] = value
	return nil
}

func (p *fakePWM) GetMaxValue() uint32 { return 1000 }

func (p *fakePWM) DisablePWM(pin PWMPin) error {
	p.enabled[pin] = false
	p.duty[pin] = 0
	return nil
}

func TestPWMSparkTiming(t *testing.T) {
	pwm := newFakePWM()
	spark := NewPWMSpark(pwm, 15)

	require.NoError(t, spark.Enable(MachineParameters{OnMicros: 50, OffMicros: 200}))
	assert.True(t, pwm.enabled[15])
	assert.Equal(t, int64(250*time.Microsecond), pwm.period[15])
	assert.Equal(t, PWMValue(200), pwm.duty[15])

	require.NoError(t, spark.Disable())
	assert.False(t, pwm.enabled[15])
}
