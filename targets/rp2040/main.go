//go:build rp2040

package main

import (
	_ "embed"
	"errors"
	"machine"
	"time"

	"tinygo.org/x/drivers/ssd1306"

	"sparkedm/config"
	"sparkedm/core"
	"sparkedm/display"
	"sparkedm/targets/pio"
)

var (
	errInvalidPin       = errors.New("rp2040: no such gpio")
	errPWMNotConfigured = errors.New("rp2040: pwm pin not configured")
)

// machineConfig is the wiring and tuning of this build
//
//go:embed config.json
var machineConfig []byte

// buttonPollPeriod is the raw button sampling period on core 0
const buttonPollPeriod = time.Millisecond

func main() {
	// Clear any watchdog state left from before the reset
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	core.SetDebugWriter(USBPrintln)
	core.SetDebugEnabled(true)
	core.InitAsyncDebug()

	cfg, err := config.Load(machineConfig)
	must(err)
	clock := hwClock{}
	timing := cfg.CoreTiming()

	gpioDriver := NewRPGPIODriver()
	pwmDriver := NewRP2040PWMDriver()

	buttons := cfg.ButtonPins()
	for _, pin := range buttons {
		must(gpioDriver.ConfigureInputPullUp(pin))
	}
	sparkPin := cfg.Pin(cfg.Pins.Sparking)
	must(gpioDriver.ConfigureInputPullDown(sparkPin))

	var burnDone func() bool
	if contact := cfg.Pin(cfg.Pins.Contact); contact != core.NoPin {
		must(gpioDriver.ConfigureInputPullUp(contact))
		burnDone = func() bool { return !gpioDriver.ReadPin(contact) }
	}

	state := core.NewSharedControlState()
	lockout := core.NewLockout()

	store, err := core.NewSettingsStore(machine.Flash, cfg.StoreLayout(), lockout)
	must(err)

	// Stepper driver lines
	pins := cfg.StepperPins()
	must(core.ConfigureMicrostep(gpioDriver, pins, cfg.Microstep))
	must(core.EnableStepper(gpioDriver, pins, true))
	stepper := newStepper(gpioDriver, clock, timing)
	must(stepper.Init(uint8(pins.Step), uint8(pins.Dir), cfg.Pins.InvertStep, cfg.Pins.InvertDir))
	core.DebugPrintln("[RT] stepper backend " + stepper.GetName())

	var spark core.SparkOutput
	if pin := cfg.Pin(cfg.Pins.SparkPWM); pin != core.NoPin {
		spark = core.NewPWMSpark(pwmDriver, core.PWMPin(pin))
	}

	renderer := newDisplay(cfg)

	events := make(chan core.ButtonEvent, 8)
	ui := core.NewInteractiveLoop(core.InteractiveConfig{
		State:    state,
		Store:    store,
		Clock:    clock,
		Timing:   timing,
		Limits:   cfg.ParameterLimits(),
		Renderer: renderer,
		Events:   events,
	})
	if err := ui.Boot(); err != nil {
		core.DebugPrintln("[SETTINGS] load failed: " + err.Error())
	}

	rt := core.NewRealTimeLoop(core.RealTimeConfig{
		State:    state,
		GPIO:     gpioDriver,
		SparkPin: sparkPin,
		Stepper:  stepper,
		Lockout:  lockout,
		Clock:    clock,
		Timing:   timing,
		Spark:    spark,
		BurnDone: burnDone,
	})
	machine.Core1.Start(rt.Run)

	go core.PollButtons(gpioDriver, buttons, clock, buttonPollPeriod, events)
	ui.Run()
}

// newStepper prefers a PIO state machine and falls back to GPIO writes
func newStepper(gpio core.GPIODriver, clock core.Clock, timing core.Timing) core.StepperBackend {
	if b, ok := pio.NewBackend(timing.StepPulse); ok {
		return b
	}
	return core.NewGPIOStepper(gpio, clock, timing.StepPulse)
}

// newDisplay brings up the SSD1306. A missing panel is logged and the
// machine runs headless.
func newDisplay(cfg *config.Config) core.Renderer {
	dc := cfg.Display
	bus := machine.I2C1
	err := bus.Configure(machine.I2CConfig{
		SDA:       machine.Pin(cfg.Pin(dc.SDA)),
		SCL:       machine.Pin(cfg.Pin(dc.SCL)),
		Frequency: dc.I2CKHz * 1000,
	})
	if err != nil {
		core.DebugPrintln("[UI] i2c: " + err.Error())
		return nil
	}
	dev := ssd1306.NewI2C(bus)
	dev.Configure(ssd1306.Config{
		Width:   dc.Width,
		Height:  dc.Height,
		Address: dc.Address,
	})
	dev.ClearDisplay()
	return display.New(&dev)
}

func must(err error) {
	if err != nil {
		core.DebugPrintln("[BOOT] " + err.Error())
		panic(err)
	}
}
