// Package config loads the machine description: pin assignment, loop
// timing, settings store layout, parameter limits and display wiring.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sparkedm/core"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Config is the JSON machine description.
type Config struct {
	Pins      PinConfig      `json:"pins"`
	Timing    TimingConfig   `json:"timing"`
	Settings  SettingsConfig `json:"settings"`
	Limits    LimitsConfig   `json:"limits"`
	Microstep uint16         `json:"microstep"`
	Display   DisplayConfig  `json:"display"`
}

// PinConfig names GPIOs as "gpioN". Optional pins may be left empty.
type PinConfig struct {
	Up       string `json:"up"`
	Down     string `json:"down"`
	Next     string `json:"next"`
	Prev     string `json:"prev"`
	Sparking string `json:"sparking"`
	Contact  string `json:"contact,omitempty"`
	Step     string `json:"step"`
	Dir      string `json:"dir"`
	Enable   string `json:"enable,omitempty"`
	MS1      string `json:"ms1,omitempty"`
	MS2      string `json:"ms2,omitempty"`
	MS3      string `json:"ms3,omitempty"`
	SparkPWM string `json:"spark_pwm,omitempty"`

	InvertStep bool `json:"invert_step,omitempty"`
	InvertDir  bool `json:"invert_dir,omitempty"`
}

type TimingConfig struct {
	StepPulseUs   uint32 `json:"step_pulse_us"`
	StepSpacingUs uint32 `json:"step_spacing_us"`
	RTIdleMs      uint32 `json:"rt_idle_ms"`
	RTBusyMs      uint32 `json:"rt_busy_ms"`
	UIPeriodMs    uint32 `json:"ui_period_ms"`
	RepeatMs      uint32 `json:"repeat_ms"`
	RepeatDelayMs uint32 `json:"repeat_delay_ms"`
}

type SettingsConfig struct {
	BaseOffset  int64  `json:"base_offset"`
	SlotSize    int64  `json:"slot_size"`
	Slots       int    `json:"slots"`
	RotateEvery uint32 `json:"rotate_every"`
	SaveDelayMs uint32 `json:"save_delay_ms"`
}

// RangeConfig is an inclusive editing range with its increment.
type RangeConfig struct {
	Min  uint16 `json:"min"`
	Max  uint16 `json:"max"`
	Step uint16 `json:"step"`
}

type LimitsConfig struct {
	TimeOn  RangeConfig `json:"ton"`
	TimeOff RangeConfig `json:"toff"`
}

// DisplayConfig wires the SSD1306 panel.
type DisplayConfig struct {
	SDA     string `json:"sda"`
	SCL     string `json:"scl"`
	Address uint16 `json:"address"`
	Width   int16  `json:"width"`
	Height  int16  `json:"height"`
	I2CKHz  uint32 `json:"i2c_khz"`
}

// Load parses a JSON configuration, fills in defaults and validates it.
func Load(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in missing values with the ones the machine was built with
func applyDefaults(cfg *Config) {
	def := Default()

	p, dp := &cfg.Pins, def.Pins
	orDefault(&p.Up, dp.Up)
	orDefault(&p.Down, dp.Down)
	orDefault(&p.Next, dp.Next)
	orDefault(&p.Prev, dp.Prev)
	orDefault(&p.Sparking, dp.Sparking)
	orDefault(&p.Step, dp.Step)
	orDefault(&p.Dir, dp.Dir)

	t, dt := &cfg.Timing, def.Timing
	orDefault(&t.StepPulseUs, dt.StepPulseUs)
	orDefault(&t.StepSpacingUs, dt.StepSpacingUs)
	orDefault(&t.RTIdleMs, dt.RTIdleMs)
	orDefault(&t.RTBusyMs, dt.RTBusyMs)
	orDefault(&t.UIPeriodMs, dt.UIPeriodMs)
	orDefault(&t.RepeatMs, dt.RepeatMs)
	orDefault(&t.RepeatDelayMs, dt.RepeatDelayMs)

	s, ds := &cfg.Settings, def.Settings
	orDefault(&s.SlotSize, ds.SlotSize)
	orDefault(&s.Slots, ds.Slots)
	orDefault(&s.RotateEvery, ds.RotateEvery)
	orDefault(&s.SaveDelayMs, ds.SaveDelayMs)

	orDefault(&cfg.Limits.TimeOn, def.Limits.TimeOn)
	orDefault(&cfg.Limits.TimeOff, def.Limits.TimeOff)
	orDefault(&cfg.Microstep, def.Microstep)

	d, dd := &cfg.Display, def.Display
	orDefault(&d.SDA, dd.SDA)
	orDefault(&d.SCL, dd.SCL)
	orDefault(&d.Address, dd.Address)
	orDefault(&d.Width, dd.Width)
	orDefault(&d.Height, dd.Height)
	orDefault(&d.I2CKHz, dd.I2CKHz)
}

func orDefault[T comparable](dst *T, def T) {
	var zero T
	if *dst == zero {
		*dst = def
	}
}

// Default returns the configuration of the reference machine.
func Default() *Config {
	return &Config{
		Pins: PinConfig{
			Up:       "gpio16",
			Down:     "gpio17",
			Next:     "gpio18",
			Prev:     "gpio19",
			Sparking: "gpio20",
			Step:     "gpio2",
			Dir:      "gpio3",
			Enable:   "gpio4",
			MS1:      "gpio10",
			MS2:      "gpio11",
			MS3:      "gpio12",
			SparkPWM: "gpio15",
		},
		Timing: TimingConfig{
			StepPulseUs:   10,
			StepSpacingUs: 200,
			RTIdleMs:      5,
			RTBusyMs:      10,
			UIPeriodMs:    20,
			RepeatMs:      150,
			RepeatDelayMs: 150,
		},
		Settings: SettingsConfig{
			BaseOffset:  0,
			SlotSize:    4096,
			Slots:       10,
			RotateEvery: 5000,
			SaveDelayMs: 5000,
		},
		Limits: LimitsConfig{
			TimeOn:  RangeConfig{Min: 10, Max: 200, Step: 10},
			TimeOff: RangeConfig{Min: 50, Max: 500, Step: 25},
		},
		Microstep: 8,
		Display: DisplayConfig{
			SDA:     "gpio6",
			SCL:     "gpio7",
			Address: 0x3C,
			Width:   128,
			Height:  32,
			I2CKHz:  1000,
		},
	}
}

// Validate checks ranges and pin names.
func (c *Config) Validate() error {
	for name, r := range map[string]RangeConfig{"ton": c.Limits.TimeOn, "toff": c.Limits.TimeOff} {
		if r.Step == 0 || r.Min > r.Max || (r.Max-r.Min)%r.Step != 0 {
			return fmt.Errorf("%w: %s range %d..%d step %d", ErrInvalidConfig, name, r.Min, r.Max, r.Step)
		}
	}

	switch c.Microstep {
	case 1, 2, 4, 8, 16:
	default:
		return fmt.Errorf("%w: microstep %d", ErrInvalidConfig, c.Microstep)
	}

	if c.Settings.Slots <= 0 || c.Settings.RotateEvery == 0 || c.Settings.SlotSize <= 0 {
		return fmt.Errorf("%w: settings layout %+v", ErrInvalidConfig, c.Settings)
	}
	if need := core.MaxRecordSize(); c.Settings.SlotSize < need {
		return fmt.Errorf("%w: slot size %d is smaller than a record (%d bytes)",
			ErrInvalidConfig, c.Settings.SlotSize, need)
	}

	pins := c.Pins
	required := map[string]string{
		"up": pins.Up, "down": pins.Down, "next": pins.Next, "prev": pins.Prev,
		"sparking": pins.Sparking, "step": pins.Step, "dir": pins.Dir,
		"sda": c.Display.SDA, "scl": c.Display.SCL,
	}
	optional := map[string]string{
		"contact": pins.Contact, "enable": pins.Enable, "spark_pwm": pins.SparkPWM,
		"ms1": pins.MS1, "ms2": pins.MS2, "ms3": pins.MS3,
	}
	used := make(map[core.GPIOPin]string)
	check := func(name, value string, opt bool) error {
		pin, err := ParsePin(value)
		if err != nil {
			return fmt.Errorf("%w: pin %s: %v", ErrInvalidConfig, name, err)
		}
		if pin == core.NoPin {
			if !opt {
				return fmt.Errorf("%w: pin %s is required", ErrInvalidConfig, name)
			}
			return nil
		}
		if other, dup := used[pin]; dup {
			return fmt.Errorf("%w: %s shares gpio%d with %s", ErrInvalidConfig, name, pin, other)
		}
		used[pin] = name
		return nil
	}
	for name, v := range required {
		if err := check(name, v, false); err != nil {
			return err
		}
	}
	for name, v := range optional {
		if err := check(name, v, true); err != nil {
			return err
		}
	}
	return nil
}

// ParsePin converts "gpioN" to a pin number. An empty name is core.NoPin.
func ParsePin(name string) (core.GPIOPin, error) {
	if name == "" {
		return core.NoPin, nil
	}
	num, ok := strings.CutPrefix(strings.ToLower(name), "gpio")
	if !ok {
		return core.NoPin, fmt.Errorf("%q is not a gpio name", name)
	}
	n, err := strconv.ParseUint(num, 10, 8)
	if err != nil || n > 29 {
		return core.NoPin, fmt.Errorf("%q is not a valid gpio", name)
	}
	return core.GPIOPin(n), nil
}

// mustPin is only used on validated configs.
func mustPin(name string) core.GPIOPin {
	pin, err := ParsePin(name)
	if err != nil {
		panic(err)
	}
	return pin
}

// CoreTiming converts the timing section.
func (c *Config) CoreTiming() core.Timing {
	t := c.Timing
	return core.Timing{
		StepPulse:      time.Duration(t.StepPulseUs) * time.Microsecond,
		StepSpacing:    time.Duration(t.StepSpacingUs) * time.Microsecond,
		RTIdle:         time.Duration(t.RTIdleMs) * time.Millisecond,
		RTBusy:         time.Duration(t.RTBusyMs) * time.Millisecond,
		UIPeriod:       time.Duration(t.UIPeriodMs) * time.Millisecond,
		RepeatDelay:    time.Duration(t.RepeatDelayMs) * time.Millisecond,
		RepeatInterval: time.Duration(t.RepeatMs) * time.Millisecond,
	}
}

// StoreLayout converts the settings section.
func (c *Config) StoreLayout() core.StoreLayout {
	s := c.Settings
	return core.StoreLayout{
		BaseOffset:  s.BaseOffset,
		SlotSize:    s.SlotSize,
		Slots:       s.Slots,
		RotateEvery: s.RotateEvery,
		SaveDelay:   time.Duration(s.SaveDelayMs) * time.Millisecond,
	}
}

// ParameterLimits converts the limits section.
func (c *Config) ParameterLimits() core.ParameterLimits {
	conv := func(r RangeConfig) core.Limits {
		return core.Limits{Min: r.Min, Max: r.Max, Step: r.Step}
	}
	return core.ParameterLimits{TimeOn: conv(c.Limits.TimeOn), TimeOff: conv(c.Limits.TimeOff)}
}

// StepperPins returns the axis driver lines.
func (c *Config) StepperPins() core.StepperPins {
	p := c.Pins
	return core.StepperPins{
		Step:   mustPin(p.Step),
		Dir:    mustPin(p.Dir),
		Enable: mustPin(p.Enable),
		MS1:    mustPin(p.MS1),
		MS2:    mustPin(p.MS2),
		MS3:    mustPin(p.MS3),
	}
}

// ButtonPins returns the input pins indexed by core.Button.
func (c *Config) ButtonPins() [4]core.GPIOPin {
	p := c.Pins
	var pins [4]core.GPIOPin
	pins[core.ButtonUp] = mustPin(p.Up)
	pins[core.ButtonDown] = mustPin(p.Down)
	pins[core.ButtonNext] = mustPin(p.Next)
	pins[core.ButtonPrev] = mustPin(p.Prev)
	return pins
}

// Pin resolves a validated pin name, core.NoPin when unwired.
func (c *Config) Pin(name string) core.GPIOPin {
	return mustPin(name)
}
