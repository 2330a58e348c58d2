// Package sim runs the control core against simulated hardware, driven by
// a timed scenario. Both loops run in one goroutine on separate simulated
// clocks, so a scenario always produces the same report.
package sim

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sparkedm/config"
	"sparkedm/core"
)

var ErrInvalidScenario = errors.New("sim: invalid scenario")

// flashBlockSize is the erase unit of the simulated flash, as on the RP2040.
const flashBlockSize = 4096

// Scenario is the YAML description of a run.
type Scenario struct {
	Duration    time.Duration `yaml:"duration"`
	SaveDelay   time.Duration `yaml:"save_delay,omitempty"`
	Slots       int           `yaml:"slots,omitempty"`
	RotateEvery uint32        `yaml:"rotate_every,omitempty"`
	Events      []Event       `yaml:"events"`
}

// Event is one scheduled input. Exactly one action field is set.
type Event struct {
	At       time.Duration `yaml:"at"`
	Press    string        `yaml:"press,omitempty"`
	Release  string        `yaml:"release,omitempty"`
	Spark    *bool         `yaml:"spark,omitempty"`
	BurnDone *bool         `yaml:"burn_done,omitempty"`
}

// LoadScenario parses and checks a scenario. Events are ordered by time.
func LoadScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if sc.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidScenario)
	}
	for i, ev := range sc.Events {
		actions := 0
		for _, name := range []string{ev.Press, ev.Release} {
			if name == "" {
				continue
			}
			actions++
			if _, err := parseButton(name); err != nil {
				return nil, fmt.Errorf("%w: event %d: %v", ErrInvalidScenario, i, err)
			}
		}
		if ev.Spark != nil {
			actions++
		}
		if ev.BurnDone != nil {
			actions++
		}
		if actions != 1 {
			return nil, fmt.Errorf("%w: event %d must have exactly one action", ErrInvalidScenario, i)
		}
	}
	sort.SliceStable(sc.Events, func(i, j int) bool { return sc.Events[i].At < sc.Events[j].At })
	return &sc, nil
}

func parseButton(name string) (core.Button, error) {
	switch strings.ToLower(name) {
	case "up":
		return core.ButtonUp, nil
	case "down":
		return core.ButtonDown, nil
	case "next":
		return core.ButtonNext, nil
	case "prev":
		return core.ButtonPrev, nil
	}
	return 0, fmt.Errorf("unknown button %q", name)
}

// Transition is a mode change seen during the run.
type Transition struct {
	At       time.Duration
	From, To core.Mode
}

// Commit is a settings write attempt.
type Commit struct {
	At  time.Duration
	Seq uint32
	Err error
}

// Report is what a run produced.
type Report struct {
	Transitions []Transition
	Commits     []Commit
	Mode        core.Mode
	Params      core.MachineParameters
	Position    int64
	Steps       uint64
	Screen      [3]string // title, value, detail
	// Reloaded is what a fresh boot loads from the simulated flash.
	Reloaded core.MachineParameters
}

// screen captures the last rendered view
type screen struct {
	view core.View
}

func (s *screen) Render(v core.View) error {
	s.view = v
	return nil
}

// Run executes sc on the machine described by cfg and reports the outcome.
// A nil cfg runs the default machine. Scenario settings override the
// configured store layout.
func Run(sc *Scenario, cfg *config.Config) (*Report, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	layout := cfg.StoreLayout()
	if sc.Slots > 0 {
		layout.Slots = sc.Slots
	}
	if sc.RotateEvery > 0 {
		layout.RotateEvery = sc.RotateEvery
	}
	if sc.SaveDelay > 0 {
		layout.SaveDelay = sc.SaveDelay
	}
	timing := cfg.CoreTiming()
	pins := cfg.StepperPins()
	sparkPin := cfg.Pin(cfg.Pins.Sparking)

	end := layout.BaseOffset + int64(layout.Slots)*layout.SlotSize
	flash := core.NewMemFlash(flashBlockSize, int((end+flashBlockSize-1)/flashBlockSize))
	// No victim registers: both loops share this goroutine.
	lockout := core.NewLockout()
	store, err := core.NewSettingsStore(flash, layout, lockout)
	if err != nil {
		return nil, err
	}

	uiClock, rtClock := &core.ManualClock{}, &core.ManualClock{}
	gpio := core.NewMemGPIO()
	if err := gpio.ConfigureInputPullDown(sparkPin); err != nil {
		return nil, err
	}
	stepper := core.NewGPIOStepper(gpio, rtClock, timing.StepPulse)
	if err := stepper.Init(uint8(pins.Step), uint8(pins.Dir), cfg.Pins.InvertStep, cfg.Pins.InvertDir); err != nil {
		return nil, err
	}

	state := core.NewSharedControlState()
	scr := &screen{}
	ui := core.NewInteractiveLoop(core.InteractiveConfig{
		State:    state,
		Store:    store,
		Clock:    uiClock,
		Timing:   timing,
		Limits:   cfg.ParameterLimits(),
		Renderer: scr,
	})
	if err := ui.Boot(); err != nil {
		return nil, err
	}

	burnDone := false
	rt := core.NewRealTimeLoop(core.RealTimeConfig{
		State:    state,
		GPIO:     gpio,
		SparkPin: sparkPin,
		Stepper:  stepper,
		Lockout:  lockout,
		Clock:    rtClock,
		Timing:   timing,
		BurnDone: func() bool { return burnDone },
	})

	report := &Report{}
	last := state.Mode()
	observe := func(at time.Duration) {
		if mode := state.Mode(); mode != last {
			report.Transitions = append(report.Transitions, Transition{At: at, From: last, To: mode})
			last = mode
		}
	}

	next := 0
	for uiClock.Now() <= sc.Duration {
		now := uiClock.Now()
		for ; next < len(sc.Events) && sc.Events[next].At <= now; next++ {
			ev := sc.Events[next]
			switch {
			case ev.Press != "":
				b, _ := parseButton(ev.Press)
				ui.HandleButton(core.ButtonEvent{Button: b, Pressed: true})
			case ev.Release != "":
				b, _ := parseButton(ev.Release)
				ui.HandleButton(core.ButtonEvent{Button: b, Pressed: false})
			case ev.Spark != nil:
				gpio.Drive(sparkPin, *ev.Spark)
			case ev.BurnDone != nil:
				burnDone = *ev.BurnDone
			}
		}
		observe(now)

		writes := store.WriteCount()
		tickErr := ui.Tick()
		if seq := store.WriteCount(); seq != writes {
			report.Commits = append(report.Commits, Commit{At: now, Seq: seq, Err: tickErr})
		}
		observe(now)

		for rtClock.Now() < now+timing.UIPeriod {
			rt.Iterate()
			observe(rtClock.Now())
		}
		uiClock.Advance(timing.UIPeriod)
	}

	report.Mode = state.Mode()
	report.Params = state.Params()
	report.Position = rt.Position()
	report.Steps = stepper.Steps()
	report.Screen = [3]string{scr.view.Title(), scr.view.Value(), scr.view.Detail()}

	reboot, err := core.NewSettingsStore(flash, layout, core.NewLockout())
	if err != nil {
		return nil, err
	}
	if report.Reloaded, err = reboot.Load(); err != nil {
		return nil, err
	}
	return report, nil
}
