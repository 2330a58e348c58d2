package core

// Interactive context: button intent, parameter edits, settings commits and
// the render hand-off. On target it runs on core 0.

import "time"

// Renderer draws the operator view. It gives nothing back to the core.
type Renderer interface {
	Render(v View) error
}

// InteractiveConfig wires the interactive loop to its collaborators.
type InteractiveConfig struct {
	State    *SharedControlState
	Store    *SettingsStore
	Clock    Clock
	Timing   Timing
	Limits   ParameterLimits
	Renderer Renderer // optional

	// Events carries button edges from the GPIO layer. Optional; edges may
	// also be passed to HandleButton directly from the same context.
	Events <-chan ButtonEvent
}

// InteractiveLoop is the human-rate control loop.
type InteractiveLoop struct {
	cfg      InteractiveConfig
	up       ButtonIntent
	down     ButtonIntent
	lastMode Mode
}

// NewInteractiveLoop creates the loop.
func NewInteractiveLoop(cfg InteractiveConfig) *InteractiveLoop {
	return &InteractiveLoop{cfg: cfg, lastMode: cfg.State.Mode()}
}

// Boot loads the persisted parameters into the shared state. A read error
// leaves the defaults in place and is returned for logging.
func (l *InteractiveLoop) Boot() error {
	p, err := l.cfg.Store.Load()
	l.cfg.State.SetParams(p.Normalize(l.cfg.Limits))
	return err
}

// HandleButton applies one button edge. Button intent is frozen during Burn
// and PostBurn.
func (l *InteractiveLoop) HandleButton(ev ButtonEvent) {
	if !l.syncMode().AcceptsButtons() {
		return
	}
	now := l.cfg.Clock.Now()
	switch ev.Button {
	case ButtonUp:
		l.up.Set(ev.Pressed, now)
	case ButtonDown:
		l.down.Set(ev.Pressed, now)
	case ButtonNext:
		if ev.Pressed {
			l.cfg.State.Dispatch(EventNextPressed)
		}
	case ButtonPrev:
		if ev.Pressed {
			l.cfg.State.Dispatch(EventPrevPressed)
		}
	}
}

// Tick runs one pass of the loop without sleeping.
func (l *InteractiveLoop) Tick() error {
	l.drainEvents()

	now := l.cfg.Clock.Now()
	mode := l.syncMode()

	if mode == ModeJog {
		up, down := l.up.Active(), l.down.Active()
		l.cfg.State.SetMotion(up != down, !up)
	} else {
		l.cfg.State.SetMotion(false, l.cfg.State.MoveDown())
	}

	if menu, ok := mode.Menu(); ok && menu != MenuJog {
		l.edit(menu, now)
	} else if mode == ModePreBurn {
		l.confirm(now)
	}

	var result error
	if wrote, err := l.cfg.Store.Tick(now, l.cfg.State.Params()); err != nil {
		DebugPrintln("[SETTINGS] " + err.Error())
		result = err
	} else if wrote {
		DebugPrintln("[SETTINGS] committed seq=" + utoa(l.cfg.Store.WriteCount()))
	}

	if l.cfg.Renderer != nil {
		if err := l.cfg.Renderer.Render(l.View()); err != nil && result == nil {
			result = err
		}
	}
	return result
}

// syncMode applies a mode change to button intent before anything else
// sees the new mode. A button held across the change must be pressed again
// before it jogs, edits a value or confirms a burn; presses that arrive
// after the change are fresh. Releases are not seen while machining, so
// intent is dropped there.
func (l *InteractiveLoop) syncMode() Mode {
	mode := l.cfg.State.Mode()
	if mode == l.lastMode {
		return mode
	}
	if mode.AcceptsButtons() {
		l.up.Suppress()
		l.down.Suppress()
	} else {
		l.up.Reset()
		l.down.Reset()
	}
	l.lastMode = mode
	return mode
}

func (l *InteractiveLoop) drainEvents() {
	for {
		select {
		case ev := <-l.cfg.Events:
			l.HandleButton(ev)
		default:
			return
		}
	}
}

func (l *InteractiveLoop) edit(menu Menu, now time.Duration) {
	t := l.cfg.Timing
	changed := false
	if l.up.TryUse(now, t.RepeatDelay, t.RepeatInterval) {
		changed = l.adjust(menu, true) || changed
	}
	if l.down.TryUse(now, t.RepeatDelay, t.RepeatInterval) {
		changed = l.adjust(menu, false) || changed
	}
	if changed {
		l.cfg.Store.ScheduleCommit(now)
	}
}

func (l *InteractiveLoop) adjust(menu Menu, up bool) bool {
	return l.cfg.State.UpdateParams(func(p *MachineParameters) bool {
		return p.Adjust(menu, up, l.cfg.Limits)
	})
}

// confirm turns an Up or Down tick in PreBurn into the burn confirmation.
func (l *InteractiveLoop) confirm(now time.Duration) {
	t := l.cfg.Timing
	if l.up.TryUse(now, t.RepeatDelay, t.RepeatInterval) {
		l.cfg.State.Dispatch(EventConfirmUp)
	} else if l.down.TryUse(now, t.RepeatDelay, t.RepeatInterval) {
		l.cfg.State.Dispatch(EventConfirmDown)
	}
}

// View snapshots what the renderer shows.
func (l *InteractiveLoop) View() View {
	mode := l.cfg.State.Mode()
	p := l.cfg.State.Params()
	v := View{
		Mode:        mode,
		Params:      p,
		TargetDepth: p.TargetDepth(),
		EditedDigit: -1,
	}
	if menu, ok := mode.Menu(); ok {
		if d, ok := menu.DepthDigit(); ok {
			v.EditedDigit = d
		}
	}
	return v
}

// Run loops forever at the interactive period.
func (l *InteractiveLoop) Run() {
	for {
		l.Tick()
		l.cfg.Clock.Sleep(l.cfg.Timing.UIPeriod)
	}
}
