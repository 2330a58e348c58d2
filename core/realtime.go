package core

// Real-time context: spark sensing, jog stepping and the lockout victim.
// On target it owns core 1 and never blocks except in bounded sleeps and
// while parked by a flash write.

// Activity reports what one real-time iteration did.
type Activity uint8

const (
	ActivityParked Activity = iota // parked for a flash write
	ActivityStep                   // emitted one step pulse
	ActivityIdle                   // Jog without motion
	ActivityBurn                   // servicing Burn
	ActivityWait                   // PreBurn or PostBurn
)

func (a Activity) String() string {
	switch a {
	case ActivityParked:
		return "parked"
	case ActivityStep:
		return "step"
	case ActivityIdle:
		return "idle"
	case ActivityBurn:
		return "burn"
	case ActivityWait:
		return "wait"
	}
	return "activity(" + itoa(int(a)) + ")"
}

// RealTimeConfig wires the real-time loop to its collaborators.
type RealTimeConfig struct {
	State    *SharedControlState
	GPIO     GPIODriver
	SparkPin GPIOPin
	Stepper  StepperBackend
	Lockout  *Lockout
	Clock    Clock
	Timing   Timing

	// Spark is the spark pulse output, enabled only during Burn. Optional.
	Spark SparkOutput
	// BurnDone reports that the burn has reached its end. Optional; without
	// it Burn is left only when sparking stops.
	BurnDone func() bool
}

// RealTimeLoop is the time-critical control loop.
type RealTimeLoop struct {
	cfg RealTimeConfig

	wasSparking bool
	sparkOn     bool
	lastMode    Mode
	position    int64
}

// NewRealTimeLoop creates the loop. It does not touch hardware.
func NewRealTimeLoop(cfg RealTimeConfig) *RealTimeLoop {
	return &RealTimeLoop{cfg: cfg, lastMode: ModeJog}
}

// Position returns the jog position in steps, positive toward the workpiece.
// It is reset when a burn starts with the zero choice.
func (l *RealTimeLoop) Position() int64 {
	return l.position
}

// Iterate runs one pass of the loop, including its sleep.
func (l *RealTimeLoop) Iterate() Activity {
	if l.cfg.Lockout.Checkpoint() {
		return ActivityParked
	}

	l.sampleSpark()

	mode, rezero := l.cfg.State.ModeAndRezero()
	if mode == ModeBurn && l.lastMode != ModeBurn && rezero {
		l.position = 0
	}
	l.lastMode = mode
	l.serviceSparkOutput(mode)

	switch {
	case mode == ModeJog && l.cfg.State.MotionRequested():
		down := l.cfg.State.MoveDown()
		l.cfg.Stepper.SetDirection(down)
		l.cfg.Stepper.Step()
		if down {
			l.position++
		} else {
			l.position--
		}
		l.cfg.Clock.Sleep(l.cfg.Timing.StepSpacing)
		return ActivityStep

	case mode == ModeJog:
		l.cfg.Clock.Sleep(l.cfg.Timing.RTIdle)
		return ActivityIdle

	case mode == ModeBurn:
		if l.cfg.BurnDone != nil && l.cfg.BurnDone() {
			l.cfg.State.Dispatch(EventBurnComplete)
		}
		l.cfg.Clock.Sleep(l.cfg.Timing.RTBusy)
		return ActivityBurn
	}

	l.cfg.Clock.Sleep(l.cfg.Timing.RTBusy)
	return ActivityWait
}

// sampleSpark edge-detects the spark sensor and feeds transitions to the
// state machine. Levels are never re-sent.
func (l *RealTimeLoop) sampleSpark() {
	sparking := l.cfg.GPIO.ReadPin(l.cfg.SparkPin)
	if sparking == l.wasSparking {
		return
	}
	l.wasSparking = sparking
	l.cfg.State.setSparking(sparking)
	RecordEvent(EvtSparkEdge, boolWord(sparking), 0, 0)

	ev := EventSparkCleared
	if sparking {
		ev = EventSparkDetected
	}
	if mode, changed := l.cfg.State.Dispatch(ev); changed {
		DebugAsync("[RT] " + ev.String() + " -> " + mode.String())
	}
}

// serviceSparkOutput keeps the spark generator on exactly while in Burn.
func (l *RealTimeLoop) serviceSparkOutput(mode Mode) {
	if l.cfg.Spark == nil {
		return
	}
	want := mode == ModeBurn
	if want == l.sparkOn {
		return
	}
	var err error
	if want {
		err = l.cfg.Spark.Enable(l.cfg.State.Params())
	} else {
		err = l.cfg.Spark.Disable()
	}
	if err != nil {
		DebugAsync("[RT] spark output: " + err.Error())
		return
	}
	l.sparkOn = want
}

// Run registers as the lockout victim and loops forever.
func (l *RealTimeLoop) Run() {
	l.cfg.Lockout.RegisterVictim()
	l.cfg.Stepper.SetDirection(l.cfg.State.MoveDown())
	for {
		l.Iterate()
	}
}
