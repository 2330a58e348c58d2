package core

// Operating mode state machine.
//
// The operator screens form a closed cyclic group (Menu) that Next/Prev walk
// around. The machining phases sit outside that group and are only entered
// through sensor or confirmation events, so navigation can never land on them.

// Menu is one of the operator screens reachable with Next/Prev.
type Menu uint8

const (
	MenuJog Menu = iota
	MenuDepth0
	MenuDepth1
	MenuDepth2
	MenuDepth3
	MenuTimeOn
	MenuTimeOff

	menuCount
)

var menuNames = [menuCount]string{
	MenuJog:     "jog",
	MenuDepth0:  "depth0",
	MenuDepth1:  "depth1",
	MenuDepth2:  "depth2",
	MenuDepth3:  "depth3",
	MenuTimeOn:  "t_on",
	MenuTimeOff: "t_off",
}

// MenuCount is the size of the cyclic screen group.
const MenuCount = int(menuCount)

// Next returns the following screen, wrapping after the last one.
func (m Menu) Next() Menu {
	return (m%menuCount + 1) % menuCount
}

// Prev returns the preceding screen, wrapping before the first one.
func (m Menu) Prev() Menu {
	return (m%menuCount + menuCount - 1) % menuCount
}

// DepthDigit returns the depth digit edited on this screen.
func (m Menu) DepthDigit() (int, bool) {
	if m >= MenuDepth0 && m <= MenuDepth3 {
		return int(m - MenuDepth0), true
	}
	return -1, false
}

func (m Menu) String() string {
	if m < menuCount {
		return menuNames[m]
	}
	return "menu(" + itoa(int(m)) + ")"
}

// Phase separates menu navigation from the machining phases.
type Phase uint8

const (
	PhaseMenu Phase = iota
	PhasePreBurn
	PhaseBurn
	PhasePostBurn
)

// Mode is the active operating mode. It is either a Menu screen (PhaseMenu)
// or one of the machining phases, in which case the menu part is always zero.
// The zero value is Jog.
type Mode struct {
	phase Phase
	menu  Menu
}

var (
	ModeJog      = Mode{phase: PhaseMenu, menu: MenuJog}
	ModePreBurn  = Mode{phase: PhasePreBurn}
	ModeBurn     = Mode{phase: PhaseBurn}
	ModePostBurn = Mode{phase: PhasePostBurn}
)

// MenuMode returns the mode showing screen m.
func MenuMode(m Menu) Mode {
	return Mode{phase: PhaseMenu, menu: m % menuCount}
}

// Phase returns the phase of the mode.
func (m Mode) Phase() Phase {
	return m.phase
}

// Menu returns the active screen, or false while machining.
func (m Mode) Menu() (Menu, bool) {
	if m.phase != PhaseMenu {
		return 0, false
	}
	return m.menu, true
}

// AcceptsButtons reports whether button intent is tracked in this mode.
// Burn and PostBurn ignore all buttons.
func (m Mode) AcceptsButtons() bool {
	return m.phase != PhaseBurn && m.phase != PhasePostBurn
}

func (m Mode) String() string {
	switch m.phase {
	case PhaseMenu:
		return m.menu.String()
	case PhasePreBurn:
		return "preburn"
	case PhaseBurn:
		return "burn"
	case PhasePostBurn:
		return "postburn"
	}
	return "mode(" + itoa(int(m.phase)) + ")"
}

// pack encodes the mode into a single word for atomic storage.
func (m Mode) pack() uint32 {
	return uint32(m.phase)<<8 | uint32(m.menu)
}

// unpackMode is total: a word that does not name a mode decodes as Jog.
func unpackMode(v uint32) Mode {
	phase := Phase(v >> 8)
	switch phase {
	case PhaseMenu:
		return MenuMode(Menu(v & 0xFF))
	case PhasePreBurn, PhaseBurn, PhasePostBurn:
		return Mode{phase: phase}
	}
	return ModeJog
}

// Event is an input to the mode state machine.
type Event uint8

const (
	EventNextPressed Event = iota + 1
	EventPrevPressed
	EventSparkDetected
	EventSparkCleared
	EventConfirmUp
	EventConfirmDown
	EventBurnComplete
)

func (e Event) String() string {
	switch e {
	case EventNextPressed:
		return "next"
	case EventPrevPressed:
		return "prev"
	case EventSparkDetected:
		return "spark_on"
	case EventSparkCleared:
		return "spark_off"
	case EventConfirmUp:
		return "confirm_up"
	case EventConfirmDown:
		return "confirm_down"
	case EventBurnComplete:
		return "burn_complete"
	}
	return "event(" + itoa(int(e)) + ")"
}

// Apply returns the mode that follows m after ev. Events that do not apply
// to the current mode leave it unchanged.
func Apply(m Mode, ev Event) Mode {
	switch ev {
	case EventNextPressed:
		if menu, ok := m.Menu(); ok {
			return MenuMode(menu.Next())
		}
	case EventPrevPressed:
		if menu, ok := m.Menu(); ok {
			return MenuMode(menu.Prev())
		}
	case EventSparkDetected:
		if m.phase == PhaseMenu {
			return ModePreBurn
		}
	case EventSparkCleared:
		// Sparking stopping always returns to idle, whether the burn finished
		// (PostBurn) or the arc dropped out earlier.
		return ModeJog
	case EventConfirmUp, EventConfirmDown:
		if m.phase == PhasePreBurn {
			return ModeBurn
		}
	case EventBurnComplete:
		if m.phase == PhaseBurn {
			return ModePostBurn
		}
	}
	return m
}
