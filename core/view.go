package core

// View is the snapshot handed to the renderer each interactive tick.
type View struct {
	Mode        Mode
	Params      MachineParameters
	TargetDepth Depth
	EditedDigit int // -1 unless a depth digit screen is active
}

// Title returns the heading line of the screen.
func (v View) Title() string {
	switch v.Mode.Phase() {
	case PhasePreBurn:
		return "Ready?"
	case PhaseBurn:
		return "BURN"
	case PhasePostBurn:
		return "Burn done"
	}
	menu, _ := v.Mode.Menu()
	switch menu {
	case MenuTimeOn:
		return "T_on:"
	case MenuTimeOff:
		return "T_off:"
	case MenuJog:
		return "Jog-jog"
	}
	return "Depth:"
}

// Value returns the main value of the screen, or "".
func (v View) Value() string {
	switch v.Mode.Phase() {
	case PhasePreBurn:
		return "up=zero dn=keep"
	case PhasePostBurn:
		return "spark off"
	case PhaseBurn:
		return v.TargetDepth.String()
	}
	menu, _ := v.Mode.Menu()
	switch menu {
	case MenuTimeOn:
		return utoa(uint32(v.Params.OnMicros)) + "us"
	case MenuTimeOff:
		return utoa(uint32(v.Params.OffMicros)) + "us"
	case MenuJog:
		return ""
	}
	return v.TargetDepth.String()
}

// Detail returns the secondary line: the spark frequency on the timing
// screens, otherwise "".
func (v View) Detail() string {
	if menu, ok := v.Mode.Menu(); ok && (menu == MenuTimeOn || menu == MenuTimeOff) {
		return utoa(v.Params.SparkFrequency()) + "Hz"
	}
	return ""
}

// CursorColumn returns the character index of the edited digit within
// Value, skipping the decimal point, or -1.
func (v View) CursorColumn() int {
	switch {
	case v.EditedDigit < 0:
		return -1
	case v.EditedDigit < 2:
		return v.EditedDigit
	}
	return v.EditedDigit + 1
}
