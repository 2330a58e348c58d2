package core

// Machine process parameters edited from the operator screens and persisted
// by the settings store.

// DepthDigits is the number of decimal digits composing the target depth.
const DepthDigits = 4

// Limits bounds an integer parameter edited in fixed steps.
type Limits struct {
	Min  uint16
	Max  uint16
	Step uint16
}

// Increment adds one step, saturating at Max.
func (l Limits) Increment(v uint16) (uint16, bool) {
	if uint32(v)+uint32(l.Step) > uint32(l.Max) {
		return v, false
	}
	return v + l.Step, true
}

// Decrement removes one step, saturating at Min.
func (l Limits) Decrement(v uint16) (uint16, bool) {
	if v < l.Min+l.Step {
		return v, false
	}
	return v - l.Step, true
}

// Clamp moves v into range and onto the step grid anchored at Min.
func (l Limits) Clamp(v uint16) uint16 {
	if v <= l.Min {
		return l.Min
	}
	if v > l.Max {
		v = l.Max
	}
	if l.Step == 0 {
		return v
	}
	return v - (v-l.Min)%l.Step
}

// Contains reports whether v is in range and on the step grid.
func (l Limits) Contains(v uint16) bool {
	return v >= l.Min && v <= l.Max && (l.Step == 0 || (v-l.Min)%l.Step == 0)
}

// ParameterLimits holds the edit ranges of the pulse timing parameters.
type ParameterLimits struct {
	TimeOn  Limits
	TimeOff Limits
}

// DefaultParameterLimits returns the ranges supported by the spark generator.
func DefaultParameterLimits() ParameterLimits {
	return ParameterLimits{
		TimeOn:  Limits{Min: 10, Max: 200, Step: 10},
		TimeOff: Limits{Min: 50, Max: 500, Step: 25},
	}
}

// MachineParameters is the persisted process configuration.
type MachineParameters struct {
	OnMicros  uint16             `cbor:"1,keyasint"`
	OffMicros uint16             `cbor:"2,keyasint"`
	Depth     [DepthDigits]uint8 `cbor:"3,keyasint"`
}

// DefaultParameters returns the parameters used when no valid record exists.
func DefaultParameters() MachineParameters {
	return MachineParameters{
		OnMicros:  50,
		OffMicros: 200,
	}
}

// Adjust applies one up or down tick to the parameter bound to screen m.
// Timing values saturate at their limits, depth digits wrap modulo 10.
// It reports whether the parameters changed.
func (p *MachineParameters) Adjust(m Menu, up bool, limits ParameterLimits) bool {
	if digit, ok := m.DepthDigit(); ok {
		if up {
			p.Depth[digit] = (p.Depth[digit] + 1) % 10
		} else {
			p.Depth[digit] = (p.Depth[digit] + 9) % 10
		}
		return true
	}

	var changed bool
	switch m {
	case MenuTimeOn:
		if up {
			p.OnMicros, changed = limits.TimeOn.Increment(p.OnMicros)
		} else {
			p.OnMicros, changed = limits.TimeOn.Decrement(p.OnMicros)
		}
	case MenuTimeOff:
		if up {
			p.OffMicros, changed = limits.TimeOff.Increment(p.OffMicros)
		} else {
			p.OffMicros, changed = limits.TimeOff.Decrement(p.OffMicros)
		}
	}
	return changed
}

// Normalize forces every field into its declared range.
func (p MachineParameters) Normalize(limits ParameterLimits) MachineParameters {
	p.OnMicros = limits.TimeOn.Clamp(p.OnMicros)
	p.OffMicros = limits.TimeOff.Clamp(p.OffMicros)
	for i := range p.Depth {
		p.Depth[i] %= 10
	}
	return p
}

// TargetDepth composes the depth digits as d0*10 + d1 + d2*0.1 + d3*0.01.
func (p MachineParameters) TargetDepth() Depth {
	return Depth(uint16(p.Depth[0])*1000 + uint16(p.Depth[1])*100 +
		uint16(p.Depth[2])*10 + uint16(p.Depth[3]))
}

// SparkFrequency returns the spark pulse rate in Hz.
func (p MachineParameters) SparkFrequency() uint32 {
	period := uint32(p.OnMicros) + uint32(p.OffMicros)
	if period == 0 {
		return 0
	}
	return 1000000 / period
}

// Depth is a target depth in hundredths of a millimeter.
type Depth uint16

// Millimeters returns the depth as a float.
func (d Depth) Millimeters() float32 {
	return float32(d) / 100
}

// String formats the depth as dd.dd.
func (d Depth) String() string {
	buf := [5]byte{
		'0' + byte(d/1000%10),
		'0' + byte(d/100%10),
		'.',
		'0' + byte(d/10%10),
		'0' + byte(d%10),
	}
	return string(buf[:])
}
