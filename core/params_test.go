package core

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimingEditsStayOnGrid(t *testing.T) {
	limits := DefaultParameterLimits()
	rng := rand.New(rand.NewSource(7))
	p := DefaultParameters()

	for i := 0; i < 2000; i++ {
		menu := MenuTimeOn
		if rng.Intn(2) == 0 {
			menu = MenuTimeOff
		}
		p.Adjust(menu, rng.Intn(2) == 0, limits)

		require.True(t, limits.TimeOn.Contains(p.OnMicros), "on=%d", p.OnMicros)
		require.True(t, limits.TimeOff.Contains(p.OffMicros), "off=%d", p.OffMicros)
	}
}

func TestTimingEditsSaturate(t *testing.T) {
	limits := DefaultParameterLimits()
	p := DefaultParameters()

	for i := 0; i < 100; i++ {
		p.Adjust(MenuTimeOn, true, limits)
	}
	assert.Equal(t, uint16(200), p.OnMicros)
	assert.False(t, p.Adjust(MenuTimeOn, true, limits))

	for i := 0; i < 100; i++ {
		p.Adjust(MenuTimeOff, false, limits)
	}
	assert.Equal(t, uint16(50), p.OffMicros)
	assert.False(t, p.Adjust(MenuTimeOff, false, limits))
}

func TestDepthDigitsWrap(t *testing.T) {
	limits := DefaultParameterLimits()
	p := DefaultParameters()

	assert.True(t, p.Adjust(MenuDepth2, false, limits))
	assert.Equal(t, uint8(9), p.Depth[2])
	assert.True(t, p.Adjust(MenuDepth2, true, limits))
	assert.Equal(t, uint8(0), p.Depth[2])

	for i := 0; i < 23; i++ {
		p.Adjust(MenuDepth0, true, limits)
	}
	assert.Equal(t, uint8(3), p.Depth[0])
}

func TestTargetDepthComposition(t *testing.T) {
	for d0 := uint8(0); d0 < 10; d0++ {
		for d1 := uint8(0); d1 < 10; d1++ {
			for d2 := uint8(0); d2 < 10; d2++ {
				for d3 := uint8(0); d3 < 10; d3++ {
					p := MachineParameters{Depth: [DepthDigits]uint8{d0, d1, d2, d3}}
					want := int(d0)*1000 + int(d1)*100 + int(d2)*10 + int(d3)
					require.Equal(t, Depth(want), p.TargetDepth())
					require.InDelta(t, float64(d0)*10+float64(d1)+float64(d2)*0.1+float64(d3)*0.01,
						float64(p.TargetDepth().Millimeters()), 1e-4)
				}
			}
		}
	}
}

func TestDepthString(t *testing.T) {
	assert.Equal(t, "00.00", Depth(0).String())
	assert.Equal(t, "12.34", Depth(1234).String())
	assert.Equal(t, "99.99", Depth(9999).String())
}

func TestNormalize(t *testing.T) {
	limits := DefaultParameterLimits()
	p := MachineParameters{OnMicros: 1000, OffMicros: 63, Depth: [DepthDigits]uint8{12, 3, 255, 9}}
	n := p.Normalize(limits)

	assert.Equal(t, uint16(200), n.OnMicros)
	assert.Equal(t, uint16(50), n.OffMicros)
	assert.Equal(t, [DepthDigits]uint8{2, 3, 5, 9}, n.Depth)
	assert.Equal(t, DefaultParameters(), DefaultParameters().Normalize(limits))
}

func TestSparkFrequency(t *testing.T) {
	assert.Equal(t, uint32(4000), DefaultParameters().SparkFrequency())
	assert.Equal(t, uint32(0), MachineParameters{}.SparkFrequency())
}
