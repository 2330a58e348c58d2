package core

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allModes = []Mode{
	ModeJog,
	MenuMode(MenuDepth0),
	MenuMode(MenuDepth1),
	MenuMode(MenuDepth2),
	MenuMode(MenuDepth3),
	MenuMode(MenuTimeOn),
	MenuMode(MenuTimeOff),
	ModePreBurn,
	ModeBurn,
	ModePostBurn,
}

func TestNavigationStaysInMenuGroup(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	mode := ModeJog
	ordinal := 0

	for i := 0; i < 1000; i++ {
		if rng.Intn(2) == 0 {
			mode = Apply(mode, EventNextPressed)
			ordinal = (ordinal + 1) % MenuCount
		} else {
			mode = Apply(mode, EventPrevPressed)
			ordinal = (ordinal + MenuCount - 1) % MenuCount
		}
		menu, ok := mode.Menu()
		require.True(t, ok, "step %d left the menu group: %v", i, mode)
		require.Equal(t, Menu(ordinal), menu, "step %d", i)
	}
}

func TestNavigationIgnoredWhileMachining(t *testing.T) {
	for _, m := range []Mode{ModePreBurn, ModeBurn, ModePostBurn} {
		assert.Equal(t, m, Apply(m, EventNextPressed), "next in %v", m)
		assert.Equal(t, m, Apply(m, EventPrevPressed), "prev in %v", m)
	}
}

func TestSparkDetected(t *testing.T) {
	for _, m := range allModes {
		got := Apply(m, EventSparkDetected)
		if _, ok := m.Menu(); ok {
			assert.Equal(t, ModePreBurn, got, "from %v", m)
		} else {
			assert.Equal(t, m, got, "from %v", m)
		}
	}
}

func TestSparkClearedReturnsToJog(t *testing.T) {
	for _, m := range allModes {
		assert.Equal(t, ModeJog, Apply(m, EventSparkCleared), "from %v", m)
	}
}

func TestConfirmAndBurnComplete(t *testing.T) {
	assert.Equal(t, ModeBurn, Apply(ModePreBurn, EventConfirmUp))
	assert.Equal(t, ModeBurn, Apply(ModePreBurn, EventConfirmDown))
	assert.Equal(t, ModePostBurn, Apply(ModeBurn, EventBurnComplete))

	for _, m := range allModes {
		if m != ModePreBurn {
			assert.Equal(t, m, Apply(m, EventConfirmUp), "confirm in %v", m)
		}
		if m != ModeBurn {
			assert.Equal(t, m, Apply(m, EventBurnComplete), "burn complete in %v", m)
		}
	}
}

func TestBurnCycleRoundTrip(t *testing.T) {
	mode := ModeJog
	for _, step := range []struct {
		ev   Event
		want Mode
	}{
		{EventSparkDetected, ModePreBurn},
		{EventConfirmUp, ModeBurn},
		{EventBurnComplete, ModePostBurn},
		{EventSparkCleared, ModeJog},
	} {
		mode = Apply(mode, step.ev)
		require.Equal(t, step.want, mode, "after %v", step.ev)
	}
}

func TestModePackingIsTotal(t *testing.T) {
	for _, m := range allModes {
		assert.Equal(t, m, unpackMode(m.pack()))
	}
	assert.Equal(t, ModeJog, unpackMode(0xFFFF))
	assert.Equal(t, MenuMode(Menu(9%MenuCount)), unpackMode(9))
}

func TestMenuDepthDigit(t *testing.T) {
	for i, m := range []Menu{MenuDepth0, MenuDepth1, MenuDepth2, MenuDepth3} {
		d, ok := m.DepthDigit()
		assert.True(t, ok)
		assert.Equal(t, i, d)
	}
	_, ok := MenuTimeOn.DepthDigit()
	assert.False(t, ok)
}
