package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRenderer struct {
	views []View
}

func (r *recordingRenderer) Render(v View) error {
	r.views = append(r.views, v)
	return nil
}

func (r *recordingRenderer) last() View {
	return r.views[len(r.views)-1]
}

type uiFixture struct {
	state    *SharedControlState
	flash    *MemFlash
	store    *SettingsStore
	clock    *ManualClock
	renderer *recordingRenderer
	loop     *InteractiveLoop
	layout   StoreLayout
}

func newUIFixture(t *testing.T) *uiFixture {
	t.Helper()
	f := &uiFixture{
		state:    NewSharedControlState(),
		layout:   testLayout(),
		clock:    &ManualClock{},
		renderer: &recordingRenderer{},
	}
	f.flash = NewMemFlash(testBlockSize, f.layout.Slots)
	store, err := NewSettingsStore(f.flash, f.layout, NewLockout())
	require.NoError(t, err)
	f.store = store
	f.loop = NewInteractiveLoop(InteractiveConfig{
		State:    f.state,
		Store:    f.store,
		Clock:    f.clock,
		Timing:   DefaultTiming(),
		Limits:   DefaultParameterLimits(),
		Renderer: f.renderer,
	})
	require.NoError(t, f.loop.Boot())
	return f
}

// run ticks the loop at its period for d.
func (f *uiFixture) run(d time.Duration) {
	period := DefaultTiming().UIPeriod
	for end := f.clock.Now() + d; f.clock.Now() < end; {
		f.loop.Tick()
		f.clock.Advance(period)
	}
}

func (f *uiFixture) press(b Button) {
	f.loop.HandleButton(ButtonEvent{Button: b, Pressed: true})
}

func (f *uiFixture) release(b Button) {
	f.loop.HandleButton(ButtonEvent{Button: b, Pressed: false})
}

// tap holds b for one loop period.
func (f *uiFixture) tap(b Button) {
	f.press(b)
	f.run(DefaultTiming().UIPeriod)
	f.release(b)
}

func TestInteractiveEditAndCommit(t *testing.T) {
	f := newUIFixture(t)
	require.False(t, f.store.Initialized())

	for i := 0; i < 5; i++ {
		f.tap(ButtonNext)
	}
	require.Equal(t, MenuMode(MenuTimeOn), f.state.Mode())

	for i := 0; i < 4; i++ {
		f.tap(ButtonUp)
		f.run(100 * time.Millisecond)
	}

	assert.Equal(t, uint16(90), f.state.Params().OnMicros)
	assert.Equal(t, "T_on:", f.renderer.last().Title())
	assert.Equal(t, "90us", f.renderer.last().Value())
	assert.True(t, f.store.Pending())
	assert.Zero(t, f.flash.Erases(0), "nothing written before the save delay")

	f.run(f.layout.SaveDelay)
	assert.False(t, f.store.Pending())
	assert.Equal(t, uint32(1), f.store.WriteCount())
	assert.Equal(t, 1, f.flash.Erases(0))
	for slot := 1; slot < f.layout.Slots; slot++ {
		assert.Zero(t, f.flash.Erases(slot))
	}

	reboot, err := NewSettingsStore(f.flash, f.layout, NewLockout())
	require.NoError(t, err)
	p, err := reboot.Load()
	require.NoError(t, err)
	assert.Equal(t, uint16(90), p.OnMicros)
	assert.True(t, reboot.Initialized())
}

func TestInteractiveHoldRepeats(t *testing.T) {
	f := newUIFixture(t)
	for i := 0; i < 6; i++ {
		f.tap(ButtonNext)
	}
	require.Equal(t, MenuMode(MenuTimeOff), f.state.Mode())

	// Ticks at 0, 160, 300 and 460 ms on the 20 ms loop grid.
	f.press(ButtonDown)
	f.run(500 * time.Millisecond)
	f.release(ButtonDown)
	assert.Equal(t, uint16(100), f.state.Params().OffMicros)
}

func TestInteractiveEditsDepthDigits(t *testing.T) {
	f := newUIFixture(t)

	f.tap(ButtonNext) // tens
	f.tap(ButtonUp)
	f.tap(ButtonNext) // units
	f.tap(ButtonDown)
	f.tap(ButtonNext) // tenths
	f.tap(ButtonUp)
	f.tap(ButtonUp)

	assert.Equal(t, [DepthDigits]uint8{1, 9, 2, 0}, f.state.Params().Depth)
	assert.Equal(t, Depth(1920), f.state.TargetDepth())

	v := f.renderer.last()
	assert.Equal(t, "19.20", v.Value())
	assert.Equal(t, 2, v.EditedDigit)
	assert.Equal(t, 3, v.CursorColumn())
}

func TestInteractiveJogMotion(t *testing.T) {
	f := newUIFixture(t)

	f.press(ButtonUp)
	f.run(DefaultTiming().UIPeriod)
	assert.True(t, f.state.MotionRequested())
	assert.False(t, f.state.MoveDown())

	f.press(ButtonDown)
	f.run(DefaultTiming().UIPeriod)
	assert.False(t, f.state.MotionRequested(), "both buttons cancel")

	f.release(ButtonUp)
	f.run(DefaultTiming().UIPeriod)
	assert.True(t, f.state.MotionRequested())
	assert.True(t, f.state.MoveDown())

	f.release(ButtonDown)
	f.run(DefaultTiming().UIPeriod)
	assert.False(t, f.state.MotionRequested())
	assert.Equal(t, ModeJog, f.state.Mode(), "jog buttons never change the screen")
	assert.False(t, f.store.Pending())
}

func TestInteractiveConfirmBurn(t *testing.T) {
	for name, tc := range map[string]struct {
		button Button
		rezero bool
	}{
		"up zeroes":  {ButtonUp, true},
		"down keeps": {ButtonDown, false},
	} {
		t.Run(name, func(t *testing.T) {
			f := newUIFixture(t)
			f.state.Dispatch(EventSparkDetected)
			f.run(DefaultTiming().UIPeriod)
			assert.Equal(t, "Ready?", f.renderer.last().Title())

			f.press(tc.button)
			f.run(DefaultTiming().UIPeriod)
			assert.Equal(t, ModeBurn, f.state.Mode())
			assert.Equal(t, tc.rezero, f.state.RezeroOnBurnStart())
			assert.False(t, f.store.Pending(), "confirming is not an edit")
		})
	}
}

func TestInteractiveIgnoresButtonsWhileMachining(t *testing.T) {
	f := newUIFixture(t)
	f.state.Dispatch(EventSparkDetected)
	f.state.Dispatch(EventConfirmUp)
	before := f.state.Params()

	for _, mode := range []Mode{ModeBurn, ModePostBurn} {
		if mode == ModePostBurn {
			f.state.Dispatch(EventBurnComplete)
		}
		for _, b := range []Button{ButtonNext, ButtonPrev, ButtonUp, ButtonDown} {
			f.press(b)
			f.run(time.Second)
			f.release(b)
		}
		assert.Equal(t, mode, f.state.Mode())
	}
	assert.Equal(t, before, f.state.Params())
	assert.False(t, f.store.Pending())

	f.state.Dispatch(EventSparkCleared)
	f.run(DefaultTiming().UIPeriod)
	assert.Equal(t, ModeJog, f.state.Mode())
	assert.False(t, f.state.MotionRequested())
}

func TestInteractiveHeldButtonSuppressedAcrossModeChange(t *testing.T) {
	f := newUIFixture(t)
	for i := 0; i < 5; i++ {
		f.tap(ButtonNext)
	}

	f.press(ButtonUp)
	f.run(DefaultTiming().UIPeriod)
	require.Equal(t, uint16(60), f.state.Params().OnMicros)

	// Up stays down while the screen moves to T_off.
	f.press(ButtonNext)
	f.release(ButtonNext)
	f.run(time.Second)
	assert.Equal(t, MenuMode(MenuTimeOff), f.state.Mode())
	assert.Equal(t, uint16(200), f.state.Params().OffMicros)
	assert.Equal(t, uint16(60), f.state.Params().OnMicros)

	f.release(ButtonUp)
	f.tap(ButtonUp)
	assert.Equal(t, uint16(225), f.state.Params().OffMicros)
}

func TestInteractiveDrainsEventChannel(t *testing.T) {
	events := make(chan ButtonEvent, 4)
	state := NewSharedControlState()
	layout := testLayout()
	store, err := NewSettingsStore(NewMemFlash(testBlockSize, layout.Slots), layout, NewLockout())
	require.NoError(t, err)
	loop := NewInteractiveLoop(InteractiveConfig{
		State:  state,
		Store:  store,
		Clock:  &ManualClock{},
		Timing: DefaultTiming(),
		Limits: DefaultParameterLimits(),
		Events: events,
	})

	events <- ButtonEvent{Button: ButtonPrev, Pressed: true}
	events <- ButtonEvent{Button: ButtonPrev, Pressed: false}
	events <- ButtonEvent{Button: ButtonPrev, Pressed: true}
	require.NoError(t, loop.Tick())
	assert.Equal(t, MenuMode(MenuTimeOn), state.Mode())
}

func TestInteractiveNoJogAfterBurnWithStaleButton(t *testing.T) {
	f := newUIFixture(t)
	f.state.Dispatch(EventSparkDetected)
	f.run(DefaultTiming().UIPeriod)

	// Confirm with Up; its release is lost while burning.
	f.press(ButtonUp)
	f.run(DefaultTiming().UIPeriod)
	require.Equal(t, ModeBurn, f.state.Mode())
	f.release(ButtonUp)

	f.state.Dispatch(EventSparkCleared)
	f.run(time.Second)
	assert.Equal(t, ModeJog, f.state.Mode())
	assert.False(t, f.state.MotionRequested())
}

func TestInteractiveHeldButtonDoesNotJogAfterMenuWrap(t *testing.T) {
	f := newUIFixture(t)
	f.state.Dispatch(EventPrevPressed)
	f.run(DefaultTiming().UIPeriod)
	require.Equal(t, MenuMode(MenuTimeOff), f.state.Mode())

	f.press(ButtonDown)
	f.run(DefaultTiming().UIPeriod)
	f.tap(ButtonNext)
	require.Equal(t, ModeJog, f.state.Mode())
	assert.False(t, f.state.MotionRequested())

	f.release(ButtonDown)
	f.tap(ButtonDown)
	assert.True(t, f.state.MotionRequested())
}

func TestInteractivePressInSameTickAsModeChange(t *testing.T) {
	for name, tc := range map[string]struct {
		button Button
		rezero bool
	}{
		"up":   {ButtonUp, true},
		"down": {ButtonDown, false},
	} {
		t.Run(name, func(t *testing.T) {
			f := newUIFixture(t)
			f.run(DefaultTiming().UIPeriod)

			// Sparking starts and the operator confirms before the loop
			// has ticked in PreBurn.
			f.state.Dispatch(EventSparkDetected)
			f.press(tc.button)
			f.run(DefaultTiming().UIPeriod)

			assert.Equal(t, ModeBurn, f.state.Mode())
			assert.Equal(t, tc.rezero, f.state.RezeroOnBurnStart())
		})
	}
}

func TestInteractiveEditAfterPrevInSameDrain(t *testing.T) {
	state := NewSharedControlState()
	store, err := NewSettingsStore(NewMemFlash(testBlockSize, testLayout().Slots), testLayout(), NewLockout())
	require.NoError(t, err)
	events := make(chan ButtonEvent, 8)
	loop := NewInteractiveLoop(InteractiveConfig{
		State:  state,
		Store:  store,
		Clock:  &ManualClock{},
		Timing: DefaultTiming(),
		Limits: DefaultParameterLimits(),
		Events: events,
	})
	require.NoError(t, loop.Boot())
	before := state.Params().OffMicros

	events <- ButtonEvent{Button: ButtonPrev, Pressed: true}
	events <- ButtonEvent{Button: ButtonPrev, Pressed: false}
	events <- ButtonEvent{Button: ButtonUp, Pressed: true}
	require.NoError(t, loop.Tick())

	assert.Equal(t, MenuMode(MenuTimeOff), state.Mode())
	assert.Equal(t, before+DefaultParameterLimits().TimeOff.Step, state.Params().OffMicros)
}
