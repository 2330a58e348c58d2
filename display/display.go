// Package display draws the operator view on a small monochrome panel.
package display

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"

	"sparkedm/core"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

// Baselines for a 128x32 panel.
const (
	titleBaseline = 12
	valueBaseline = 28
	cursorHeight  = 2
)

// bufferClearer is implemented by drivers with a frame buffer, e.g. ssd1306.
type bufferClearer interface {
	ClearBuffer()
}

// Renderer implements core.Renderer on any drivers.Displayer. It redraws
// only when the view changes.
type Renderer struct {
	dev   drivers.Displayer
	large tinyfont.Fonter
	small tinyfont.Fonter

	last  core.View
	drawn bool
}

// New returns a renderer on dev.
func New(dev drivers.Displayer) *Renderer {
	return &Renderer{
		dev:   dev,
		large: &freemono.Bold9pt7b,
		small: &tinyfont.TomThumb,
	}
}

// Render draws v and pushes the frame to the panel.
func (r *Renderer) Render(v core.View) error {
	if r.drawn && v == r.last {
		return nil
	}
	r.clear()

	tinyfont.WriteLine(r.dev, r.large, 0, titleBaseline, v.Title(), white)

	value := v.Value()
	font := r.large
	if v.Mode.Phase() == core.PhasePreBurn {
		font = r.small
	}
	tinyfont.WriteLine(r.dev, font, 0, valueBaseline, value, white)

	if col := v.CursorColumn(); col >= 0 && col < len(value) {
		x, _ := tinyfont.LineWidth(font, value[:col])
		w, _ := tinyfont.LineWidth(font, value[col:col+1])
		r.fill(int16(x), valueBaseline+1, int16(w), cursorHeight)
	}

	if detail := v.Detail(); detail != "" {
		w, _ := tinyfont.LineWidth(r.small, detail)
		width, _ := r.dev.Size()
		tinyfont.WriteLine(r.dev, r.small, width-int16(w), valueBaseline, detail, white)
	}

	if err := r.dev.Display(); err != nil {
		return err
	}
	r.last, r.drawn = v, true
	return nil
}

func (r *Renderer) clear() {
	if c, ok := r.dev.(bufferClearer); ok {
		c.ClearBuffer()
		return
	}
	w, h := r.dev.Size()
	for y := int16(0); y < h; y++ {
		for x := int16(0); x < w; x++ {
			r.dev.SetPixel(x, y, black)
		}
	}
}

func (r *Renderer) fill(x, y, w, h int16) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			r.dev.SetPixel(i, j, white)
		}
	}
}
