package ledfx

import (
	"time"

	"libdb.so/ledfx/led"
)

// flicker bands: each pixel is scaled by base + random8(span) every call.
type flickerBand struct {
	base, span int
	div        int
}

var (
	flickerNormal  = flickerBand{base: 200, span: 55, div: 16}
	flickerSoft    = flickerBand{base: 215, span: 40, div: 12}
	flickerIntense = flickerBand{base: 175, span: 80, div: 20}
)

func flicker(f *frame, band flickerBand) time.Duration {
	fg := f.fg()
	for i := 0; i < f.n; i++ {
		f.set(i, led.Scale(fg, band.base+f.random8(band.span)))
	}
	return f.speedDiv(band.div)
}

func modeFireFlicker(f *frame) time.Duration        { return flicker(f, flickerNormal) }
func modeFireFlickerSoft(f *frame) time.Duration    { return flicker(f, flickerSoft) }
func modeFireFlickerIntense(f *frame) time.Duration { return flicker(f, flickerIntense) }
