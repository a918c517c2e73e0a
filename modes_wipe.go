package ledfx

import (
	"time"

	"libdb.so/ledfx/led"
)

// wipe paints one pixel per call. Once every pixel is painted, the next call
// resets the whole segment to reset and starts over. If far is true, the wipe
// starts from the opposite end.
func wipe(f *frame, paint, reset led.RGBColor, far bool) time.Duration {
	if f.st.step >= f.n {
		f.fill(reset)
		f.st.step = 0
		return f.speedDiv(f.n)
	}

	i := f.st.step
	if far {
		i = f.n - 1 - i
	}
	f.set(i, paint)
	f.st.step++

	return f.speedDiv(f.n)
}

func modeColorWipe(f *frame) time.Duration       { return wipe(f, f.fg(), f.bg(), false) }
func modeColorWipeInv(f *frame) time.Duration    { return wipe(f, f.bg(), f.fg(), false) }
func modeColorWipeRev(f *frame) time.Duration    { return wipe(f, f.fg(), f.bg(), true) }
func modeColorWipeRevInv(f *frame) time.Duration { return wipe(f, f.bg(), f.fg(), true) }

func modeColorWipeRandom(f *frame) time.Duration {
	f.set(f.st.step, led.Wheel(f.random8(256)))
	f.advance(f.n)
	return f.speedDiv(f.n)
}

// modeSingleDynamic wipes the foreground in, holds it for as long as the wipe
// took, then clears to the background.
func modeSingleDynamic(f *frame) time.Duration {
	if f.st.step < f.n {
		f.set(f.st.step, f.fg())
	}
	if f.advance(2 * f.n) {
		f.fill(f.bg())
	}
	return f.speedDiv(f.n)
}

// modeColorSweepRandom wipes a random hue forward, then another one back.
func modeColorSweepRandom(f *frame) time.Duration {
	if f.st.step == 0 || f.st.step == f.n {
		f.st.aux[0] = f.random8(256)
	}

	i := f.st.step
	if i >= f.n {
		i = 2*f.n - 1 - i
	}
	f.set(i, led.Wheel(f.st.aux[0]))
	f.advance(2 * f.n)

	return f.speedDiv(f.n)
}
