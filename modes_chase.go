package ledfx

import (
	"time"

	"libdb.so/ledfx/led"
)

// dimWhite is the background of the rainbow-on-white chase.
var dimWhite = led.RGBColor{32, 32, 32}

// chase lights every period-th pixel, shifting the phase by one per call.
func chase(f *frame, period int, lit, unlit func(i int) led.RGBColor) {
	for i := 0; i < f.n; i++ {
		if (i+f.st.step)%period == 0 {
			f.set(i, lit(i))
		} else {
			f.set(i, unlit(i))
		}
	}
	f.advance(period)
}

func solid(c led.RGBColor) func(int) led.RGBColor {
	return func(int) led.RGBColor { return c }
}

// gradient returns the rainbow hue of pixel i, rotated by the call count.
func (f *frame) gradient(i int) led.RGBColor {
	return led.Wheel(i*256/f.n + f.st.calls)
}

// scrambled returns a deterministic pseudo-random color for pixel i that
// drifts with the call count.
func (f *frame) scrambled(i int) led.RGBColor {
	calls := f.st.calls
	return led.RGBColor{
		uint8((calls + i*37) % 256),
		uint8((calls + i*71) % 256),
		uint8((calls + i*113) % 256),
	}
}

// flash alternates c with white on every call.
func (f *frame) flash(c led.RGBColor) led.RGBColor {
	if f.st.calls%2 == 0 {
		return c
	}
	return led.White
}

func modeTheaterChase(f *frame) time.Duration {
	chase(f, 3, solid(f.fg()), solid(f.bg()))
	return f.speed()
}

func modeTheaterChaseRainbow(f *frame) time.Duration {
	chase(f, 3, f.gradient, solid(f.bg()))
	return f.speed()
}

func modeChaseWhite(f *frame) time.Duration {
	chase(f, 4, solid(led.White), solid(led.Black))
	return f.speed()
}

func modeChaseColor(f *frame) time.Duration {
	chase(f, 4, solid(f.fg()), solid(led.Black))
	return f.speed()
}

func modeChaseRandom(f *frame) time.Duration {
	chase(f, 4, f.scrambled, solid(led.Black))
	return f.speed()
}

func modeChaseRainbow(f *frame) time.Duration {
	chase(f, 4, f.gradient, solid(led.Black))
	return f.speed()
}

func modeChaseFlash(f *frame) time.Duration {
	chase(f, 4, solid(f.flash(f.fg())), solid(led.Black))
	return f.speedDiv(2)
}

func modeChaseFlashRandom(f *frame) time.Duration {
	chase(f, 4,
		func(i int) led.RGBColor { return f.flash(f.scrambled(i)) },
		solid(led.Black))
	return f.speedDiv(2)
}

func modeChaseRainbowWhite(f *frame) time.Duration {
	chase(f, 4, f.gradient, solid(dimWhite))
	return f.speed()
}

// blackout draws a single head with a linear falloff over the two pixels on
// either side of it.
func blackout(f *frame, color func(i int) led.RGBColor) {
	for i := 0; i < f.n; i++ {
		d := i - f.st.step
		if d < 0 {
			d = -d
		}
		switch {
		case d == 0:
			f.set(i, color(i))
		case d <= 2:
			f.set(i, led.Scale(color(i), (3-d)*255/3))
		default:
			f.set(i, led.Black)
		}
	}
	f.advance(f.n)
}

func modeChaseBlackout(f *frame) time.Duration {
	blackout(f, solid(f.fg()))
	return f.speed()
}

func modeChaseBlackoutRainbow(f *frame) time.Duration {
	blackout(f, f.gradient)
	return f.speed()
}

// modeRunningLights runs a sine wave between the foreground and background.
func modeRunningLights(f *frame) time.Duration {
	incr := max(256/f.n, 1)
	for i := 0; i < f.n; i++ {
		lum := (led.Sine8((i+f.st.step)*incr) + 255) / 2
		f.set(i, led.Blend(f.fg(), f.bg(), lum))
	}
	f.advance(256)
	return f.speedDiv(128)
}

// bands shifts a pattern of two a pixels followed by two b pixels.
func bands(f *frame, a, b led.RGBColor) time.Duration {
	for i := 0; i < f.n; i++ {
		if (i+f.st.step)%4 < 2 {
			f.set(i, a)
		} else {
			f.set(i, b)
		}
	}
	f.advance(4)
	return f.speed()
}

func modeRunningColor(f *frame) time.Duration   { return bands(f, f.fg(), led.White) }
func modeRunningRedBlue(f *frame) time.Duration { return bands(f, led.Red, led.Blue) }
func modeHalloween(f *frame) time.Duration      { return bands(f, led.Purple, led.Orange) }

// tricolor shifts a pattern of two pixels of each of a, b and c.
func tricolor(f *frame, a, b, c led.RGBColor) time.Duration {
	for i := 0; i < f.n; i++ {
		switch (i + f.st.step) % 6 {
		case 0, 1:
			f.set(i, a)
		case 2, 3:
			f.set(i, b)
		default:
			f.set(i, c)
		}
	}
	f.advance(6)
	return f.speed()
}

func modeTricolorChase(f *frame) time.Duration {
	return tricolor(f, f.color(0), f.color(1), f.color(2))
}

func modeBicolorChase(f *frame) time.Duration {
	return tricolor(f, f.fg(), f.bg(), f.bg())
}

func modeCircusCombustus(f *frame) time.Duration {
	return tricolor(f, led.Red, led.White, led.Black)
}

// shiftIn moves every pixel one position away from the start of the segment
// and writes c into the first pixel.
func shiftIn(f *frame, c led.RGBColor) {
	for i := f.n - 1; i > 0; i-- {
		f.set(i, f.at(i-1))
	}
	f.set(0, c)
}

// modeRunningRandom streams random hues through the segment in two-pixel
// blocks.
func modeRunningRandom(f *frame) time.Duration {
	if f.st.step == 0 {
		f.st.aux[0] = f.random8(256)
	}
	shiftIn(f, led.Wheel(f.st.aux[0]))
	f.advance(2)
	return f.speed()
}

// modeRunningRandom2 streams a fresh random hue into the segment on every
// call.
func modeRunningRandom2(f *frame) time.Duration {
	shiftIn(f, led.Wheel(f.random8(256)))
	return f.speed()
}
