package ledfx

import (
	"time"

	"libdb.so/ledfx/led"
)

// fadeToBackground moves every pixel of the segment toward the background by
// step per channel.
func fadeToBackground(f *frame, step int) {
	bg := f.bg()
	for idx := f.seg.Start; idx <= f.seg.Stop; idx++ {
		if c := f.atAbs(idx); c != bg {
			f.setAbs(idx, led.FadeToward(c, bg, step))
		}
	}
}

// decay dims every pixel of the segment by n per channel.
func decay(f *frame, n int) {
	for idx := f.seg.Start; idx <= f.seg.Stop; idx++ {
		f.setAbs(idx, led.Subtract(f.atAbs(idx), n))
	}
}

// randomPixel returns a random strip index inside the segment.
func (f *frame) randomPixel() int {
	return f.seg.Start + f.randomIndex(f.n)
}

// twinkle fades lit pixels toward the background and, one time in chance,
// lights a random idle pixel with color.
func twinkle(f *frame, fade, chance int, color func() led.RGBColor) time.Duration {
	fadeToBackground(f, fade)
	if f.random8(chance) == 0 {
		idx := f.randomPixel()
		if f.atAbs(idx) == f.bg() {
			f.setAbs(idx, color())
		}
	}
	return f.speedDiv(32)
}

func (f *frame) randomHue() led.RGBColor {
	return led.Wheel(f.random8(256))
}

func modeTwinkle(f *frame) time.Duration {
	return twinkle(f, 20, 3, f.fg)
}

func modeTwinkleRandom(f *frame) time.Duration {
	return twinkle(f, 20, 3, f.randomHue)
}

func modeTwinkleFade(f *frame) time.Duration {
	return twinkle(f, 8, 2, f.fg)
}

func modeTwinkleFadeRandom(f *frame) time.Duration {
	return twinkle(f, 8, 2, f.randomHue)
}

func sparkle(f *frame, count int) time.Duration {
	f.fill(f.fg())
	for range count {
		f.setAbs(f.randomPixel(), led.White)
	}
	return f.speedDiv(32)
}

func modeSparkle(f *frame) time.Duration {
	f.fill(f.fg())
	if f.random8(5) == 0 {
		f.setAbs(f.randomPixel(), led.White)
	}
	return f.speedDiv(32)
}

func modeFlashSparkle(f *frame) time.Duration {
	return modeSparkle(f)
}

func modeHyperSparkle(f *frame) time.Duration {
	return sparkle(f, 8)
}

// modeTwinkleFox gives every pixel its own triangle-wave twinkle with a
// pseudo-random phase and rate. The pattern is seeded once per mode run.
func modeTwinkleFox(f *frame) time.Duration {
	if f.st.aux[1] == 0 {
		f.st.aux[0] = f.random16(1 << 16)
		f.st.aux[1] = 1
	}
	seed := uint32(f.st.aux[0])

	for i := 0; i < f.n; i++ {
		h := uint32(i)*2654435761 + seed*40503
		h ^= h >> 13
		offset := int(h & 0xFF)
		rate := 1 + int(h>>8)%3

		t := (f.st.calls*rate + offset) & 0xFF
		var lum int
		switch {
		case t < 86:
			lum = t * 3
		case t < 171:
			lum = (170 - t) * 3
		}
		f.set(i, led.Blend(f.bg(), f.fg(), lum))
	}

	return f.speedDiv(16)
}

func modeRain(f *frame) time.Duration {
	decay(f, 5)
	if f.random8(10) == 0 {
		f.setAbs(f.randomPixel(), led.Blue)
	}
	return f.speedDiv(32)
}

func fireworks(f *frame, color func(idx int) led.RGBColor) time.Duration {
	decay(f, 10)
	if f.random8(20) == 0 {
		idx := f.randomPixel()
		f.setAbs(idx, color(idx))
	}
	return f.speedDiv(32)
}

func modeFireworks(f *frame) time.Duration {
	return fireworks(f, func(int) led.RGBColor { return led.White })
}

func modeFireworksRandom(f *frame) time.Duration {
	return fireworks(f, func(int) led.RGBColor { return f.randomHue() })
}

func modeRainbowFireworks(f *frame) time.Duration {
	return fireworks(f, func(idx int) led.RGBColor {
		return f.gradient(idx - f.seg.Start)
	})
}
