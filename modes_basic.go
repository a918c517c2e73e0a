package ledfx

import (
	"time"

	"libdb.so/ledfx/led"
)

// strobeDelay is the fixed delay requested by the strobe family.
const strobeDelay = 50 * time.Millisecond

func modeStatic(f *frame) time.Duration {
	f.fill(f.fg())
	return f.speed()
}

// blinkBetween fills the segment with on for even steps and off for odd
// steps.
func blinkBetween(f *frame, on, off led.RGBColor) {
	if f.st.step%2 == 0 {
		f.fill(on)
	} else {
		f.fill(off)
	}
	f.advance(2)
}

func modeBlink(f *frame) time.Duration {
	blinkBetween(f, f.fg(), f.bg())
	return f.speed()
}

func modeBlinkRainbow(f *frame) time.Duration {
	blinkBetween(f, led.Wheel(f.st.calls<<2), f.bg())
	return f.speed()
}

func modeStrobe(f *frame) time.Duration {
	blinkBetween(f, f.fg(), f.bg())
	return strobeDelay
}

func modeStrobeRainbow(f *frame) time.Duration {
	blinkBetween(f, led.Wheel(f.st.calls<<2), f.bg())
	return strobeDelay
}

// modeStrobeRainbowAlt flashes a rainbow hue and its complement.
func modeStrobeRainbowAlt(f *frame) time.Duration {
	hue := f.st.calls << 2
	blinkBetween(f, led.Wheel(hue), led.Wheel(hue+128))
	return strobeDelay
}

// modeMultiStrobe emits a burst of flashes whose length grows with the
// speed, then rests on the background for a full speed period.
func modeMultiStrobe(f *frame) time.Duration {
	phases := 2 * (f.seg.Speed/100 + 1)
	if f.st.step >= phases {
		f.fill(f.bg())
		f.st.step = 0
		return f.speed()
	}
	if f.st.step%2 == 0 {
		f.fill(f.fg())
	} else {
		f.fill(f.bg())
	}
	f.st.step++
	return strobeDelay
}

// triangle returns the luminance for a 0..511 triangle wave.
func triangle(step int) int {
	if step > 255 {
		return 511 - step
	}
	return step
}

func pulse(f *frame) time.Duration {
	f.fill(led.Blend(f.bg(), f.fg(), triangle(f.st.step)))
	f.st.step += 4
	if f.st.step > 511 {
		f.st.step = 0
	}
	return f.speedDiv(128)
}

func modeBreath(f *frame) time.Duration { return pulse(f) }
func modeFade(f *frame) time.Duration   { return pulse(f) }

// modeTriFade blends through colors 0, 1 and 2 in turn.
func modeTriFade(f *frame) time.Duration {
	phase := f.st.step / 256
	f.fill(led.Blend(f.color(phase), f.color((phase+1)%3), f.st.step%256))
	f.st.step += 4
	if f.st.step >= 3*256 {
		f.st.step = 0
	}
	return f.speedDiv(128)
}

var heartbeatPattern = [16]int{0, 0, 255, 255, 0, 0, 255, 0, 0, 0, 0, 0, 0, 0, 0, 0}

func modeHeartbeat(f *frame) time.Duration {
	if f.st.step < len(heartbeatPattern) {
		f.fill(led.Blend(f.bg(), f.fg(), heartbeatPattern[f.st.step]))
	} else {
		f.fill(f.bg())
	}
	f.advance(2 * len(heartbeatPattern))
	return f.speedDiv(16)
}

// modeFlipbook shows one color of the color list per invocation.
func modeFlipbook(f *frame) time.Duration {
	pages := max(len(f.seg.Colors), 1)
	f.fill(f.color(f.st.step % pages))
	f.advance(pages)
	return f.speed()
}

func modeRandomColor(f *frame) time.Duration {
	for i := 0; i < f.n; i++ {
		f.set(i, led.Wheel(f.random8(256)))
	}
	return f.speed()
}

// modeMultiDynamic is an alias of random color kept for configuration
// compatibility.
func modeMultiDynamic(f *frame) time.Duration {
	return modeRandomColor(f)
}
