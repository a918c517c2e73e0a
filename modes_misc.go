package ledfx

import (
	"time"

	"libdb.so/ledfx/led"
)

func modeRainbow(f *frame) time.Duration {
	for i := 0; i < f.n; i++ {
		f.set(i, led.Wheel(i*256/f.n))
	}
	return f.speed()
}

func modeRainbowCycle(f *frame) time.Duration {
	for i := 0; i < f.n; i++ {
		f.set(i, f.gradient(i))
	}
	return f.speedDiv(4)
}

// modeVUMeter draws a bar of random height colored from green to red.
func modeVUMeter(f *frame) time.Duration {
	level := f.randomIndex(f.n)
	for i := 0; i < f.n; i++ {
		if i < level {
			f.set(i, led.Blend(led.Green, led.Red, i*255/f.n))
		} else {
			f.set(i, f.bg())
		}
	}
	return f.speedDiv(16)
}

// modeBits shows the call counter in binary, least significant bit first.
func modeBits(f *frame) time.Duration {
	v := uint64(f.st.calls)
	for i := 0; i < f.n; i++ {
		if i < 64 && v&(1<<i) != 0 {
			f.set(i, f.fg())
		} else {
			f.set(i, f.bg())
		}
	}
	return f.speed()
}

// modeBlockDissolve flips random pixels to the current target color until
// the segment is uniform, then swaps the target between the foreground and
// the background.
func modeBlockDissolve(f *frame) time.Duration {
	target := f.color(f.st.aux[0])

	for range f.n {
		idx := f.randomPixel()
		if f.atAbs(idx) != target {
			f.setAbs(idx, target)
			break
		}
	}

	done := true
	for idx := f.seg.Start; idx <= f.seg.Stop; idx++ {
		if f.atAbs(idx) != target {
			done = false
			break
		}
	}
	if done {
		f.st.aux[0] ^= 1
	}

	return f.speedDiv(f.n)
}

// modePopcorn pops kernels of cycling colors over a fading background.
func modePopcorn(f *frame) time.Duration {
	fadeToBackground(f, 16)
	if f.random8(4) == 0 {
		f.setAbs(f.randomPixel(), f.color(f.st.aux[0]))
		f.st.aux[0] = (f.st.aux[0] + 1) % max(len(f.seg.Colors), 1)
	}
	return f.speedDiv(32)
}

// modeOscillator overlays two sine bands moving in opposite directions.
func modeOscillator(f *frame) time.Duration {
	a, b := f.fg(), f.color(2)
	for i := 0; i < f.n; i++ {
		l1 := max(led.Sine8(i*8+f.st.calls*3), 0)
		l2 := max(led.Sine8(i*5-f.st.calls*2), 0)
		f.set(i, add(led.Scale(a, l1), led.Scale(b, l2)))
	}
	return f.speedDiv(16)
}

func add(a, b led.RGBColor) led.RGBColor {
	for i := range a {
		a[i] = uint8(min(int(a[i])+int(b[i]), 255))
	}
	return a
}
