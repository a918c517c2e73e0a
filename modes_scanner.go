package ledfx

import (
	"time"

	"libdb.so/ledfx/led"
)

// bounce advances the step over n positions. At the end of the sweep the
// private direction is flipped, so the next sweep runs the other way.
func bounce(f *frame, n int) {
	if f.advance(n) {
		f.st.bounced = !f.st.bounced
	}
}

func modeScan(f *frame) time.Duration {
	f.fill(f.bg())
	f.set(f.st.step, f.fg())
	f.advance(f.n)
	return f.speedDiv(2 * f.n)
}

func modeDualScan(f *frame) time.Duration {
	f.fill(f.bg())
	if a, b := f.st.step, f.n-1-f.st.step; a <= b {
		f.set(a, f.fg())
		f.set(b, f.fg())
	}
	f.advance(max(f.n/2, 1))
	return f.speedDiv(2 * f.n)
}

func modeLarsonScanner(f *frame) time.Duration {
	fg, bg := f.fg(), f.bg()
	f.fill(bg)
	f.set(f.st.step, fg)
	if f.st.step > 0 {
		f.set(f.st.step-1, led.Blend(fg, bg, 128))
	}
	bounce(f, f.n)
	return f.speedDiv(2 * f.n)
}

func modeRainbowLarson(f *frame) time.Duration {
	f.fill(f.bg())
	f.set(f.st.step, led.Wheel(f.st.calls<<4))
	bounce(f, f.n)
	return f.speedDiv(2 * f.n)
}

// modeDualLarson runs two mirrored heads. The second head uses color 2.
func modeDualLarson(f *frame) time.Duration {
	bg := f.bg()
	f.fill(bg)
	f.set(f.st.step, f.fg())
	f.set(f.n-1-f.st.step, f.color(2))
	bounce(f, f.n)
	return f.speedDiv(2 * f.n)
}

func cometSize(n int) int {
	return max(min(5, n/4), 1)
}

// modeComet sweeps a head with a fading tail of up to five pixels. The sweep
// continues until the tail has left the segment, then bounces.
func modeComet(f *frame) time.Duration {
	fg, bg := f.fg(), f.bg()
	size := cometSize(f.n)

	f.fill(bg)
	for i := 0; i < size; i++ {
		pos := f.st.step - i
		if pos < 0 || pos >= f.n {
			continue
		}
		f.set(pos, led.Blend(bg, fg, 255-i*255/size))
	}

	bounce(f, f.n+size)
	return f.speedDiv(f.n)
}

// modeMultiComet launches up to three comets from the start of the segment.
// Each slot of aux holds the comet position plus one, or zero when idle.
func modeMultiComet(f *frame) time.Duration {
	fadeToBackground(f, 48)
	for k := range f.st.aux {
		if f.st.aux[k] == 0 {
			if f.randomIndex(f.n) == 0 {
				f.st.aux[k] = 1
			} else {
				continue
			}
		}
		pos := f.st.aux[k] - 1
		if pos >= f.n {
			f.st.aux[k] = 0
			continue
		}
		f.set(pos, f.color(k))
		f.st.aux[k]++
	}
	return f.speedDiv(f.n)
}

// modeICU moves a pair of eyes, half a segment apart, toward a random spot
// and picks a new one once they get there.
func modeICU(f *frame) time.Duration {
	half := f.n / 2
	pos, target := &f.st.aux[0], &f.st.aux[1]

	f.fill(f.bg())
	f.set(*pos, f.fg())
	if half > 0 {
		f.set(*pos+half, f.fg())
	}

	switch {
	case *pos < *target:
		*pos++
	case *pos > *target:
		*pos--
	default:
		*target = f.randomIndex(max(half, 1))
	}

	return f.speedDiv(16)
}

// modeFillerUp drops pixels that stack up at the far end of the segment
// until it is full, then starts over.
func modeFillerUp(f *frame) time.Duration {
	fg := f.fg()
	filled := &f.st.aux[0]

	f.fill(f.bg())
	for i := f.n - *filled; i < f.n; i++ {
		f.set(i, fg)
	}
	f.set(f.st.step, fg)

	if f.st.step >= f.n-1-*filled {
		f.st.step = 0
		*filled++
		if *filled >= f.n {
			*filled = 0
		}
	} else {
		f.st.step++
	}

	return f.speedDiv(f.n)
}
