package ledfx

import (
	"time"

	"libdb.so/ledfx/led"
)

// SegmentID is a stable handle to a segment registered with an Engine.
type SegmentID uint64

// SegmentConfig is the user-facing configuration of a segment.
type SegmentConfig struct {
	// Name is an optional label. It is not used by the engine.
	Name string
	// Start and Stop are the inclusive pixel indices of the segment.
	Start, Stop int
	// Mode selects the effect.
	Mode Mode
	// Colors are the effect colors. Index 0 is the foreground color and index
	// 1 the background color; some modes use more.
	Colors []led.RGBColor
	// Speed tunes the effect. Higher is slower; the value is the minimum
	// number of milliseconds between two invocations.
	Speed int
	// Reverse flips the direction of directional modes.
	Reverse bool
}

// Len returns the number of pixels covered by the segment.
func (c SegmentConfig) Len() int {
	return c.Stop - c.Start + 1
}

// Color returns the color at index i. Indices outside the color list fall
// back to the first color, or black if there are no colors.
func (c SegmentConfig) Color(i int) led.RGBColor {
	switch {
	case i >= 0 && i < len(c.Colors):
		return c.Colors[i]
	case len(c.Colors) > 0:
		return c.Colors[0]
	default:
		return led.Black
	}
}

// Segment is a configured address range plus its animation state.
type Segment struct {
	SegmentConfig
	ID SegmentID

	state segmentState
}

// segmentState is owned by the segment and only touched by its mode.
type segmentState struct {
	step    int
	calls   int
	aux     [3]int
	bounced bool // bouncing modes flip this instead of Reverse

	lastUpdate time.Time
	delay      time.Duration
}

// NewSegment creates a detached segment. It is mostly useful for driving a
// Mode directly, without an Engine.
func NewSegment(cfg SegmentConfig) *Segment {
	cfg.Colors = append([]led.RGBColor(nil), cfg.Colors...)
	cfg.Speed = max(cfg.Speed, 1)
	return &Segment{SegmentConfig: cfg}
}

// Calls returns how many times the segment's mode has run.
func (s *Segment) Calls() int {
	return s.state.calls
}

// DelayHint returns the delay requested by the last invocation of the mode.
func (s *Segment) DelayHint() time.Duration {
	return s.state.delay
}

func (s *Segment) resetState() {
	s.state = segmentState{}
}

func (s *Segment) clone() Segment {
	c := *s
	c.Colors = append([]led.RGBColor(nil), s.Colors...)
	return c
}

// frame is what a mode function sees for one invocation. All writes go
// through it so that a mode can never touch pixels outside its segment.
type frame struct {
	seg  *Segment
	st   *segmentState
	leds led.LEDs
	rnd  Random
	n    int
}

func (f *frame) fg() led.RGBColor { return f.seg.Color(0) }
func (f *frame) bg() led.RGBColor { return f.seg.Color(1) }

func (f *frame) color(i int) led.RGBColor { return f.seg.Color(i) }

// reversed reports the effective traversal direction.
func (f *frame) reversed() bool {
	return f.seg.Reverse != f.st.bounced
}

// index maps a segment offset to a strip index honoring the direction.
func (f *frame) index(i int) int {
	if f.reversed() {
		return f.seg.Stop - i
	}
	return f.seg.Start + i
}

func (f *frame) inside(idx int) bool {
	return idx >= f.seg.Start && idx <= f.seg.Stop
}

// set writes the pixel at segment offset i, honoring the direction.
func (f *frame) set(i int, c led.RGBColor) {
	f.setAbs(f.index(i), c)
}

// setAbs writes a strip index, dropping it if it lies outside the segment.
func (f *frame) setAbs(idx int, c led.RGBColor) {
	if f.inside(idx) {
		f.leds.Set(idx, c)
	}
}

func (f *frame) at(i int) led.RGBColor {
	return f.atAbs(f.index(i))
}

func (f *frame) atAbs(idx int) led.RGBColor {
	if !f.inside(idx) {
		return led.Black
	}
	return f.leds.At(idx)
}

func (f *frame) fill(c led.RGBColor) {
	start := max(f.seg.Start, 0)
	f.leds.Fill(c, start, f.seg.Stop-start+1)
}

func (f *frame) random8(n int) int  { return random8(f.rnd, n) }
func (f *frame) random16(n int) int { return random16(f.rnd, n) }

// randomIndex returns a uniform value in [0, n) with no cap, for picking
// positions inside segments of any length.
func (f *frame) randomIndex(n int) int { return randomN(f.rnd, n) }

// speed returns the configured speed as a duration.
func (f *frame) speed() time.Duration {
	return time.Duration(f.seg.Speed) * time.Millisecond
}

// speedDiv returns speed/d, guarding against zero divisors.
func (f *frame) speedDiv(d int) time.Duration {
	return f.speed() / time.Duration(max(d, 1))
}

// advance increments step and wraps it to zero when it reaches n. It returns
// true on wrap.
func (f *frame) advance(n int) bool {
	f.st.step++
	if f.st.step >= n {
		f.st.step = 0
		return true
	}
	return false
}
