// Package ledfx is an effect engine for addressable LED strips. It drives a
// buffer of RGB pixels through a catalog of animation modes, organized into
// independently configured segments.
//
// The engine does no I/O and never blocks. The host calls Update at a steady
// cadence and reads the pixels back with Pixels or Snapshot.
package ledfx

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"libdb.so/ledfx/led"
)

// ErrOutOfRange is returned by AddSegment when no part of the requested range
// lies on the strip.
var ErrOutOfRange = errors.New("segment lies outside the strip")

// GatePolicy decides how long a segment waits between two invocations of its
// mode.
type GatePolicy uint8

const (
	// SpeedGate runs a segment once at least Speed milliseconds have passed
	// since its last run. The delay returned by the mode is informational.
	SpeedGate GatePolicy = iota
	// HintGate runs a segment once the delay returned by the previous run
	// of its mode has passed.
	HintGate
)

// String returns "speed" or "hint".
func (g GatePolicy) String() string {
	switch g {
	case SpeedGate:
		return "speed"
	case HintGate:
		return "hint"
	default:
		return fmt.Sprintf("GatePolicy(%d)", uint8(g))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (g GatePolicy) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GatePolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "speed", "":
		*g = SpeedGate
	case "hint":
		*g = HintGate
	default:
		return errors.Errorf("unknown gate policy %q", text)
	}
	return nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used by Start. It defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRandom sets the random source shared by every effect.
func WithRandom(rnd Random) Option {
	return func(e *Engine) { e.rnd = rnd }
}

// WithSeed seeds the engine's random source. A zero seed is replaced with one
// derived from the current time.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		if seed == 0 {
			seed = timeSeed()
		}
		e.rnd = NewRandom(seed)
	}
}

// WithGate sets the gate policy. It defaults to SpeedGate.
func WithGate(gate GatePolicy) Option {
	return func(e *Engine) { e.gate = gate }
}

// WithLogger sets the logger. Only configuration problems are logged, at the
// debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine owns the pixel buffer and the ordered list of segments. It is not
// safe for concurrent use.
type Engine struct {
	leds       led.LEDs
	segments   []*Segment
	nextID     SegmentID
	running    bool
	started    time.Time
	brightness int

	now    func() time.Time
	rnd    Random
	gate   GatePolicy
	logger *slog.Logger
}

// New creates an engine for a strip of numLEDs pixels. Negative sizes are
// treated as zero.
func New(numLEDs int, opts ...Option) *Engine {
	e := &Engine{
		leds:       led.NewLEDs(numLEDs),
		brightness: 255,
		now:        time.Now,
		gate:       SpeedGate,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rnd == nil {
		e.rnd = NewRandom(timeSeed())
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// Len returns the number of pixels.
func (e *Engine) Len() int { return len(e.leds) }

// Gate returns the active gate policy.
func (e *Engine) Gate() GatePolicy { return e.gate }

// AddSegment registers a new segment after every existing one, so that it
// wins over them where they overlap. Reversed bounds are swapped and ranges
// hanging off the strip are clipped. If nothing of the range lies on the
// strip, ErrOutOfRange is returned.
func (e *Engine) AddSegment(cfg SegmentConfig) (SegmentID, error) {
	if cfg.Start > cfg.Stop {
		cfg.Start, cfg.Stop = cfg.Stop, cfg.Start
	}
	if cfg.Stop < 0 || cfg.Start >= len(e.leds) {
		return 0, errors.Wrapf(ErrOutOfRange, "segment [%d, %d] on %d pixels",
			cfg.Start, cfg.Stop, len(e.leds))
	}

	if cfg.Start < 0 || cfg.Stop >= len(e.leds) {
		start, stop := max(cfg.Start, 0), min(cfg.Stop, len(e.leds)-1)
		e.logger.Debug(
			"clipped segment to strip",
			"name", cfg.Name,
			"from", []int{cfg.Start, cfg.Stop},
			"to", []int{start, stop})
		cfg.Start, cfg.Stop = start, stop
	}

	if !cfg.Mode.Valid() {
		e.logger.Debug(
			"unknown mode, rendering as static",
			"name", cfg.Name,
			"mode", cfg.Mode)
	}

	e.nextID++
	seg := NewSegment(cfg)
	seg.ID = e.nextID
	e.segments = append(e.segments, seg)

	return seg.ID, nil
}

// RemoveSegment removes the segment with the given ID. Pixels it drew keep
// their color until something else draws over them.
func (e *Engine) RemoveSegment(id SegmentID) bool {
	for i, seg := range e.segments {
		if seg.ID == id {
			e.segments = append(e.segments[:i], e.segments[i+1:]...)
			return true
		}
	}
	return false
}

// ClearSegments removes every segment.
func (e *Engine) ClearSegments() {
	e.segments = nil
}

// Segments returns a copy of every segment in registration order.
func (e *Engine) Segments() []Segment {
	segs := make([]Segment, len(e.segments))
	for i, seg := range e.segments {
		segs[i] = seg.clone()
	}
	return segs
}

// Segment returns a copy of the segment with the given ID.
func (e *Engine) Segment(id SegmentID) (Segment, bool) {
	seg := e.find(id)
	if seg == nil {
		return Segment{}, false
	}
	return seg.clone(), true
}

func (e *Engine) find(id SegmentID) *Segment {
	for _, seg := range e.segments {
		if seg.ID == id {
			return seg
		}
	}
	return nil
}

// SetMode changes the mode of a segment. The segment's animation state,
// including any direction flipped by a bouncing mode, is reset and the
// segment runs on the next Update.
func (e *Engine) SetMode(id SegmentID, mode Mode) bool {
	seg := e.find(id)
	if seg == nil {
		return false
	}
	seg.Mode = mode
	seg.resetState()
	return true
}

// SetColors replaces the colors of a segment.
func (e *Engine) SetColors(id SegmentID, colors ...led.RGBColor) bool {
	seg := e.find(id)
	if seg == nil {
		return false
	}
	seg.Colors = append([]led.RGBColor(nil), colors...)
	return true
}

// SetSpeed changes the speed of a segment. Values below 1 are raised to 1.
func (e *Engine) SetSpeed(id SegmentID, speed int) bool {
	seg := e.find(id)
	if seg == nil {
		return false
	}
	seg.Speed = max(speed, 1)
	return true
}

// SetReverse changes the direction of a segment.
func (e *Engine) SetReverse(id SegmentID, reverse bool) bool {
	seg := e.find(id)
	if seg == nil {
		return false
	}
	seg.Reverse = reverse
	return true
}

// Start starts the animation. Every segment runs on the next Update.
func (e *Engine) Start() {
	e.running = true
	e.started = e.now()
	for _, seg := range e.segments {
		seg.state.lastUpdate = time.Time{}
	}
}

// Stop stops the animation and turns every pixel off.
func (e *Engine) Stop() {
	e.running = false
	e.leds.Clear()
}

// Running returns true between Start and Stop.
func (e *Engine) Running() bool { return e.running }

// Started returns the time of the last Start.
func (e *Engine) Started() time.Time { return e.started }

// Update advances the animation to now. Every segment whose gate is open runs
// its mode once, in registration order. Update does nothing if the engine is
// not running.
func (e *Engine) Update(now time.Time) {
	if !e.running {
		return
	}
	for _, seg := range e.segments {
		if !e.due(seg, now) {
			continue
		}
		seg.Mode.Step(seg, e.leds, e.rnd)
		seg.state.lastUpdate = now
	}
}

func (e *Engine) due(seg *Segment, now time.Time) bool {
	last := seg.state.lastUpdate
	if last.IsZero() {
		return true
	}

	var interval time.Duration
	switch e.gate {
	case HintGate:
		interval = seg.state.delay
	default:
		interval = speedToDuration(seg.Speed)
	}

	return now.Sub(last) >= interval
}

func speedToDuration(speed int) time.Duration {
	return time.Duration(speed) * time.Millisecond
}

// Pixel returns the color of pixel i, or black if i is outside the strip.
func (e *Engine) Pixel(i int) led.RGBColor {
	return e.leds.At(i)
}

// Pixels returns a copy of the pixel buffer. Brightness is not applied.
func (e *Engine) Pixels() led.LEDs {
	return e.leds.Clone()
}

// Snapshot copies the pixel buffer into dst with the brightness applied,
// growing dst if needed, and returns it.
func (e *Engine) Snapshot(dst led.LEDs) led.LEDs {
	return e.leds.ScaleInto(dst, e.brightness)
}

// SetBrightness sets the output brightness, from 0 to 255. The pixel buffer
// itself is not affected.
func (e *Engine) SetBrightness(brightness int) {
	e.brightness = min(max(brightness, 0), 255)
}

// Brightness returns the output brightness.
func (e *Engine) Brightness() int { return e.brightness }
