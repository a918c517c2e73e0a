package ledfx

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/ledfx/led"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// tick runs n updates spaced by every, starting at epoch.
func tick(e *Engine, n int, every time.Duration, f func(i int)) {
	for i := range n {
		e.Update(epoch.Add(time.Duration(i) * every))
		if f != nil {
			f(i)
		}
	}
}

func newTestEngine(n int, opts ...Option) *Engine {
	opts = append([]Option{
		WithClock(func() time.Time { return epoch }),
		WithRandom(fixedRandom(0)),
	}, opts...)
	return New(n, opts...)
}

func TestEngineStatic(t *testing.T) {
	e := newTestEngine(8)
	_, err := e.AddSegment(SegmentConfig{Start: 2, Stop: 5, Mode: Static, Colors: []led.RGBColor{led.Cyan}, Speed: 100})
	require.NoError(t, err)

	e.Start()
	tick(e, 30, 20*time.Millisecond, func(int) {
		for i := 0; i < e.Len(); i++ {
			if i >= 2 && i <= 5 {
				require.Equal(t, led.Cyan, e.Pixel(i))
			} else {
				require.Equal(t, led.Black, e.Pixel(i))
			}
		}
	})
}

func TestEngineNotRunning(t *testing.T) {
	e := newTestEngine(4)
	_, err := e.AddSegment(SegmentConfig{Start: 0, Stop: 3, Colors: []led.RGBColor{led.Red}})
	require.NoError(t, err)

	e.Update(epoch)
	assert.True(t, e.Pixels().IsBlack())
	assert.False(t, e.Running())
}

func TestEngineColorWipeGated(t *testing.T) {
	fg, bg := led.Red, led.Blue
	e := newTestEngine(5)
	_, err := e.AddSegment(SegmentConfig{Start: 0, Stop: 4, Mode: ColorWipe, Colors: []led.RGBColor{fg, bg}, Speed: 100})
	require.NoError(t, err)

	e.Start()

	// Ticks every 50ms open the gate on every other tick.
	tick(e, 9, 50*time.Millisecond, nil)
	assert.Equal(t, led.LEDs{fg, fg, fg, fg, fg}, e.Pixels())

	e.Update(epoch.Add(500 * time.Millisecond))
	assert.Equal(t, led.LEDs{bg, bg, bg, bg, bg}, e.Pixels())
}

func TestEngineOverlapLastWins(t *testing.T) {
	e := newTestEngine(10)
	_, err := e.AddSegment(SegmentConfig{Start: 0, Stop: 6, Colors: []led.RGBColor{led.Red}})
	require.NoError(t, err)
	_, err = e.AddSegment(SegmentConfig{Start: 4, Stop: 9, Colors: []led.RGBColor{led.Blue}})
	require.NoError(t, err)

	e.Start()
	e.Update(epoch)

	for i := 0; i < 4; i++ {
		assert.Equal(t, led.Red, e.Pixel(i), "pixel %d", i)
	}
	for i := 4; i < 10; i++ {
		assert.Equal(t, led.Blue, e.Pixel(i), "pixel %d", i)
	}
}

func TestEngineStopClears(t *testing.T) {
	e := newTestEngine(6)
	_, err := e.AddSegment(SegmentConfig{Start: 0, Stop: 5, Mode: RainbowCycle})
	require.NoError(t, err)

	e.Start()
	tick(e, 5, time.Second, nil)
	require.False(t, e.Pixels().IsBlack())

	e.Stop()
	assert.False(t, e.Running())
	assert.True(t, e.Pixels().IsBlack())

	e.Update(epoch.Add(time.Hour))
	assert.True(t, e.Pixels().IsBlack(), "update after stop must not draw")
}

func TestEngineScenario(t *testing.T) {
	e := newTestEngine(16)
	_, err := e.AddSegment(SegmentConfig{Start: 0, Stop: 4, Mode: RainbowCycle, Colors: []led.RGBColor{led.Red}, Speed: 1000})
	require.NoError(t, err)
	_, err = e.AddSegment(SegmentConfig{Start: 10, Stop: 15, Mode: Twinkle, Colors: []led.RGBColor{led.Blue, led.Black}, Speed: 2000})
	require.NoError(t, err)

	e.Start()

	lit := make([]bool, 16)
	tick(e, 50, 50*time.Millisecond, func(int) {
		for i := range lit {
			if !e.Pixel(i).IsBlack() {
				lit[i] = true
			}
		}
		for i := 5; i <= 9; i++ {
			require.Equal(t, led.Black, e.Pixel(i), "pixel %d is not covered", i)
		}
	})

	for i := 0; i <= 4; i++ {
		assert.True(t, lit[i], "rainbow pixel %d never lit", i)
	}
	assert.Contains(t, lit[10:], true, "twinkle never lit")
}

func TestEngineSpeedGate(t *testing.T) {
	e := newTestEngine(4)
	slow, err := e.AddSegment(SegmentConfig{Start: 0, Stop: 1, Mode: Strobe, Speed: 1000})
	require.NoError(t, err)
	fast, err := e.AddSegment(SegmentConfig{Start: 2, Stop: 3, Mode: Blink, Speed: 100})
	require.NoError(t, err)

	e.Start()
	tick(e, 101, 10*time.Millisecond, nil)

	s, _ := e.Segment(slow)
	f, _ := e.Segment(fast)
	assert.Equal(t, 2, s.Calls(), "strobe hint is ignored")
	assert.Equal(t, 11, f.Calls())
}

func TestEngineHintGate(t *testing.T) {
	e := newTestEngine(4, WithGate(HintGate))
	assert.Equal(t, HintGate, e.Gate())

	strobe, err := e.AddSegment(SegmentConfig{Start: 0, Stop: 3, Mode: Strobe, Speed: 1000})
	require.NoError(t, err)

	e.Start()
	tick(e, 101, 10*time.Millisecond, nil)

	s, _ := e.Segment(strobe)
	assert.Equal(t, 21, s.Calls())
}

func TestEngineAddSegment(t *testing.T) {
	e := newTestEngine(16)

	t.Run("swapped", func(t *testing.T) {
		id, err := e.AddSegment(SegmentConfig{Start: 9, Stop: 3})
		require.NoError(t, err)

		seg, ok := e.Segment(id)
		require.True(t, ok)
		assert.Equal(t, 3, seg.Start)
		assert.Equal(t, 9, seg.Stop)
	})

	t.Run("clipped", func(t *testing.T) {
		id, err := e.AddSegment(SegmentConfig{Start: -4, Stop: 30})
		require.NoError(t, err)

		seg, _ := e.Segment(id)
		assert.Equal(t, 0, seg.Start)
		assert.Equal(t, 15, seg.Stop)
	})

	t.Run("outside", func(t *testing.T) {
		_, err := e.AddSegment(SegmentConfig{Start: 20, Stop: 25})
		assert.True(t, errors.Is(err, ErrOutOfRange), "got %v", err)

		_, err = e.AddSegment(SegmentConfig{Start: -5, Stop: -1})
		assert.True(t, errors.Is(err, ErrOutOfRange), "got %v", err)
	})

	t.Run("speed", func(t *testing.T) {
		id, err := e.AddSegment(SegmentConfig{Start: 0, Stop: 0, Speed: -3})
		require.NoError(t, err)

		seg, _ := e.Segment(id)
		assert.Equal(t, 1, seg.Speed)
	})

	assert.Len(t, e.Segments(), 3)
}

func TestEngineSegmentIDs(t *testing.T) {
	e := newTestEngine(8)
	a, _ := e.AddSegment(SegmentConfig{Start: 0, Stop: 1})
	b, _ := e.AddSegment(SegmentConfig{Start: 2, Stop: 3})
	c, _ := e.AddSegment(SegmentConfig{Start: 4, Stop: 5})

	assert.True(t, e.RemoveSegment(b))
	assert.False(t, e.RemoveSegment(b))

	segs := e.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, a, segs[0].ID)
	assert.Equal(t, c, segs[1].ID)

	_, ok := e.Segment(b)
	assert.False(t, ok)

	e.ClearSegments()
	assert.Empty(t, e.Segments())
	assert.False(t, e.SetMode(a, Blink))
}

func TestEngineSegmentsAreCopies(t *testing.T) {
	e := newTestEngine(4)
	id, _ := e.AddSegment(SegmentConfig{Start: 0, Stop: 3, Colors: []led.RGBColor{led.Red}})

	seg, _ := e.Segment(id)
	seg.Colors[0] = led.Green
	seg.Stop = 100

	e.Start()
	e.Update(epoch)
	assert.Equal(t, led.LEDs{led.Red, led.Red, led.Red, led.Red}, e.Pixels())

	px := e.Pixels()
	px[0] = led.Blue
	assert.Equal(t, led.Red, e.Pixel(0))
}

func TestEngineSetModeResetsDirection(t *testing.T) {
	fg := led.Red
	e := newTestEngine(4)
	id, _ := e.AddSegment(SegmentConfig{Start: 0, Stop: 3, Mode: LarsonScanner, Colors: []led.RGBColor{fg, led.Black}, Speed: 1})

	e.Start()
	tick(e, 5, time.Millisecond, nil)
	assert.Equal(t, fg, e.Pixel(3), "fifth call runs from the far end")

	require.True(t, e.SetMode(id, Scan))
	e.Update(epoch.Add(time.Second))
	assert.Equal(t, fg, e.Pixel(0), "scan must start at the near end")

	seg, _ := e.Segment(id)
	assert.False(t, seg.Reverse)
	assert.Equal(t, 1, seg.Calls())
}

func TestEngineSetters(t *testing.T) {
	e := newTestEngine(3)
	id, _ := e.AddSegment(SegmentConfig{Start: 0, Stop: 2, Mode: ColorWipe, Colors: []led.RGBColor{led.Red}})

	require.True(t, e.SetColors(id, led.Green, led.Blue))
	require.True(t, e.SetSpeed(id, 0))
	require.True(t, e.SetReverse(id, true))

	e.Start()
	e.Update(epoch)
	assert.Equal(t, led.LEDs{led.Black, led.Black, led.Green}, e.Pixels())

	seg, _ := e.Segment(id)
	assert.Equal(t, 1, seg.Speed)
	assert.Equal(t, []led.RGBColor{led.Green, led.Blue}, seg.Colors)

	assert.False(t, e.SetColors(999))
	assert.False(t, e.SetSpeed(999, 1))
	assert.False(t, e.SetReverse(999, true))
}

func TestEngineBrightness(t *testing.T) {
	e := newTestEngine(2)
	e.AddSegment(SegmentConfig{Start: 0, Stop: 1, Colors: []led.RGBColor{led.White}})
	e.Start()
	e.Update(epoch)

	e.SetBrightness(128)
	assert.Equal(t, 128, e.Brightness())

	snap := e.Snapshot(nil)
	assert.Equal(t, led.LEDs{{128, 128, 128}, {128, 128, 128}}, snap)
	assert.Equal(t, led.White, e.Pixel(0), "buffer keeps full brightness")

	e.SetBrightness(1000)
	assert.Equal(t, 255, e.Brightness())
	e.SetBrightness(-1)
	assert.Equal(t, 0, e.Brightness())
}

func TestEngineStartRerunsSegments(t *testing.T) {
	e := newTestEngine(2)
	id, _ := e.AddSegment(SegmentConfig{Start: 0, Stop: 1, Mode: Blink, Speed: 1000})

	e.Start()
	e.Update(epoch)
	e.Stop()

	e.Start()
	e.Update(epoch.Add(time.Millisecond))

	seg, _ := e.Segment(id)
	assert.Equal(t, 2, seg.Calls())
	assert.Equal(t, epoch, e.Started())
}

func TestGatePolicyText(t *testing.T) {
	var g GatePolicy
	require.NoError(t, g.UnmarshalText([]byte("hint")))
	assert.Equal(t, HintGate, g)
	require.NoError(t, g.UnmarshalText([]byte("speed")))
	assert.Equal(t, SpeedGate, g)
	assert.Error(t, g.UnmarshalText([]byte("sometimes")))
}

func checkSegmentBounds(t *testing.T, start, stop int) {
	const n = 16

	e := New(n, WithSeed(1))
	id, err := e.AddSegment(SegmentConfig{Start: start, Stop: stop, Mode: Comet, Colors: []led.RGBColor{led.White}})
	if err != nil {
		require.True(t, errors.Is(err, ErrOutOfRange))
		return
	}

	seg, _ := e.Segment(id)
	require.GreaterOrEqual(t, seg.Start, 0)
	require.LessOrEqual(t, seg.Start, seg.Stop)
	require.Less(t, seg.Stop, n)

	e.Start()
	tick(e, 20, 10*time.Millisecond, nil)
	require.Equal(t, n, len(e.Pixels()))
}

func TestEngineSegmentBounds(t *testing.T) {
	for start := -20; start <= 20; start += 3 {
		for stop := -20; stop <= 40; stop += 4 {
			checkSegmentBounds(t, start, stop)
		}
	}
}

func FuzzEngineSegmentBounds(f *testing.F) {
	f.Add(20, 25)
	f.Add(-3, 5)
	f.Add(15, 0)
	f.Fuzz(func(t *testing.T, start, stop int) {
		checkSegmentBounds(t, start, stop)
	})
}
