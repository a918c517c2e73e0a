package ledfx

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"libdb.so/ledfx/led"
)

// Mode identifies an effect. The numeric values are stable and match the
// identifiers used by existing configuration files.
type Mode uint8

const (
	Static Mode = iota
	Blink
	Breath
	ColorWipe
	ColorWipeInv
	ColorWipeRev
	ColorWipeRevInv
	ColorWipeRandom
	RandomColor
	SingleDynamic
	MultiDynamic
	Rainbow
	RainbowCycle
	Scan
	DualScan
	Fade
	TheaterChase
	TheaterChaseRainbow
	RunningLights
	Twinkle
	TwinkleRandom
	TwinkleFade
	TwinkleFadeRandom
	Sparkle
	FlashSparkle
	HyperSparkle
	Strobe
	StrobeRainbow
	MultiStrobe
	BlinkRainbow
	StrobeRainbowAlt
	ChaseWhite
	ChaseColor
	ChaseRandom
	ChaseRainbow
	ChaseFlash
	ChaseFlashRandom
	ChaseRainbowWhite
	ChaseBlackout
	ChaseBlackoutRainbow
	ColorSweepRandom
	RunningColor
	RunningRedBlue
	RunningRandom
	LarsonScanner
	Comet
	Fireworks
	FireworksRandom
	FireFlicker
	FireFlickerSoft
	FireFlickerIntense
	CircusCombustus
	Halloween
	BicolorChase
	TricolorChase
	TwinkleFox
	Rain
	BlockDissolve
	ICU
	DualLarson
	RunningRandom2
	FillerUp
	RainbowLarson
	RainbowFireworks
	TriFade
	Heartbeat
	VUMeter
	Bits
	MultiComet
	Flipbook
	Popcorn
	Oscillator

	modeCount
)

var modeNames = [modeCount]string{
	"static", "blink", "breath", "color_wipe", "color_wipe_inv",
	"color_wipe_rev", "color_wipe_rev_inv", "color_wipe_random",
	"random_color", "single_dynamic", "multi_dynamic", "rainbow",
	"rainbow_cycle", "scan", "dual_scan", "fade", "theater_chase",
	"theater_chase_rainbow", "running_lights", "twinkle", "twinkle_random",
	"twinkle_fade", "twinkle_fade_random", "sparkle", "flash_sparkle",
	"hyper_sparkle", "strobe", "strobe_rainbow", "multi_strobe",
	"blink_rainbow", "strobe_rainbow_alt", "chase_white", "chase_color",
	"chase_random", "chase_rainbow", "chase_flash", "chase_flash_random",
	"chase_rainbow_white", "chase_blackout", "chase_blackout_rainbow",
	"color_sweep_random", "running_color", "running_red_blue",
	"running_random", "larson_scanner", "comet", "fireworks",
	"fireworks_random", "fire_flicker", "fire_flicker_soft",
	"fire_flicker_intense", "circus_combustus", "halloween", "bicolor_chase",
	"tricolor_chase", "twinklefox", "rain", "block_dissolve", "icu",
	"dual_larson", "running_random2", "filler_up", "rainbow_larson",
	"rainbow_fireworks", "trifade", "heartbeat", "vu_meter", "bits",
	"multi_comet", "flipbook", "popcorn", "oscillator",
}

// modeFunc renders one invocation of an effect and returns the delay the
// effect would like before its next invocation.
type modeFunc func(f *frame) time.Duration

// modeTable is the dispatch table. It is indexed by Mode and never changes
// after package initialization.
var modeTable [modeCount]modeFunc

func init() {
	modeTable = [modeCount]modeFunc{
		Static:               modeStatic,
		Blink:                modeBlink,
		Breath:               modeBreath,
		ColorWipe:            modeColorWipe,
		ColorWipeInv:         modeColorWipeInv,
		ColorWipeRev:         modeColorWipeRev,
		ColorWipeRevInv:      modeColorWipeRevInv,
		ColorWipeRandom:      modeColorWipeRandom,
		RandomColor:          modeRandomColor,
		SingleDynamic:        modeSingleDynamic,
		MultiDynamic:         modeMultiDynamic,
		Rainbow:              modeRainbow,
		RainbowCycle:         modeRainbowCycle,
		Scan:                 modeScan,
		DualScan:             modeDualScan,
		Fade:                 modeFade,
		TheaterChase:         modeTheaterChase,
		TheaterChaseRainbow:  modeTheaterChaseRainbow,
		RunningLights:        modeRunningLights,
		Twinkle:              modeTwinkle,
		TwinkleRandom:        modeTwinkleRandom,
		TwinkleFade:          modeTwinkleFade,
		TwinkleFadeRandom:    modeTwinkleFadeRandom,
		Sparkle:              modeSparkle,
		FlashSparkle:         modeFlashSparkle,
		HyperSparkle:         modeHyperSparkle,
		Strobe:               modeStrobe,
		StrobeRainbow:        modeStrobeRainbow,
		MultiStrobe:          modeMultiStrobe,
		BlinkRainbow:         modeBlinkRainbow,
		StrobeRainbowAlt:     modeStrobeRainbowAlt,
		ChaseWhite:           modeChaseWhite,
		ChaseColor:           modeChaseColor,
		ChaseRandom:          modeChaseRandom,
		ChaseRainbow:         modeChaseRainbow,
		ChaseFlash:           modeChaseFlash,
		ChaseFlashRandom:     modeChaseFlashRandom,
		ChaseRainbowWhite:    modeChaseRainbowWhite,
		ChaseBlackout:        modeChaseBlackout,
		ChaseBlackoutRainbow: modeChaseBlackoutRainbow,
		ColorSweepRandom:     modeColorSweepRandom,
		RunningColor:         modeRunningColor,
		RunningRedBlue:       modeRunningRedBlue,
		RunningRandom:        modeRunningRandom,
		LarsonScanner:        modeLarsonScanner,
		Comet:                modeComet,
		Fireworks:            modeFireworks,
		FireworksRandom:      modeFireworksRandom,
		FireFlicker:          modeFireFlicker,
		FireFlickerSoft:      modeFireFlickerSoft,
		FireFlickerIntense:   modeFireFlickerIntense,
		CircusCombustus:      modeCircusCombustus,
		Halloween:            modeHalloween,
		BicolorChase:         modeBicolorChase,
		TricolorChase:        modeTricolorChase,
		TwinkleFox:           modeTwinkleFox,
		Rain:                 modeRain,
		BlockDissolve:        modeBlockDissolve,
		ICU:                  modeICU,
		DualLarson:           modeDualLarson,
		RunningRandom2:       modeRunningRandom2,
		FillerUp:             modeFillerUp,
		RainbowLarson:        modeRainbowLarson,
		RainbowFireworks:     modeRainbowFireworks,
		TriFade:              modeTriFade,
		Heartbeat:            modeHeartbeat,
		VUMeter:              modeVUMeter,
		Bits:                 modeBits,
		MultiComet:           modeMultiComet,
		Flipbook:             modeFlipbook,
		Popcorn:              modePopcorn,
		Oscillator:           modeOscillator,
	}
}

// Modes returns every known mode in numeric order.
func Modes() []Mode {
	modes := make([]Mode, modeCount)
	for i := range modes {
		modes[i] = Mode(i)
	}
	return modes
}

// Valid returns true if m is a known mode.
func (m Mode) Valid() bool {
	return m < modeCount
}

// String returns the snake_case name of the mode.
func (m Mode) String() string {
	if !m.Valid() {
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
	return modeNames[m]
}

// ParseMode parses a mode either by its name, case-insensitively, or by its
// numeric value.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 0 && n < int(modeCount) {
		return Mode(n), nil
	}
	return Static, errors.Errorf("unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, errors.Errorf("unknown mode %d", m)
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Step runs a single invocation of the mode on the given segment. Only pixels
// inside the segment are written. The segment's call counter is incremented
// and the returned delay hint is remembered on the segment. Unknown modes
// render as Static.
func (m Mode) Step(seg *Segment, leds led.LEDs, rnd Random) time.Duration {
	fn := modeStatic
	if m.Valid() {
		fn = modeTable[m]
	}

	f := frame{
		seg:  seg,
		st:   &seg.state,
		leds: leds,
		rnd:  rnd,
		n:    seg.Len(),
	}

	var delay time.Duration
	if f.n > 0 {
		delay = max(fn(&f), 0)
	}

	seg.state.calls++
	seg.state.delay = delay
	return delay
}
