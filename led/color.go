package led

import (
	"encoding"
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBColor is a single pixel color. Each channel is 8 bits wide and the
// channels are stored in red, green, blue order, which is also the order they
// are written to the wire in.
type RGBColor [3]uint8

// Common colors.
var (
	Black   = RGBColor{0, 0, 0}
	White   = RGBColor{255, 255, 255}
	Red     = RGBColor{255, 0, 0}
	Green   = RGBColor{0, 255, 0}
	Blue    = RGBColor{0, 0, 255}
	Yellow  = RGBColor{255, 255, 0}
	Cyan    = RGBColor{0, 255, 255}
	Magenta = RGBColor{255, 0, 255}
	Orange  = RGBColor{255, 165, 0}
	Pink    = RGBColor{255, 192, 203}
	Purple  = RGBColor{128, 0, 128}
	Gray    = RGBColor{128, 128, 128}
)

var (
	_ encoding.TextUnmarshaler = (*RGBColor)(nil)
	_ encoding.TextMarshaler   = RGBColor{}
)

// ParseRGB parses a color in the #rrggbb notation.
func ParseRGB(s string) (RGBColor, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return RGBColor{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return RGBColor{r, g, b}, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *RGBColor) UnmarshalText(text []byte) error {
	v, err := ParseRGB(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c RGBColor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// String returns the color in the #rrggbb notation.
func (c RGBColor) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// IsBlack returns true if all channels are zero.
func (c RGBColor) IsBlack() bool {
	return c == Black
}

// Blend linearly interpolates between a and b. A ratio of 0 returns a and a
// ratio of 255 returns b. The ratio is clamped to [0, 255].
func Blend(a, b RGBColor, ratio int) RGBColor {
	ratio = clamp(ratio, 0, 255)
	var out RGBColor
	for i := range out {
		v := (int(a[i])*(255-ratio) + int(b[i])*ratio + 127) / 255
		out[i] = uint8(v)
	}
	return out
}

// Scale scales every channel of c by f/255. f is clamped to [0, 255].
func Scale(c RGBColor, f int) RGBColor {
	f = clamp(f, 0, 255)
	return RGBColor{
		uint8(int(c[0]) * f / 255),
		uint8(int(c[1]) * f / 255),
		uint8(int(c[2]) * f / 255),
	}
}

// FadeToward moves every channel of c toward target by at most step. A
// channel within step of the target snaps to it.
func FadeToward(c, target RGBColor, step int) RGBColor {
	for i := range c {
		d := int(target[i]) - int(c[i])
		switch {
		case d > step:
			c[i] += uint8(step)
		case d < -step:
			c[i] -= uint8(step)
		default:
			c[i] = target[i]
		}
	}
	return c
}

// Subtract subtracts n from every channel, stopping at zero.
func Subtract(c RGBColor, n int) RGBColor {
	for i := range c {
		c[i] = uint8(max(int(c[i])-n, 0))
	}
	return c
}

// Wheel maps pos (mod 256) onto a fully saturated hue. It is the usual
// three-segment approximation of an HSV wheel: red to green, green to blue
// and blue back to red, each 85 steps wide.
func Wheel(pos int) RGBColor {
	p := pos & 0xFF
	switch {
	case p < 85:
		return RGBColor{uint8(255 - p*3), uint8(p * 3), 0}
	case p < 170:
		p -= 85
		return RGBColor{0, uint8(255 - p*3), uint8(p * 3)}
	default:
		p -= 170
		return RGBColor{uint8(p * 3), 0, uint8(255 - p*3)}
	}
}

var sineTable [256]int16

func init() {
	for i := range sineTable {
		sineTable[i] = int16(math.Round(255 * math.Sin(float64(i)*2*math.Pi/256)))
	}
}

// Sine8 returns round(255 * sin(angle * 2π / 256)). The angle wraps every 256
// steps, so the result is in [-255, 255].
func Sine8(angle int) int {
	return int(sineTable[angle&0xFF])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
