// Package led contains the pixel buffer and the color math shared by every
// effect.
package led

import (
	"io"
	"unsafe"
)

// LEDs describes a strip of LEDs. It is a preallocated slice of RGBColor.
// Every method is bounds-checked: writes outside the strip are dropped and
// reads outside the strip return black.
type LEDs []RGBColor

// NewLEDs creates a new strip of LEDs. Colors are initialized to black
// (off).
func NewLEDs(numLEDs int) LEDs {
	if numLEDs < 0 {
		numLEDs = 0
	}
	return make(LEDs, numLEDs)
}

// WriteTo implements io.WriterTo. It writes the LED strip to the given writer
// as a series of RGBColor values.
func (l LEDs) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(l.AsPixels())
	return int64(n), err
}

// AsPixels returns the LED strip as a slice of uint8 values. Each LED is
// represented by three values, one for each color channel. The returned slice
// shares memory with l.
func (l LEDs) AsPixels() []uint8 {
	if len(l) == 0 {
		return nil
	}
	return unsafe.Slice((*uint8)(unsafe.Pointer(&l[0])), 3*len(l))
}

// At returns the color of the LED at the given index, or black if the index
// is outside the strip.
func (l LEDs) At(i int) RGBColor {
	if i < 0 || i >= len(l) {
		return Black
	}
	return l[i]
}

// Set sets the color of the LED at the given index.
func (l LEDs) Set(i int, c RGBColor) {
	if i < 0 || i >= len(l) {
		return
	}
	l[i] = c
}

// SetRange sets the color of the LEDs in the half-open range [start, end).
func (l LEDs) SetRange(start, end int, c RGBColor) {
	start = max(start, 0)
	end = min(end, len(l))
	for i := start; i < end; i++ {
		l[i] = c
	}
}

// Fill sets length LEDs starting at start to c, clipped to the strip.
func (l LEDs) Fill(c RGBColor, start, length int) {
	l.SetRange(start, start+length, c)
}

// Clear turns every LED off.
func (l LEDs) Clear() {
	l.Fill(Black, 0, len(l))
}

// Draw draws the given LEDs into the strip at the given index.
// It stops when either l or other is exhausted and returns the number of LEDs
// written.
func (l LEDs) Draw(start int, other LEDs) int {
	for i := range other {
		if start+i >= len(l) {
			return i
		}
		if start+i >= 0 {
			l[start+i] = other[i]
		}
	}
	return len(other)
}

// Clone returns a copy of the strip.
func (l LEDs) Clone() LEDs {
	c := make(LEDs, len(l))
	copy(c, l)
	return c
}

// CopyTo copies l into dst, growing dst if it is too short, and returns it.
func (l LEDs) CopyTo(dst LEDs) LEDs {
	if cap(dst) < len(l) {
		dst = make(LEDs, len(l))
	}
	dst = dst[:len(l)]
	copy(dst, l)
	return dst
}

// ScaleInto writes l scaled by brightness/255 into dst, growing dst if needed.
func (l LEDs) ScaleInto(dst LEDs, brightness int) LEDs {
	dst = l.CopyTo(dst)
	if brightness >= 255 {
		return dst
	}
	for i, c := range dst {
		dst[i] = Scale(c, brightness)
	}
	return dst
}

// IsBlack returns true if every LED in the strip is off.
func (l LEDs) IsBlack() bool {
	for _, c := range l {
		if !c.IsBlack() {
			return false
		}
	}
	return true
}
