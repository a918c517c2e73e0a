// Package ledserial implements the serial protocol spoken between the host
// and an LED controller board.
//
// Every packet starts with a one-byte type, is followed by a type-specific
// body, and ends with the little-endian CRC32 (IEEE) of the type and body.
// Packets sent by the host are "incoming" from the controller's point of
// view; packets sent by the controller are "outgoing".
package ledserial

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
	"libdb.so/ledfx/led"
)

// Endianness defines the endianness of the protocol.
var Endianness = binary.LittleEndian

// ErrChecksum is returned when a packet's checksum does not match its
// content.
var ErrChecksum = errors.New("packet checksum mismatch")

// IncomingPacketType is the type of a packet sent to the controller.
type IncomingPacketType uint8

const (
	TypeInitializePacket IncomingPacketType = iota
	TypeClearPacket
	TypeSetPacket
	TypeBrightnessPacket
)

// String returns a string representation of the packet type.
func (t IncomingPacketType) String() string {
	switch t {
	case TypeInitializePacket:
		return "initialize"
	case TypeClearPacket:
		return "clear"
	case TypeSetPacket:
		return "set"
	case TypeBrightnessPacket:
		return "brightness"
	default:
		return fmt.Sprintf("IncomingPacketType(%d)", t)
	}
}

// IncomingPacket is a packet sent to the controller.
type IncomingPacket interface {
	// Type returns the type of packet.
	Type() IncomingPacketType
}

// InitializePacket tells the controller how many LEDs the strip has. The
// controller must acknowledge it before any other packet is sent.
type InitializePacket struct {
	NumLEDs uint16
}

// ClearPacket turns every LED off.
type ClearPacket struct{}

// SetPacket sets every LED of the strip at once. Pix holds three bytes per
// LED in red, green, blue order.
type SetPacket struct {
	Pix []uint8
}

// NewSetPacket creates a SetPacket from a frame. The pixel data is copied.
func NewSetPacket(frame led.LEDs) SetPacket {
	return SetPacket{Pix: append([]uint8(nil), frame.AsPixels()...)}
}

// BrightnessPacket sets the global brightness applied by the controller.
type BrightnessPacket struct {
	Brightness uint8
}

func (p InitializePacket) Type() IncomingPacketType { return TypeInitializePacket }
func (p ClearPacket) Type() IncomingPacketType      { return TypeClearPacket }
func (p SetPacket) Type() IncomingPacketType        { return TypeSetPacket }
func (p BrightnessPacket) Type() IncomingPacketType { return TypeBrightnessPacket }

// OutgoingPacketType is the type of a packet sent by the controller.
type OutgoingPacketType uint8

const (
	TypeErrorPacket OutgoingPacketType = iota
	TypePanicPacket
	TypeLogPacket
	TypeAckPacket
)

// String returns a string representation of the packet type.
func (t OutgoingPacketType) String() string {
	switch t {
	case TypeErrorPacket:
		return "error"
	case TypePanicPacket:
		return "panic"
	case TypeLogPacket:
		return "log"
	case TypeAckPacket:
		return "ack"
	default:
		return fmt.Sprintf("OutgoingPacketType(%d)", t)
	}
}

// OutgoingPacket is a packet sent by the controller.
type OutgoingPacket interface {
	// Type returns the type of packet.
	Type() OutgoingPacketType
}

// ErrorPacket reports a recoverable error.
type ErrorPacket struct {
	Message string
}

// PanicPacket reports that the controller cannot recover.
type PanicPacket struct {
	Message string
}

// LogPacket carries a log line from the controller.
type LogPacket struct {
	Message string
}

// AckPacket acknowledges an incoming packet.
type AckPacket struct {
	// IncomingPacketType is the type of the packet being acknowledged.
	IncomingPacketType IncomingPacketType
}

func (p ErrorPacket) Type() OutgoingPacketType { return TypeErrorPacket }
func (p PanicPacket) Type() OutgoingPacketType { return TypePanicPacket }
func (p LogPacket) Type() OutgoingPacketType   { return TypeLogPacket }
func (p AckPacket) Type() OutgoingPacketType   { return TypeAckPacket }

// ReadContext is the state of the LED strip. Data in this structure are
// required to read incoming packets.
type ReadContext struct {
	// NumLEDs is the number of LEDs in the strip.
	NumLEDs uint16
}

// packetReader reads a packet body while hashing everything it reads.
type packetReader struct {
	r    io.Reader
	hash hash.Hash32
}

func newPacketReader(r io.Reader) *packetReader {
	h := crc32.NewIEEE()
	return &packetReader{r: io.TeeReader(r, h), hash: h}
}

func (r *packetReader) u8() (uint8, error) {
	var b [1]byte
	_, err := io.ReadFull(r.r, b[:])
	return b[0], err
}

func (r *packetReader) value(v any) error {
	return binary.Read(r.r, Endianness, v)
}

func (r *packetReader) bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := io.ReadFull(r.r, b)
	return b, err
}

func (r *packetReader) message() (string, error) {
	var length uint16
	if err := r.value(&length); err != nil {
		return "", errors.Wrap(err, "failed to read message length")
	}
	b, err := r.bytes(int(length))
	if err != nil {
		return "", errors.Wrap(err, "failed to read message")
	}
	return string(b), nil
}

// verify reads the checksum trailer and checks it against everything read so
// far.
func (r *packetReader) verify() error {
	sum := r.hash.Sum32()

	var checksum uint32
	if err := r.value(&checksum); err != nil {
		return errors.Wrap(err, "failed to read packet checksum")
	}
	if checksum != sum {
		return ErrChecksum
	}
	return nil
}

// packetWriter writes a packet body while hashing everything it writes.
type packetWriter struct {
	w    io.Writer
	hash hash.Hash32
	err  error
}

func newPacketWriter(w io.Writer, ptype uint8) *packetWriter {
	h := crc32.NewIEEE()
	pw := &packetWriter{w: io.MultiWriter(w, h), hash: h}
	pw.bytes([]byte{ptype})
	return pw
}

func (w *packetWriter) value(v any) {
	if w.err == nil {
		w.err = binary.Write(w.w, Endianness, v)
	}
}

func (w *packetWriter) bytes(b []byte) {
	if w.err == nil {
		_, w.err = w.w.Write(b)
	}
}

func (w *packetWriter) message(s string) {
	if len(s) > 0xFFFF {
		s = s[:0xFFFF]
	}
	w.value(uint16(len(s)))
	w.bytes([]byte(s))
}

// finish writes the checksum trailer.
func (w *packetWriter) finish() error {
	w.value(w.hash.Sum32())
	return errors.Wrap(w.err, "failed to write packet")
}

// ReadIncomingPacket reads a packet sent to the controller.
func ReadIncomingPacket(r io.Reader, context ReadContext) (IncomingPacket, error) {
	pr := newPacketReader(r)

	ptype, err := pr.u8()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read incoming packet type")
	}

	var packet IncomingPacket

	switch ptype := IncomingPacketType(ptype); ptype {
	case TypeInitializePacket:
		var p InitializePacket
		if err := pr.value(&p.NumLEDs); err != nil {
			return nil, errors.Wrap(err, "failed to read number of LEDs")
		}
		packet = p

	case TypeClearPacket:
		packet = ClearPacket{}

	case TypeSetPacket:
		pix, err := pr.bytes(3 * int(context.NumLEDs))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read pixel data")
		}
		packet = SetPacket{Pix: pix}

	case TypeBrightnessPacket:
		b, err := pr.u8()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read brightness")
		}
		packet = BrightnessPacket{Brightness: b}

	default:
		return nil, errors.Errorf("unknown packet type: %s", ptype)
	}

	if err := pr.verify(); err != nil {
		return nil, err
	}

	return packet, nil
}

// WriteIncomingPacket writes a packet to be sent to the controller.
func WriteIncomingPacket(w io.Writer, p IncomingPacket) error {
	switch p := p.(type) {
	case InitializePacket:
		pw := newPacketWriter(w, uint8(TypeInitializePacket))
		pw.value(p.NumLEDs)
		return pw.finish()
	case ClearPacket:
		return newPacketWriter(w, uint8(TypeClearPacket)).finish()
	case SetPacket:
		pw := newPacketWriter(w, uint8(TypeSetPacket))
		pw.bytes(p.Pix)
		return pw.finish()
	case BrightnessPacket:
		pw := newPacketWriter(w, uint8(TypeBrightnessPacket))
		pw.bytes([]byte{p.Brightness})
		return pw.finish()
	default:
		return errors.Errorf("unknown packet type: %T", p)
	}
}

// ReadOutgoingPacket reads a packet sent by the controller.
func ReadOutgoingPacket(r io.Reader) (OutgoingPacket, error) {
	pr := newPacketReader(r)

	ptype, err := pr.u8()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read outgoing packet type")
	}

	var packet OutgoingPacket

	switch ptype := OutgoingPacketType(ptype); ptype {
	case TypeErrorPacket:
		msg, err := pr.message()
		if err != nil {
			return nil, errors.Wrap(err, "error packet")
		}
		packet = ErrorPacket{Message: msg}

	case TypePanicPacket:
		msg, err := pr.message()
		if err != nil {
			return nil, errors.Wrap(err, "panic packet")
		}
		packet = PanicPacket{Message: msg}

	case TypeLogPacket:
		msg, err := pr.message()
		if err != nil {
			return nil, errors.Wrap(err, "log packet")
		}
		packet = LogPacket{Message: msg}

	case TypeAckPacket:
		t, err := pr.u8()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read acknowledged packet type")
		}
		packet = AckPacket{IncomingPacketType: IncomingPacketType(t)}

	default:
		return nil, errors.Errorf("unknown packet type: %s", ptype)
	}

	if err := pr.verify(); err != nil {
		return nil, err
	}

	return packet, nil
}

// WriteOutgoingPacket writes a packet sent by the controller.
func WriteOutgoingPacket(w io.Writer, p OutgoingPacket) error {
	switch p := p.(type) {
	case ErrorPacket:
		pw := newPacketWriter(w, uint8(TypeErrorPacket))
		pw.message(p.Message)
		return pw.finish()
	case PanicPacket:
		pw := newPacketWriter(w, uint8(TypePanicPacket))
		pw.message(p.Message)
		return pw.finish()
	case LogPacket:
		pw := newPacketWriter(w, uint8(TypeLogPacket))
		pw.message(p.Message)
		return pw.finish()
	case AckPacket:
		pw := newPacketWriter(w, uint8(TypeAckPacket))
		pw.bytes([]byte{uint8(p.IncomingPacketType)})
		return pw.finish()
	default:
		return errors.Errorf("unknown packet type: %T", p)
	}
}
