package ledvis

import (
	"context"
	"io"
	"log/slog"
	"math"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"
	"libdb.so/ledfx/led"
	"libdb.so/ledfx/ledserial"
)

// SerialConfig configures a controller board attached over a serial port.
type SerialConfig struct {
	// Device is the path to the device file of the controller.
	// This is usually /dev/ttyUSB0 or /dev/ttyACM0.
	Device string `toml:"device" yaml:"device"`
	// Baud is the baud rate for the serial connection.
	Baud int `toml:"baud" yaml:"baud"`
	// Brightness, if not zero, is sent to the controller once it is
	// initialized.
	Brightness uint8 `toml:"brightness" yaml:"brightness"`
}

// Serial drives a controller board using the ledserial protocol. A frame is
// only sent once the controller has acknowledged the previous packet, so a
// slow controller skips frames instead of falling behind.
type Serial struct {
	baseOutput
	cfg     SerialConfig
	numLEDs int
	logger  *slog.Logger
	open    func() (io.ReadWriteCloser, error)
}

var _ Output = (*Serial)(nil)

// NewSerial creates a serial output for a strip of numLEDs pixels.
func NewSerial(cfg SerialConfig, numLEDs int, logger *slog.Logger) *Serial {
	s := &Serial{
		cfg:     cfg,
		numLEDs: numLEDs,
		logger:  logger,
	}
	s.open = func() (io.ReadWriteCloser, error) {
		return serial.Open(cfg.Device, &serial.Mode{BaudRate: cfg.Baud})
	}
	s.init()
	return s
}

// Name implements Output.
func (s *Serial) Name() string { return "serial" }

// Run implements Output.
func (s *Serial) Run(ctx context.Context) error {
	if s.numLEDs < 1 || s.numLEDs > math.MaxUint16 {
		return errors.Errorf("%d LEDs cannot be addressed over serial (max %d)", s.numLEDs, math.MaxUint16)
	}

	port, err := s.open()
	if err != nil {
		return errors.Wrapf(err, "failed to open serial port %q", s.cfg.Device)
	}
	defer port.Close()

	if p, ok := port.(serial.Port); ok {
		if err := p.SetReadTimeout(serial.NoTimeout); err != nil {
			return errors.Wrap(err, "failed to reset read timeout")
		}
	}

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		<-ctx.Done()
		s.logger.Debug("closing serial port")
		if err := port.Close(); err != nil {
			return errors.Wrap(err, "failed to close serial port")
		}
		return ctx.Err()
	})

	packets := make(chan ledserial.OutgoingPacket)
	errg.Go(func() error {
		return s.mainLoop(ctx, port, packets)
	})
	errg.Go(func() error {
		return s.readPackets(ctx, port, packets)
	})

	err = errg.Wait()
	s.logger.Debug("serial output stopped", "dropped_frames", s.Dropped())
	return err
}

func (s *Serial) mainLoop(ctx context.Context, w io.Writer, packets <-chan ledserial.OutgoingPacket) error {
	setup := []ledserial.IncomingPacket{
		ledserial.InitializePacket{NumLEDs: uint16(s.numLEDs)},
	}
	if s.cfg.Brightness > 0 {
		setup = append(setup, ledserial.BrightnessPacket{Brightness: s.cfg.Brightness})
	}

	s.logger.Debug("sending initialize packet", "num_leds", s.numLEDs)
	if !s.writePacket(w, setup[0]) {
		return errors.New("failed to initialize controller")
	}
	setup = setup[1:]

	// nil until the controller acknowledges the last packet
	var ready <-chan struct{}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case p := <-packets:
			switch p := p.(type) {
			case ledserial.AckPacket:
				s.logger.Debug(
					"received ack packet from controller",
					"acked_for", p.IncomingPacketType)

				if len(setup) > 0 {
					if !s.writePacket(w, setup[0]) {
						return errors.Errorf("failed to send %s packet", setup[0].Type())
					}
					setup = setup[1:]
					continue
				}

				ready = s.Ready()

			case ledserial.ErrorPacket:
				s.logger.Warn(
					"received error packet from controller",
					"message", p.Message)
				return errors.Errorf("controller reported error: %s", p.Message)

			case ledserial.PanicPacket:
				s.logger.Error(
					"controller unrecoverably panicked",
					"message", p.Message)
				return errors.Errorf("controller panicked: %s", p.Message)

			case ledserial.LogPacket:
				s.logger.Info(
					"received log packet from controller",
					"message", p.Message)

			default:
				return errors.Errorf("received unknown packet from controller: %s", p.Type())
			}

		case <-ready:
			var sent bool
			s.AcquireFrame(func(frame led.LEDs) {
				sent = s.writePacket(w, ledserial.NewSetPacket(frame))
			})
			if sent {
				// Wait for the ack before sending the next frame.
				ready = nil
			}
		}
	}
}

func (s *Serial) readPackets(ctx context.Context, r io.Reader, dst chan<- ledserial.OutgoingPacket) error {
	for ctx.Err() == nil {
		p, err := ledserial.ReadOutgoingPacket(r)
		if err != nil {
			// A short read indicates a timeout or a closed port.
			if errors.Is(err, io.EOF) {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			return errors.Wrap(err, "failed to read packet")
		}

		s.logger.Debug(
			"received packet from controller",
			"type", p.Type())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case dst <- p:
		}
	}

	return ctx.Err()
}

func (s *Serial) writePacket(w io.Writer, p ledserial.IncomingPacket) bool {
	s.logger.Debug(
		"writing packet",
		"type", p.Type())

	if err := ledserial.WriteIncomingPacket(w, p); err != nil {
		s.logger.Warn(
			"failed to write packet",
			"packet", p.Type(),
			"error", err)
		return false
	}

	return true
}
