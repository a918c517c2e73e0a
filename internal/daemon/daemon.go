// Package daemon runs the effect engine at a steady rate and pushes every
// frame to the configured outputs.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"libdb.so/ledfx"
	"libdb.so/ledfx/internal/ledvis"
	"libdb.so/ledfx/led"
)

// Daemon is the main ledfx daemon.
type Daemon struct {
	cfg     *Config
	logger  *slog.Logger
	engine  *ledfx.Engine
	outputs []ledvis.Output
}

// NewDaemon creates a new daemon. Outputs described by the configuration
// are created right away; more can be added with AddOutput.
func NewDaemon(cfg *Config, logger *slog.Logger, opts ...ledfx.Option) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	engine, err := NewEngine(cfg, logger, opts...)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:    cfg,
		logger: logger,
		engine: engine,
	}

	if cfg.Serial != nil {
		d.AddOutput(ledvis.NewSerial(*cfg.Serial, engine.Len(), logger.With("output", "serial")))
	}
	if cfg.WebSocket != nil {
		d.AddOutput(ledvis.NewWebSocket(*cfg.WebSocket, logger.With("output", "websocket")))
	}

	return d, nil
}

// NewEngine creates an engine with every segment of the configuration
// added to it. The options are applied after the configured ones.
func NewEngine(cfg *Config, logger *slog.Logger, opts ...ledfx.Option) (*ledfx.Engine, error) {
	gate, err := cfg.GatePolicy()
	if err != nil {
		return nil, err
	}

	opts = append([]ledfx.Option{
		ledfx.WithSeed(cfg.Seed),
		ledfx.WithGate(gate),
		ledfx.WithLogger(logger),
	}, opts...)

	engine := ledfx.New(cfg.NumLEDs(), opts...)
	engine.SetBrightness(cfg.Brightness)

	for i, seg := range cfg.Segments {
		segCfg, err := seg.EngineConfig()
		if err != nil {
			return nil, errors.Wrapf(err, "segment %d (%q)", i, seg.Name)
		}
		if _, err := engine.AddSegment(segCfg); err != nil {
			return nil, errors.Wrapf(err, "segment %d (%q)", i, seg.Name)
		}
	}

	return engine, nil
}

// AddOutput adds an output. It must be called before Run.
func (d *Daemon) AddOutput(o ledvis.Output) {
	d.outputs = append(d.outputs, o)
}

// Engine returns the daemon's engine. It must not be used while the daemon
// is running.
func (d *Daemon) Engine() *ledfx.Engine {
	return d.engine
}

// Run starts the daemon. It blocks until the given context is canceled or
// an output fails.
func (d *Daemon) Run(ctx context.Context) error {
	if len(d.outputs) == 0 {
		return errors.New("no outputs configured")
	}

	errg, ctx := errgroup.WithContext(ctx)
	for _, o := range d.outputs {
		errg.Go(func() error {
			d.logger.Debug("starting output", "output", o.Name())
			return errors.Wrapf(o.Run(ctx), "%s output", o.Name())
		})
	}
	errg.Go(func() error {
		return d.tick(ctx)
	})

	return errg.Wait()
}

func (d *Daemon) tick(ctx context.Context) error {
	interval := d.cfg.TickInterval()
	d.logger.Debug(
		"starting engine",
		"num_leds", d.engine.Len(),
		"segments", len(d.cfg.Segments),
		"interval", interval,
		"gate", d.engine.Gate())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var frame led.LEDs
	render := func(now time.Time) {
		d.engine.Update(now)
		frame = d.engine.Snapshot(frame)
		for _, o := range d.outputs {
			o.PutFrame(frame)
		}
	}

	d.engine.Start()
	defer d.engine.Stop()

	render(time.Now())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			render(now)
		}
	}
}
