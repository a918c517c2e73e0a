// Package ledvis contains the outputs that rendered frames are pushed to: a
// serial LED controller, WebSocket viewers and a terminal preview.
package ledvis

import (
	"context"
	"sync"

	"libdb.so/ledfx/led"
)

// Output is a sink for rendered frames.
type Output interface {
	// Name returns a short name for logging.
	Name() string
	// PutFrame hands a frame to the output. It never blocks and the frame is
	// copied, so the caller may reuse it. Frames that the output has not
	// consumed yet are replaced.
	PutFrame(frame led.LEDs)
	// Run runs the output until ctx is canceled or the output fails.
	Run(ctx context.Context) error
}

// baseOutput holds the latest frame pushed to an output. It must be
// initialized with init before use.
type baseOutput struct {
	mu      sync.Mutex
	leds    led.LEDs
	fresh   bool
	dropped uint64
	ready   chan struct{}
}

func (o *baseOutput) init() {
	o.ready = make(chan struct{}, 1)
}

// PutFrame implements Output.
func (o *baseOutput) PutFrame(frame led.LEDs) {
	o.mu.Lock()
	o.leds = frame.CopyTo(o.leds)
	if o.fresh {
		o.dropped++
	}
	o.fresh = true
	o.mu.Unlock()

	select {
	case o.ready <- struct{}{}:
	default:
	}
}

// Ready returns a channel that receives a value after PutFrame.
func (o *baseOutput) Ready() <-chan struct{} {
	return o.ready
}

// AcquireFrame calls f with the latest frame if it has not been acquired
// yet. f must not keep the frame after it returns.
func (o *baseOutput) AcquireFrame(f func(led.LEDs)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.fresh {
		return false
	}
	o.fresh = false
	f(o.leds)
	return true
}

// Dropped returns the number of frames that were replaced before being
// acquired.
func (o *baseOutput) Dropped() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}
