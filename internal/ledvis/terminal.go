package ledvis

import (
	"context"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
	"libdb.so/ledfx/led"
)

// ErrQuit is returned by the terminal preview when the user closes it.
var ErrQuit = errors.New("preview closed by user")

// Terminal previews frames in the terminal, one cell per pixel, wrapping to
// the width of the screen. Pressing q, Esc or Ctrl-C closes it with ErrQuit.
type Terminal struct {
	baseOutput
	logger    *slog.Logger
	newScreen func() (tcell.Screen, error)
}

var _ Output = (*Terminal)(nil)

// NewTerminal creates a terminal preview.
func NewTerminal(logger *slog.Logger) *Terminal {
	t := &Terminal{
		logger:    logger,
		newScreen: tcell.NewScreen,
	}
	t.init()
	return t
}

// Name implements Output.
func (t *Terminal) Name() string { return "terminal" }

// Run implements Output.
func (t *Terminal) Run(ctx context.Context) error {
	screen, err := t.newScreen()
	if err != nil {
		return errors.Wrap(err, "failed to create screen")
	}
	if err := screen.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize screen")
	}
	defer screen.Fini()

	done := make(chan struct{})
	defer close(done)

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	var last led.LEDs

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if isQuitKey(ev) {
					return ErrQuit
				}
			case *tcell.EventResize:
				w, h := ev.Size()
				t.logger.Debug("terminal resized", "width", w, "height", h)
				screen.Sync()
				t.draw(screen, last)
			}

		case <-t.Ready():
			t.AcquireFrame(func(frame led.LEDs) {
				last = frame.CopyTo(last)
			})
			t.draw(screen, last)
		}
	}
}

func isQuitKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		r := ev.Rune()
		return r == 'q' || r == 'Q' || (r == 'c' && ev.Modifiers()&tcell.ModCtrl != 0)
	default:
		return false
	}
}

func (t *Terminal) draw(screen tcell.Screen, frame led.LEDs) {
	width, height := screen.Size()
	screen.Clear()

	for i, c := range frame {
		x, y := cellPosition(i, width)
		if y >= height {
			break
		}
		screen.SetContent(x, y, ' ', nil, pixelStyle(c))
	}

	screen.Show()
}

// cellPosition returns the cell of pixel i on a screen of the given width.
func cellPosition(i, width int) (x, y int) {
	if width < 1 {
		width = 1
	}
	return i % width, i / width
}

func pixelStyle(c led.RGBColor) tcell.Style {
	return tcell.StyleDefault.Background(tcell.NewRGBColor(int32(c[0]), int32(c[1]), int32(c[2])))
}
