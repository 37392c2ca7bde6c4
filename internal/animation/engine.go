package animation

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/ledmatrix/internal/display"
)

// Engine advances a Comet one position per frame on a shared display.
type Engine struct {
	disp  *display.Display
	gate  *display.Gate
	comet Comet
	log   zerolog.Logger

	// OnFrameError, if set, is told about each frame that failed to refresh.
	OnFrameError func(head int, err error)

	head int
}

func NewEngine(d *display.Display, g *display.Gate, c Comet, log zerolog.Logger) *Engine {
	if c.Length <= 0 {
		c.Length = DefaultLength
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	return &Engine{
		disp:  d,
		gate:  g,
		comet: c,
		log:   log,
		head:  wrap(c.Length, d.Len()),
	}
}

// Head is the position the next frame will draw its head at. It is only
// meaningful between ticks.
func (e *Engine) Head() int { return e.head }

// Tick draws one frame under the gate and moves the head on. The head
// advances even if the refresh failed.
func (e *Engine) Tick(ctx context.Context) error {
	err := e.gate.Do(ctx, func() error {
		e.comet.Draw(e.disp, e.head)
		return e.disp.Refresh()
	})
	if err != nil && ctx.Err() != nil {
		return err
	}
	e.head = wrap(e.head+1, e.disp.Len())
	return err
}

// Run ticks until ctx is done, sleeping Interval between frames. Frame
// failures are logged and never stop the loop.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info().
		Int("trail", e.comet.Length).
		Int("intensity", int(e.comet.Intensity)).
		Dur("interval", e.comet.Interval).
		Msg("comet animation running")

	for {
		head := e.head
		if err := e.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.log.Error().Err(err).Int("head", head).Msg("animation frame dropped")
			if e.OnFrameError != nil {
				e.OnFrameError(head, err)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.comet.Interval):
		}
	}
}
