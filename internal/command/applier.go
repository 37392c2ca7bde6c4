// Package command applies externally requested pixel changes to a shared
// display.
package command

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/ledmatrix/internal/display"
)

// DefaultTimeout bounds how long a command waits for the display gate.
const DefaultTimeout = 100 * time.Millisecond

// Stats counts command outcomes since start.
type Stats struct {
	Accepted uint64 `json:"accepted"`
	Busy     uint64 `json:"busy"`
	Dropped  uint64 `json:"dropped"`
	Failed   uint64 `json:"failed"`
}

// Applier turns pixel and clear commands into gated display updates.
type Applier struct {
	disp    *display.Display
	gate    *display.Gate
	timeout time.Duration
	log     zerolog.Logger

	accepted, busy, dropped, failed atomic.Uint64
}

// Option tweaks an Applier.
type Option func(*Applier)

func WithTimeout(d time.Duration) Option {
	return func(a *Applier) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Applier) { a.log = l }
}

func NewApplier(d *display.Display, g *display.Gate, opts ...Option) *Applier {
	a := &Applier{
		disp:    d,
		gate:    g,
		timeout: DefaultTimeout,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ApplyPixel sets one pixel and refreshes the strip.
//
// An index outside the display is dropped without touching the gate and
// without an error. If the gate cannot be taken within the timeout the result
// is display.ErrBusy and nothing changes. Channel values are passed through
// to the display, which clamps them.
func (a *Applier) ApplyPixel(index, r, g, b int) error {
	if !a.disp.InRange(index) {
		a.dropped.Add(1)
		a.log.Debug().Int("index", index).Int("count", a.disp.Len()).Msg("pixel out of range; dropped")
		return nil
	}
	err := a.gate.DoTimeout(a.timeout, func() error {
		a.disp.Set(index, r, g, b)
		return a.disp.Refresh()
	})
	a.record(err)
	if err != nil {
		a.log.Warn().Err(err).Int("index", index).Msg("pixel command failed")
	}
	return err
}

// Apply runs a decoded command.
func (a *Applier) Apply(c PixelCommand) error {
	return a.ApplyPixel(c.Index, c.R, c.G, c.B)
}

// ApplyClear blanks the strip under the same bounded wait as ApplyPixel.
func (a *Applier) ApplyClear() error {
	err := a.gate.DoTimeout(a.timeout, func() error {
		a.disp.Clear()
		return a.disp.Refresh()
	})
	a.record(err)
	if err != nil {
		a.log.Warn().Err(err).Msg("clear command failed")
	}
	return err
}

func (a *Applier) record(err error) {
	switch {
	case err == nil:
		a.accepted.Add(1)
	case errors.Is(err, display.ErrBusy):
		a.busy.Add(1)
	default:
		a.failed.Add(1)
	}
}

func (a *Applier) Stats() Stats {
	return Stats{
		Accepted: a.accepted.Load(),
		Busy:     a.busy.Load(),
		Dropped:  a.dropped.Load(),
		Failed:   a.failed.Load(),
	}
}
