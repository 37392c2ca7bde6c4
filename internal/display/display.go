// Package display holds the in-memory LED matrix, the driver it is refreshed
// through and the gate that serialises writers.
package display

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/coreman2200/ledmatrix/internal/led"
)

var (
	// ErrTransfer wraps a failed hardware refresh. The frame is lost; no retry
	// is attempted.
	ErrTransfer = errors.New("display: hardware transfer failed")
	// ErrBusy is returned when the gate could not be taken in time.
	ErrBusy = errors.New("display: busy")
)

// FrameSink observes every frame that reached the hardware.
type FrameSink interface {
	PublishFrame(id uint64, rgb []byte)
}

// Display is the fixed-length pixel buffer bound to one LED driver.
//
// Set, Clear and Refresh are the only ways to change or publish display state.
// They are not safe for concurrent use on their own: callers hold the Gate
// around every read-modify-refresh sequence.
type Display struct {
	buf  []Pixel
	raw  []byte
	drv  led.Driver
	sink FrameSink

	frames atomic.Uint64
}

// New allocates a blank display of n pixels on drv.
func New(n int, drv led.Driver) (*Display, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", n)
	}
	if drv == nil {
		return nil, errors.New("display: nil driver")
	}
	return &Display{
		buf: make([]Pixel, n),
		raw: make([]byte, n*3),
		drv: drv,
	}, nil
}

// SetSink attaches a frame observer. Call before any producer starts.
func (d *Display) SetSink(s FrameSink) { d.sink = s }

// Len is the number of pixels, fixed for the lifetime of the display.
func (d *Display) Len() int { return len(d.buf) }

// InRange reports whether index addresses a pixel.
func (d *Display) InRange(index int) bool {
	return index >= 0 && index < len(d.buf)
}

// Set writes one pixel. Out-of-range indices are dropped silently.
func (d *Display) Set(index, r, g, b int) {
	if !d.InRange(index) {
		return
	}
	d.buf[index] = PixelOf(r, g, b)
}

// Clear blanks every pixel.
func (d *Display) Clear() {
	for i := range d.buf {
		d.buf[i] = Off
	}
}

// Refresh transmits the buffer to the hardware. It blocks for the duration of
// the transfer.
func (d *Display) Refresh() error {
	d.raw = Serialize(d.buf, d.raw)
	if err := d.drv.Write(d.raw); err != nil {
		return fmt.Errorf("%w: %v", ErrTransfer, err)
	}
	id := d.frames.Add(1)
	if d.sink != nil {
		d.sink.PublishFrame(id, append([]byte(nil), d.raw...))
	}
	return nil
}

// Frames counts successful refreshes.
func (d *Display) Frames() uint64 { return d.frames.Load() }

// Snapshot returns a copy of the current buffer. Like Set it must be called
// with the Gate held when producers are running.
func (d *Display) Snapshot() []Pixel {
	out := make([]Pixel, len(d.buf))
	copy(out, d.buf)
	return out
}

// Close releases the underlying driver.
func (d *Display) Close() error { return d.drv.Close() }
