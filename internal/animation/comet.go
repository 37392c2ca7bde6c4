// Package animation renders the free-running comet trail.
package animation

import (
	"time"

	"github.com/coreman2200/ledmatrix/internal/display"
)

const (
	DefaultLength    = 16
	DefaultIntensity = 10
	DefaultInterval  = 50 * time.Millisecond
)

// Comet is a red head pixel followed by a linearly fading tail.
type Comet struct {
	Length    int
	Intensity uint8
	Interval  time.Duration
}

func DefaultComet() Comet {
	return Comet{
		Length:    DefaultLength,
		Intensity: DefaultIntensity,
		Interval:  DefaultInterval,
	}
}

// Brightness is the red level of the pixel i steps behind the head.
// It is floor(Intensity*(Length-i)/Length) for 0 <= i < Length and 0 beyond.
func (c Comet) Brightness(i int) int {
	if i < 0 || i >= c.Length || c.Length <= 0 {
		return 0
	}
	return int(c.Intensity) * (c.Length - i) / c.Length
}

// Draw replaces the whole buffer with the comet whose head sits at head.
// Trail positions wrap around the strip; a trail longer than the strip
// overlaps itself.
func (c Comet) Draw(d *display.Display, head int) {
	n := d.Len()
	d.Clear()
	d.Set(head, int(c.Intensity), 0, 0)
	for i := 1; i < c.Length; i++ {
		d.Set(wrap(head-i, n), c.Brightness(i), 0, 0)
	}
}

// wrap maps any integer onto [0, n).
func wrap(i, n int) int {
	return ((i % n) + n) % n
}
