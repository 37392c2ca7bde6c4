// Package layout describes how a rectangular matrix is wired onto one strip.
package layout

import "fmt"

type Layout struct {
	Width  int
	Height int
	// Serpentine reverses every odd row, the usual wiring of WS2812 panels.
	Serpentine bool
}

func (l Layout) Count() int { return l.Width * l.Height }

func (l Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("invalid matrix %dx%d", l.Width, l.Height)
	}
	return nil
}

// Index maps x,y -> linear LED index (0..N-1). ok is false off the matrix.
func (l Layout) Index(x, y int) (idx int, ok bool) {
	if x < 0 || y < 0 || x >= l.Width || y >= l.Height {
		return 0, false
	}
	if l.Serpentine && y%2 == 1 {
		x = l.Width - 1 - x
	}
	return y*l.Width + x, true
}

// Map lists the strip index of every cell in row-major order, so Map()[y*Width+x]
// is the pixel at x,y.
func (l Layout) Map() []int {
	m := make([]int, 0, l.Count())
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			idx, _ := l.Index(x, y)
			m = append(m, idx)
		}
	}
	return m
}
