// Package led holds the sinks a display is refreshed through: WS2812 over
// SPI, an ANSI console drawer and an in-memory simulator.
package led

// Driver receives whole frames for a strip of fixed length N.
type Driver interface {
	// Write sends one frame as packed R,G,B bytes in strip order, 3 bytes per
	// pixel. len(rgb) is always 3*N; N does not change after open.
	Write(rgb []byte) error
	Close() error
}
