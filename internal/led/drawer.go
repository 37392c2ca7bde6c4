package led

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"
)

// NRZFreq is the SPI bit rate nrzled encodes WS2812 frames at. It is the only
// rate the encoder accepts.
const NRZFreq = 2500 * physic.KiloHertz

// Drawer adapts a periph display.Drawer that is one pixel high and count
// pixels wide into a Driver.
type Drawer struct {
	mu     sync.Mutex
	drawer display.Drawer
	closer io.Closer
	count  int
	img    *image.NRGBA
}

// NewDrawer wraps d. closer, if not nil, is closed after the drawer is halted.
func NewDrawer(d display.Drawer, closer io.Closer, count int) (*Drawer, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", count)
	}
	return &Drawer{
		drawer: d,
		closer: closer,
		count:  count,
		img:    image.NewNRGBA(image.Rect(0, 0, count, 1)),
	}, nil
}

// OpenSPI drives a WS2812 strip over the named SPI port ("" for the first one).
func OpenSPI(port string, count int, freq physic.Frequency) (*Drawer, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", port, err)
	}
	d, err := NewNRZ(p, count, freq)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return d, nil
}

// NewNRZ builds an nrzled device on an already open port.
func NewNRZ(p spi.PortCloser, count int, freq physic.Frequency) (*Drawer, error) {
	if freq == 0 {
		freq = NRZFreq
	}
	if freq != NRZFreq {
		return nil, fmt.Errorf("spi speed %s unsupported for %d pixels: WS2812 over SPI needs %s", freq, count, NRZFreq)
	}
	dev, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: count,
		Channels:  3,
		Freq:      freq,
	})
	if err != nil {
		return nil, fmt.Errorf("%d pixels on %s: %w", count, p, err)
	}
	if err := dev.Halt(); err != nil {
		return nil, fmt.Errorf("blank %d pixels on %s: %w", count, p, err)
	}
	return NewDrawer(dev, p, count)
}

// NewConsole prints frames to the terminal with ANSI colours.
func NewConsole(count int) (*Drawer, error) {
	return NewDrawer(screen.New(count), nil, count)
}

func (d *Drawer) String() string { return d.drawer.String() }

func (d *Drawer) Write(rgb []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.drawer == nil {
		return errors.New("drawer closed")
	}
	if len(rgb) != d.count*3 {
		return fmt.Errorf("rgb length %d does not match count %d", len(rgb), d.count)
	}
	for i := 0; i < d.count; i++ {
		o := i * 4
		d.img.Pix[o+0] = rgb[i*3+0]
		d.img.Pix[o+1] = rgb[i*3+1]
		d.img.Pix[o+2] = rgb[i*3+2]
		d.img.Pix[o+3] = 255
	}
	return d.drawer.Draw(d.drawer.Bounds(), d.img, image.Point{})
}

func (d *Drawer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.drawer == nil {
		return nil
	}
	err := d.drawer.Halt()
	if d.closer != nil {
		if cerr := d.closer.Close(); err == nil {
			err = cerr
		}
	}
	d.drawer = nil
	return err
}
