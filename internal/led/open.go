package led

import (
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"
)

// Driver names accepted by Open.
const (
	KindSPI     = "spi"
	KindConsole = "console"
	KindSim     = "sim"
)

type Options struct {
	Driver  string
	Port    string
	SpeedHz int
	Count   int
}

// Open selects and opens a driver. A failed SPI open falls back to the console
// drawer; the returned kind names what was actually opened.
func Open(o Options, log zerolog.Logger) (Driver, string, error) {
	switch o.Driver {
	case KindSim:
		s := NewSim()
		s.Log = log
		return s, KindSim, nil

	case KindConsole:
		d, err := NewConsole(o.Count)
		return d, KindConsole, err

	case KindSPI, "":
		d, err := OpenSPI(o.Port, o.Count, physic.Frequency(o.SpeedHz)*physic.Hertz)
		if err == nil {
			return d, KindSPI, nil
		}
		log.Warn().Err(err).
			Str("driver", KindSPI).
			Str("port", o.Port).
			Int("speed_hz", o.SpeedHz).
			Msg("SPI init failed; falling back to console")
		c, cerr := NewConsole(o.Count)
		return c, KindConsole, cerr

	default:
		return nil, "", fmt.Errorf("unknown driver %q", o.Driver)
	}
}
