// Package app wires the display core shared by both entry points.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/ledmatrix/internal/animation"
	"github.com/coreman2200/ledmatrix/internal/command"
	"github.com/coreman2200/ledmatrix/internal/config"
	"github.com/coreman2200/ledmatrix/internal/display"
	"github.com/coreman2200/ledmatrix/internal/led"
)

// Core is the one display context of the process. Both producers reach the
// hardware only through Disp while holding Gate.
type Core struct {
	Disp   *display.Display
	Gate   *display.Gate
	Driver string

	cfg *config.Config
	log zerolog.Logger
}

// InitCore opens the driver named by cfg and starts from a blank, refreshed
// display.
func InitCore(cfg *config.Config, log zerolog.Logger) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := cfg.Layout().Count()
	drv, kind, err := led.Open(led.Options{
		Driver:  cfg.Driver,
		Port:    cfg.SPI.Port,
		SpeedHz: cfg.SPI.SpeedHz,
		Count:   n,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open %s driver: %w", cfg.Driver, err)
	}
	return NewCore(drv, kind, cfg, log)
}

// NewCore builds the context on an already open driver.
func NewCore(drv led.Driver, kind string, cfg *config.Config, log zerolog.Logger) (*Core, error) {
	disp, err := display.New(cfg.Layout().Count(), drv)
	if err != nil {
		_ = drv.Close()
		return nil, err
	}
	c := &Core{
		Disp:   disp,
		Gate:   display.NewGate(),
		Driver: kind,
		cfg:    cfg,
		log:    log,
	}
	// Nothing else can hold the gate yet.
	if err := c.Disp.Refresh(); err != nil {
		log.Warn().Err(err).Msg("initial clear failed")
	}
	log.Info().Str("driver", kind).Int("count", disp.Len()).Msg("display ready")
	return c, nil
}

func (c *Core) Applier() *command.Applier {
	return command.NewApplier(c.Disp, c.Gate,
		command.WithTimeout(c.cfg.CommandTimeout()),
		command.WithLogger(c.log.With().Str("component", "command").Logger()),
	)
}

func (c *Core) Comet() *animation.Engine {
	return animation.NewEngine(c.Disp, c.Gate, animation.Comet{
		Length:    c.cfg.Animation.Trail,
		Intensity: uint8(c.cfg.Animation.Intensity),
		Interval:  c.cfg.FrameInterval(),
	}, c.log.With().Str("component", "animation").Logger())
}

// Close blanks the strip, waiting up to timeout for the current writer, then
// releases the driver.
func (c *Core) Close(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := c.Gate.Do(ctx, func() error {
		c.Disp.Clear()
		return c.Disp.Refresh()
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("final clear failed")
	}
	return c.Disp.Close()
}
