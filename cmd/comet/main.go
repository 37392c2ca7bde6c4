// Command comet runs the comet trail animation on the LED matrix until
// interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/ledmatrix/internal/app"
	"github.com/coreman2200/ledmatrix/internal/config"
)

// overrides are the flag values that win over the config file. Zero values
// (and -1 for intensity) leave the config untouched.
type overrides struct {
	driver    string
	trail     int
	intensity int
	interval  time.Duration
}

func (o overrides) apply(cfg *config.Config) error {
	if o.interval != 0 && o.interval < time.Millisecond {
		return fmt.Errorf("-interval %s: must be at least 1ms", o.interval)
	}
	if o.driver != "" {
		cfg.Driver = o.driver
	}
	if o.trail > 0 {
		cfg.Animation.Trail = o.trail
	}
	if o.intensity >= 0 {
		cfg.Animation.Intensity = o.intensity
	}
	if o.interval > 0 {
		cfg.Animation.IntervalMs = int(o.interval.Milliseconds())
	}
	return cfg.Validate()
}

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		driver     = flag.String("driver", "", "driver: spi | console | sim")
		trail      = flag.Int("trail", 0, "trail length in pixels (default from config, 16)")
		intensity  = flag.Int("intensity", -1, "head brightness 0..255 (default from config, 10)")
		interval   = flag.Duration("interval", 0, "delay between frames (default from config, 50ms)")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatal().Err(err).Str("path", *configPath).Msg("bad config")
		}
		cfg = config.Default()
	}
	err = overrides{
		driver:    *driver,
		trail:     *trail,
		intensity: *intensity,
		interval:  *interval,
	}.apply(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("bad flags")
	}

	core, err := app.InitCore(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("display init failed")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := core.Comet().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("animation stopped")
	}
	log.Info().Msg("shutting down")
	if err := core.Close(time.Second); err != nil {
		log.Warn().Err(err).Msg("driver close")
	}
}
