package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/ledmatrix/internal/layout"
)

type Matrix struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Serpentine bool `yaml:"serpentine"`
}

type SPI struct {
	Port    string `yaml:"port"`     // spireg name, "" for the first port
	SpeedHz int    `yaml:"speed_hz"` // SPI bit rate; 0 or 2500000 (nrzled only encodes at 2.5MHz)
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Command struct {
	TimeoutMs int  `yaml:"timeout_ms"`
	Strict    bool `yaml:"strict"`
}

type Animation struct {
	Enabled    bool `yaml:"enabled"`
	Trail      int  `yaml:"trail"`
	Intensity  int  `yaml:"intensity"`
	IntervalMs int  `yaml:"interval_ms"`
}

type Config struct {
	Driver    string    `yaml:"driver"` // "spi" | "console" | "sim"
	SPI       SPI       `yaml:"spi,omitempty"`
	Matrix    Matrix    `yaml:"matrix"`
	HTTP      HTTP      `yaml:"http"`
	Command   Command   `yaml:"command"`
	Animation Animation `yaml:"animation"`
}

// NRZSpeedHz is the SPI clock WS2812 frames are encoded at.
const NRZSpeedHz = 2500000

// Default is a 16x16 serpentine panel on the first SPI port.
func Default() *Config {
	return &Config{
		Driver: "spi",
		SPI:    SPI{SpeedHz: NRZSpeedHz},
		Matrix: Matrix{Width: 16, Height: 16, Serpentine: true},
		HTTP:   HTTP{Addr: ":80"},
		Command: Command{
			TimeoutMs: 100,
		},
		Animation: Animation{
			Trail:      16,
			Intensity:  10,
			IntervalMs: 50,
		},
	}
}

// Load reads path over the defaults; fields absent from the file keep their
// default value.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if err := c.Layout().Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Driver {
	case "spi", "console", "sim":
	default:
		errs = append(errs, fmt.Errorf("unknown driver %q", c.Driver))
	}
	if c.SPI.SpeedHz != 0 && c.SPI.SpeedHz != NRZSpeedHz {
		errs = append(errs, fmt.Errorf("spi.speed_hz must be %d (or unset), got %d", NRZSpeedHz, c.SPI.SpeedHz))
	}
	if c.Command.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("command.timeout_ms must be positive, got %d", c.Command.TimeoutMs))
	}
	if c.Animation.Trail <= 0 {
		errs = append(errs, fmt.Errorf("animation.trail must be positive, got %d", c.Animation.Trail))
	}
	if c.Animation.Intensity < 0 || c.Animation.Intensity > 255 {
		errs = append(errs, fmt.Errorf("animation.intensity out of range: %d", c.Animation.Intensity))
	}
	if c.Animation.IntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("animation.interval_ms must be positive, got %d", c.Animation.IntervalMs))
	}
	return errors.Join(errs...)
}

func (c *Config) Layout() layout.Layout {
	return layout.Layout{Width: c.Matrix.Width, Height: c.Matrix.Height, Serpentine: c.Matrix.Serpentine}
}

func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Command.TimeoutMs) * time.Millisecond
}

func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Animation.IntervalMs) * time.Millisecond
}
