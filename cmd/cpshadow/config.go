package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/cpshadow"
)

// Size is a width and height in logical pixels.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Rect is a rectangle in logical pixels relative to the container.
type Rect struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Config is the cpshadow configuration file.
type Config struct {
	// Window is the desktop window size.
	Window Size `yaml:"window"`

	// Container sizes the shadow surface for snapshots. Zero means the
	// window size.
	Container Size `yaml:"container"`

	// Anchor is the palette rectangle used for snapshots. The window
	// host computes its own anchor from the palette animation.
	Anchor Rect `yaml:"anchor"`

	// DPR overrides the device pixel ratio. Zero uses the monitor scale,
	// or 1 when headless.
	DPR float64 `yaml:"dpr"`

	// Backend names the preferred device backend. Empty picks the best
	// available one.
	Backend string `yaml:"backend"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Window:   Size{Width: 960, Height: 640},
		Anchor:   Rect{X: 160, Y: 115, Width: 640, Height: 176},
		LogLevel: "info",
	}
}

// LoadConfig reads the YAML file at path over the defaults. A missing
// file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Container.Width < 0 || c.Container.Height < 0 {
		return fmt.Errorf("container size %dx%d is negative", c.Container.Width, c.Container.Height)
	}
	if c.Anchor.Width < 0 || c.Anchor.Height < 0 {
		return fmt.Errorf("anchor size %vx%v is negative", c.Anchor.Width, c.Anchor.Height)
	}
	if c.DPR < 0 {
		return fmt.Errorf("dpr %v is negative", c.DPR)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// ContainerRect returns the snapshot container, falling back to the
// window size.
func (c Config) ContainerRect() cpshadow.Rect {
	s := c.Container
	if s.Width == 0 || s.Height == 0 {
		s = c.Window
	}
	return cpshadow.Rect{Width: float64(s.Width), Height: float64(s.Height)}
}

// AnchorRect returns the snapshot anchor.
func (c Config) AnchorRect() cpshadow.Rect {
	return cpshadow.Rect{X: c.Anchor.X, Y: c.Anchor.Y, Width: c.Anchor.Width, Height: c.Anchor.Height}
}
