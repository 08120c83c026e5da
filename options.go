package cpshadow

import (
	"log/slog"
	"time"
)

// Option configures a Renderer during Initialize.
//
// Example:
//
//	r, err := cpshadow.Initialize(surf, layout, loop,
//	    cpshadow.WithDebounce(50*time.Millisecond),
//	    cpshadow.WithLogger(logger))
type Option func(*options)

// options holds optional configuration for a Renderer.
type options struct {
	margin   float64
	debounce time.Duration
	shaders  ShaderSet
	logger   *slog.Logger
}

// defaultOptions returns the default renderer options.
func defaultOptions() options {
	return options{
		margin:   VerticalMargin,
		debounce: DebounceWindow,
		shaders:  DefaultShaders(),
		logger:   nil, // Falls back to Logger() at Initialize
	}
}

// WithVerticalMargin sets the logical height added below the container.
// Negative values are ignored.
func WithVerticalMargin(margin float64) Option {
	return func(o *options) {
		if margin >= 0 {
			o.margin = margin
		}
	}
}

// WithDebounce sets the coalescing window for NotifyGeometryChanged.
// A zero or negative window defers the render to the next timer tick.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		o.debounce = max(d, 0)
	}
}

// WithShaders replaces the built-in shader stages.
func WithShaders(s ShaderSet) Option {
	return func(o *options) {
		o.shaders = s
	}
}

// WithLogger sets the logger used by the renderer and its device.
// A nil logger keeps the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
