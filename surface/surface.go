// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"image"
	"math"

	"github.com/gogpu/cpshadow"
	xdraw "golang.org/x/image/draw"
)

// ErrAlreadyAcquired is returned by a second AcquireDevice call.
var ErrAlreadyAcquired = errors.New("surface: device already acquired")

// Option configures an Offscreen.
type Option func(*Offscreen)

// WithBackend selects a registered backend by name. Without it the best
// available backend is used.
func WithBackend(name string) Option {
	return func(o *Offscreen) {
		o.backend = name
	}
}

// WithTarget sets the backend-specific target passed to the device
// factory, such as a gpucontext provider for the wgpu backend.
func WithTarget(target any) Option {
	return func(o *Offscreen) {
		o.target = target
	}
}

// Offscreen is an in-memory cpshadow.Surface.
//
// Offscreen is NOT thread-safe. It must be used from the goroutine that
// drives the renderer.
type Offscreen struct {
	backend string
	target  any

	bounds   cpshadow.Rect
	attached bool

	device  cpshadow.Device
	opacity float64

	logicalW, logicalH float64
}

// NewOffscreen creates a surface whose top-left corner sits at bounds in
// layout space.
func NewOffscreen(bounds cpshadow.Rect, opts ...Option) *Offscreen {
	o := &Offscreen{
		bounds:   bounds,
		attached: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AcquireDevice opens the device through the backend registry.
func (o *Offscreen) AcquireDevice() (cpshadow.Device, error) {
	if o.device != nil {
		return nil, ErrAlreadyAcquired
	}
	var (
		dev cpshadow.Device
		err error
	)
	if o.backend != "" {
		dev, err = cpshadow.OpenDevice(o.backend, o.target)
	} else {
		dev, err = cpshadow.OpenBestDevice(o.target)
	}
	if err != nil {
		return nil, err
	}
	o.device = dev
	return dev, nil
}

// Backend returns the configured backend name, empty for automatic
// selection.
func (o *Offscreen) Backend() string { return o.backend }

// Bounds returns the surface box in layout space. ok is false while the
// surface is detached.
func (o *Offscreen) Bounds() (cpshadow.Rect, bool) { return o.bounds, o.attached }

// SetBounds moves the surface in layout space.
func (o *Offscreen) SetBounds(r cpshadow.Rect) { o.bounds = r }

// SetAttached attaches or detaches the surface. A detached surface cannot
// be measured, so the renderer skips frames and keeps it transparent.
func (o *Offscreen) SetAttached(attached bool) { o.attached = attached }

// SetOpacity implements cpshadow.Surface.
func (o *Offscreen) SetOpacity(alpha float64) { o.opacity = alpha }

// Opacity returns the presented opacity.
func (o *Offscreen) Opacity() float64 { return o.opacity }

// SetLogicalSize implements cpshadow.LogicalSizer.
func (o *Offscreen) SetLogicalSize(width, height float64) {
	o.logicalW, o.logicalH = width, height
}

// LogicalSize returns the presented size in logical pixels.
func (o *Offscreen) LogicalSize() (width, height float64) {
	return o.logicalW, o.logicalH
}

// Snapshot returns a copy of the framebuffer in device pixels, or nil when
// the device cannot read back or nothing was drawn yet. Opacity is not
// applied.
func (o *Offscreen) Snapshot() *image.RGBA {
	s, ok := o.device.(cpshadow.Snapshotter)
	if !ok {
		return nil
	}
	return s.Snapshot()
}

// SnapshotLogical returns the framebuffer scaled to the logical size, the
// way a browser presents a high-density canvas. It returns the device
// snapshot unchanged when both sizes match.
func (o *Offscreen) SnapshotLogical() *image.RGBA {
	src := o.Snapshot()
	if src == nil {
		return nil
	}
	w := int(math.Round(o.logicalW))
	h := int(math.Round(o.logicalH))
	if w <= 0 || h <= 0 || (w == src.Bounds().Dx() && h == src.Bounds().Dy()) {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
