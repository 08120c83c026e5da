package cpshadow

import "math"

// Rect is an axis-aligned rectangle in logical (CSS) pixels.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Empty reports whether r has no area. NaN sizes count as empty.
func (r Rect) Empty() bool {
	return !(r.Width > 0 && r.Height > 0)
}

// AnchorGeometry is the anchor's box in surface-pixel space.
type AnchorGeometry struct {
	Left, Top     float64
	Width, Height float64
}

// Bottom returns the y coordinate of the anchor's bottom edge.
func (a AnchorGeometry) Bottom() float64 { return a.Top + a.Height }

// FrameGeometry is everything a frame needs from live layout.
type FrameGeometry struct {
	// Width and Height are the surface size in device pixels.
	Width, Height int
	Anchor        AnchorGeometry
	PixelRatio    float64
}

// normalizeRatio maps unusable device pixel ratios to 1.
func normalizeRatio(dpr float64) float64 {
	if dpr <= 0 || math.IsNaN(dpr) || math.IsInf(dpr, 0) {
		return 1
	}
	return dpr
}

// SurfaceSize returns the device-pixel size of a surface covering container
// plus margin logical pixels below it.
func SurfaceSize(container Rect, margin, dpr float64) (width, height int) {
	dpr = normalizeRatio(dpr)
	width = int(math.Round(container.Width * dpr))
	height = int(math.Round((container.Height + margin) * dpr))
	return width, height
}

// Measure reads the current layout and derives the frame geometry.
// The anchor is expressed relative to the surface origin and scaled into
// device pixels. It returns ErrMeasurementUnavailable when the anchor, the
// container or the surface cannot be measured or the anchor has no area.
func Measure(layout Layout, surface Surface, margin float64) (FrameGeometry, error) {
	if layout == nil || surface == nil {
		return FrameGeometry{}, ErrMeasurementUnavailable
	}
	anchor, ok := layout.AnchorBounds()
	if !ok || anchor.Empty() {
		return FrameGeometry{}, ErrMeasurementUnavailable
	}
	container, ok := layout.ContainerBounds()
	if !ok || container.Empty() {
		return FrameGeometry{}, ErrMeasurementUnavailable
	}
	origin, ok := surface.Bounds()
	if !ok {
		return FrameGeometry{}, ErrMeasurementUnavailable
	}

	dpr := normalizeRatio(layout.DevicePixelRatio())
	w, h := SurfaceSize(container, margin, dpr)
	if w <= 0 || h <= 0 {
		return FrameGeometry{}, ErrMeasurementUnavailable
	}

	return FrameGeometry{
		Width:  w,
		Height: h,
		Anchor: AnchorGeometry{
			Left:   (anchor.X - origin.X) * dpr,
			Top:    (anchor.Y - origin.Y) * dpr,
			Width:  anchor.Width * dpr,
			Height: anchor.Height * dpr,
		},
		PixelRatio: dpr,
	}, nil
}
