package cpshadow

import "time"

// Shading constants shared by every backend. The WGSL and GLSL fragment
// stages hard-code the same values.
const (
	// HorizontalWeight scales the squared horizontal distance so the
	// falloff is tighter sideways than downward.
	HorizontalWeight = 2.0

	// SigmaDivisor converts a layer's blur radius into a gaussian sigma.
	SigmaDivisor = 2.0

	// SigmaFloor is the smallest sigma, in device pixels.
	SigmaFloor = 4.0

	// ExtensionFactor sizes the horizontal soft-extension band relative
	// to the layer's blur radius.
	ExtensionFactor = 0.6

	// ExtensionFloor is the weight at the far edge of the extension band.
	ExtensionFloor = 0.25

	// FogFloor is the darkest value of the drifting fog modulation.
	FogFloor = 0.4

	// VerticalMargin is the extra logical height below the container
	// reserved for the shadow to fall into.
	VerticalMargin = 300.0

	// DebounceWindow is the default coalescing window for geometry
	// change notifications.
	DebounceWindow = 100 * time.Millisecond
)

// ShadowLayer describes one stacked drop shadow. Offsets and blur are in
// logical pixels; Color channels are in [0, 1].
type ShadowLayer struct {
	OffsetX, OffsetY float64
	Blur             float64
	Color            RGBA
	Alpha            float64
}

// layers is ordered from the widest, faintest shadow to the tightest.
var layers = [5]ShadowLayer{
	{OffsetX: -21, OffsetY: 202.75, Blur: 138, Color: RGB255(228, 238, 151), Alpha: 0.02 * 5},
	{OffsetX: -14, OffsetY: 166.5, Blur: 126, Color: RGB255(229, 90, 90), Alpha: 0.14 * 2},
	{OffsetX: -8, OffsetY: 88.25, Blur: 106, Color: RGB255(74, 234, 146), Alpha: 0.31 * 1.5},
	{OffsetX: -3, OffsetY: 19.75, Blur: 79, Color: RGB255(100, 128, 236), Alpha: 0.58},
	{OffsetX: -1, OffsetY: 10, Blur: 43, Color: RGB255(107, 107, 107), Alpha: 0.86},
}

// Layers returns the five shadow layers. The result is a copy.
func Layers() [5]ShadowLayer {
	return layers
}
