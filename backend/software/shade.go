package software

import (
	"math"

	"github.com/gogpu/cpshadow"
)

// Shade evaluates the shadow fragment stage at pixel position (px, py) in
// surface pixels. The result is the premultiplied sum of the five layers,
// before clamping and blending.
func Shade(px, py float64, u cpshadow.Uniforms) (r, g, b, a float64) {
	f := Fog(px, py, float64(u.Time))
	for _, l := range cpshadow.Layers() {
		i := LayerIntensity(px, py, l, u) * f
		r += l.Color.R * i
		g += l.Color.G * i
		b += l.Color.B * i
		a += i
	}
	return r, g, b, a
}

// Fog is the drifting intensity multiplier. It stays within
// [cpshadow.FogFloor, 1] and depends only on position and time.
func Fog(px, py, t float64) float64 {
	n := 0.5*math.Sin(0.011*px+0.7*t) +
		0.3*math.Cos(0.017*py-0.5*t) +
		0.2*math.Sin(0.007*(px+py)+1.3*t)
	return mix(cpshadow.FogFloor, 1, 0.5+0.5*n)
}

// LayerIntensity is the unfogged coverage of one layer at (px, py),
// already scaled by the layer's alpha.
func LayerIntensity(px, py float64, l cpshadow.ShadowLayer, u cpshadow.Uniforms) float64 {
	dpr := float64(u.PixelRatio)
	ox, oy := l.OffsetX*dpr, l.OffsetY*dpr

	left := float64(u.AnchorPos[0])
	right := left + float64(u.AnchorSize[0])
	bottom := float64(u.AnchorPos[1]) + float64(u.AnchorSize[1])

	if py < bottom+oy {
		return 0
	}

	x := px - ox
	dx := math.Abs(x - clamp(x, left, right))
	dy := py - bottom - oy
	dist2 := cpshadow.HorizontalWeight*dx*dx + dy*dy

	scaled := l.Blur * dpr
	sigma := math.Max(scaled/cpshadow.SigmaDivisor, cpshadow.SigmaFloor)
	g := math.Exp(-dist2 / (2 * sigma * sigma))

	band := math.Max(scaled*cpshadow.ExtensionFactor, 1)
	ext := mix(cpshadow.ExtensionFloor, 1, 1-smoothstep(0, band, dx))

	return g * ext * l.Alpha
}

func mix(a, b, t float64) float64 { return a + (b-a)*t }

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

func smoothstep(e0, e1, x float64) float64 {
	t := clamp((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}
