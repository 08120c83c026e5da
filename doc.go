// Package cpshadow paints the animated drop shadow that hangs below the
// command-palette modal.
//
// # Overview
//
// A Renderer owns one output surface layered behind one anchor element. On
// every animation frame it measures the anchor and the container, sizes the
// surface to the container plus a margin below it, and draws five stacked
// gaussian shadow layers with a slowly drifting fog modulation. While the
// palette is closed, or while the anchor has no area, nothing is drawn and
// the surface opacity is 0.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/cpshadow"
//	    _ "github.com/gogpu/cpshadow/backend/software"
//	    "github.com/gogpu/cpshadow/surface"
//	)
//
//	loop := cpshadow.NewLoop()
//	surf := surface.NewOffscreen(cpshadow.Rect{Width: 800, Height: 600})
//	layout := surface.NewStaticLayout(anchor, container, 2)
//
//	r, err := cpshadow.Initialize(surf, layout, loop)
//	if err != nil {
//	    // r is disabled and the surface stays transparent.
//	}
//	defer r.Dispose()
//
//	r.SetVisible(true)
//	loop.Step(16 * time.Millisecond)
//
// # Hosts
//
// The renderer never touches a windowing system. Hosts supply three
// things: a Surface (where pixels go and how to get a Device), a Layout
// (live rectangles and the device pixel ratio) and a Scheduler (frame and
// timer callbacks on the UI goroutine). See integration/dom for the
// browser and integration/ebitenhost for the desktop.
//
// # Backends
//
// Devices come from registered backends:
//   - wgpu: Vulkan through gogpu/wgpu, WGSL stages
//   - webgl: browser WebGL through syscall/js, GLSL ES stages
//   - software: CPU evaluation of the same shading, always available
//
// # Coordinate System
//
// Uses layout coordinates:
//   - Origin (0,0) at top-left
//   - X increases right
//   - Y increases down
//   - Rect values are logical pixels, device pixels are logical * dpr
package cpshadow
