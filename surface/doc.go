// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package surface provides in-memory shadow surfaces and layouts.
//
// An Offscreen is a cpshadow.Surface that is not attached to any window.
// It opens its device through the backend registry and keeps the state a
// host needs to present the shadow: the on-screen bounds, the opacity and
// the logical size of the output. Hosts without a native canvas (the
// ebiten host, the snapshot command, tests) draw Snapshot or
// SnapshotLogical themselves.
//
// # Usage
//
//	import _ "github.com/gogpu/cpshadow/backend/software"
//
//	layout := surface.NewStaticLayout(anchor, container, 2)
//	out := surface.NewOffscreen(container, surface.WithBackend("software"))
//	loop := cpshadow.NewLoop()
//
//	r, err := cpshadow.Initialize(out, layout, loop)
//	if err != nil {
//	    return err
//	}
//	defer r.Dispose()
//
//	r.SetVisible(true)
//	loop.Step(16 * time.Millisecond)
//	img := out.SnapshotLogical()
//
// StaticLayout holds rectangles set by the host. Geometry changes must be
// reported to the renderer with NotifyGeometryChanged, exactly as a
// browser host does on window resize.
package surface
