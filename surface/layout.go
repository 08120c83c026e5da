// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import "github.com/gogpu/cpshadow"

// StaticLayout is a cpshadow.Layout whose boxes are set by the host.
type StaticLayout struct {
	anchor    cpshadow.Rect
	anchorOK  bool
	container cpshadow.Rect
	dpr       float64
}

// NewStaticLayout returns a layout with the given anchor and container in
// logical pixels and the device pixel ratio dpr.
func NewStaticLayout(anchor, container cpshadow.Rect, dpr float64) *StaticLayout {
	return &StaticLayout{
		anchor:    anchor,
		anchorOK:  true,
		container: container,
		dpr:       dpr,
	}
}

// AnchorBounds implements cpshadow.Layout.
func (l *StaticLayout) AnchorBounds() (cpshadow.Rect, bool) { return l.anchor, l.anchorOK }

// ContainerBounds implements cpshadow.Layout.
func (l *StaticLayout) ContainerBounds() (cpshadow.Rect, bool) { return l.container, true }

// DevicePixelRatio implements cpshadow.Layout.
func (l *StaticLayout) DevicePixelRatio() float64 { return l.dpr }

// SetAnchor moves the anchor and marks it present.
func (l *StaticLayout) SetAnchor(r cpshadow.Rect) {
	l.anchor = r
	l.anchorOK = true
}

// HideAnchor marks the anchor as detached.
func (l *StaticLayout) HideAnchor() { l.anchorOK = false }

// SetContainer resizes the container.
func (l *StaticLayout) SetContainer(r cpshadow.Rect) { l.container = r }

// SetDevicePixelRatio changes the pixel ratio.
func (l *StaticLayout) SetDevicePixelRatio(dpr float64) { l.dpr = dpr }
