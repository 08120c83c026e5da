// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build js && wasm

package dom

import (
	"errors"
	"strconv"
	"syscall/js"

	"github.com/gogpu/cpshadow"
	"github.com/gogpu/cpshadow/backend/webgl"
)

// ErrNoCanvas is returned when the canvas element is missing.
var ErrNoCanvas = errors.New("dom: canvas element is missing")

// present reports whether v refers to an element in the document.
func present(v js.Value) bool {
	if v.IsUndefined() || v.IsNull() {
		return false
	}
	connected := v.Get("isConnected")
	return connected.IsUndefined() || connected.Bool()
}

// boundingRect returns the element's box in viewport coordinates.
func boundingRect(el js.Value) (cpshadow.Rect, bool) {
	if !present(el) {
		return cpshadow.Rect{}, false
	}
	r := el.Call("getBoundingClientRect")
	return cpshadow.Rect{
		X:      r.Get("left").Float(),
		Y:      r.Get("top").Float(),
		Width:  r.Get("width").Float(),
		Height: r.Get("height").Float(),
	}, true
}

// Canvas is a cpshadow.Surface backed by a <canvas> element.
type Canvas struct {
	el      js.Value
	backend string
}

// NewCanvas wraps el. backend selects a registered backend; empty means
// webgl.
func NewCanvas(el js.Value, backend string) *Canvas {
	if backend == "" {
		backend = webgl.BackendName
	}
	return &Canvas{el: el, backend: backend}
}

// Element returns the wrapped canvas element.
func (c *Canvas) Element() js.Value { return c.el }

// AcquireDevice opens the configured backend on the canvas.
func (c *Canvas) AcquireDevice() (cpshadow.Device, error) {
	if !present(c.el) {
		return nil, ErrNoCanvas
	}
	return cpshadow.OpenDevice(c.backend, c.el)
}

// Bounds implements cpshadow.Surface.
func (c *Canvas) Bounds() (cpshadow.Rect, bool) { return boundingRect(c.el) }

// SetOpacity sets the canvas style opacity.
func (c *Canvas) SetOpacity(alpha float64) {
	if !present(c.el) {
		return
	}
	c.el.Get("style").Set("opacity", strconv.FormatFloat(alpha, 'g', -1, 64))
}

// SetLogicalSize sets the canvas CSS size.
func (c *Canvas) SetLogicalSize(width, height float64) {
	if !present(c.el) {
		return
	}
	style := c.el.Get("style")
	style.Set("width", strconv.FormatFloat(width, 'f', -1, 64)+"px")
	style.Set("height", strconv.FormatFloat(height, 'f', -1, 64)+"px")
}

// ElementLayout measures the anchor and container elements of the page.
type ElementLayout struct {
	Anchor    js.Value
	Container js.Value
}

// AnchorBounds implements cpshadow.Layout.
func (l *ElementLayout) AnchorBounds() (cpshadow.Rect, bool) { return boundingRect(l.Anchor) }

// ContainerBounds implements cpshadow.Layout.
func (l *ElementLayout) ContainerBounds() (cpshadow.Rect, bool) { return boundingRect(l.Container) }

// DevicePixelRatio returns window.devicePixelRatio.
func (l *ElementLayout) DevicePixelRatio() float64 {
	v := js.Global().Get("devicePixelRatio")
	if v.Type() != js.TypeNumber {
		return 1
	}
	return v.Float()
}
