// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build js && wasm

package dom

import (
	"syscall/js"

	"github.com/gogpu/cpshadow"
)

// Config describes the page elements of a mounted shadow.
type Config struct {
	// Canvas is the <canvas> the shadow is painted into. Required.
	Canvas js.Value

	// Anchor is the command palette element the shadow hangs from.
	Anchor js.Value

	// Container sizes the canvas. Defaults to the canvas parent element.
	Container js.Value

	// Backend names the device backend. Defaults to webgl.
	Backend string

	// Options are passed to cpshadow.Initialize.
	Options []cpshadow.Option
}

// Handle is a mounted shadow.
type Handle struct {
	renderer *cpshadow.Renderer
	sched    *RAFScheduler

	resize   js.Func
	observer js.Value
	observed js.Func

	unmounted bool
}

// Mount initializes a renderer on cfg.Canvas and subscribes it to window
// resizes and to style changes of the anchor.
//
// Mount returns a usable Handle even when it also returns an error: the
// renderer is then disabled and the canvas stays transparent.
func Mount(cfg Config) (*Handle, error) {
	container := cfg.Container
	if !present(container) && present(cfg.Canvas) {
		container = cfg.Canvas.Get("parentElement")
	}

	sched := NewRAFScheduler()
	layout := &ElementLayout{Anchor: cfg.Anchor, Container: container}
	r, err := cpshadow.Initialize(NewCanvas(cfg.Canvas, cfg.Backend), layout, sched, cfg.Options...)

	h := &Handle{renderer: r, sched: sched}
	if err != nil {
		return h, err
	}

	h.resize = js.FuncOf(func(js.Value, []js.Value) any {
		r.NotifyGeometryChanged()
		return nil
	})
	js.Global().Call("addEventListener", "resize", h.resize)

	if present(cfg.Anchor) {
		if mo := js.Global().Get("MutationObserver"); mo.Truthy() {
			h.observed = js.FuncOf(func(js.Value, []js.Value) any {
				r.NotifyGeometryChanged()
				return nil
			})
			h.observer = mo.New(h.observed)
			opts := js.Global().Get("Object").New()
			opts.Set("attributes", true)
			opts.Set("attributeFilter", js.ValueOf([]any{"style", "class"}))
			h.observer.Call("observe", cfg.Anchor, opts)
		}
	}
	return h, nil
}

// Renderer returns the mounted renderer.
func (h *Handle) Renderer() *cpshadow.Renderer { return h.renderer }

// SetVisible shows or hides the shadow together with the palette.
func (h *Handle) SetVisible(visible bool) { h.renderer.SetVisible(visible) }

// AnchorMoved reports a geometry change the page cannot observe, such as
// a script moving the palette.
func (h *Handle) AnchorMoved() { h.renderer.NotifyGeometryChanged() }

// Unmount disposes the renderer and releases every listener. It is safe to
// call more than once.
func (h *Handle) Unmount() {
	if h.unmounted {
		return
	}
	h.unmounted = true

	h.renderer.Dispose()
	h.sched.Close()

	if h.resize.Truthy() {
		js.Global().Call("removeEventListener", "resize", h.resize)
		h.resize.Release()
	}
	if h.observer.Truthy() {
		h.observer.Call("disconnect")
		h.observed.Release()
	}
}
