// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build js && wasm

// Package dom hosts the shadow renderer in a browser page.
//
// The shadow is painted into a <canvas> that sits behind the command
// palette. The canvas is sized from its parent element (the container)
// plus the renderer's vertical margin, and the anchor is the palette's
// modal element. Both are measured with getBoundingClientRect, so the
// anchor position is always relative to the canvas.
//
// # Usage
//
//	h, err := dom.Mount(dom.Config{
//	    Canvas: doc.Call("getElementById", "shadow"),
//	    Anchor: doc.Call("getElementById", "palette"),
//	})
//	if err != nil {
//	    // The page works without the shadow; h is still usable.
//	    slog.Warn("shadow disabled", "err", err)
//	}
//	defer h.Unmount()
//
//	h.SetVisible(true)  // palette opened
//	h.AnchorMoved()     // palette moved by script
//
// Window resizes and style changes of the anchor are reported to the
// renderer automatically. All calls must run on the browser main
// goroutine.
package dom
