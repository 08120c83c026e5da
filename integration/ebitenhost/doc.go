// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package ebitenhost runs the shadow renderer behind a command palette in
// an Ebitengine window.
//
// The window plays the role of the shadow container and the palette modal
// is the anchor. The renderer draws into an offscreen surface which the
// host composites under the modal every frame, scaled by the surface
// opacity. Timers and animation frames come from a cpshadow.Loop advanced
// once per tick, so the renderer never runs off the game goroutine.
//
// # Keys
//
//	Ctrl+P / Cmd+P  toggle the palette
//	Esc             close the palette
//
// # Usage
//
//	h, err := ebitenhost.New(ebitenhost.Config{Width: 960, Height: 640})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//	if err := ebiten.RunGame(h); err != nil {
//	    log.Fatal(err)
//	}
package ebitenhost
